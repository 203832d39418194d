// Package validation decides whether a finished solo run is plausible enough
// to be published. It performs no I/O and reads no clock.
package validation

import (
	"errors"
	"fmt"
	"math"
)

// Rule names the check a run failed.
type Rule string

// Checks in the order they are applied.
const (
	RuleSplitCount    Rule = "split_count"
	RuleNonFinite     Rule = "non_finite_split"
	RuleTooFast       Rule = "split_too_fast"
	RuleTooSlow       Rule = "split_too_slow"
	RuleAnomalies     Rule = "too_many_anomalies"
	RuleTotalMismatch Rule = "total_mismatch"
)

// Limits used by Validate.
const (
	MinSplitSeconds    = 0.5
	MaxSplitSeconds    = 120.0
	AnomalyFactor      = 3.0
	MaxAnomalies       = 2
	MinTotalTolerance  = 2.0
	TotalToleranceFrac = 0.05
)

// Error reports the first rule a run failed.
type Error struct {
	Rule   Rule
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("run rejected (%s): %s", e.Rule, e.Detail)
}

func reject(rule Rule, format string, args ...any) *Error {
	return &Error{Rule: rule, Detail: fmt.Sprintf(format, args...)}
}

// Validate checks splits against maxLevel and the total time claimed for the
// run. It returns nil when the run is acceptable, otherwise an *Error for the
// first failing rule.
func Validate(splits []float64, maxLevel int, claimedTotal float64) error {
	if len(splits) != maxLevel {
		return reject(RuleSplitCount, "got %d splits, want %d", len(splits), maxLevel)
	}

	for i, s := range splits {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return reject(RuleNonFinite, "level %d split is %v", i+1, s)
		}
	}

	for i, s := range splits {
		if s <= MinSplitSeconds {
			return reject(RuleTooFast, "level %d split %.3fs is at or below %.1fs", i+1, s, MinSplitSeconds)
		}
	}

	for i, s := range splits {
		if s >= MaxSplitSeconds {
			return reject(RuleTooSlow, "level %d split %.3fs is at or above %.0fs", i+1, s, MaxSplitSeconds)
		}
	}

	sum := 0.0
	for _, s := range splits {
		sum += s
	}

	// An empty run only passes when maxLevel is zero; there is nothing to average.
	if len(splits) > 0 {
		avg := sum / float64(len(splits))
		anomalies := 0
		for _, s := range splits {
			if s > AnomalyFactor*avg {
				anomalies++
			}
		}
		if anomalies > MaxAnomalies {
			return reject(RuleAnomalies, "%d splits exceed %.0fx the %.3fs average", anomalies, AnomalyFactor, avg)
		}
	}

	if math.IsNaN(claimedTotal) || math.IsInf(claimedTotal, 0) {
		return reject(RuleTotalMismatch, "total is %v", claimedTotal)
	}
	tolerance := math.Max(MinTotalTolerance, claimedTotal*TotalToleranceFrac)
	if diff := math.Abs(sum - claimedTotal); diff > tolerance {
		return reject(RuleTotalMismatch, "splits sum to %.3fs, total is %.3fs (tolerance %.3fs)", sum, claimedTotal, tolerance)
	}

	return nil
}

// Valid reports whether Validate accepts the run.
func Valid(splits []float64, maxLevel int, claimedTotal float64) bool {
	return Validate(splits, maxLevel, claimedTotal) == nil
}

// RuleOf returns the rule carried by err, or "" when err is not a
// validation error.
func RuleOf(err error) Rule {
	var e *Error
	if errors.As(err, &e) {
		return e.Rule
	}
	return ""
}
