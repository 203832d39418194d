// Command schema writes the JSON Schema of the server's outbound messages.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"github.com/tecu23/maze-server/pkg/messages"
)

// outboundEvents maps every outbound event name to its payload.
type outboundEvents struct {
	Connected        messages.ConnectedPayload        `json:"connected"`
	SoloGameState    messages.SoloGameStatePayload    `json:"soloGameState"`
	GameFinished     messages.GameFinishedPayload     `json:"gameFinished"`
	SoloResultsSaved messages.SoloResultsSavedPayload `json:"soloResultsSaved"`
	SoloLeaderboard  messages.SoloLeaderboardPayload  `json:"soloLeaderboard"`
	SoloBestSplits   messages.SoloBestSplitsPayload   `json:"soloBestSplits"`
	Error            messages.ErrorPayload            `json:"error"`
}

func main() {
	var outPath string
	flag.StringVar(&outPath, "out", "", "path to write the JSON schema")
	flag.Parse()

	if outPath == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	if err := writeSchema(outPath, buildSchema()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
		os.Exit(1)
	}
}

func buildSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	schema := reflector.Reflect(new(outboundEvents))
	schema.Title = "Maze Server Outbound Messages"
	schema.Description = "Payload of every {event, payload} message the server sends, keyed by event name"
	return schema
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}
