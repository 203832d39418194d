package game

import (
	"errors"
	"fmt"
)

// Shop item identifiers. Each unlocks a feature for the rest of the run.
const (
	ItemDash       = "dash"
	ItemCheckpoint = "checkpoint"
	ItemMagnet     = "magnet"
)

// GemsPerLevel is the currency awarded for every completed level.
const GemsPerLevel = 1

var (
	// ErrShopClosed is returned for purchases outside an open shop.
	ErrShopClosed = errors.New("shop is not open")
	// ErrUnknownItem is returned for item ids not in the catalog.
	ErrUnknownItem = errors.New("unknown shop item")
	// ErrAlreadyOwned is returned when a feature is bought twice.
	ErrAlreadyOwned = errors.New("item already owned")
	// ErrInsufficientGems is returned when the player cannot afford an item.
	ErrInsufficientGems = errors.New("not enough gems")
)

// ShopItem is one entry of the shop catalog.
type ShopItem struct {
	ID          string
	Name        string
	Description string
	Price       int
}

// Catalog lists everything the shop sells, in display order.
var Catalog = []ShopItem{
	{ID: ItemDash, Name: "Dash", Description: "Sprint up to four cells in the facing direction.", Price: 2},
	{ID: ItemCheckpoint, Name: "Checkpoint", Description: "Mark a cell and teleport back to it.", Price: 2},
	{ID: ItemMagnet, Name: "Magnet", Description: "Collect the coin from an adjacent cell.", Price: 3},
}

func findItem(id string) (ShopItem, bool) {
	for _, item := range Catalog {
		if item.ID == id {
			return item, true
		}
	}
	return ShopItem{}, false
}

// purchase debits the player and unlocks the item's feature.
func (p *Player) purchase(id string) error {
	item, ok := findItem(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownItem, id)
	}
	if p.Features[item.ID] {
		return fmt.Errorf("%w: %s", ErrAlreadyOwned, item.ID)
	}
	if p.Gems < item.Price {
		return fmt.Errorf("%w: %s costs %d, have %d", ErrInsufficientGems, item.ID, item.Price, p.Gems)
	}
	p.Gems -= item.Price
	p.Features[item.ID] = true
	return nil
}
