package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// StockEntry is per-branch availability for one part code.
type StockEntry struct {
	Code     string  `json:"code"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Branch   string  `json:"branch"`
}

// Inventory answers stock questions for the action layer.
type Inventory struct {
	mu    sync.RWMutex
	stock map[string]StockEntry
	log   zerolog.Logger
}

// NewInventory builds an inventory preloaded with demo stock.
func NewInventory(log zerolog.Logger) *Inventory {
	stock := map[string]StockEntry{
		"BAL-7741": {Code: "BAL-7741", Quantity: 8, Price: 1249.00, Branch: "pos-1"},
		"BAL-2280": {Code: "BAL-2280", Quantity: 0, Price: 899.00, Branch: "pos-1"},
		"FIL-0915": {Code: "FIL-0915", Quantity: 32, Price: 189.00, Branch: "pos-1"},
		"AMO-5530": {Code: "AMO-5530", Quantity: 4, Price: 1790.00, Branch: "pos-2"},
		"BUJ-1198": {Code: "BUJ-1198", Quantity: 60, Price: 245.00, Branch: "pos-1"},
		"BAT-3402": {Code: "BAT-3402", Quantity: 11, Price: 2650.00, Branch: "pos-2"},
		"COR-8823": {Code: "COR-8823", Quantity: 2, Price: 640.00, Branch: "pos-1"},
	}
	return &Inventory{
		stock: stock,
		log:   log.With().Str("component", "inventory").Logger(),
	}
}

// Lookup returns the stock entry for a part code.
func (i *Inventory) Lookup(ctx context.Context, code string) (*StockEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	entry, ok := i.stock[code]
	if !ok {
		return nil, fmt.Errorf("part %s not in inventory", code)
	}
	return &entry, nil
}

// All returns every stock entry.
func (i *Inventory) All(ctx context.Context) ([]StockEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	entries := make([]StockEntry, 0, len(i.stock))
	for _, entry := range i.stock {
		entries = append(entries, entry)
	}
	return entries, nil
}

// Reserve decrements stock for a purchase. Fails when quantity is short.
func (i *Inventory) Reserve(ctx context.Context, code string, quantity int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	entry, ok := i.stock[code]
	if !ok {
		return fmt.Errorf("part %s not in inventory", code)
	}
	if entry.Quantity < quantity {
		return fmt.Errorf("insufficient stock for %s: have %d, want %d", code, entry.Quantity, quantity)
	}

	entry.Quantity -= quantity
	i.stock[code] = entry
	i.log.Debug().Str("code", code).Int("quantity", quantity).Msg("stock reserved")
	return nil
}
