package services

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partschat/pkg"
)

func TestSearchMatchesTermAndVehicle(t *testing.T) {
	search := NewCatalogSearch(zerolog.Nop())

	res, err := search.Search(context.Background(), "balatas",
		pkg.CarInfo{Brand: "toyota", Model: "corolla", Year: 2018},
		pkg.SearchOptions{Limit: 5, MinConfidence: 0.4})

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "balatas", res.NormalizedTerm)
	require.NotEmpty(t, res.Results)
	// Full match (term + brand + model + year) ranks first.
	assert.Equal(t, "BAL-7741", res.Results[0].Code)
	assert.InDelta(t, 1.0, res.Results[0].Confidence, 0.001)
}

func TestSearchNormalizesColloquialTerm(t *testing.T) {
	search := NewCatalogSearch(zerolog.Nop())

	res, err := search.Search(context.Background(), "pastillas",
		pkg.CarInfo{Brand: "toyota", Model: "corolla"},
		pkg.SearchOptions{Limit: 5, MinConfidence: 0.4})

	require.NoError(t, err)
	assert.Equal(t, "balatas", res.NormalizedTerm)
	assert.True(t, res.Success)
}

func TestSearchConfidenceThresholdFiltersWeakMatches(t *testing.T) {
	search := NewCatalogSearch(zerolog.Nop())

	// No matching term at all: nothing clears a 0.4 floor.
	res, err := search.Search(context.Background(), "parabrisas",
		pkg.CarInfo{Brand: "toyota", Model: "corolla", Year: 2018},
		pkg.SearchOptions{Limit: 5, MinConfidence: 0.4})

	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Empty(t, res.Results)
}

func TestSearchHonorsLimit(t *testing.T) {
	search := NewCatalogSearch(zerolog.Nop())

	res, err := search.Search(context.Background(), "balatas",
		pkg.CarInfo{Brand: "toyota", Model: "corolla", Year: 2018},
		pkg.SearchOptions{Limit: 1, MinConfidence: 0.1})

	require.NoError(t, err)
	assert.Len(t, res.Results, 1)
}

func TestInventoryLookupAndReserve(t *testing.T) {
	inventory := NewInventory(zerolog.Nop())
	ctx := context.Background()

	entry, err := inventory.Lookup(ctx, "BAL-7741")
	require.NoError(t, err)
	assert.Equal(t, 8, entry.Quantity)

	require.NoError(t, inventory.Reserve(ctx, "BAL-7741", 2))
	entry, _ = inventory.Lookup(ctx, "BAL-7741")
	assert.Equal(t, 6, entry.Quantity)

	err = inventory.Reserve(ctx, "BAL-2280", 1)
	assert.ErrorContains(t, err, "insufficient stock")

	_, err = inventory.Lookup(ctx, "NO-EXISTE")
	assert.Error(t, err)
}

func TestTicketsCreateAndConfirm(t *testing.T) {
	inventory := NewInventory(zerolog.Nop())
	tickets := NewTickets(inventory, zerolog.Nop())
	ctx := context.Background()

	ticket, err := tickets.Create(ctx, "user-1", "pos-1", []TicketItem{{Code: "FIL-0915", Quantity: 2}})
	require.NoError(t, err)
	assert.InDelta(t, 378.0, ticket.Subtotal, 0.001)
	assert.InDelta(t, 378.0*1.16, ticket.Total, 0.001)
	assert.False(t, ticket.Confirmed)

	confirmed, err := tickets.Confirm(ctx, ticket.ID)
	require.NoError(t, err)
	assert.True(t, confirmed.Confirmed)

	entry, _ := inventory.Lookup(ctx, "FIL-0915")
	assert.Equal(t, 30, entry.Quantity)
}

func TestDecodeVIN(t *testing.T) {
	car, err := decodeVIN("JT2BF22K1W0123456")
	require.NoError(t, err)
	assert.Equal(t, "toyota", car.Brand)

	_, err = decodeVIN("corto")
	assert.Error(t, err)
}
