package services

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partschat/pkg"
)

func TestNewActionRegistryBuildsCatalog(t *testing.T) {
	log := zerolog.Nop()
	inventory := NewInventory(log)
	registry, err := NewActionRegistry(Bundle{
		Search:    NewCatalogSearch(log),
		Inventory: inventory,
		Tickets:   NewTickets(inventory, log),
	}, log)
	require.NoError(t, err)
	require.NotNil(t, registry)

	descriptors := registry.Descriptors([]string{"buscarProductoPorTermino", "solicitarAsesor"})
	require.Len(t, descriptors, 2)
	assert.Equal(t, "buscarProductoPorTermino", descriptors[0].Name)
	assert.Equal(t, "solicitarAsesor", descriptors[1].Name)
}

func TestProductSearchToolInvokes(t *testing.T) {
	log := zerolog.Nop()
	inventory := NewInventory(log)
	registry, err := NewActionRegistry(Bundle{
		Search:    NewCatalogSearch(log),
		Inventory: inventory,
		Tickets:   NewTickets(inventory, log),
	}, log)
	require.NoError(t, err)

	result := registry.Dispatch(context.Background(), pkg.RequestedAction{
		Name:     "buscarProductoPorTermino",
		ArgsJSON: `{"pieza":"balatas","marca":"toyota","modelo":"corolla","año":2018}`,
	}, nil, pkg.ExecutionContext{PointOfSaleID: "pos-1", UserID: "user-1"})

	require.True(t, result.Success, "dispatch failed: %s", result.Error)
	out, ok := result.Data.(string)
	require.True(t, ok)
	assert.Contains(t, out, "BAL-7741")
}
