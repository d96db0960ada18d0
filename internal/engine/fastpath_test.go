package engine

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partschat/internal/memory"
	"partschat/internal/services"
	"partschat/pkg"
)

func newTestFastPath(respond func(req pkg.CompletionRequest) (*pkg.CompletionResult, error)) (*FastPath, *testRig) {
	rig := newTestRig(respond)
	search := services.NewCatalogSearch(zerolog.Nop())
	return NewFastPath(rig.engine, search, zerolog.Nop()), rig
}

func TestFastPathCompleteRequestSkipsCompletion(t *testing.T) {
	fp, rig := newTestFastPath(textOnly("no debería llamarse"))

	resp := fp.Process(context.Background(), pkg.TurnRequest{
		ConversationID: "conv-1",
		UserID:         "user-1",
		Message:        "Necesito balatas para mi Toyota Corolla 2018",
	})

	assert.Zero(t, rig.client.callCount())
	assert.Equal(t, pkg.IntentSearchProduct, resp.Intent)
	assert.Equal(t, "search_completed", resp.State.Phase)
	assert.True(t, resp.State.CanProgress)
	assert.Equal(t, []string{"confirm_purchase", "search_another_part"}, resp.State.NextSteps)
	assert.InDelta(t, 0.9, resp.Metrics.ConfidenceScore, 1e-9)
	assert.Equal(t, "parts_results", resp.Metrics.PromptUsed)

	require.NotNil(t, resp.SearchResults)
	require.Len(t, resp.SearchResults.Results, 2)
	assert.Contains(t, resp.Text, "✅ Encontré 2 opciones para tu toyota corolla")
	assert.Contains(t, resp.Text, "BAL-7741")
	require.NotNil(t, resp.CarInfo)
	assert.Equal(t, 2018, resp.CarInfo.Year)
	assert.Equal(t, "balatas", resp.PartName)
}

func TestFastPathSingleResultReply(t *testing.T) {
	fp, rig := newTestFastPath(textOnly("no debería llamarse"))

	resp := fp.Process(context.Background(), pkg.TurnRequest{
		ConversationID: "conv-1",
		UserID:         "user-1",
		Message:        "busco amortiguadores para mi volkswagen jetta 2015",
	})

	assert.Zero(t, rig.client.callCount())
	require.NotNil(t, resp.SearchResults)
	require.Len(t, resp.SearchResults.Results, 1)
	assert.Contains(t, resp.Text, "✅ Encontré esta pieza para tu volkswagen jetta")
	assert.Contains(t, resp.Text, "Clave: AMO-5530")
	assert.Contains(t, resp.Text, "Marca: KYB")
}

func TestFastPathNoResultsReply(t *testing.T) {
	fp, _ := newTestFastPath(textOnly("no debería llamarse"))

	resp := fp.Process(context.Background(), pkg.TurnRequest{
		ConversationID: "conv-1",
		UserID:         "user-1",
		Message:        "necesito llantas para mi toyota corolla",
	})

	require.NotNil(t, resp.SearchResults)
	assert.False(t, resp.SearchResults.Success)
	assert.Empty(t, resp.SearchResults.Results)
	assert.Contains(t, resp.Text, "❌ No encontré piezas de llantas para tu toyota corolla")
}

func TestFastPathIncompleteDelegatesToEngine(t *testing.T) {
	fp, rig := newTestFastPath(textOnly("¿Para qué vehículo buscas la pieza?"))

	resp := fp.Process(context.Background(), pkg.TurnRequest{
		ConversationID: "conv-1",
		UserID:         "user-1",
		Message:        "hola, busco una pieza",
	})

	assert.Equal(t, 1, rig.client.callCount())
	assert.Equal(t, "¿Para qué vehículo buscas la pieza?", resp.Text)
	assert.Nil(t, resp.SearchResults)
	assert.Empty(t, resp.PartName)
}

func TestFastPathFillsGapsFromMemory(t *testing.T) {
	fp, rig := newTestFastPath(textOnly("Déjame revisar la disponibilidad."))

	rig.store.Initialize("conv-1", "user-1", "", "pos-1")
	rig.store.Update("conv-1", memory.Updates{Entities: map[string]any{
		"car_marca":     "toyota",
		"car_modelo":    "corolla",
		"product_terms": []string{"balatas"},
	}})

	resp := fp.Process(context.Background(), pkg.TurnRequest{
		ConversationID: "conv-1",
		UserID:         "user-1",
		Message:        "¿las tienes disponibles?",
	})

	// Delegated to the engine, then resolved the search from memory.
	assert.Equal(t, 1, rig.client.callCount())
	require.NotNil(t, resp.SearchResults)
	require.Len(t, resp.SearchResults.Results, 2)
	require.NotNil(t, resp.CarInfo)
	assert.Equal(t, "toyota", resp.CarInfo.Brand)
	assert.Equal(t, "corolla", resp.CarInfo.Model)
	assert.Equal(t, "balatas", resp.PartName)
}
