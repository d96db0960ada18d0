package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partschat/pkg"
)

func TestParseActionDirectiveFencedBlock(t *testing.T) {
	content := "Déjame revisar el inventario.\n```json\n{\"action\": {\"name\": \"consultarInventario\", \"arguments\": {\"codigo\": \"ABC123\"}}}\n```"

	action, cleaned := ParseActionDirective(content)
	require.NotNil(t, action)
	assert.Equal(t, "consultarInventario", action.Name)
	assert.Contains(t, action.ArgsJSON, "ABC123")
	assert.Equal(t, "Déjame revisar el inventario.", cleaned)
}

func TestParseActionDirectiveBareJSON(t *testing.T) {
	content := `{"action": {"name": "solicitarAsesor", "arguments": {}}}`

	action, _ := ParseActionDirective(content)
	require.NotNil(t, action)
	assert.Equal(t, "solicitarAsesor", action.Name)
	assert.Equal(t, "{}", action.ArgsJSON)
}

func TestParseActionDirectiveNoAction(t *testing.T) {
	action, cleaned := ParseActionDirective("Hola, ¿en qué te puedo ayudar?")
	assert.Nil(t, action)
	assert.Equal(t, "Hola, ¿en qué te puedo ayudar?", cleaned)
}

func TestParseActionDirectiveMalformedJSON(t *testing.T) {
	content := "```json\n{\"action\": {\"name\": \n```"
	action, cleaned := ParseActionDirective(content)
	assert.Nil(t, action)
	assert.Equal(t, content, cleaned)
}

type stubAction struct {
	name string
	data any
	err  error
}

func (s *stubAction) Name() string        { return s.name }
func (s *stubAction) Description() string { return "stub" }
func (s *stubAction) Execute(ctx context.Context, argsJSON string, exec pkg.ExecutionContext) (any, string, error) {
	return s.data, "", s.err
}

func TestRegistryDispatch(t *testing.T) {
	registry := NewRegistry(zerolog.Nop())
	registry.Register(&stubAction{name: "consultarInventario", data: map[string]any{"stock": 4}})

	result := registry.Dispatch(context.Background(), pkg.RequestedAction{Name: "consultarInventario", ArgsJSON: "{}"}, nil, pkg.ExecutionContext{})
	assert.True(t, result.Success)
	assert.Equal(t, "consultarInventario", result.ActionName)
	assert.NotNil(t, result.Data)
}

func TestRegistryDispatchUnknownAction(t *testing.T) {
	registry := NewRegistry(zerolog.Nop())

	result := registry.Dispatch(context.Background(), pkg.RequestedAction{Name: "inexistente"}, nil, pkg.ExecutionContext{})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "unknown action")
}

func TestRegistryDispatchActionError(t *testing.T) {
	registry := NewRegistry(zerolog.Nop())
	registry.Register(&stubAction{name: "generarTicket", err: errors.New("sin existencias")})

	result := registry.Dispatch(context.Background(), pkg.RequestedAction{Name: "generarTicket"}, nil, pkg.ExecutionContext{})
	assert.False(t, result.Success)
	assert.Equal(t, "sin existencias", result.Error)
}

func TestRegistryDescriptorsPreserveOrderAndSkipUnknown(t *testing.T) {
	registry := NewRegistry(zerolog.Nop())
	registry.Register(&stubAction{name: "a"})
	registry.Register(&stubAction{name: "b"})

	descriptors := registry.Descriptors([]string{"b", "desconocida", "a"})
	require.Len(t, descriptors, 2)
	assert.Equal(t, "b", descriptors[0].Name)
	assert.Equal(t, "a", descriptors[1].Name)
}
