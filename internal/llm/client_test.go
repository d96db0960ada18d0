package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partschat/pkg"
)

type fakeChatModel struct {
	in   []*schema.Message
	opts []model.Option
	out  *schema.Message
	err  error
}

func (f *fakeChatModel) Generate(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.in = in
	f.opts = opts
	return f.out, f.err
}

func (f *fakeChatModel) Stream(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

func TestCompleteForwardsPerRequestOptions(t *testing.T) {
	fake := &fakeChatModel{out: schema.AssistantMessage("ok", nil)}
	client := NewClient(fake, Config{}, zerolog.Nop())

	_, err := client.Complete(context.Background(), pkg.CompletionRequest{
		SystemInstruction: "Eres Birlo.",
		UserTurn:          "Genera la respuesta mejorada",
		Model:             "gpt-4o-mini",
		Temperature:       0.7,
		MaxTokens:         500,
	})
	require.NoError(t, err)

	opts := model.GetCommonOptions(&model.Options{}, fake.opts...)
	require.NotNil(t, opts.Model)
	assert.Equal(t, "gpt-4o-mini", *opts.Model)
	require.NotNil(t, opts.Temperature)
	assert.InDelta(t, 0.7, float64(*opts.Temperature), 1e-6)
	require.NotNil(t, opts.MaxTokens)
	assert.Equal(t, 500, *opts.MaxTokens)
}

func TestCompleteOmitsUnsetOptions(t *testing.T) {
	fake := &fakeChatModel{out: schema.AssistantMessage("ok", nil)}
	client := NewClient(fake, Config{}, zerolog.Nop())

	_, err := client.Complete(context.Background(), pkg.CompletionRequest{
		SystemInstruction: "Eres Birlo.",
		UserTurn:          "hola",
	})
	require.NoError(t, err)
	assert.Empty(t, fake.opts)
}

func TestCompleteSurfacesToolCall(t *testing.T) {
	fake := &fakeChatModel{out: &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{{
			Function: schema.FunctionCall{
				Name:      "consultarInventario",
				Arguments: `{"codigo":"BAL-7741"}`,
			},
		}},
	}}
	client := NewClient(fake, Config{}, zerolog.Nop())

	res, err := client.Complete(context.Background(), pkg.CompletionRequest{
		SystemInstruction: "Eres Birlo.",
		UserTurn:          "¿tienes BAL-7741?",
		Actions:           []pkg.ActionDescriptor{{Name: "consultarInventario", Description: "Inventario"}},
	})
	require.NoError(t, err)
	require.NotNil(t, res.Action)
	assert.Equal(t, "consultarInventario", res.Action.Name)
	assert.Equal(t, `{"codigo":"BAL-7741"}`, res.Action.ArgsJSON)
}
