package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"partschat/pkg"
)

// CompletionClient is the provider-neutral completion contract used by
// the conversation engine.
type CompletionClient interface {
	Complete(ctx context.Context, req pkg.CompletionRequest) (*pkg.CompletionResult, error)
}

// Config selects and tunes the underlying chat model provider.
type Config struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// NewChatModel builds the eino chat model for the configured provider.
func NewChatModel(ctx context.Context, cfg Config) (model.BaseChatModel, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "openai", "openrouter":
		maxTokens := cfg.MaxTokens
		temperature := float32(cfg.Temperature)
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   &maxTokens,
			Temperature: &temperature,
		})
	case "ark":
		return ark.NewChatModel(ctx, &ark.ChatModelConfig{
			APIKey: cfg.APIKey,
			Model:  cfg.Model,
		})
	case "deepseek":
		return deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
	case "ollama":
		return ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		})
	default:
		return nil, fmt.Errorf("unknown completion provider: %s", cfg.Provider)
	}
}

// Client implements CompletionClient on top of an eino chat model.
type Client struct {
	chat model.BaseChatModel
	cfg  Config
	log  zerolog.Logger
}

// NewClient wires a completion client around a chat model.
func NewClient(chat model.BaseChatModel, cfg Config, log zerolog.Logger) *Client {
	return &Client{
		chat: chat,
		cfg:  cfg,
		log:  log.With().Str("component", "completion").Logger(),
	}
}

// Complete runs one completion round-trip. When the provider requests
// an action, it is surfaced on the result; the action itself is never
// executed here.
func (c *Client) Complete(ctx context.Context, req pkg.CompletionRequest) (*pkg.CompletionResult, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	system := req.SystemInstruction
	if len(req.Actions) > 0 {
		system += actionDirective(req.Actions, req.SelectionMode)
	}

	messages := []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(req.UserTurn),
	}

	// Per-request settings override the model's construction-time ones,
	// so the refinement call can switch model and sampling.
	opts := []model.Option{}
	if req.Model != "" {
		opts = append(opts, model.WithModel(req.Model))
	}
	if req.Temperature > 0 {
		opts = append(opts, model.WithTemperature(float32(req.Temperature)))
	}
	if req.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(req.MaxTokens))
	}

	out, err := c.chat.Generate(ctx, messages, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to generate completion: %w", err)
	}

	result := &pkg.CompletionResult{Text: out.Content}

	if len(out.ToolCalls) > 0 {
		call := out.ToolCalls[0]
		result.Action = &pkg.RequestedAction{
			Name:     call.Function.Name,
			ArgsJSON: call.Function.Arguments,
		}
	} else {
		action, cleaned := ParseActionDirective(out.Content)
		if action != nil {
			result.Action = action
			result.Text = cleaned
		}
	}

	if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
		result.Usage = &pkg.TokenUsage{
			PromptTokens:     out.ResponseMeta.Usage.PromptTokens,
			CompletionTokens: out.ResponseMeta.Usage.CompletionTokens,
			TotalTokens:      out.ResponseMeta.Usage.TotalTokens,
		}
	}

	c.log.Debug().
		Str("model", req.Model).
		Bool("action_requested", result.Action != nil).
		Msg("completion received")

	return result, nil
}

// actionDirective renders the invocable action list plus the JSON reply
// convention the content parser understands.
func actionDirective(actions []pkg.ActionDescriptor, mode string) string {
	var b strings.Builder
	b.WriteString("\n\nACCIONES INVOCABLES:\n")
	for _, a := range actions {
		b.WriteString(fmt.Sprintf("- %s: %s\n", a.Name, a.Description))
	}
	if mode == "" {
		mode = "auto"
	}
	b.WriteString(fmt.Sprintf("\nModo de selección: %s.\n", mode))
	b.WriteString("Si una acción debe ejecutarse, responde además con un bloque:\n")
	b.WriteString("```json\n{\"action\": {\"name\": \"<nombre>\", \"arguments\": {}}}\n```\n")
	return b.String()
}
