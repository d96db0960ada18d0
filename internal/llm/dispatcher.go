package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/rs/zerolog"

	"partschat/pkg"
)

// Action is one named operation the completion service may request.
type Action interface {
	Name() string
	Description() string
	Execute(ctx context.Context, argsJSON string, exec pkg.ExecutionContext) (data any, followUp string, err error)
}

// Dispatcher executes requested actions and advertises their descriptors.
type Dispatcher interface {
	Dispatch(ctx context.Context, call pkg.RequestedAction, history []pkg.TranscriptMessage, exec pkg.ExecutionContext) pkg.ActionResult
	Descriptors(names []string) []pkg.ActionDescriptor
}

// Registry is the in-process action dispatcher.
type Registry struct {
	actions map[string]Action
	log     zerolog.Logger
}

// NewRegistry creates an empty action registry.
func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		actions: make(map[string]Action),
		log:     log.With().Str("component", "dispatcher").Logger(),
	}
}

// Register adds an action; later registrations replace earlier ones.
func (r *Registry) Register(a Action) {
	r.actions[a.Name()] = a
}

// Dispatch executes one requested action. Failures are reported in the
// result, never as a panic or error return, so a bad action cannot fail
// the turn.
func (r *Registry) Dispatch(ctx context.Context, call pkg.RequestedAction, history []pkg.TranscriptMessage, exec pkg.ExecutionContext) pkg.ActionResult {
	_ = history // reserved for actions that replay prior turns

	action, ok := r.actions[call.Name]
	if !ok {
		r.log.Warn().Str("action", call.Name).Msg("unknown action requested")
		return pkg.ActionResult{
			ActionName: call.Name,
			Success:    false,
			Error:      fmt.Sprintf("unknown action: %s", call.Name),
		}
	}

	data, followUp, err := action.Execute(ctx, call.ArgsJSON, exec)
	if err != nil {
		r.log.Error().Err(err).Str("action", call.Name).Msg("action failed")
		return pkg.ActionResult{
			ActionName: call.Name,
			Success:    false,
			Error:      err.Error(),
		}
	}

	return pkg.ActionResult{
		ActionName: call.Name,
		Success:    true,
		Data:       data,
		FollowUp:   followUp,
	}
}

// Descriptors returns the descriptors for the named actions, preserving
// order and skipping names that are not registered.
func (r *Registry) Descriptors(names []string) []pkg.ActionDescriptor {
	descriptors := make([]pkg.ActionDescriptor, 0, len(names))
	for _, name := range names {
		action, ok := r.actions[name]
		if !ok {
			continue
		}
		descriptors = append(descriptors, pkg.ActionDescriptor{
			Name:        action.Name(),
			Description: action.Description(),
		})
	}
	return descriptors
}

// FuncAction adapts a plain function into an Action.
type FuncAction struct {
	name        string
	description string
	fn          func(ctx context.Context, argsJSON string, exec pkg.ExecutionContext) (any, string, error)
}

// NewFuncAction builds an Action from a function.
func NewFuncAction(name, description string, fn func(ctx context.Context, argsJSON string, exec pkg.ExecutionContext) (any, string, error)) *FuncAction {
	return &FuncAction{name: name, description: description, fn: fn}
}

func (f *FuncAction) Name() string        { return f.name }
func (f *FuncAction) Description() string { return f.description }

func (f *FuncAction) Execute(ctx context.Context, argsJSON string, exec pkg.ExecutionContext) (any, string, error) {
	return f.fn(ctx, argsJSON, exec)
}

// invokableAction adapts an eino InvokableTool into an Action.
type invokableAction struct {
	name        string
	description string
	tool        tool.InvokableTool
}

// FromInvokable wraps an eino tool so it can live in the registry next
// to plain actions.
func FromInvokable(name, description string, t tool.InvokableTool) Action {
	return &invokableAction{name: name, description: description, tool: t}
}

func (a *invokableAction) Name() string        { return a.name }
func (a *invokableAction) Description() string { return a.description }

func (a *invokableAction) Execute(ctx context.Context, argsJSON string, _ pkg.ExecutionContext) (any, string, error) {
	out, err := a.tool.InvokableRun(ctx, argsJSON)
	if err != nil {
		return nil, "", fmt.Errorf("failed to run tool %s: %w", a.name, err)
	}
	return out, "", nil
}
