package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"

	"partschat/internal/extract"
	"partschat/internal/llm"
	"partschat/internal/memory"
	"partschat/internal/prompt"
	"partschat/internal/storage"
	"partschat/pkg"
)

// TurnState tracks a turn's progression through the pipeline.
type TurnState string

const (
	StateInit               TurnState = "init"
	StateMemoryResolved     TurnState = "memory_resolved"
	StateEntitiesExtracted  TurnState = "entities_extracted"
	StateMemoryCommitted    TurnState = "memory_committed"
	StateDirectiveBuilt     TurnState = "directive_built"
	StateCompletionReceived TurnState = "completion_received"
	StateActionsDispatched  TurnState = "actions_dispatched"
	StateResponseFinalized  TurnState = "response_finalized"
	StateLearningApplied    TurnState = "learning_applied"
	StateDone               TurnState = "done"
)

// Config tunes the conversation pipeline.
type Config struct {
	Model             string
	RefineModel       string
	Temperature       float64
	MaxTokens         int
	CompletionTimeout time.Duration
	EnableLearning    bool
	MemoryMaxAge      time.Duration
	SpecialOffers     []string
}

// Stats is the engine's admin-surface snapshot.
type Stats struct {
	ActiveConversations int `json:"active_conversations"`
	TotalProcessed      int `json:"total_processed"`
}

type activity struct {
	lastActivity time.Time
	turns        int
}

// Engine runs the full conversation pipeline for each turn: memory,
// extraction, directive synthesis, completion, action dispatch,
// refinement and learning.
type Engine struct {
	store      *memory.Store
	synth      *prompt.Synthesizer
	client     llm.CompletionClient
	dispatcher llm.Dispatcher
	transcript storage.TranscriptRepository
	lexicon    extract.Lexicon
	cfg        Config
	log        zerolog.Logger
	now        memory.Clock

	mu     sync.Mutex
	active map[string]*activity
}

// New wires an engine from its collaborators.
func New(
	store *memory.Store,
	synth *prompt.Synthesizer,
	client llm.CompletionClient,
	dispatcher llm.Dispatcher,
	transcript storage.TranscriptRepository,
	lexicon extract.Lexicon,
	cfg Config,
	log zerolog.Logger,
) *Engine {
	return NewWithClock(store, synth, client, dispatcher, transcript, lexicon, cfg, log, time.Now)
}

// NewWithClock is New with an injected clock.
func NewWithClock(
	store *memory.Store,
	synth *prompt.Synthesizer,
	client llm.CompletionClient,
	dispatcher llm.Dispatcher,
	transcript storage.TranscriptRepository,
	lexicon extract.Lexicon,
	cfg Config,
	log zerolog.Logger,
	now memory.Clock,
) *Engine {
	if cfg.CompletionTimeout <= 0 {
		cfg.CompletionTimeout = 30 * time.Second
	}
	if cfg.MemoryMaxAge <= 0 {
		cfg.MemoryMaxAge = 24 * time.Hour
	}
	return &Engine{
		store:      store,
		synth:      synth,
		client:     client,
		dispatcher: dispatcher,
		transcript: transcript,
		lexicon:    lexicon,
		cfg:        cfg,
		log:        log.With().Str("component", "engine").Logger(),
		now:        now,
		active:     make(map[string]*activity),
	}
}

// Process runs one turn end to end. It never returns an error: any
// failure past input validation resolves to the fixed apology fallback.
func (e *Engine) Process(ctx context.Context, req pkg.TurnRequest) *pkg.TurnResponse {
	start := e.now()

	resp, err := e.processTurn(ctx, req)
	if err != nil {
		e.log.Error().Err(err).Str("conversation_id", req.ConversationID).Msg("turn failed")
		return e.fallbackResponse()
	}

	resp.Metrics.ResponseTimeMS = e.now().Sub(start).Milliseconds()
	return resp
}

func (e *Engine) processTurn(ctx context.Context, req pkg.TurnRequest) (*pkg.TurnResponse, error) {
	state := StateInit
	id := req.ConversationID

	// 1. Resolve or initialize memory and track activity.
	mem, ok := e.store.Get(id)
	if !ok {
		mem = e.store.Initialize(id, req.UserID, req.PhoneNumber, req.PointOfSaleID)
	}
	e.touch(id)
	state = StateMemoryResolved

	// 2-3. Normalize the message, then extract intent and entities.
	normalized := extract.Normalize(req.Message, e.lexicon)
	res := extract.Extract(normalized, mem)
	state = StateEntitiesExtracted

	// 4. Commit the turn to memory before any network I/O so a failed
	// completion still leaves the query on record.
	e.store.Update(id, memory.Updates{
		Query:    normalized,
		Intent:   string(res.Intent),
		Entities: res.Entities,
	})
	e.appendTranscript(ctx, id, "user", req.Message)
	e.store.AnalyzeBehaviorPatterns(id)
	state = StateMemoryCommitted

	// 5. Build the directive from a fresh snapshot.
	snapshot, ok := e.store.Get(id)
	if !ok {
		return nil, fmt.Errorf("memory vanished for conversation %s", id)
	}
	allowed := actionsForIntent(res.Intent)
	pctx := prompt.Context{
		Memory:         snapshot,
		Message:        req.Message,
		Intent:         res.Intent,
		Entities:       res.Entities,
		AllowedActions: allowed,
		Business: prompt.BusinessInfo{
			PointOfSaleID:      req.PointOfSaleID,
			SpecialOffers:      e.cfg.SpecialOffers,
			InventoryUpdatedAt: e.now().Format(time.RFC3339),
		},
	}

	var directive string
	if snapshot.Meta.ConversationLength > 1 {
		directive = e.synth.RenderContinuation(pctx)
	} else {
		directive = e.synth.Render("main", pctx)
	}
	state = StateDirectiveBuilt

	// 6. Primary completion call, bounded by the configured timeout.
	cctx, cancel := context.WithTimeout(ctx, e.cfg.CompletionTimeout)
	defer cancel()
	result, err := e.client.Complete(cctx, pkg.CompletionRequest{
		SystemInstruction: directive,
		UserTurn:          req.Message,
		Actions:           e.dispatcher.Descriptors(allowed),
		SelectionMode:     "auto",
		Model:             e.cfg.Model,
		Temperature:       e.cfg.Temperature,
		MaxTokens:         e.cfg.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("completion failed in state %s: %w", state, err)
	}
	state = StateCompletionReceived

	// 7. Dispatch at most one requested action.
	var dispatched []pkg.ActionResult
	if result.Action != nil {
		outcome := e.dispatcher.Dispatch(ctx, *result.Action, nil, pkg.ExecutionContext{
			PointOfSaleID: req.PointOfSaleID,
			UserID:        req.UserID,
		})
		dispatched = append(dispatched, outcome)
	}
	state = StateActionsDispatched

	// 8. Refinement folds successful action data into the reply. A
	// failed refinement keeps the draft text and never fails the turn.
	text := result.Text
	if len(dispatched) > 0 && dispatched[0].Success && dispatched[0].Data != nil {
		refined, err := e.refine(ctx, text, dispatched[0], req.Message)
		if err != nil {
			e.log.Warn().Err(err).Str("conversation_id", id).Msg("refinement failed, keeping draft")
		} else if refined != "" {
			text = refined
		}
	}
	state = StateResponseFinalized

	// 9. Post-completion memory update.
	post := memory.Updates{CurrentTopic: string(res.Intent)}
	if len(dispatched) > 0 {
		post.ActiveFunction = dispatched[0].ActionName
	}
	e.store.Update(id, post)

	// 10. Keyword learning.
	if e.cfg.EnableLearning {
		e.learn(id, normalized)
	}
	state = StateLearningApplied

	// 11. Assemble the response bundle.
	e.appendTranscript(ctx, id, "assistant", text)
	final, _ := e.store.Get(id)
	state = StateDone
	e.log.Debug().Str("conversation_id", id).Str("state", string(state)).Str("intent", string(res.Intent)).Msg("turn processed")

	return &pkg.TurnResponse{
		Text:              text,
		Intent:            res.Intent,
		Entities:          res.Entities,
		DispatchedActions: dispatched,
		Suggestions:       suggestionsForIntent(res.Intent),
		State:             conversationState(final),
		Metrics: pkg.TurnMetrics{
			ActionsDispatched: len(dispatched),
			ConfidenceScore:   confidenceScore(res.Intent, res.Entities, dispatched),
			PromptUsed:        promptTypeForIntent(res.Intent),
		},
	}, nil
}

// refine asks the completion service to weave dispatched action data
// into the draft reply. No actions are offered on this call.
func (e *Engine) refine(ctx context.Context, draft string, outcome pkg.ActionResult, userMessage string) (string, error) {
	data, err := sonic.MarshalString(outcome.Data)
	if err != nil {
		return "", fmt.Errorf("failed to encode action data: %w", err)
	}

	instruction := fmt.Sprintf(`Con base en estos datos, genera una respuesta natural y útil en español:

Acción ejecutada: %s
Datos: %s
Mensaje del cliente: %s

Respuesta original: %s

Integra los datos de manera natural sin inventar información.`,
		outcome.ActionName, data, userMessage, draft)

	model := e.cfg.RefineModel
	if model == "" {
		model = e.cfg.Model
	}

	cctx, cancel := context.WithTimeout(ctx, e.cfg.CompletionTimeout)
	defer cancel()
	result, err := e.client.Complete(cctx, pkg.CompletionRequest{
		SystemInstruction: instruction,
		UserTurn:          "Genera la respuesta mejorada",
		Model:             model,
		Temperature:       0.7,
		MaxTokens:         500,
	})
	if err != nil {
		return "", fmt.Errorf("failed to refine response: %w", err)
	}
	return strings.TrimSpace(result.Text), nil
}

// learn projects price, urgency and brand signals from the normalized
// message into the user's long-term preferences.
func (e *Engine) learn(conversationID, normalized string) {
	if containsAny(normalized, "precio", "barato", "económico") {
		e.store.LearnPreference(conversationID, "price_conscious", true)
	}
	if containsAny(normalized, "urgente", "rápido", "pronto") {
		e.store.LearnPreference(conversationID, "urgent_customer", true)
	}
	for _, brand := range []string{"nissan", "toyota", "honda", "ford", "chevrolet", "volkswagen"} {
		if strings.Contains(normalized, brand) {
			e.store.LearnPreference(conversationID, "preferred_brand", brand)
			break
		}
	}
}

func containsAny(message string, terms ...string) bool {
	for _, term := range terms {
		if strings.Contains(message, term) {
			return true
		}
	}
	return false
}

func (e *Engine) appendTranscript(ctx context.Context, conversationID, role, content string) {
	err := e.transcript.Append(ctx, conversationID, pkg.TranscriptMessage{
		Role:      role,
		Content:   content,
		Timestamp: e.now(),
	})
	if err != nil {
		e.log.Warn().Err(err).Str("conversation_id", conversationID).Msg("transcript append failed")
	}
}

func (e *Engine) touch(conversationID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, ok := e.active[conversationID]
	if !ok {
		a = &activity{}
		e.active[conversationID] = a
	}
	a.lastActivity = e.now()
	a.turns++
}

// fallbackResponse is the fixed apology bundle for any failed turn.
func (e *Engine) fallbackResponse() *pkg.TurnResponse {
	return &pkg.TurnResponse{
		Text:        "Disculpa, he tenido un problema técnico. ¿Podrías intentar de nuevo o te conecto con un asesor?",
		Intent:      pkg.IntentError,
		Entities:    pkg.Entities{},
		Suggestions: []string{"Reintentar", "Hablar con asesor"},
		State: pkg.ConversationState{
			Phase:       "error",
			CanProgress: false,
			NextSteps:   []string{"retry", "escalate"},
		},
		Metrics: pkg.TurnMetrics{
			ConfidenceScore: 0,
			PromptUsed:      "error_handling",
		},
	}
}

// ReapIdleConversations finalizes conversations idle past maxIdle as
// abandoned and clears their activity tracking. Meant to run from a
// scheduler, not per message. Returns how many were reaped.
func (e *Engine) ReapIdleConversations(maxIdle time.Duration) int {
	cutoff := e.now().Add(-maxIdle)

	e.mu.Lock()
	idle := []string{}
	for id, a := range e.active {
		if a.lastActivity.Before(cutoff) {
			idle = append(idle, id)
			delete(e.active, id)
		}
	}
	e.mu.Unlock()

	for _, id := range idle {
		e.store.FinalizeConversation(id, memory.OutcomeAbandoned)
	}
	e.store.CleanupOldMemory(e.cfg.MemoryMaxAge)

	if len(idle) > 0 {
		e.log.Info().Int("reaped", len(idle)).Msg("idle conversations finalized")
	}
	return len(idle)
}

// Stats reports active conversation and processed turn counts.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	total := 0
	for _, a := range e.active {
		total += a.turns
	}
	return Stats{
		ActiveConversations: len(e.active),
		TotalProcessed:      total,
	}
}

// actionsForIntent maps each intent to the actions the completion
// service may request. solicitarAsesor is always available.
func actionsForIntent(intent pkg.Intent) []string {
	base := []string{"solicitarAsesor"}

	switch intent {
	case pkg.IntentSearchProduct, pkg.IntentProductSearchFollowup:
		return append(base,
			"buscarProductoPorTermino",
			"confirmarProductoSeleccionado",
			"obtenerDetallesProducto",
			"sugerirAlternativas",
			"recopilarDatosCliente",
		)
	case pkg.IntentRequestCarInfo, pkg.IntentRequestProductInfo:
		return append(base, "recopilarDatosCliente")
	case pkg.IntentInventoryCheck, pkg.IntentInventoryFollowup:
		return append(base, "consultarInventario", "buscarYConsultarInventario", "consultarInventarioGeneral")
	case pkg.IntentVinLookup:
		return append(base, "buscarPorVin", "consultarInventario")
	case pkg.IntentPurchase:
		return append(base, "generarTicket", "confirmarCompra", "consultarInventario", "buscarProductoPorTermino")
	case pkg.IntentShippingInquiry:
		return append(base, "procesarEnvio")
	case pkg.IntentPriceInquiry:
		return append(base, "consultarInventario", "buscarYConsultarInventario", "buscarProductoPorTermino")
	default:
		return append(base, "consultarInventario", "buscarYConsultarInventario", "buscarProductoPorTermino", "recopilarDatosCliente")
	}
}

func suggestionsForIntent(intent pkg.Intent) []string {
	switch intent {
	case pkg.IntentSearchProduct:
		return []string{
			"¿Necesitas ayuda para encontrar la refacción exacta?",
			"¿Tienes el número VIN de tu vehículo?",
		}
	case pkg.IntentInventoryCheck:
		return []string{
			"¿Te gustaría ver opciones similares?",
			"¿Necesitas información sobre disponibilidad?",
		}
	case pkg.IntentPriceInquiry:
		return []string{
			"¿Te interesa conocer opciones de pago?",
			"¿Quieres comparar con otras marcas?",
		}
	case pkg.IntentPurchase:
		return []string{
			"¿Necesitas ayuda con el proceso de compra?",
			"¿Te interesa el envío a domicilio?",
		}
	default:
		return nil
	}
}

func conversationState(mem *memory.ConversationMemory) pkg.ConversationState {
	if mem == nil {
		return pkg.ConversationState{Phase: "initial", CanProgress: true, NextSteps: []string{"continue_conversation"}}
	}

	phase := mem.ShortTerm.CurrentTopic
	if phase == "" {
		phase = "initial"
	}
	pending := mem.Working.PendingActions
	next := []string{"continue_conversation"}
	if len(pending) > 0 {
		next = append([]string{}, pending...)
	}
	return pkg.ConversationState{
		Phase:       phase,
		CanProgress: len(pending) == 0,
		NextSteps:   next,
	}
}

// confidenceScore starts at 0.5, adds 0.2 for a specific intent, 0.1
// per extracted entity and 0.15 per successful dispatch, capped at 1.0.
func confidenceScore(intent pkg.Intent, entities pkg.Entities, dispatched []pkg.ActionResult) float64 {
	score := 0.5
	if intent != pkg.IntentGeneralInquiry {
		score += 0.2
	}
	score += float64(len(entities)) * 0.1
	for _, outcome := range dispatched {
		if outcome.Success {
			score += 0.15
		}
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func promptTypeForIntent(intent pkg.Intent) string {
	switch intent {
	case pkg.IntentSearchProduct, pkg.IntentInventoryCheck:
		return "inventory_search"
	case pkg.IntentPurchase:
		return "ticket_generation"
	default:
		return "main"
	}
}
