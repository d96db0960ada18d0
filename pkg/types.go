package pkg

import (
	"time"
)

// Shared types for the conversation engine and its collaborators.

// Intent is a classification from the fixed intent vocabulary.
type Intent string

const (
	IntentSearchProduct         Intent = "search_product"
	IntentRequestCarInfo        Intent = "request_car_info"
	IntentRequestProductInfo    Intent = "request_product_info"
	IntentPriceInquiry          Intent = "price_inquiry"
	IntentPurchase              Intent = "purchase_intent"
	IntentInventoryCheck        Intent = "inventory_check"
	IntentVinLookup             Intent = "vin_lookup"
	IntentSupportRequest        Intent = "support_request"
	IntentShippingInquiry       Intent = "shipping_inquiry"
	IntentInventoryFollowup     Intent = "inventory_followup"
	IntentProductSearchFollowup Intent = "product_search_followup"
	IntentGeneralInquiry        Intent = "general_inquiry"
	IntentError                 Intent = "error"
)

// Entities maps extracted entity keys (brand, year, vin, car_marca,
// car_modelo, car_año, car_litraje, product_terms) to their values.
type Entities map[string]any

// CarInfo identifies a vehicle well enough to search parts for it.
type CarInfo struct {
	Brand        string `json:"brand"`
	Model        string `json:"model"`
	Year         int    `json:"year,omitempty"`
	Displacement string `json:"displacement,omitempty"`
	VIN          string `json:"vin,omitempty"`
}

// TurnRequest is one inbound user message plus its addressing info.
type TurnRequest struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	PhoneNumber    string `json:"phone_number"`
	Message        string `json:"message"`
	PointOfSaleID  string `json:"point_of_sale_id"`
}

// ConversationState summarizes where the dialogue stands after a turn.
type ConversationState struct {
	Phase       string   `json:"phase"`
	CanProgress bool     `json:"can_progress"`
	NextSteps   []string `json:"next_steps"`
}

// TurnMetrics carries per-turn observability data.
type TurnMetrics struct {
	ResponseTimeMS    int64   `json:"response_time_ms"`
	ActionsDispatched int     `json:"actions_dispatched"`
	ConfidenceScore   float64 `json:"confidence_score"`
	PromptUsed        string  `json:"prompt_used"`
}

// TurnResponse is the full bundle returned for a processed turn.
type TurnResponse struct {
	Text              string            `json:"text"`
	Intent            Intent            `json:"intent"`
	Entities          Entities          `json:"entities"`
	DispatchedActions []ActionResult    `json:"dispatched_actions"`
	Suggestions       []string          `json:"suggestions,omitempty"`
	State             ConversationState `json:"state"`
	Metrics           TurnMetrics       `json:"metrics"`
}

// ActionDescriptor advertises an invocable action to the completion service.
type ActionDescriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// RequestedAction is an action the completion service asked to run.
type RequestedAction struct {
	Name     string `json:"name"`
	ArgsJSON string `json:"arguments"`
}

// TokenUsage mirrors the completion provider's token accounting.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionRequest is the provider-neutral completion call contract.
type CompletionRequest struct {
	SystemInstruction string
	UserTurn          string
	Actions           []ActionDescriptor
	SelectionMode     string
	Model             string
	Temperature       float64
	MaxTokens         int
}

// CompletionResult carries the assistant text plus an optional action request.
type CompletionResult struct {
	Text   string
	Action *RequestedAction
	Usage  *TokenUsage
}

// ActionResult is the outcome of one dispatched action.
type ActionResult struct {
	ActionName string `json:"action_name"`
	Success    bool   `json:"success"`
	Data       any    `json:"data,omitempty"`
	Error      string `json:"error,omitempty"`
	FollowUp   string `json:"follow_up,omitempty"`
}

// ExecutionContext is the minimal context handed to dispatched actions.
type ExecutionContext struct {
	PointOfSaleID string `json:"point_of_sale_id"`
	UserID        string `json:"user_id"`
}

// SearchOptions bounds a structured parts search.
type SearchOptions struct {
	Limit         int     `json:"limit"`
	MinConfidence float64 `json:"min_confidence"`
}

// PartResult is one catalog hit from a structured parts search.
type PartResult struct {
	Code        string  `json:"code"`
	Brand       string  `json:"brand"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

// SearchResponse is the structured parts search result set.
type SearchResponse struct {
	Success        bool         `json:"success"`
	NormalizedTerm string       `json:"normalized_term"`
	Results        []PartResult `json:"results"`
}

// TranscriptMessage is one logged message of a conversation transcript.
type TranscriptMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
