package memory

import "time"

const (
	maxRecentQueries = 10
	maxContextStack  = 5
)

// CommunicationStyle adjusts assistant phrasing per user.
type CommunicationStyle string

const (
	StyleFormal    CommunicationStyle = "formal"
	StyleCasual    CommunicationStyle = "casual"
	StyleTechnical CommunicationStyle = "technical"
)

// Outcome records how a conversation ended.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeAbandoned Outcome = "abandoned"
	OutcomeEscalated Outcome = "escalated"
)

// VehicleInfo is the user's known vehicle.
type VehicleInfo struct {
	Brand string `json:"brand"`
	Model string `json:"model"`
	Year  int    `json:"year"`
	VIN   string `json:"vin,omitempty"`
}

// PriceRange is a learned budget preference.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// InteractionStats accumulates across a user's conversations.
type InteractionStats struct {
	TotalMessages   int       `json:"total_messages"`
	LastInteraction time.Time `json:"last_interaction"`
	CommonTopics    []string  `json:"common_topics"`
}

// Preferences are learned user preferences projected from learnings.
type Preferences struct {
	PreferredBrands    []string           `json:"preferred_brands"`
	Vehicle            *VehicleInfo       `json:"vehicle,omitempty"`
	CommunicationStyle CommunicationStyle `json:"communication_style"`
	PriceRange         *PriceRange        `json:"price_range,omitempty"`
}

// BusinessContext ties a user to the retail side.
type BusinessContext struct {
	PointOfSaleID string    `json:"point_of_sale_id"`
	IsVIPCustomer bool      `json:"is_vip_customer"`
	CreditLimit   float64   `json:"credit_limit,omitempty"`
	LastPurchase  time.Time `json:"last_purchase,omitempty"`
}

// UserProfile is the durable per-user record shared across conversations.
type UserProfile struct {
	UserID       string           `json:"user_id"`
	PhoneNumber  string           `json:"phone_number"`
	Interactions InteractionStats `json:"interactions"`
	Preferences  Preferences      `json:"preferences"`
	Business     BusinessContext  `json:"business"`
}

// ShortTermMemory holds the rolling context of the current conversation.
// RecentQueries keeps at most the last 10 normalized queries.
type ShortTermMemory struct {
	CurrentTopic       string               `json:"current_topic"`
	RecentQueries      []string             `json:"recent_queries"`
	ContextualEntities map[string]any       `json:"contextual_entities"`
	TemporalReferences map[string]time.Time `json:"temporal_references"`
}

// LongTermMemory links the conversation to the user's durable context.
type LongTermMemory struct {
	Profile               *UserProfile           `json:"profile"`
	PreviousConversations []*ConversationSummary `json:"previous_conversations"`
	LearnedPreferences    map[string]any         `json:"learned_preferences"`
	BehaviorPatterns      []string               `json:"behavior_patterns"`
}

// WorkingMemory tracks in-flight dialogue state. ContextStack keeps at
// most the last 5 frames.
type WorkingMemory struct {
	CurrentIntent  string   `json:"current_intent"`
	ActiveFunction string   `json:"active_function,omitempty"`
	PendingActions []string `json:"pending_actions"`
	ContextStack   []any    `json:"context_stack"`
}

// Metadata tracks conversation bookkeeping.
type Metadata struct {
	Created            time.Time `json:"created"`
	LastUpdated        time.Time `json:"last_updated"`
	ConversationLength int       `json:"conversation_length"`
	AvgResponseTime    float64   `json:"avg_response_time"`
}

// ConversationMemory is the layered memory for one conversation.
type ConversationMemory struct {
	ConversationID string          `json:"conversation_id"`
	ShortTerm      ShortTermMemory `json:"short_term"`
	LongTerm       LongTermMemory  `json:"long_term"`
	Working        WorkingMemory   `json:"working"`
	Meta           Metadata        `json:"metadata"`
}

// ConversationSummary is written once when a conversation is finalized.
type ConversationSummary struct {
	ConversationID string        `json:"conversation_id"`
	UserID         string        `json:"user_id"`
	Date           time.Time     `json:"date"`
	Duration       time.Duration `json:"duration"`
	MessageCount   int           `json:"message_count"`
	MainTopics     []string      `json:"main_topics"`
	Outcome        Outcome       `json:"outcome"`
	KeyInsights    []string      `json:"key_insights"`
}

// Updates is the partial-update payload for Store.Update. Zero-valued
// fields are skipped.
type Updates struct {
	CurrentTopic   string
	Query          string
	Intent         string
	Entities       map[string]any
	ActiveFunction string
	PendingAction  string
	ContextFrame   any
}
