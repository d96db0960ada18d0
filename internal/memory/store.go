package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Clock supplies the current time. Injectable for tests.
type Clock func() time.Time

// Store is the in-process layered memory store. All access goes through
// the store mutex; Get hands out deep-copy snapshots so callers never
// alias live state.
type Store struct {
	mu            sync.RWMutex
	now           Clock
	conversations map[string]*ConversationMemory
	profiles      map[string]*UserProfile
	summaries     map[string]*ConversationSummary
	log           zerolog.Logger
}

// NewStore creates a memory store using the wall clock.
func NewStore(log zerolog.Logger) *Store {
	return NewStoreWithClock(log, time.Now)
}

// NewStoreWithClock creates a memory store with an injected clock.
func NewStoreWithClock(log zerolog.Logger, now Clock) *Store {
	return &Store{
		now:           now,
		conversations: make(map[string]*ConversationMemory),
		profiles:      make(map[string]*UserProfile),
		summaries:     make(map[string]*ConversationSummary),
		log:           log.With().Str("component", "memory").Logger(),
	}
}

// Initialize creates memory for a new conversation, lazily creating the
// user profile, and returns a snapshot of the fresh memory. Re-initializing
// an existing conversation replaces its memory.
func (s *Store) Initialize(conversationID, userID, phoneNumber, pointOfSaleID string) *ConversationMemory {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, ok := s.profiles[userID]
	if !ok {
		profile = &UserProfile{
			UserID:      userID,
			PhoneNumber: phoneNumber,
			Interactions: InteractionStats{
				CommonTopics: []string{},
			},
			Preferences: Preferences{
				PreferredBrands:    []string{},
				CommunicationStyle: StyleCasual,
			},
			Business: BusinessContext{
				PointOfSaleID: pointOfSaleID,
			},
		}
		s.profiles[userID] = profile
	}

	now := s.now()
	mem := &ConversationMemory{
		ConversationID: conversationID,
		ShortTerm: ShortTermMemory{
			RecentQueries:      []string{},
			ContextualEntities: make(map[string]any),
			TemporalReferences: make(map[string]time.Time),
		},
		LongTerm: LongTermMemory{
			Profile:               profile,
			PreviousConversations: s.historyForUser(userID),
			LearnedPreferences:    make(map[string]any),
			BehaviorPatterns:      []string{},
		},
		Working: WorkingMemory{
			PendingActions: []string{},
			ContextStack:   []any{},
		},
		Meta: Metadata{
			Created:     now,
			LastUpdated: now,
		},
	}

	s.conversations[conversationID] = mem
	s.log.Debug().Str("conversation_id", conversationID).Str("user_id", userID).Msg("memory initialized")

	return snapshotMemory(mem)
}

// historyForUser returns the user's past summaries, newest first.
// Caller must hold the lock.
func (s *Store) historyForUser(userID string) []*ConversationSummary {
	history := []*ConversationSummary{}
	for _, summary := range s.summaries {
		if summary.UserID == userID {
			history = append(history, summary)
		}
	}
	sort.Slice(history, func(i, j int) bool {
		return history[i].Date.After(history[j].Date)
	})
	return history
}

// Update applies a partial update to a conversation's memory. Unknown
// conversation ids are logged and ignored. Every applied update bumps
// ConversationLength and refreshes LastUpdated.
func (s *Store) Update(conversationID string, u Updates) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mem, ok := s.conversations[conversationID]
	if !ok {
		s.log.Warn().Str("conversation_id", conversationID).Msg("memory not found")
		return
	}

	if u.CurrentTopic != "" {
		mem.ShortTerm.CurrentTopic = u.CurrentTopic
	}
	if u.Query != "" {
		mem.ShortTerm.RecentQueries = append(mem.ShortTerm.RecentQueries, u.Query)
		if len(mem.ShortTerm.RecentQueries) > maxRecentQueries {
			mem.ShortTerm.RecentQueries = mem.ShortTerm.RecentQueries[1:]
		}
	}
	for key, value := range u.Entities {
		mem.ShortTerm.ContextualEntities[key] = value
	}
	if u.Intent != "" {
		mem.Working.CurrentIntent = u.Intent
	}
	if u.ActiveFunction != "" {
		mem.Working.ActiveFunction = u.ActiveFunction
	}
	if u.PendingAction != "" {
		mem.Working.PendingActions = append(mem.Working.PendingActions, u.PendingAction)
	}
	if u.ContextFrame != nil {
		mem.Working.ContextStack = append(mem.Working.ContextStack, u.ContextFrame)
		if len(mem.Working.ContextStack) > maxContextStack {
			mem.Working.ContextStack = mem.Working.ContextStack[1:]
		}
	}

	mem.Meta.LastUpdated = s.now()
	mem.Meta.ConversationLength++
}

// Get returns a deep-copy snapshot of a conversation's memory.
func (s *Store) Get(conversationID string) (*ConversationMemory, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mem, ok := s.conversations[conversationID]
	if !ok {
		return nil, false
	}
	return snapshotMemory(mem), true
}

// LearnPreference records a learned preference and projects recognized
// keys into the user profile.
func (s *Store) LearnPreference(conversationID, key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mem, ok := s.conversations[conversationID]
	if !ok {
		return
	}

	mem.LongTerm.LearnedPreferences[key] = value

	profile := mem.LongTerm.Profile
	switch key {
	case "preferred_brand":
		brand, ok := value.(string)
		if !ok {
			break
		}
		for _, b := range profile.Preferences.PreferredBrands {
			if b == brand {
				return
			}
		}
		profile.Preferences.PreferredBrands = append(profile.Preferences.PreferredBrands, brand)
	case "vehicle_info":
		switch v := value.(type) {
		case VehicleInfo:
			vehicle := v
			profile.Preferences.Vehicle = &vehicle
		case *VehicleInfo:
			profile.Preferences.Vehicle = v
		}
	case "communication_style":
		if style, ok := value.(CommunicationStyle); ok {
			profile.Preferences.CommunicationStyle = style
		} else if style, ok := value.(string); ok {
			profile.Preferences.CommunicationStyle = CommunicationStyle(style)
		}
	case "price_range":
		switch v := value.(type) {
		case PriceRange:
			pr := v
			profile.Preferences.PriceRange = &pr
		case *PriceRange:
			profile.Preferences.PriceRange = v
		}
	}

	s.log.Debug().Str("conversation_id", conversationID).Str("key", key).Msg("preference learned")
}

// AnalyzeBehaviorPatterns derives behavior patterns from the recent
// queries and stores them on the conversation. Deterministic for a
// given query window.
func (s *Store) AnalyzeBehaviorPatterns(conversationID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	mem, ok := s.conversations[conversationID]
	if !ok {
		return []string{}
	}

	patterns := []string{}
	queries := mem.ShortTerm.RecentQueries

	if countContaining(queries, "precio") > 2 {
		patterns = append(patterns, "price_conscious")
	}
	if countContaining(queries, "marca") > 1 {
		patterns = append(patterns, "brand_focused")
	}
	if countContaining(queries, "compatible") > 1 {
		patterns = append(patterns, "compatibility_focused")
	}
	if countContaining(queries, "urgente") > 0 || countContaining(queries, "rápido") > 0 {
		patterns = append(patterns, "urgent_need")
	}

	mem.LongTerm.BehaviorPatterns = patterns
	return append([]string{}, patterns...)
}

func countContaining(queries []string, term string) int {
	n := 0
	for _, q := range queries {
		if strings.Contains(q, term) {
			n++
		}
	}
	return n
}

// FinalizeConversation writes the conversation summary and folds the
// conversation's stats into the user profile. Summaries are immutable;
// finalizing twice is a no-op.
func (s *Store) FinalizeConversation(conversationID string, outcome Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mem, ok := s.conversations[conversationID]
	if !ok {
		return
	}
	if _, done := s.summaries[conversationID]; done {
		return
	}

	now := s.now()
	topics := []string{}
	if mem.ShortTerm.CurrentTopic != "" {
		topics = append(topics, mem.ShortTerm.CurrentTopic)
	}
	s.summaries[conversationID] = &ConversationSummary{
		ConversationID: conversationID,
		UserID:         mem.LongTerm.Profile.UserID,
		Date:           mem.Meta.Created,
		Duration:       now.Sub(mem.Meta.Created),
		MessageCount:   mem.Meta.ConversationLength,
		MainTopics:     topics,
		Outcome:        outcome,
		KeyInsights:    []string{},
	}

	profile := mem.LongTerm.Profile
	profile.Interactions.TotalMessages += mem.Meta.ConversationLength
	profile.Interactions.LastInteraction = now

	s.log.Info().Str("conversation_id", conversationID).Str("outcome", string(outcome)).Msg("conversation finalized")
}

// CleanupOldMemory removes conversations whose last update is older than
// maxAge and returns how many were removed.
func (s *Store) CleanupOldMemory(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxAge)
	removed := 0
	for id, mem := range s.conversations {
		if !mem.Meta.LastUpdated.After(cutoff) {
			delete(s.conversations, id)
			removed++
		}
	}

	if removed > 0 {
		s.log.Info().Int("removed", removed).Msg("memory cleanup completed")
	}
	return removed
}

// Profile returns a snapshot of a user's profile.
func (s *Store) Profile(userID string) (*UserProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.profiles[userID]
	if !ok {
		return nil, false
	}
	return snapshotProfile(profile), true
}

func snapshotMemory(mem *ConversationMemory) *ConversationMemory {
	cp := &ConversationMemory{
		ConversationID: mem.ConversationID,
		ShortTerm: ShortTermMemory{
			CurrentTopic:       mem.ShortTerm.CurrentTopic,
			RecentQueries:      append([]string{}, mem.ShortTerm.RecentQueries...),
			ContextualEntities: make(map[string]any, len(mem.ShortTerm.ContextualEntities)),
			TemporalReferences: make(map[string]time.Time, len(mem.ShortTerm.TemporalReferences)),
		},
		LongTerm: LongTermMemory{
			Profile:               snapshotProfile(mem.LongTerm.Profile),
			PreviousConversations: make([]*ConversationSummary, 0, len(mem.LongTerm.PreviousConversations)),
			LearnedPreferences:    make(map[string]any, len(mem.LongTerm.LearnedPreferences)),
			BehaviorPatterns:      append([]string{}, mem.LongTerm.BehaviorPatterns...),
		},
		Working: WorkingMemory{
			CurrentIntent:  mem.Working.CurrentIntent,
			ActiveFunction: mem.Working.ActiveFunction,
			PendingActions: append([]string{}, mem.Working.PendingActions...),
			ContextStack:   append([]any{}, mem.Working.ContextStack...),
		},
		Meta: mem.Meta,
	}
	for k, v := range mem.ShortTerm.ContextualEntities {
		cp.ShortTerm.ContextualEntities[k] = v
	}
	for k, v := range mem.ShortTerm.TemporalReferences {
		cp.ShortTerm.TemporalReferences[k] = v
	}
	for k, v := range mem.LongTerm.LearnedPreferences {
		cp.LongTerm.LearnedPreferences[k] = v
	}
	for _, summary := range mem.LongTerm.PreviousConversations {
		sc := *summary
		sc.MainTopics = append([]string{}, summary.MainTopics...)
		sc.KeyInsights = append([]string{}, summary.KeyInsights...)
		cp.LongTerm.PreviousConversations = append(cp.LongTerm.PreviousConversations, &sc)
	}
	return cp
}

func snapshotProfile(profile *UserProfile) *UserProfile {
	if profile == nil {
		return nil
	}
	cp := *profile
	cp.Interactions.CommonTopics = append([]string{}, profile.Interactions.CommonTopics...)
	cp.Preferences.PreferredBrands = append([]string{}, profile.Preferences.PreferredBrands...)
	if profile.Preferences.Vehicle != nil {
		vehicle := *profile.Preferences.Vehicle
		cp.Preferences.Vehicle = &vehicle
	}
	if profile.Preferences.PriceRange != nil {
		pr := *profile.Preferences.PriceRange
		cp.Preferences.PriceRange = &pr
	}
	return &cp
}
