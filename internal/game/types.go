// Package game implements the session orchestrator: one live session, a
// turn counter, event and decision history, advisor message caches, and the
// cascade queue, coordinated into a single consistent turn cycle around an
// external generative oracle.
package game

import (
	"errors"
	"time"

	"github.com/tmorland/statecraft/internal/advisors"
	"github.com/tmorland/statecraft/internal/cascade"
)

// Event urgency levels.
const (
	UrgencyLow      = "low"
	UrgencyMedium   = "medium"
	UrgencyHigh     = "high"
	UrgencyCritical = "critical"
)

// Precondition errors, surfaced to callers as 4xx-equivalents.
var (
	ErrNoSession      = errors.New("no active session")
	ErrNoEvent        = errors.New("no active event")
	ErrUnknownAdvisor = errors.New("advisor not found")
	ErrUnknownEvent   = errors.New("event not found")
)

// Event is a generated crisis scenario. Immutable once created: appended to
// the session history, never mutated, superseded by later events.
type Event struct {
	ID                    string    `json:"id"`
	Title                 string    `json:"title"`
	Description           string    `json:"description"`
	Category              string    `json:"category"`
	Urgency               string    `json:"urgency"`
	PotentialConsequences []string  `json:"potentialConsequences"`
	AffectedParameters    []string  `json:"affectedParameters"`
	Timestamp             time.Time `json:"timestamp"`
	AudioURL              string    `json:"audioUrl,omitempty"`
}

// AdvisorMessage is one advisor utterance, tied to exactly one event by id.
// IsReaction distinguishes post-decision commentary from the initial
// briefing response.
type AdvisorMessage struct {
	ID               string    `json:"id"`
	AdvisorID        string    `json:"advisorId"`
	EventID          string    `json:"eventId"`
	Content          string    `json:"content"`
	HiddenMotivation string    `json:"hiddenMotivation,omitempty"`
	Confidence       float64   `json:"confidence"`
	IsReaction       bool      `json:"isReaction"`
	Timestamp        time.Time `json:"timestamp"`
	AudioURL         string    `json:"audioUrl,omitempty"`
}

// Decision is a recorded player action against an event.
type Decision struct {
	EventID           string    `json:"eventId"`
	Action            string    `json:"action"`
	Reasoning         string    `json:"reasoning,omitempty"`
	ConsultedAdvisors []string  `json:"consultedAdvisors"`
	Timestamp         time.Time `json:"timestamp"`
}

// Impact is the world-facing part of a consequence.
type Impact struct {
	ParameterChanges map[string]int `json:"parameterChanges"`
	PublicReaction   string         `json:"publicReaction"`
	Summary          string         `json:"summary"`
}

// Consequence is the oracle's evaluation of a decision: sparse parameter
// deltas plus narrative text and optional cascade title suggestions.
type Consequence struct {
	Impact        Impact   `json:"impact"`
	CascadeEvents []string `json:"cascadeEvents,omitempty"`
}

// Session is the single live game. Starting a new session discards the
// previous one's in-memory state.
type Session struct {
	SessionID            string            `json:"sessionId"`
	PlayerID             string            `json:"playerId"`
	Mode                 string            `json:"mode"`
	WorldState           map[string]int    `json:"worldState"`
	Events               []Event           `json:"events"`
	Decisions            []Decision        `json:"decisions"`
	PendingCascadeEvents []cascade.Pending `json:"pendingCascadeEvents"`
	CurrentTurn          int               `json:"currentTurn"`
	StartTime            time.Time         `json:"startTime"`
	EndTime              *time.Time        `json:"endTime,omitempty"`
}

// Clone returns a deep copy. The engine hands clones to callers so the
// live session never escapes its mutex; element structs are value types,
// only the slices and the world-state map need copying.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.WorldState = make(map[string]int, len(s.WorldState))
	for k, v := range s.WorldState {
		c.WorldState[k] = v
	}
	c.Events = append([]Event(nil), s.Events...)
	c.Decisions = append([]Decision(nil), s.Decisions...)
	c.PendingCascadeEvents = append([]cascade.Pending(nil), s.PendingCascadeEvents...)
	return &c
}

// AdvisorSummary is the roster view exposed to clients.
type AdvisorSummary struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Role      string   `json:"role"`
	Expertise []string `json:"expertise"`
}

// GameState is the full state view returned to callers.
type GameState struct {
	Session           *Session         `json:"session"`
	WorldState        map[string]int   `json:"worldState"`
	WorldStateReport  string           `json:"worldStateReport"`
	CurrentEvent      *Event           `json:"currentEvent"`
	AvailableAdvisors []AdvisorSummary `json:"availableAdvisors"`
	RecentMessages    []AdvisorMessage `json:"recentMessages"`
	RecentReactions   []AdvisorMessage `json:"recentReactions"`
}

// DecisionResult is the bundle returned from a processed decision.
type DecisionResult struct {
	Consequence      Consequence      `json:"consequence"`
	NewWorldState    map[string]int   `json:"newWorldState"`
	NextEvent        *Event           `json:"nextEvent,omitempty"`
	AdvisorReactions []AdvisorMessage `json:"advisorReactions"`
}

// Analytics summarizes a session for the analytics endpoint.
type Analytics struct {
	SessionDurationSeconds int            `json:"sessionDuration"`
	DecisionsCount         int            `json:"decisionsCount"`
	EventsCount            int            `json:"eventsCount"`
	AverageDecisionTimeMS  float64        `json:"averageDecisionTime"`
	FinalStability         float64        `json:"finalStability"`
	CriticalParameters     []string       `json:"criticalParameters"`

	// ProblematicAdvisorsConsulted lists consulted advisors who carry a
	// secret agenda or low trustworthiness, revealed only post-game.
	ProblematicAdvisorsConsulted []string       `json:"problematicAdvisorsConsulted,omitempty"`
	WorldStateHistory            []StateHistory `json:"worldStateHistory"`
}

// StateHistory is one world-state snapshot in the analytics view.
type StateHistory struct {
	State     map[string]int `json:"state"`
	Timestamp time.Time      `json:"timestamp"`
}

// EventGenerator produces a new crisis event from the world state and
// history, optionally biased toward a pending cascade title.
type EventGenerator interface {
	GenerateEvent(world map[string]int, history []Event, biasTitle string) (Event, error)
}

// DecisionEvaluator turns a player decision into a consequence.
type DecisionEvaluator interface {
	EvaluateDecision(dec Decision, ev Event, world map[string]int, advice []AdvisorMessage) (Consequence, error)
}

// AdvisorOracle produces advisor speech: initial responses, reactions to a
// decision, and follow-up answers.
type AdvisorOracle interface {
	Respond(adv advisors.Advisor, ev Event, world map[string]int, exclude []string) (AdvisorMessage, error)
	React(adv advisors.Advisor, dec Decision, ev Event, cons Consequence, world map[string]int) (AdvisorMessage, error)
	FollowUp(adv advisors.Advisor, question string, ev Event, world map[string]int, prior []AdvisorMessage) (AdvisorMessage, error)
}

// Archiver persists game records. All engine writes are write-behind:
// archive failures are logged, never fail a turn.
type Archiver interface {
	SaveEvent(sessionID string, turn int, ev Event) error
	SaveDecision(sessionID string, turn int, dec Decision) error
	SaveSnapshot(sessionID string, turn int, state map[string]int) error
	SaveSession(s *Session, finalStability float64) error
}

// NewsContext is the material handed to the news desk after a turn.
type NewsContext struct {
	SessionID   string
	Turn        int
	Event       Event
	Decision    *Decision
	Consequence *Consequence
	WorldState  map[string]int
}

// NewsDesk receives turn material for background bulletin generation.
type NewsDesk interface {
	QueueReport(ctx NewsContext)
}
