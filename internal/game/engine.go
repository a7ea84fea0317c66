package game

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tmorland/statecraft/internal/advisors"
	"github.com/tmorland/statecraft/internal/cascade"
	"github.com/tmorland/statecraft/internal/entropy"
	"github.com/tmorland/statecraft/internal/worldstate"
)

const advisorsPerRound = 3

// recentResponseCap bounds the per-advisor "do not repeat" ring.
const recentResponseCap = 3

// Config wires an Engine. Roster, Events, Evaluator and Advisers are
// required; the rest default sensibly.
type Config struct {
	Roster    *advisors.Roster
	Events    EventGenerator
	Evaluator DecisionEvaluator
	Advisers  AdvisorOracle

	Repo      SessionRepo     // nil means in-memory single slot
	NextEvent NextEventPolicy // nil means AlwaysNext
	Intents   IntentParser    // nil means AgreementParser over the roster
	Archive   Archiver        // optional, write-behind
	News      NewsDesk        // optional
	RNG       *entropy.Client // optional, crypto fallback when nil
}

// Engine owns the single live session and runs the turn cycle. All exported
// methods serialize on one mutex: the design assumes one orchestrator
// operation runs to completion before the next begins.
type Engine struct {
	mu sync.Mutex

	roster    *advisors.Roster
	events    EventGenerator
	evaluator DecisionEvaluator
	advisers  AdvisorOracle
	nextEvent NextEventPolicy
	intents   IntentParser
	archive   Archiver
	news      NewsDesk
	rng       *entropy.Client

	repo  SessionRepo
	world *worldstate.Store
	sched *cascade.Scheduler

	history          []Event
	messages         []AdvisorMessage
	currentEventMsgs []AdvisorMessage // cache scoped to exactly one event id
	recentResponses  map[string][]string
	tracker          advisors.Tracker
	drainedTitles    []string // cascades drained at the last turn advance
}

// New creates an Engine from config.
func New(cfg Config) *Engine {
	e := &Engine{
		roster:    cfg.Roster,
		events:    cfg.Events,
		evaluator: cfg.Evaluator,
		advisers:  cfg.Advisers,
		nextEvent: cfg.NextEvent,
		intents:   cfg.Intents,
		archive:   cfg.Archive,
		news:      cfg.News,
		rng:       cfg.RNG,
		repo:      cfg.Repo,

		recentResponses: make(map[string][]string),
	}
	if e.repo == nil {
		e.repo = NewMemoryRepo()
	}
	if e.nextEvent == nil {
		e.nextEvent = AlwaysNext
	}
	if e.intents == nil {
		e.intents = NewAgreementParser(cfg.Roster)
	}
	e.world = worldstate.New(cfg.Roster.InitialWorldState)
	e.sched = cascade.NewScheduler(cfg.RNG)
	return e
}

// StartSession begins a new game for playerId, silently discarding any
// previous session. It generates the opening event and caches the initial
// advisor briefing; the session starts with advisors already responded.
func (e *Engine) StartSession(playerID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Discard prior state wholesale: all history buffers reset.
	e.repo.Clear()
	e.history = nil
	e.messages = nil
	e.currentEventMsgs = nil
	e.recentResponses = make(map[string][]string)
	e.tracker.Reset()
	e.drainedTitles = nil
	e.world = worldstate.New(e.roster.InitialWorldState)
	e.sched.Reset()

	sess := &Session{
		SessionID:  "session_" + uuid.NewString(),
		PlayerID:   playerID,
		Mode:       e.roster.Mode,
		WorldState: e.world.Current(),
		StartTime:  time.Now(),
	}
	e.repo.Put(sess)
	slog.Info("session started", "session", sess.SessionID, "player", playerID, "mode", sess.Mode)

	ev, err := e.generateEvent(sess)
	if err != nil {
		return fmt.Errorf("generate initial event: %w", err)
	}
	e.commitEvent(sess, ev)

	responses := e.advisorResponses(ev)
	e.currentEventMsgs = responses

	e.queueNews(NewsContext{
		SessionID:  sess.SessionID,
		Turn:       sess.CurrentTurn,
		Event:      ev,
		WorldState: e.world.Current(),
	})

	e.syncSession(sess)
	return nil
}

// GenerateNewEvent produces a preview event without committing it to the
// session history. Callers decide whether to act on it.
func (e *Engine) GenerateNewEvent() (Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sess, ok := e.repo.Get()
	if !ok {
		return Event{}, ErrNoSession
	}
	return e.generateEvent(sess)
}

// ProcessDecision runs one full turn: evaluate the decision, apply the
// consequence, roll cascades, advance the turn, gather reactions, and
// (policy permitting) stage the next event.
func (e *Engine) ProcessDecision(eventID, action, reasoning string) (*DecisionResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sess, ok := e.repo.Get()
	if !ok {
		return nil, ErrNoSession
	}

	// Prefer an exact id match; otherwise the most recent event stands in.
	ev, found := e.findEvent(eventID)
	if !found {
		cur := e.currentEvent(sess)
		if cur == nil {
			return nil, ErrNoEvent
		}
		slog.Warn("decision event not found, using current event", "requested", eventID, "using", cur.ID)
		ev = *cur
	}

	action = e.intents.EffectiveAction(action, func(advisorID string) (string, bool) {
		return e.latestAdvice(advisorID, eventID)
	})

	dec := Decision{
		EventID:           eventID,
		Action:            action,
		Reasoning:         reasoning,
		ConsultedAdvisors: e.consultedAdvisors(eventID),
		Timestamp:         time.Now(),
	}
	sess.Decisions = append(sess.Decisions, dec)

	advice := e.briefingMessages(ev.ID)
	cons, err := e.evaluator.EvaluateDecision(dec, ev, e.world.Current(), advice)
	if err != nil {
		return nil, fmt.Errorf("evaluate decision: %w", err)
	}

	newState := e.world.ApplyDelta(cons.Impact.ParameterChanges)

	if e.archive != nil {
		if err := e.archive.SaveDecision(sess.SessionID, sess.CurrentTurn, dec); err != nil {
			slog.Error("archive decision failed", "error", err)
		}
		if err := e.archive.SaveSnapshot(sess.SessionID, sess.CurrentTurn, newState); err != nil {
			slog.Error("archive snapshot failed", "error", err)
		}
	}

	e.rollCascades(sess, ev, cons)

	sess.CurrentTurn++

	due := e.sched.DrainDue(sess.CurrentTurn)
	e.drainedTitles = e.drainedTitles[:0]
	for _, p := range due {
		e.drainedTitles = append(e.drainedTitles, p.Title)
		slog.Info("cascade due", "title", p.Title, "turn", sess.CurrentTurn)
	}

	reactions := e.advisorReactions(dec, ev, cons)

	var nextEvent *Event
	if e.nextEvent(e.world) {
		nev, err := e.generateEvent(sess)
		if err != nil {
			return nil, fmt.Errorf("generate next event: %w", err)
		}
		e.commitEvent(sess, nev)
		e.drainedTitles = nil

		// Destructive by design: the message cache is scoped to exactly
		// one event id, so moving to a new event wipes everything.
		e.resetForNewEvent()

		responses := e.advisorResponses(nev)
		if len(responses) == 0 {
			return nil, fmt.Errorf("staff next event %s: all advisor responses failed", nev.ID)
		}
		e.currentEventMsgs = responses
		nextEvent = &nev

		e.queueNews(NewsContext{
			SessionID:  sess.SessionID,
			Turn:       sess.CurrentTurn,
			Event:      nev,
			WorldState: newState,
		})
	}

	e.queueNews(NewsContext{
		SessionID:   sess.SessionID,
		Turn:        sess.CurrentTurn,
		Event:       ev,
		Decision:    &dec,
		Consequence: &cons,
		WorldState:  newState,
	})

	e.syncSession(sess)

	return &DecisionResult{
		Consequence:      cons,
		NewWorldState:    newState,
		NextEvent:        nextEvent,
		AdvisorReactions: reactions,
	}, nil
}

// AskAdvisor requests a follow-up answer from one advisor about one event.
func (e *Engine) AskAdvisor(advisorID, question, eventID string) (AdvisorMessage, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.repo.Get(); !ok {
		return AdvisorMessage{}, ErrNoSession
	}
	adv, ok := e.roster.ByID(advisorID)
	if !ok {
		return AdvisorMessage{}, fmt.Errorf("%w: %s", ErrUnknownAdvisor, advisorID)
	}
	ev, found := e.findEvent(eventID)
	if !found {
		return AdvisorMessage{}, fmt.Errorf("%w: %s", ErrUnknownEvent, eventID)
	}

	var prior []AdvisorMessage
	for _, m := range e.messages {
		if m.AdvisorID == advisorID && m.EventID == eventID {
			prior = append(prior, m)
		}
	}

	msg, err := e.advisers.FollowUp(adv, question, ev, e.world.Current(), prior)
	if err != nil {
		return AdvisorMessage{}, fmt.Errorf("advisor follow-up: %w", err)
	}
	e.messages = append(e.messages, msg)
	return msg, nil
}

// GameState returns the full state view for the live session.
func (e *Engine) GameState() (*GameState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sess, ok := e.repo.Get()
	if !ok {
		return nil, ErrNoSession
	}
	e.syncSession(sess)

	summaries := make([]AdvisorSummary, 0, len(e.roster.Advisors))
	for _, a := range e.roster.Advisors {
		summaries = append(summaries, AdvisorSummary{
			ID:        a.ID,
			Name:      a.Name,
			Role:      a.Role,
			Expertise: a.Expertise,
		})
	}

	// Handlers marshal the result after the mutex is released; hand out a
	// clone so concurrent turns cannot race the encoder.
	return &GameState{
		Session:           sess.Clone(),
		WorldState:        e.world.Current(),
		WorldStateReport:  e.world.Report(),
		CurrentEvent:      e.currentEvent(sess),
		AvailableAdvisors: summaries,
		RecentMessages:    e.recentAdvisorMessages(sess),
		RecentReactions:   e.recentAdvisorReactions(sess),
	}, nil
}

// RecentAdvisorMessages returns the current event's briefing messages,
// reactions excluded, oldest first.
func (e *Engine) RecentAdvisorMessages() []AdvisorMessage {
	e.mu.Lock()
	defer e.mu.Unlock()
	sess, ok := e.repo.Get()
	if !ok {
		return nil
	}
	return e.recentAdvisorMessages(sess)
}

// RecentAdvisorReactions returns reactions tied to the current event,
// oldest first.
func (e *Engine) RecentAdvisorReactions() []AdvisorMessage {
	e.mu.Lock()
	defer e.mu.Unlock()
	sess, ok := e.repo.Get()
	if !ok {
		return nil
	}
	return e.recentAdvisorReactions(sess)
}

// CurrentEvent returns the most recent committed event, or nil when no
// session or event exists.
func (e *Engine) CurrentEvent() *Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	sess, ok := e.repo.Get()
	if !ok {
		return nil
	}
	return e.currentEvent(sess)
}

// CurrentSessionID reports the live session id, if any.
func (e *Engine) CurrentSessionID() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sess, ok := e.repo.Get()
	if !ok {
		return "", false
	}
	return sess.SessionID, true
}

// Analytics summarizes the live session.
func (e *Engine) Analytics() (*Analytics, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sess, ok := e.repo.Get()
	if !ok {
		return nil, ErrNoSession
	}

	duration := time.Since(sess.StartTime)
	decisions := len(sess.Decisions)

	avgMS := 0.0
	if decisions > 0 {
		avgMS = float64(duration.Milliseconds()) / float64(decisions)
	}

	var critical []string
	for _, p := range e.world.CriticalParameters() {
		critical = append(critical, p.Name)
	}

	history := e.world.History()
	stateHistory := make([]StateHistory, len(history))
	for i, snap := range history {
		stateHistory[i] = StateHistory{State: snap.State, Timestamp: snap.Timestamp}
	}

	return &Analytics{
		SessionDurationSeconds:       int(duration.Seconds()),
		DecisionsCount:               decisions,
		EventsCount:                  len(sess.Events),
		AverageDecisionTimeMS:        avgMS,
		FinalStability:               e.world.StabilityScore(),
		CriticalParameters:           critical,
		ProblematicAdvisorsConsulted: e.problematicConsulted(sess),
		WorldStateHistory:            stateHistory,
	}, nil
}

// problematicConsulted reveals which consulted advisors had a secret agenda
// or low trustworthiness. Post-game only: live payloads never expose
// agendas.
func (e *Engine) problematicConsulted(sess *Session) []string {
	flagged := make(map[string]bool)
	for _, a := range e.roster.Problematic() {
		flagged[a.ID] = true
	}

	seen := make(map[string]bool)
	var out []string
	for _, dec := range sess.Decisions {
		for _, id := range dec.ConsultedAdvisors {
			if flagged[id] && !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

// EndSession stamps the end time, archives the session, and clears it.
// Idempotent: returns false when no session is live.
func (e *Engine) EndSession() (*Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sess := e.repo.Clear()
	if sess == nil {
		return nil, false
	}
	now := time.Now()
	sess.EndTime = &now
	e.syncSession(sess)

	if e.archive != nil {
		if err := e.archive.SaveSession(sess, e.world.StabilityScore()); err != nil {
			slog.Error("archive session failed", "error", err)
		}
	}
	slog.Info("session ended",
		"session", sess.SessionID,
		"turns", sess.CurrentTurn,
		"decisions", len(sess.Decisions),
	)
	return sess, true
}

// Internal helpers below assume the caller holds e.mu.

// generateEvent asks the oracle for an event, biased toward a due cascade
// title when one exists.
func (e *Engine) generateEvent(sess *Session) (Event, error) {
	bias := ""
	if title, ok := e.sched.PeekFirstDueTitle(sess.CurrentTurn); ok {
		bias = title
	} else if len(e.drainedTitles) > 0 {
		bias = e.drainedTitles[0]
	}
	if bias != "" {
		slog.Info("biasing event generation toward cascade", "title", bias)
	}

	ev, err := e.events.GenerateEvent(e.world.Current(), e.history, bias)
	if err != nil {
		return Event{}, err
	}
	slog.Info("event generated", "id", ev.ID, "title", ev.Title, "urgency", ev.Urgency)
	return ev, nil
}

// commitEvent appends the event to session and engine history.
func (e *Engine) commitEvent(sess *Session, ev Event) {
	sess.Events = append(sess.Events, ev)
	e.history = append(e.history, ev)
	if e.archive != nil {
		if err := e.archive.SaveEvent(sess.SessionID, sess.CurrentTurn, ev); err != nil {
			slog.Error("archive event failed", "error", err)
		}
	}
}

// advisorResponses collects fresh briefing responses from a rotating
// selection of advisors. Per-advisor failures are logged and skipped:
// partial success is success.
func (e *Engine) advisorResponses(ev Event) []AdvisorMessage {
	selected := advisors.Select(e.rng, e.roster.Advisors, advisorsPerRound, &e.tracker)

	var responses []AdvisorMessage
	for _, adv := range selected {
		msg, err := e.advisers.Respond(adv, ev, e.world.Current(), e.recentResponses[adv.ID])
		if err != nil {
			slog.Warn("advisor response failed", "advisor", adv.ID, "error", err)
			continue
		}
		e.trackResponse(adv.ID, msg.Content)
		responses = append(responses, msg)
		e.messages = append(e.messages, msg)
	}
	slog.Info("advisor responses collected", "event", ev.ID, "count", len(responses))
	return responses
}

// advisorReactions collects post-decision reactions from a fresh advisor
// selection, independent of the briefing set.
func (e *Engine) advisorReactions(dec Decision, ev Event, cons Consequence) []AdvisorMessage {
	selected := advisors.Select(e.rng, e.roster.Advisors, advisorsPerRound, &e.tracker)

	var reactions []AdvisorMessage
	for _, adv := range selected {
		msg, err := e.advisers.React(adv, dec, ev, cons, e.world.Current())
		if err != nil {
			slog.Warn("advisor reaction failed", "advisor", adv.ID, "error", err)
			continue
		}
		msg.IsReaction = true
		reactions = append(reactions, msg)
		e.messages = append(e.messages, msg)
	}
	return reactions
}

// trackResponse records an advisor's latest content in the per-advisor
// "do not repeat" ring.
func (e *Engine) trackResponse(advisorID, content string) {
	ring := append(e.recentResponses[advisorID], content)
	if len(ring) > recentResponseCap {
		ring = ring[len(ring)-recentResponseCap:]
	}
	e.recentResponses[advisorID] = ring
}

// rollCascades merges oracle-suggested cascade titles with matrix-derived
// ones, rolls each against an impact-scaled probability, and schedules the
// survivors.
func (e *Engine) rollCascades(sess *Session, ev Event, cons Consequence) {
	totalImpact := 0
	for _, delta := range cons.Impact.ParameterChanges {
		if delta < 0 {
			totalImpact -= delta
		} else {
			totalImpact += delta
		}
	}

	smart := cascade.MatrixCascades(e.rng, ev.Title, totalImpact)
	smartKeys := make(map[string]bool, len(smart))
	for _, title := range smart {
		smartKeys[cascade.NormalizeKey(title)] = true
	}

	// Dedup by normalized key, oracle suggestions first.
	seen := make(map[string]bool)
	var candidates []string
	for _, title := range append(append([]string{}, cons.CascadeEvents...), smart...) {
		key := cascade.NormalizeKey(title)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		candidates = append(candidates, title)
	}
	if len(candidates) == 0 {
		return
	}

	base := baseCascadeProbability(totalImpact)
	slog.Info("rolling cascades", "candidates", len(candidates), "impact", totalImpact, "base_probability", base)

	for _, title := range candidates {
		p := base
		if smartKeys[cascade.NormalizeKey(title)] {
			p *= 1.1
		}
		if p > 0.60 {
			p = 0.60
		}
		if entropy.Float(e.rng) < p {
			target := e.sched.Schedule(title, sess.CurrentTurn)
			slog.Info("cascade scheduled", "title", title, "triggers_at_turn", target)
		}
	}
}

// baseCascadeProbability is a step function of a decision's total impact.
func baseCascadeProbability(totalImpact int) float64 {
	switch {
	case totalImpact > 200:
		return 0.40
	case totalImpact > 100:
		return 0.25
	case totalImpact > 50:
		return 0.15
	case totalImpact > 20:
		return 0.08
	default:
		return 0.03
	}
}

// resetForNewEvent wipes the message list and the current-event cache.
// Enforces in one place the invariant that the cache is scoped to exactly
// one event id.
func (e *Engine) resetForNewEvent() {
	e.messages = nil
	e.currentEventMsgs = nil
}

func (e *Engine) findEvent(eventID string) (Event, bool) {
	for _, ev := range e.history {
		if ev.ID == eventID {
			return ev, true
		}
	}
	return Event{}, false
}

func (e *Engine) currentEvent(sess *Session) *Event {
	if len(sess.Events) == 0 {
		return nil
	}
	ev := sess.Events[len(sess.Events)-1]
	return &ev
}

// latestAdvice returns the advisor's most recent non-reaction message for
// the event, if any.
func (e *Engine) latestAdvice(advisorID, eventID string) (string, bool) {
	for i := len(e.messages) - 1; i >= 0; i-- {
		m := e.messages[i]
		if m.AdvisorID == advisorID && m.EventID == eventID && !m.IsReaction {
			return m.Content, true
		}
	}
	return "", false
}

// consultedAdvisors lists advisors with a non-reaction message for the
// event, first-spoken order, no duplicates.
func (e *Engine) consultedAdvisors(eventID string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range e.messages {
		if m.EventID != eventID || m.IsReaction || seen[m.AdvisorID] {
			continue
		}
		seen[m.AdvisorID] = true
		out = append(out, m.AdvisorID)
	}
	return out
}

// briefingMessages returns the event's non-reaction messages sorted by
// creation time ascending.
func (e *Engine) briefingMessages(eventID string) []AdvisorMessage {
	var out []AdvisorMessage
	for _, m := range e.messages {
		if m.EventID == eventID && !m.IsReaction {
			out = append(out, m)
		}
	}
	sortByTime(out)
	return out
}

func (e *Engine) recentAdvisorMessages(sess *Session) []AdvisorMessage {
	cur := e.currentEvent(sess)
	if cur == nil {
		return nil
	}

	// Serve from the cache only when every cached message belongs to the
	// current event; otherwise fall back to the full list.
	if len(e.currentEventMsgs) > 0 && allForEvent(e.currentEventMsgs, cur.ID) {
		var out []AdvisorMessage
		for _, m := range e.currentEventMsgs {
			if !m.IsReaction {
				out = append(out, m)
			}
		}
		sortByTime(out)
		return out
	}
	return e.briefingMessages(cur.ID)
}

func (e *Engine) recentAdvisorReactions(sess *Session) []AdvisorMessage {
	cur := e.currentEvent(sess)
	if cur == nil {
		return nil
	}
	var out []AdvisorMessage
	for _, m := range e.messages {
		if m.EventID == cur.ID && m.IsReaction {
			out = append(out, m)
		}
	}
	sortByTime(out)
	return out
}

// syncSession refreshes the session's derived views (world state snapshot,
// pending cascade list) before it is exposed to callers.
func (e *Engine) syncSession(sess *Session) {
	sess.WorldState = e.world.Current()
	sess.PendingCascadeEvents = e.sched.Pending()
}

func (e *Engine) queueNews(ctx NewsContext) {
	if e.news != nil {
		e.news.QueueReport(ctx)
	}
}

func allForEvent(msgs []AdvisorMessage, eventID string) bool {
	for _, m := range msgs {
		if m.EventID != eventID {
			return false
		}
	}
	return true
}

func sortByTime(msgs []AdvisorMessage) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
}
