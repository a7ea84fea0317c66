// Package news turns game turns into short anchor-style bulletins in the
// background, off the request path.
package news

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tmorland/statecraft/internal/game"
)

const (
	queueCap            = 32
	bulletinsPerSession = 20
	scriptMaxWords      = 40
)

// Generator is the slice of the oracle client the reporter needs.
type Generator interface {
	Complete(system, userPrompt string, maxTokens int) (string, error)
	Enabled() bool
}

// Bulletin is one finished news item.
type Bulletin struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Turn      int       `json:"turn"`
	Script    string    `json:"script"`
	Urgency   string    `json:"urgency"`
	Timestamp time.Time `json:"timestamp"`
}

// Reporter drains a queue of turn contexts on its own goroutine and keeps
// finished bulletins per session. It implements game.NewsDesk.
type Reporter struct {
	gen   Generator
	queue chan game.NewsContext

	mu        sync.Mutex
	bulletins map[string][]Bulletin

	done chan struct{}
}

// NewReporter starts the background worker. gen may be disabled; the
// reporter then drops everything quietly.
func NewReporter(gen Generator) *Reporter {
	r := &Reporter{
		gen:       gen,
		queue:     make(chan game.NewsContext, queueCap),
		bulletins: make(map[string][]Bulletin),
		done:      make(chan struct{}),
	}
	go r.run()
	return r
}

// QueueReport enqueues a turn for bulletin generation. Non-blocking: when
// the queue is full or generation is disabled the turn is simply not
// reported on.
func (r *Reporter) QueueReport(ctx game.NewsContext) {
	if r.gen == nil || !r.gen.Enabled() {
		return
	}
	select {
	case r.queue <- ctx:
	default:
		slog.Warn("news queue full, dropping report", "event", ctx.Event.Title)
	}
}

// Bulletins returns the session's bulletins, newest first.
func (r *Reporter) Bulletins(sessionID string) []Bulletin {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := r.bulletins[sessionID]
	out := make([]Bulletin, len(stored))
	for i, b := range stored {
		out[len(stored)-1-i] = b
	}
	return out
}

// Close stops the worker. Queued items not yet processed are dropped.
func (r *Reporter) Close() {
	close(r.done)
}

func (r *Reporter) run() {
	for {
		select {
		case <-r.done:
			return
		case ctx := <-r.queue:
			r.process(ctx)
		}
	}
}

func (r *Reporter) process(ctx game.NewsContext) {
	script, err := r.gen.Complete(anchorSystem, buildScriptPrompt(ctx), 150)
	if err != nil {
		slog.Warn("news script generation failed, using fallback", "error", err)
		script = fallbackScript(ctx)
	}
	script = trimScript(script)

	b := Bulletin{
		ID:        "news_" + uuid.NewString(),
		SessionID: ctx.SessionID,
		Turn:      ctx.Turn,
		Script:    script,
		Urgency:   classifyUrgency(ctx),
		Timestamp: time.Now(),
	}

	r.mu.Lock()
	list := append(r.bulletins[ctx.SessionID], b)
	if len(list) > bulletinsPerSession {
		list = list[len(list)-bulletinsPerSession:]
	}
	r.bulletins[ctx.SessionID] = list
	r.mu.Unlock()

	slog.Info("news bulletin ready", "session", ctx.SessionID, "turn", ctx.Turn, "urgency", b.Urgency)
}

const anchorSystem = `You are a professional TV news anchor reporting breaking presidential news. Write concise 10-second scripts (25-30 words). Sound urgent and credible. Always mention "President" or "White House". Return ONLY the script, nothing else.`

func buildScriptPrompt(ctx game.NewsContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "EVENT: %s\nDESCRIPTION: %s\nURGENCY: %s\nTURN: %d\n\n",
		ctx.Event.Title, ctx.Event.Description, ctx.Event.Urgency, ctx.Turn)

	b.WriteString("CURRENT WORLD STATE:\n")
	for k, v := range ctx.WorldState {
		fmt.Fprintf(&b, "- %s: %d/100\n", k, v)
	}

	if ctx.Decision != nil {
		fmt.Fprintf(&b, "\nPRESIDENTIAL DECISION: %s\n", ctx.Decision.Action)
	}
	if ctx.Consequence != nil && ctx.Consequence.Impact.Summary != "" {
		fmt.Fprintf(&b, "CONSEQUENCES: %s\n", ctx.Consequence.Impact.Summary)
	}

	b.WriteString("\nWrite the 10-second script now:")
	return b.String()
}

// fallbackScript keeps the broadcast running when the model is unreachable.
func fallbackScript(ctx game.NewsContext) string {
	if ctx.Decision != nil {
		return fmt.Sprintf("Breaking: White House responds to %s. The President's decision draws sharp reactions as the situation develops.", ctx.Event.Title)
	}
	return fmt.Sprintf("Breaking: %s. The White House has yet to comment as the crisis unfolds.", ctx.Event.Title)
}

func trimScript(script string) string {
	script = strings.TrimSpace(script)
	words := strings.Fields(script)
	if len(words) <= scriptMaxWords {
		return script
	}
	return strings.Join(words[:scriptMaxWords], " ") + "."
}

var (
	criticalKeywords = []string{"nuclear", "war", "invasion", "attack", "crisis", "emergency", "catastrophe"}
	highKeywords     = []string{"military", "security", "breach", "threat", "urgent", "breaking"}
	mediumKeywords   = []string{"economic", "diplomatic", "policy", "summit", "meeting"}
)

// classifyUrgency grades a bulletin from the event text, falling back to
// the average world-state level.
func classifyUrgency(ctx game.NewsContext) string {
	text := strings.ToLower(ctx.Event.Title + " " + ctx.Event.Description)
	contains := func(keywords []string) bool {
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				return true
			}
		}
		return false
	}

	switch {
	case contains(criticalKeywords):
		return "critical"
	case contains(highKeywords):
		return "high"
	case contains(mediumKeywords):
		return "medium"
	}

	if len(ctx.WorldState) > 0 {
		sum := 0
		for _, v := range ctx.WorldState {
			sum += v
		}
		switch avg := sum / len(ctx.WorldState); {
		case avg < 30:
			return "critical"
		case avg < 50:
			return "high"
		case avg < 70:
			return "medium"
		}
	}
	return "low"
}
