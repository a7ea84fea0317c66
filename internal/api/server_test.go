package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tmorland/statecraft/internal/advisors"
	"github.com/tmorland/statecraft/internal/game"
)

type stubEvents struct{ n int }

func (s *stubEvents) GenerateEvent(world map[string]int, history []game.Event, biasTitle string) (game.Event, error) {
	s.n++
	return game.Event{
		ID:          fmt.Sprintf("event_%d", s.n),
		Title:       "Capitol Lockdown",
		Description: "Unidentified drones circle the Capitol.",
		Category:    "crisis",
		Urgency:     game.UrgencyCritical,
		Timestamp:   time.Now(),
	}, nil
}

type stubEvaluator struct{}

func (stubEvaluator) EvaluateDecision(dec game.Decision, ev game.Event, world map[string]int, advice []game.AdvisorMessage) (game.Consequence, error) {
	return game.Consequence{
		Impact: game.Impact{
			ParameterChanges: map[string]int{"publicTrust": -4},
			Summary:          "Tense but contained.",
		},
	}, nil
}

type stubOracle struct{ n int }

func (s *stubOracle) msg(advisorID, eventID string, reaction bool) (game.AdvisorMessage, error) {
	s.n++
	return game.AdvisorMessage{
		ID:         fmt.Sprintf("msg_%d", s.n),
		AdvisorID:  advisorID,
		EventID:    eventID,
		Content:    "advice from " + advisorID,
		Confidence: 0.8,
		IsReaction: reaction,
		Timestamp:  time.Now(),
	}, nil
}

func (s *stubOracle) Respond(adv advisors.Advisor, ev game.Event, world map[string]int, exclude []string) (game.AdvisorMessage, error) {
	return s.msg(adv.ID, ev.ID, false)
}

func (s *stubOracle) React(adv advisors.Advisor, dec game.Decision, ev game.Event, cons game.Consequence, world map[string]int) (game.AdvisorMessage, error) {
	return s.msg(adv.ID, ev.ID, true)
}

func (s *stubOracle) FollowUp(adv advisors.Advisor, question string, ev game.Event, world map[string]int, prior []game.AdvisorMessage) (game.AdvisorMessage, error) {
	return s.msg(adv.ID, ev.ID, false)
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	roster := &advisors.Roster{
		Mode:              "oval_office",
		Difficulty:        "normal",
		InitialWorldState: map[string]int{"economy": 60, "publicTrust": 55},
		Advisors: []advisors.Advisor{
			{ID: "alpha", Name: "Alice Stone", Role: "Advisor", Expertise: []string{"policy"}, Trustworthiness: 0.8},
			{ID: "bravo", Name: "Bob Reyes", Role: "Advisor", Expertise: []string{"security"}, Trustworthiness: 0.6},
			{ID: "charlie", Name: "Carol Hale", Role: "Advisor", Expertise: []string{"economics"}, Trustworthiness: 0.9},
		},
	}
	eng := game.New(game.Config{
		Roster:    roster,
		Events:    &stubEvents{},
		Evaluator: stubEvaluator{},
		Advisers:  &stubOracle{},
	})
	srv := httptest.NewServer((&Server{Engine: eng}).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func getJSON(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	resp := getJSON(t, srv.URL+"/api/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body map[string]any
	decode(t, resp, &body)
	if body["status"] != "ok" {
		t.Errorf("status field = %v", body["status"])
	}
	if body["version"] == "" {
		t.Error("missing version")
	}
}

func TestStartRequiresPlayerID(t *testing.T) {
	srv := newTestServer(t)
	resp := postJSON(t, srv.URL+"/api/game/start", `{}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestStateWithoutSession(t *testing.T) {
	srv := newTestServer(t)
	resp := getJSON(t, srv.URL+"/api/game/state")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestFullGameFlow(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/game/start", `{"playerId": "p1"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start status = %d", resp.StatusCode)
	}
	var start struct {
		Session struct {
			SessionID string `json:"sessionId"`
		} `json:"session"`
		GameState struct {
			CurrentEvent *game.Event `json:"currentEvent"`
		} `json:"gameState"`
	}
	decode(t, resp, &start)
	if start.Session.SessionID == "" {
		t.Fatal("no session id in start response")
	}
	if start.GameState.CurrentEvent == nil {
		t.Fatal("no current event in start response")
	}

	resp = getJSON(t, srv.URL+"/api/game/state")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("state status = %d", resp.StatusCode)
	}

	body := fmt.Sprintf(`{"eventId": %q, "action": "address the nation"}`, start.GameState.CurrentEvent.ID)
	resp = postJSON(t, srv.URL+"/api/game/decision", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("decision status = %d", resp.StatusCode)
	}
	var decision struct {
		Result struct {
			NewWorldState map[string]int `json:"newWorldState"`
			NextEvent     *game.Event    `json:"nextEvent"`
		} `json:"result"`
	}
	decode(t, resp, &decision)
	if got := decision.Result.NewWorldState["publicTrust"]; got != 51 {
		t.Errorf("publicTrust = %d, want 51", got)
	}
	if decision.Result.NextEvent == nil {
		t.Error("no next event after decision")
	}

	resp = postJSON(t, srv.URL+"/api/game/new-event", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("new-event status = %d", resp.StatusCode)
	}

	resp = postJSON(t, srv.URL+"/api/game/ask-advisor",
		fmt.Sprintf(`{"advisorId": "alpha", "question": "options?", "eventId": %q}`, start.GameState.CurrentEvent.ID))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ask-advisor status = %d", resp.StatusCode)
	}

	resp = getJSON(t, srv.URL+"/api/game/analytics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("analytics status = %d", resp.StatusCode)
	}

	resp = postJSON(t, srv.URL+"/api/game/end", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("end status = %d", resp.StatusCode)
	}
	var end struct {
		EndedSession struct {
			EndTime *time.Time `json:"endTime"`
		} `json:"endedSession"`
		Analytics *game.Analytics `json:"analytics"`
	}
	decode(t, resp, &end)
	if end.EndedSession.EndTime == nil {
		t.Error("ended session missing end time")
	}
	if end.Analytics == nil {
		t.Error("end response missing analytics")
	}

	resp = getJSON(t, srv.URL+"/api/game/state")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("state after end status = %d, want 400", resp.StatusCode)
	}
}

func TestDecisionValidation(t *testing.T) {
	srv := newTestServer(t)
	resp := postJSON(t, srv.URL+"/api/game/decision", `{"eventId": "event_1"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for missing action", resp.StatusCode)
	}
}

func TestAskAdvisorUnknownAdvisor(t *testing.T) {
	srv := newTestServer(t)
	postJSON(t, srv.URL+"/api/game/start", `{"playerId": "p1"}`)

	resp := postJSON(t, srv.URL+"/api/game/ask-advisor",
		`{"advisorId": "nobody", "question": "hm?", "eventId": "event_1"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for unknown advisor", resp.StatusCode)
	}
}

func TestNewsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp := getJSON(t, srv.URL+"/api/game/news/session_xyz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		News  []any `json:"news"`
		Count int   `json:"count"`
	}
	decode(t, resp, &body)
	if body.Count != 0 || len(body.News) != 0 {
		t.Errorf("expected empty news, got count %d", body.Count)
	}

	resp = getJSON(t, srv.URL+"/api/game/news/")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty session id status = %d, want 400", resp.StatusCode)
	}
}

func TestMethodEnforcement(t *testing.T) {
	srv := newTestServer(t)
	resp := getJSON(t, srv.URL+"/api/game/start")
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET start status = %d, want 405", resp.StatusCode)
	}
	resp = postJSON(t, srv.URL+"/api/game/state", "")
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("POST state status = %d, want 405", resp.StatusCode)
	}
}

func TestCORSPreflight(t *testing.T) {
	roster := &advisors.Roster{
		InitialWorldState: map[string]int{"economy": 50},
		Advisors:          []advisors.Advisor{{ID: "alpha", Name: "Alice Stone"}},
	}
	eng := game.New(game.Config{Roster: roster, Events: &stubEvents{}, Evaluator: stubEvaluator{}, Advisers: &stubOracle{}})
	srv := httptest.NewServer((&Server{
		Engine:         eng,
		AllowedOrigins: []string{"https://game.example.com"},
	}).Handler())
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/game/state", nil)
	req.Header.Set("Origin", "https://game.example.com")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://game.example.com" {
		t.Errorf("allow-origin = %q", got)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d denied within budget", i)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Error("request allowed past budget")
	}
	if rl.RetryAfter("10.0.0.1") <= 0 {
		t.Error("RetryAfter should be positive when limited")
	}
	// A different IP has its own bucket.
	if !rl.Allow("10.0.0.2") {
		t.Error("second IP should be independent")
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.10:54321"
	if got := clientIP(r); got != "192.0.2.10" {
		t.Errorf("clientIP = %q", got)
	}
	r.Header.Set("X-Forwarded-For", "203.0.113.5, 192.0.2.10")
	if got := clientIP(r); got != "203.0.113.5" {
		t.Errorf("clientIP with XFF = %q", got)
	}
}
