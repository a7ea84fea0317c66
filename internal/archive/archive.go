// Package archive provides SQLite-based game record storage.
package archive

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/tmorland/statecraft/internal/game"
)

// DB wraps a SQLite connection for game record persistence. It implements
// game.Archiver.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		player_id TEXT NOT NULL,
		mode TEXT NOT NULL,
		turns INTEGER NOT NULL,
		decisions INTEGER NOT NULL,
		events INTEGER NOT NULL,
		final_stability REAL NOT NULL,
		final_state_json TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		ended_at TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		turn INTEGER NOT NULL,
		event_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL,
		urgency TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS decisions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		turn INTEGER NOT NULL,
		event_id TEXT NOT NULL,
		action TEXT NOT NULL,
		reasoning TEXT NOT NULL,
		consulted_json TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS state_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		turn INTEGER NOT NULL,
		state_json TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id);
	CREATE INDEX IF NOT EXISTS idx_decisions_session ON decisions(session_id);
	CREATE INDEX IF NOT EXISTS idx_snapshots_session ON state_snapshots(session_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveEvent appends one generated event.
func (db *DB) SaveEvent(sessionID string, turn int, ev game.Event) error {
	_, err := db.conn.Exec(
		`INSERT INTO events (session_id, turn, event_id, title, description, category, urgency, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, turn, ev.ID, ev.Title, ev.Description, ev.Category, ev.Urgency, ev.Timestamp,
	)
	return err
}

// SaveDecision appends one player decision.
func (db *DB) SaveDecision(sessionID string, turn int, dec game.Decision) error {
	consulted, _ := json.Marshal(dec.ConsultedAdvisors)
	_, err := db.conn.Exec(
		`INSERT INTO decisions (session_id, turn, event_id, action, reasoning, consulted_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID, turn, dec.EventID, dec.Action, dec.Reasoning, string(consulted), dec.Timestamp,
	)
	return err
}

// SaveSnapshot appends one post-decision world state.
func (db *DB) SaveSnapshot(sessionID string, turn int, state map[string]int) error {
	stateJSON, _ := json.Marshal(state)
	_, err := db.conn.Exec(
		`INSERT INTO state_snapshots (session_id, turn, state_json, created_at)
		 VALUES (?, ?, ?, ?)`,
		sessionID, turn, string(stateJSON), time.Now(),
	)
	return err
}

// SaveSession writes the session summary row at end of game.
func (db *DB) SaveSession(s *game.Session, finalStability float64) error {
	stateJSON, _ := json.Marshal(s.WorldState)
	_, err := db.conn.Exec(
		`INSERT OR REPLACE INTO sessions
		 (session_id, player_id, mode, turns, decisions, events, final_stability, final_state_json, started_at, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.SessionID, s.PlayerID, s.Mode, s.CurrentTurn,
		len(s.Decisions), len(s.Events), finalStability, string(stateJSON),
		s.StartTime, s.EndTime,
	)
	if err != nil {
		return err
	}
	slog.Info("session archived", "session", s.SessionID, "turns", s.CurrentTurn)
	return nil
}

// SessionRecord is one archived session summary.
type SessionRecord struct {
	SessionID      string     `db:"session_id" json:"sessionId"`
	PlayerID       string     `db:"player_id" json:"playerId"`
	Mode           string     `db:"mode" json:"mode"`
	Turns          int        `db:"turns" json:"turns"`
	Decisions      int        `db:"decisions" json:"decisions"`
	Events         int        `db:"events" json:"events"`
	FinalStability float64    `db:"final_stability" json:"finalStability"`
	FinalStateJSON string     `db:"final_state_json" json:"-"`
	StartedAt      time.Time  `db:"started_at" json:"startedAt"`
	EndedAt        *time.Time `db:"ended_at" json:"endedAt,omitempty"`
}

// FinalState decodes the archived final world state.
func (r SessionRecord) FinalState() map[string]int {
	var state map[string]int
	if err := json.Unmarshal([]byte(r.FinalStateJSON), &state); err != nil {
		return nil
	}
	return state
}

// RecentSessions returns the most recently ended sessions.
func (db *DB) RecentSessions(limit int) ([]SessionRecord, error) {
	var records []SessionRecord
	err := db.conn.Select(&records,
		`SELECT session_id, player_id, mode, turns, decisions, events,
		        final_stability, final_state_json, started_at, ended_at
		 FROM sessions ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	return records, err
}

// DecisionRecord is one archived decision.
type DecisionRecord struct {
	SessionID     string    `db:"session_id" json:"sessionId"`
	Turn          int       `db:"turn" json:"turn"`
	EventID       string    `db:"event_id" json:"eventId"`
	Action        string    `db:"action" json:"action"`
	Reasoning     string    `db:"reasoning" json:"reasoning,omitempty"`
	ConsultedJSON string    `db:"consulted_json" json:"-"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}

// SessionDecisions returns a session's decisions in turn order.
func (db *DB) SessionDecisions(sessionID string) ([]DecisionRecord, error) {
	var records []DecisionRecord
	err := db.conn.Select(&records,
		`SELECT session_id, turn, event_id, action, reasoning, consulted_json, created_at
		 FROM decisions WHERE session_id = ? ORDER BY turn ASC, id ASC`,
		sessionID,
	)
	return records, err
}

// SessionSnapshots returns a session's world-state snapshots in turn order.
func (db *DB) SessionSnapshots(sessionID string) ([]map[string]int, error) {
	var rows []string
	err := db.conn.Select(&rows,
		`SELECT state_json FROM state_snapshots WHERE session_id = ? ORDER BY turn ASC, id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	states := make([]map[string]int, 0, len(rows))
	for _, raw := range rows {
		var state map[string]int
		if err := json.Unmarshal([]byte(raw), &state); err != nil {
			continue
		}
		states = append(states, state)
	}
	return states, nil
}
