package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/collapse-engine/internal/engine"
	"github.com/danielpatrickdp/collapse-engine/internal/gate"
	"github.com/danielpatrickdp/collapse-engine/internal/profile"
)

// MemoryDSN keeps the journal for the lifetime of the process only.
const MemoryDSN = ":memory:"

// timeLayout is fixed-width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS collapse_records (
	id           TEXT PRIMARY KEY,
	session_id   TEXT NOT NULL,
	text         TEXT NOT NULL,
	generation   INTEGER NOT NULL,
	stress       REAL NOT NULL,
	source       TEXT NOT NULL,
	profile      TEXT NOT NULL,
	editor_mode  TEXT NOT NULL,
	created_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS mutation_log (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	collapse_id  TEXT NOT NULL,
	session_id   TEXT NOT NULL,
	phase        TEXT NOT NULL,
	applied      TEXT,
	inserted     INTEGER NOT NULL,
	deleted      INTEGER NOT NULL,
	patch        TEXT,
	created_at   TEXT NOT NULL,
	FOREIGN KEY (collapse_id) REFERENCES collapse_records(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS decision_log (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id   TEXT NOT NULL,
	collapse_id  TEXT,
	source       TEXT NOT NULL,
	action       TEXT NOT NULL,
	reason       TEXT,
	vetoes_json  TEXT,
	stress       REAL NOT NULL,
	created_at   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_collapse_session ON collapse_records(session_id);
CREATE INDEX IF NOT EXISTS idx_decision_session ON decision_log(session_id);
`

// #endregion schema

// #region store-struct
// Store is the session journal backed by SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations. The in-memory DSN is pinned to a
// single connection so every query sees the same database.
func NewStore(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = MemoryDSN
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if dsn == MemoryDSN {
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion close

// #region append-collapse
// AppendCollapse inserts an immutable collapse record for sessionID.
func (s *Store) AppendCollapse(sessionID string, rec engine.CollapseRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO collapse_records (id, session_id, text, generation, stress, source, profile, editor_mode, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, sessionID, rec.Text, rec.Generation, rec.Stress,
		string(rec.Source), rec.Profile, string(rec.EditorMode),
		rec.Timestamp.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("append collapse %s: %w", rec.ID, err)
	}
	return nil
}

// #endregion append-collapse

// #region log-mutation
// LogMutation writes a pipeline result for a collapse episode.
func (s *Store) LogMutation(entry MutationEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	applied, err := json.Marshal(entry.Applied)
	if err != nil {
		return fmt.Errorf("marshal applied: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO mutation_log (collapse_id, session_id, phase, applied, inserted, deleted, patch, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.CollapseID, entry.SessionID, entry.Phase, string(applied),
		entry.Inserted, entry.Deleted, nullIfEmpty(entry.Patch),
		entry.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("log mutation: %w", err)
	}
	return nil
}

// #endregion log-mutation

// #region log-decision
// LogDecision writes a gate decision to the decision_log table.
func (s *Store) LogDecision(entry DecisionEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(
		`INSERT INTO decision_log (session_id, collapse_id, source, action, reason, vetoes_json, stress, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.SessionID,
		nullIfEmpty(entry.CollapseID),
		entry.Source,
		entry.Action,
		nullIfEmpty(entry.Reason),
		nullIfEmpty(entry.VetoesJSON),
		entry.Stress,
		entry.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// #endregion log-decision

// #region list-collapses
// ListCollapses returns collapse records oldest first. An empty sessionID lists every
// session; limit <= 0 means no limit.
func (s *Store) ListCollapses(sessionID string, limit int) ([]engine.CollapseRecord, error) {
	query := `SELECT id, text, generation, stress, source, profile, editor_mode, created_at FROM collapse_records`
	var args []any
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY created_at ASC, rowid ASC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list collapses: %w", err)
	}
	defer rows.Close()

	var records []engine.CollapseRecord
	for rows.Next() {
		var rec engine.CollapseRecord
		var source, mode, createdStr string
		if err := rows.Scan(&rec.ID, &rec.Text, &rec.Generation, &rec.Stress, &source, &rec.Profile, &mode, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rec.Source = gate.Source(source)
		rec.EditorMode = profile.EditorMode(mode)
		rec.Timestamp, _ = time.Parse(timeLayout, createdStr)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion list-collapses

// #region list-mutations
// ListMutations returns the mutation rows of one collapse in insertion order.
func (s *Store) ListMutations(collapseID string) ([]MutationEntry, error) {
	rows, err := s.db.Query(
		`SELECT id, collapse_id, session_id, phase, applied, inserted, deleted, patch, created_at
		 FROM mutation_log WHERE collapse_id = ? ORDER BY id ASC`, collapseID,
	)
	if err != nil {
		return nil, fmt.Errorf("list mutations: %w", err)
	}
	defer rows.Close()

	var entries []MutationEntry
	for rows.Next() {
		var e MutationEntry
		var applied, patch sql.NullString
		var createdStr string
		if err := rows.Scan(&e.ID, &e.CollapseID, &e.SessionID, &e.Phase, &applied, &e.Inserted, &e.Deleted, &patch, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if applied.Valid && applied.String != "" {
			if err := json.Unmarshal([]byte(applied.String), &e.Applied); err != nil {
				return nil, fmt.Errorf("unmarshal applied: %w", err)
			}
		}
		e.Patch = patch.String
		e.CreatedAt, _ = time.Parse(timeLayout, createdStr)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// #endregion list-mutations

// #region list-decisions
// ListDecisions returns gate decisions oldest first. An empty sessionID lists every session.
func (s *Store) ListDecisions(sessionID string, limit int) ([]DecisionEntry, error) {
	query := `SELECT id, session_id, collapse_id, source, action, reason, vetoes_json, stress, created_at FROM decision_log`
	var args []any
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY id ASC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var entries []DecisionEntry
	for rows.Next() {
		var e DecisionEntry
		var collapseID, reason, vetoes sql.NullString
		var createdStr string
		if err := rows.Scan(&e.ID, &e.SessionID, &collapseID, &e.Source, &e.Action, &reason, &vetoes, &e.Stress, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		e.CollapseID = collapseID.String
		e.Reason = reason.String
		e.VetoesJSON = vetoes.String
		e.CreatedAt, _ = time.Parse(timeLayout, createdStr)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// #endregion list-decisions

// #region sessions
// Sessions summarizes every session that recorded at least one collapse, most recent first.
func (s *Store) Sessions() ([]SessionSummary, error) {
	rows, err := s.db.Query(
		`SELECT session_id, COUNT(*), MAX(generation), MIN(created_at), MAX(created_at)
		 FROM collapse_records GROUP BY session_id ORDER BY MAX(created_at) DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var sum SessionSummary
		var first, last string
		if err := rows.Scan(&sum.SessionID, &sum.Collapses, &sum.MaxGeneration, &first, &last); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		sum.FirstAt, _ = time.Parse(timeLayout, first)
		sum.LastAt, _ = time.Parse(timeLayout, last)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// #endregion sessions

// #region clear-session
// ClearSession deletes everything recorded for sessionID.
func (s *Store) ClearSession(sessionID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"mutation_log", "decision_log", "collapse_records"} {
		if _, err := tx.Exec(`DELETE FROM `+table+` WHERE session_id = ?`, sessionID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// #endregion clear-session

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
