package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/andywolf/agenda/internal/priority"
	"github.com/andywolf/agenda/internal/registry"
)

// SchemaDDL creates the priorities table. List-valued columns hold JSON.
const SchemaDDL = `
CREATE TABLE IF NOT EXISTS priorities (
    agent_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    weight INTEGER NOT NULL,
    enabled INTEGER NOT NULL,
    execute_once INTEGER NOT NULL,
    task_id TEXT NOT NULL DEFAULT '',
    completion_criteria TEXT NOT NULL DEFAULT '',
    triggers TEXT NOT NULL DEFAULT '[]',
    required_data TEXT NOT NULL DEFAULT '[]',
    depends_on TEXT NOT NULL DEFAULT '[]',
    guard TEXT,
    actions TEXT NOT NULL DEFAULT '[]',
    updated_at TEXT NOT NULL DEFAULT (datetime('now')),
    PRIMARY KEY (agent_id, id)
);

CREATE INDEX IF NOT EXISTS idx_priorities_agent_position ON priorities(agent_id, position);
`

// SQLiteStore keeps priorities for many agents in one SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path with WAL
// journaling and a busy timeout, and applies the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s on %s: %w", pragma, path, err)
		}
	}
	if _, err := db.ExecContext(ctx, SchemaDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema on %s: %w", path, err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load reads an agent's priorities in their stored order.
func (s *SQLiteStore) Load(ctx context.Context, agentID string) ([]priority.Priority, error) {
	if err := validateAgent(agentID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, weight, enabled, execute_once, task_id,
		       completion_criteria, triggers, required_data, depends_on, guard, actions
		FROM priorities
		WHERE agent_id = ?
		ORDER BY position`, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query priorities: %w", err)
	}
	defer rows.Close()

	var ps []priority.Priority
	for rows.Next() {
		var (
			p                                      priority.Priority
			triggers, required, dependsOn, actions string
			guard                                  sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Weight, &p.Enabled, &p.ExecuteOnce,
			&p.TaskID, &p.CompletionCriteria, &triggers, &required, &dependsOn, &guard, &actions); err != nil {
			return nil, fmt.Errorf("failed to scan priority: %w", err)
		}
		if err := decodeColumns(&p, triggers, required, dependsOn, guard, actions); err != nil {
			return nil, fmt.Errorf("priority %s: %w", p.ID, err)
		}
		ps = append(ps, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read priorities: %w", err)
	}

	if err := registry.Validate(ps); err != nil {
		return nil, fmt.Errorf("stored priorities are invalid: %w", err)
	}
	return ps, nil
}

// Save replaces an agent's priorities in a single transaction.
func (s *SQLiteStore) Save(ctx context.Context, agentID string, ps []priority.Priority) error {
	if err := validateAgent(agentID); err != nil {
		return err
	}
	if err := registry.Validate(ps); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM priorities WHERE agent_id = ?`, agentID); err != nil {
		return fmt.Errorf("failed to clear priorities: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO priorities (agent_id, position, id, name, description, weight, enabled,
		                        execute_once, task_id, completion_criteria, triggers,
		                        required_data, depends_on, guard, actions)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, p := range ps {
		cols, err := encodeColumns(p)
		if err != nil {
			return fmt.Errorf("priority %s: %w", p.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, agentID, i, p.ID, p.Name, p.Description, p.Weight,
			p.Enabled, p.ExecuteOnce, p.TaskID, p.CompletionCriteria,
			cols.triggers, cols.required, cols.dependsOn, cols.guard, cols.actions); err != nil {
			return fmt.Errorf("failed to insert priority %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit priorities: %w", err)
	}
	return nil
}

// Agents lists the agent ids with at least one stored priority.
func (s *SQLiteStore) Agents(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT agent_id FROM priorities ORDER BY agent_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query agents: %w", err)
	}
	defer rows.Close()

	var agents []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan agent: %w", err)
		}
		agents = append(agents, id)
	}
	return agents, rows.Err()
}

type columns struct {
	triggers, required, dependsOn, actions string
	guard                                  sql.NullString
}

func encodeColumns(p priority.Priority) (columns, error) {
	var c columns
	var err error
	if c.triggers, err = jsonText(p.Triggers); err != nil {
		return c, err
	}
	if c.required, err = jsonText(p.RequiredData); err != nil {
		return c, err
	}
	if c.dependsOn, err = jsonText(p.DependsOn); err != nil {
		return c, err
	}
	if c.actions, err = jsonText(p.Actions); err != nil {
		return c, err
	}
	if p.Guard != nil {
		g, err := json.Marshal(p.Guard)
		if err != nil {
			return c, fmt.Errorf("failed to encode guard: %w", err)
		}
		c.guard = sql.NullString{String: string(g), Valid: true}
	}
	return c, nil
}

// jsonText encodes a slice, writing nil as an empty array.
func jsonText[T any](v []T) (string, error) {
	if v == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode column: %w", err)
	}
	return string(raw), nil
}

func decodeColumns(p *priority.Priority, triggers, required, dependsOn string, guard sql.NullString, actions string) error {
	for _, col := range []struct {
		name string
		raw  string
		dst  any
	}{
		{"triggers", triggers, &p.Triggers},
		{"required_data", required, &p.RequiredData},
		{"depends_on", dependsOn, &p.DependsOn},
		{"actions", actions, &p.Actions},
	} {
		if err := json.Unmarshal([]byte(col.raw), col.dst); err != nil {
			return fmt.Errorf("failed to decode %s: %w", col.name, err)
		}
	}
	if guard.Valid {
		p.Guard = &priority.Guard{}
		if err := json.Unmarshal([]byte(guard.String), p.Guard); err != nil {
			return fmt.Errorf("failed to decode guard: %w", err)
		}
	}
	// Empty arrays come back as empty slices; keep the nil form callers expect.
	if len(p.Triggers) == 0 {
		p.Triggers = nil
	}
	if len(p.RequiredData) == 0 {
		p.RequiredData = nil
	}
	if len(p.DependsOn) == 0 {
		p.DependsOn = nil
	}
	if len(p.Actions) == 0 {
		p.Actions = nil
	}
	return nil
}
