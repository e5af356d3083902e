// Package history persists past interactions so the assistant can
// answer "what did I ask earlier" questions.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/murmur-assistant/murmur/internal/assistant"
)

// MaxRecords is the retention bound: the store keeps this many of the
// newest interactions and prunes the rest on every save.
const MaxRecords = 20

// Record is one stored interaction.
type Record struct {
	Timestamp     time.Time
	UserInput     string
	FinalResponse string
	ToolCalls     []assistant.ToolCallRecord
}

// Store handles interaction persistence.
type Store struct {
	db *sql.DB
}

// NewStore creates a history store with SQLite backend.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		user_input TEXT NOT NULL,
		final_response TEXT NOT NULL,
		tool_calls TEXT
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Save records an interaction and prunes the table to MaxRecords.
func (s *Store) Save(result *assistant.Result) error {
	var toolCalls any
	if len(result.ToolCalls) > 0 {
		data, err := json.Marshal(result.ToolCalls)
		if err != nil {
			return fmt.Errorf("marshal tool calls: %w", err)
		}
		toolCalls = string(data)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO history (timestamp, user_input, final_response, tool_calls)
		VALUES (?, ?, ?, ?)
	`, time.Now().Format(time.RFC3339Nano), result.UserInput, result.FinalResponse, toolCalls)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		DELETE FROM history WHERE id NOT IN (
			SELECT id FROM history ORDER BY id DESC LIMIT ?
		)
	`, MaxRecords)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// Recent returns up to limit interactions, newest first.
func (s *Store) Recent(limit int) ([]Record, error) {
	rows, err := s.db.Query(`
		SELECT timestamp, user_input, final_response, tool_calls
		FROM history ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Search returns up to limit interactions whose input or response
// contains the query, newest first.
func (s *Store) Search(query string, limit int) ([]Record, error) {
	pattern := "%" + query + "%"
	rows, err := s.db.Query(`
		SELECT timestamp, user_input, final_response, tool_calls
		FROM history
		WHERE user_input LIKE ? OR final_response LIKE ?
		ORDER BY id DESC LIMIT ?
	`, pattern, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var (
			r         Record
			timestamp string
			toolCalls sql.NullString
		)
		if err := rows.Scan(&timestamp, &r.UserInput, &r.FinalResponse, &toolCalls); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339Nano, timestamp); err == nil {
			r.Timestamp = ts
		}
		if toolCalls.Valid && toolCalls.String != "" {
			if err := json.Unmarshal([]byte(toolCalls.String), &r.ToolCalls); err != nil {
				return nil, fmt.Errorf("unmarshal tool calls: %w", err)
			}
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
