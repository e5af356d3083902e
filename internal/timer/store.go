package timer

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Timer is one pending timer or alarm.
type Timer struct {
	ID        string
	Label     string
	FireAt    time.Time
	CreatedAt time.Time
}

// storedTimeFormat is fixed-width so lexicographic comparison in SQL
// matches chronological order.
const storedTimeFormat = time.RFC3339

func formatStored(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(storedTimeFormat)
}

// Store handles timer persistence.
type Store struct {
	db *sql.DB

	// now is the clock used for scheduling and expiry; swapped out in
	// tests.
	now func() time.Time
}

// NewStore creates a timer store with SQLite backend.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
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
	CREATE TABLE IF NOT EXISTS timers (
		id TEXT PRIMARY KEY,
		label TEXT,
		fire_at TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// newID generates a short ID that is easy to say and type.
func newID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}

// Create schedules a timer from a duration or clock-time string.
func (s *Store) Create(timeInput, label string) (*Timer, error) {
	now := s.now()
	fireAt, err := ParseTimeInput(timeInput, now)
	if err != nil {
		return nil, err
	}

	t := &Timer{
		ID:        newID(),
		Label:     label,
		FireAt:    fireAt,
		CreatedAt: now,
	}

	_, err = s.db.Exec(`
		INSERT INTO timers (id, label, fire_at, created_at) VALUES (?, ?, ?, ?)
	`, t.ID, t.Label, formatStored(t.FireAt), formatStored(t.CreatedAt))
	if err != nil {
		return nil, err
	}
	return t, nil
}

// List returns pending timers ordered by fire time, pruning any that
// have already fired.
func (s *Store) List() ([]Timer, error) {
	now := formatStored(s.now())
	if _, err := s.db.Exec(`DELETE FROM timers WHERE fire_at < ?`, now); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`SELECT id, label, fire_at, created_at FROM timers ORDER BY fire_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTimers(rows)
}

// Find locates a timer by label, full ID, or ID prefix.
func (s *Store) Find(identifier string) (*Timer, error) {
	row := s.db.QueryRow(`
		SELECT id, label, fire_at, created_at FROM timers
		WHERE label = ? OR id = ? OR id LIKE ?
	`, identifier, identifier, identifier+"%")

	t, err := scanTimer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Cancel removes a timer by label or ID. Returns the removed timer, or
// nil if nothing matched.
func (s *Store) Cancel(identifier string) (*Timer, error) {
	t, err := s.Find(identifier)
	if err != nil || t == nil {
		return nil, err
	}
	if _, err := s.db.Exec(`DELETE FROM timers WHERE id = ?`, t.ID); err != nil {
		return nil, err
	}
	return t, nil
}

// Edit reschedules a timer. Returns the updated timer, or nil if
// nothing matched the identifier.
func (s *Store) Edit(identifier, newTime string) (*Timer, error) {
	fireAt, err := ParseTimeInput(newTime, s.now())
	if err != nil {
		return nil, err
	}

	t, err := s.Find(identifier)
	if err != nil || t == nil {
		return nil, err
	}

	if _, err := s.db.Exec(`UPDATE timers SET fire_at = ? WHERE id = ?`,
		formatStored(fireAt), t.ID); err != nil {
		return nil, err
	}
	t.FireAt = fireAt
	return t, nil
}

// CollectExpired removes and returns timers whose fire time has
// arrived. The announcement poller calls this periodically.
func (s *Store) CollectExpired() ([]Timer, error) {
	now := formatStored(s.now())

	rows, err := s.db.Query(`
		SELECT id, label, fire_at, created_at FROM timers WHERE fire_at <= ?
	`, now)
	if err != nil {
		return nil, err
	}
	expired, err := func() ([]Timer, error) {
		defer rows.Close()
		return scanTimers(rows)
	}()
	if err != nil {
		return nil, err
	}

	if len(expired) > 0 {
		if _, err := s.db.Exec(`DELETE FROM timers WHERE fire_at <= ?`, now); err != nil {
			return nil, err
		}
	}
	return expired, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTimer(row rowScanner) (*Timer, error) {
	var (
		t                 Timer
		label             sql.NullString
		fireAt, createdAt string
	)
	if err := row.Scan(&t.ID, &label, &fireAt, &createdAt); err != nil {
		return nil, err
	}
	t.Label = label.String
	if ts, err := time.Parse(storedTimeFormat, fireAt); err == nil {
		t.FireAt = ts.Local()
	}
	if ts, err := time.Parse(storedTimeFormat, createdAt); err == nil {
		t.CreatedAt = ts.Local()
	}
	return &t, nil
}

func scanTimers(rows *sql.Rows) ([]Timer, error) {
	var timers []Timer
	for rows.Next() {
		t, err := scanTimer(rows)
		if err != nil {
			return nil, err
		}
		timers = append(timers, *t)
	}
	return timers, rows.Err()
}
