package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/sant0-9/promptly/internal/optimizer"
)

const DefaultLimit = 20

var ErrNotFound = errors.New("history entry not found")

// Entry is one completed optimizer call.
type Entry struct {
	ID              string    `json:"id"`
	CreatedAt       time.Time `json:"createdAt"`
	Mode            string    `json:"mode"`
	TargetModel     string    `json:"targetModel"`
	InitialPrompt   string    `json:"initialPrompt"`
	OK              bool      `json:"ok"`
	OptimizedPrompt string    `json:"optimizedPrompt,omitempty"`
	Questions       []string  `json:"clarifyingQuestions,omitempty"`
	RejectReason    string    `json:"rejectReason,omitempty"`
}

// Store keeps history in a SQLite file.
type Store struct {
	db     *sql.DB
	dbPath string
	now    func() time.Time
}

// Open creates or opens the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create directory")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, dbPath: path, now: time.Now}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to initialize schema")
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS history (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		mode TEXT NOT NULL,
		target_model TEXT NOT NULL,
		initial_prompt TEXT NOT NULL,
		ok INTEGER NOT NULL,
		optimized_prompt TEXT NOT NULL DEFAULT '',
		questions_json TEXT NOT NULL DEFAULT '[]',
		reject_reason TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_history_created ON history(created_at);
	`)
	return err
}

// Record stores an optimizer outcome. It satisfies optimizer.Recorder.
func (s *Store) Record(ctx context.Context, o optimizer.Outcome) error {
	e := Entry{
		Mode:          string(o.Mode),
		TargetModel:   o.TargetModel,
		InitialPrompt: o.InitialPrompt,
	}
	switch r := o.Result.(type) {
	case optimizer.Success:
		e.OK = true
		e.OptimizedPrompt = r.OptimizedPrompt
		e.Questions = r.ClarifyingQuestions
	case optimizer.Rejection:
		e.RejectReason = r.RejectReason
	default:
		return errors.Newf("cannot record result of type %T", o.Result)
	}
	_, err := s.Save(ctx, e)
	return err
}

// Save inserts e, assigning an ID and timestamp when they are unset.
func (s *Store) Save(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	if e.Questions == nil {
		e.Questions = []string{}
	}

	questions, err := json.Marshal(e.Questions)
	if err != nil {
		return Entry{}, errors.Wrap(err, "encode questions")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO history (id, created_at, mode, target_model, initial_prompt, ok, optimized_prompt, questions_json, reject_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.CreatedAt.UnixNano(), e.Mode, e.TargetModel, e.InitialPrompt,
		boolToInt(e.OK), e.OptimizedPrompt, string(questions), e.RejectReason,
	)
	if err != nil {
		return Entry{}, errors.Wrap(err, "insert history entry")
	}
	return e, nil
}

// List returns up to limit entries, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, mode, target_model, initial_prompt, ok, optimized_prompt, questions_json, reject_reason
		FROM history
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query history")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, errors.Wrap(rows.Err(), "iterate history")
}

func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, mode, target_model, initial_prompt, ok, optimized_prompt, questions_json, reject_reason
		FROM history WHERE id = ?`, id)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, errors.Wrapf(ErrNotFound, "id %s", id)
	}
	return e, err
}

// Clear deletes every entry.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM history`)
	return errors.Wrap(err, "clear history")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (Entry, error) {
	var (
		e         Entry
		created   int64
		ok        int
		questions string
	)
	if err := sc.Scan(&e.ID, &created, &e.Mode, &e.TargetModel, &e.InitialPrompt, &ok, &e.OptimizedPrompt, &questions, &e.RejectReason); err != nil {
		return Entry{}, err
	}
	e.CreatedAt = time.Unix(0, created)
	e.OK = ok != 0
	if err := json.Unmarshal([]byte(questions), &e.Questions); err != nil {
		return Entry{}, errors.Wrapf(err, "decode questions of %s", e.ID)
	}
	return e, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
