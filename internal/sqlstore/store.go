// Package sqlstore is a lead.Store on PostgreSQL (lib/pq) or SQLite
// (modernc.org/sqlite). A lead row keeps its identity columns next to the
// full lead document as JSON.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/parisxmas/oxisite/internal/lead"
	"github.com/parisxmas/oxisite/internal/models"
)

// Dialect captures the few statements that differ between drivers.
type Dialect struct {
	Driver    string
	idColumn  string
	forUpdate string
	numbered  bool
}

var (
	Postgres = Dialect{Driver: "postgres", idColumn: "BIGSERIAL PRIMARY KEY", forUpdate: " FOR UPDATE", numbered: true}
	SQLite   = Dialect{Driver: "sqlite", idColumn: "INTEGER PRIMARY KEY AUTOINCREMENT"}
)

// DialectFor maps a configured backend name to its dialect.
func DialectFor(name string) (Dialect, error) {
	switch name {
	case "postgres":
		return Postgres, nil
	case "sqlite":
		return SQLite, nil
	}
	return Dialect{}, fmt.Errorf("sqlstore: unknown backend %q", name)
}

// rebind rewrites ? placeholders to $n for drivers that need them.
func (d Dialect) rebind(q string) string {
	if !d.numbered {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type Store struct {
	db *sql.DB
	d  Dialect
}

var _ lead.Store = (*Store)(nil)

// New wraps an open database. Call Migrate before first use.
func New(db *sql.DB, d Dialect) *Store {
	return &Store{db: db, d: d}
}

// Open connects, pings and migrates.
func Open(ctx context.Context, d Dialect, dsn string) (*Store, error) {
	db, err := sql.Open(d.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open: %w", err)
	}
	if d.Driver == SQLite.Driver {
		// one writer; also keeps a :memory: database on a single connection
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore: ping: %w", err)
	}
	s := New(db, d)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS leads (
			id ` + s.d.idColumn + `,
			email TEXT NOT NULL UNIQUE,
			status TEXT NOT NULL,
			score INTEGER NOT NULL DEFAULT 0,
			doc TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS leads_status_idx ON leads (status)`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("sqlstore: migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, incoming *models.Lead, formName string) (*models.Lead, error) {
	email := lead.NormalizeEmail(incoming.Email)
	if email == "" {
		return nil, fmt.Errorf("lead has no email")
	}
	incoming.Email = email

	// a lost insert race leaves no row to return; the second pass sees the
	// winner's row and merges into it
	for attempt := 0; attempt < 2; attempt++ {
		l, err := s.upsert(ctx, incoming, formName)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("upsert lead: %w", err)
		}
		return l, nil
	}
	return nil, fmt.Errorf("upsert lead: %s kept conflicting", email)
}

func (s *Store) upsert(ctx context.Context, incoming *models.Lead, formName string) (*models.Lead, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	existing, err := s.scanOne(tx.QueryRowContext(ctx,
		s.d.rebind("SELECT id, doc FROM leads WHERE email = ?"+s.d.forUpdate), incoming.Email))
	if err != nil && !errors.Is(err, lead.ErrNotFound) {
		return nil, err
	}

	merged := lead.Merge(existing, incoming, formName)
	doc, err := encode(merged)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		var id int64
		err = tx.QueryRowContext(ctx, s.d.rebind(
			"INSERT INTO leads (email, status, score, doc) VALUES (?, ?, ?, ?) ON CONFLICT (email) DO NOTHING RETURNING id"),
			merged.Email, string(merged.Status), merged.Scoring.Score, doc).Scan(&id)
		if err != nil {
			return nil, err
		}
		merged.ID = strconv.FormatInt(id, 10)
	} else {
		existingID, _ := strconv.ParseInt(existing.ID, 10, 64)
		_, err = tx.ExecContext(ctx, s.d.rebind("UPDATE leads SET status = ?, score = ?, doc = ? WHERE id = ?"),
			string(merged.Status), merged.Scoring.Score, doc, existingID)
		if err != nil {
			return nil, err
		}
		merged.ID = existing.ID
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return merged, nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*models.Lead, error) {
	n, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.scanOne(s.db.QueryRowContext(ctx, s.d.rebind("SELECT id, doc FROM leads WHERE id = ?"), n))
}

func parseID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, lead.ErrNotFound
	}
	return n, nil
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*models.Lead, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, s.d.rebind("SELECT id, doc FROM leads WHERE email = ?"),
		lead.NormalizeEmail(email)))
}

func (s *Store) List(ctx context.Context, opts lead.ListOptions) ([]models.Lead, int, error) {
	where, args := "", []any{}
	if opts.Status != "" {
		where = " WHERE status = ?"
		args = append(args, string(opts.Status))
	}
	var total int
	if err := s.db.QueryRowContext(ctx, s.d.rebind("SELECT COUNT(*) FROM leads"+where), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count leads: %w", err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, s.d.rebind("SELECT id, doc FROM leads"+where+" ORDER BY id DESC LIMIT ? OFFSET ?"),
		append(args, limit, opts.Skip)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var out []models.Lead
	for rows.Next() {
		l, err := s.scanOne(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *l)
	}
	return out, total, rows.Err()
}

func (s *Store) Update(ctx context.Context, id string, p lead.Patch) (*models.Lead, error) {
	n, err := parseID(id)
	if err != nil {
		return nil, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	l, err := s.scanOne(tx.QueryRowContext(ctx, s.d.rebind("SELECT id, doc FROM leads WHERE id = ?"+s.d.forUpdate), n))
	if err != nil {
		return nil, err
	}
	lead.Apply(l, p)
	doc, err := encode(l)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, s.d.rebind("UPDATE leads SET status = ?, doc = ? WHERE id = ?"),
		string(l.Status), doc, n); err != nil {
		return nil, fmt.Errorf("update lead: %w", err)
	}
	return l, tx.Commit()
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM leads").Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanOne(row scanner) (*models.Lead, error) {
	var (
		id  int64
		doc string
	)
	if err := row.Scan(&id, &doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, lead.ErrNotFound
		}
		return nil, err
	}
	var l models.Lead
	if err := json.Unmarshal([]byte(doc), &l); err != nil {
		return nil, fmt.Errorf("decode lead %d: %w", id, err)
	}
	l.ID = strconv.FormatInt(id, 10)
	return &l, nil
}

func encode(l *models.Lead) (string, error) {
	c := *l
	c.ID = ""
	raw, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode lead: %w", err)
	}
	return string(raw), nil
}
