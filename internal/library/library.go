// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package library keeps the list of papers the user tracks in a SQLite
// database with an FTS5 index over titles and abstracts.
package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/pdiddy/paperlens/pkg/types"
)

// DefaultSearchLimit is used when Search is called with a non-positive limit.
const DefaultSearchLimit = 20

// timeLayout is fixed width so added_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Library manages the tracked-paper database.
type Library struct {
	db  *sql.DB
	now func() time.Time
	log *zap.Logger
}

// Option configures a Library.
type Option func(*Library)

// WithClock replaces time.Now for AddedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(l *Library) { l.now = now }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(l *Library) { l.log = log }
}

// Open opens or creates the database at dbPath and ensures the schema
// exists.
func Open(dbPath string, opts ...Option) (*Library, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating library directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	l := &Library{db: db, now: time.Now, log: zap.NewNop()}
	for _, opt := range opts {
		opt(l)
	}

	if err := l.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return l, nil
}

// Close releases the database connection.
func (l *Library) Close() error {
	return l.db.Close()
}

func (l *Library) createSchema() error {
	if _, err := l.db.Exec(`CREATE TABLE IF NOT EXISTS papers (
		rowid INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL DEFAULT '',
		authors TEXT NOT NULL DEFAULT '[]',
		abstract TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT '',
		added_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("creating papers table: %w", err)
	}

	var ftsExists int
	if err := l.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='papers_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}
	if ftsExists > 0 {
		return nil
	}

	ftsStatements := []string{
		`CREATE VIRTUAL TABLE papers_fts USING fts5(title, abstract, content=papers, content_rowid=rowid)`,
		`CREATE TRIGGER papers_ai AFTER INSERT ON papers BEGIN
			INSERT INTO papers_fts(rowid, title, abstract) VALUES (new.rowid, new.title, new.abstract);
		END`,
		`CREATE TRIGGER papers_ad AFTER DELETE ON papers BEGIN
			INSERT INTO papers_fts(papers_fts, rowid, title, abstract) VALUES('delete', old.rowid, old.title, old.abstract);
		END`,
		`CREATE TRIGGER papers_au AFTER UPDATE ON papers BEGIN
			INSERT INTO papers_fts(papers_fts, rowid, title, abstract) VALUES('delete', old.rowid, old.title, old.abstract);
			INSERT INTO papers_fts(rowid, title, abstract) VALUES (new.rowid, new.title, new.abstract);
		END`,
	}
	for _, stmt := range ftsStatements {
		if _, err := l.db.Exec(stmt); err != nil {
			return fmt.Errorf("creating FTS infrastructure: %w", err)
		}
	}
	return nil
}

// Add inserts paper. AddedAt is stamped when zero. A paper whose ID is
// already tracked yields types.ErrAlreadyExists and leaves the stored row
// untouched.
func (l *Library) Add(ctx context.Context, paper types.LibraryPaper) (types.LibraryPaper, error) {
	if paper.PaperID.IsZero() {
		return types.LibraryPaper{}, fmt.Errorf("%w: empty paper id", types.ErrInvalidIdentifier)
	}
	if paper.AddedAt.IsZero() {
		paper.AddedAt = l.now().UTC()
	}
	if paper.Authors == nil {
		paper.Authors = []string{}
	}

	if err := insert(ctx, l.db, paper); err != nil {
		return types.LibraryPaper{}, err
	}
	l.log.Info("paper added to library", zap.String("paper_id", paper.PaperID.String()))
	return paper, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insert(ctx context.Context, db execer, p types.LibraryPaper) error {
	authorsJSON, _ := json.Marshal(p.Authors)
	_, err := db.ExecContext(ctx,
		`INSERT INTO papers (id, title, authors, abstract, url, added_at) VALUES (?, ?, ?, ?, ?, ?)`,
		p.PaperID.String(), p.Title, string(authorsJSON), p.Abstract, p.URL,
		p.AddedAt.UTC().Format(timeLayout),
	)
	var se sqlite3.Error
	if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("%w: paper %s is already in the library", types.ErrAlreadyExists, p.PaperID)
	}
	if err != nil {
		return fmt.Errorf("inserting paper %s: %w", p.PaperID, err)
	}
	return nil
}

const selectColumns = `p.id, p.title, p.authors, p.abstract, p.url, p.added_at`

// List returns every tracked paper, newest first.
func (l *Library) List(ctx context.Context) ([]types.LibraryPaper, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM papers p ORDER BY p.added_at DESC, p.rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing papers: %w", err)
	}
	defer rows.Close()
	return scanPapers(rows)
}

// Get returns one paper or types.ErrNotFound.
func (l *Library) Get(ctx context.Context, id types.PaperID) (types.LibraryPaper, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM papers p WHERE p.id = ?`, id.String())
	if err != nil {
		return types.LibraryPaper{}, fmt.Errorf("looking up paper: %w", err)
	}
	defer rows.Close()

	papers, err := scanPapers(rows)
	if err != nil {
		return types.LibraryPaper{}, err
	}
	if len(papers) == 0 {
		return types.LibraryPaper{}, fmt.Errorf("%w: paper %s is not in the library", types.ErrNotFound, id)
	}
	return papers[0], nil
}

// Search runs a full-text query over titles and abstracts and returns the
// best matches first. Each whitespace-separated term must match.
func (l *Library) Search(ctx context.Context, query string, limit int) ([]types.LibraryPaper, error) {
	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT `+selectColumns+`
		FROM papers_fts
		JOIN papers p ON p.rowid = papers_fts.rowid
		WHERE papers_fts MATCH ?
		ORDER BY papers_fts.rank
		LIMIT ?`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("searching library: %w", err)
	}
	defer rows.Close()
	return scanPapers(rows)
}

// ftsQuery quotes every term so user input never reaches the FTS5 query
// grammar.
func ftsQuery(q string) string {
	terms := strings.Fields(q)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(terms, " ")
}

// DefaultPapers is the curated list an empty library is seeded with.
var DefaultPapers = []types.LibraryPaper{
	{PaperID: "1706.03762", Title: "Attention Is All You Need", Authors: []string{"Vaswani et al."}},
	{PaperID: "2303.08774", Title: "GPT-4 Technical Report", Authors: []string{"OpenAI"}},
	{PaperID: "2307.09288", Title: "Llama 2: Open Foundation and Fine-Tuned Chat Models", Authors: []string{"Touvron et al."}},
	{PaperID: "2005.14165", Title: "Language Models are Few-Shot Learners (GPT-3)", Authors: []string{"Brown et al."}},
	{PaperID: "2103.00020", Title: "Learning Transferable Visual Models From Natural Language Supervision (CLIP)", Authors: []string{"Radford et al."}},
	{PaperID: "2010.11929", Title: "An Image is Worth 16x16 Words: Transformers for Image Recognition at Scale (ViT)", Authors: []string{"Dosovitskiy et al."}},
	{PaperID: "1810.04805", Title: "BERT: Pre-training of Deep Bidirectional Transformers for Language Understanding", Authors: []string{"Devlin et al."}},
	{PaperID: "2106.09685", Title: "LoRA: Low-Rank Adaptation of Large Language Models", Authors: []string{"Hu et al."}},
}

// SeedDefaults inserts DefaultPapers when the library is empty and returns
// the number of papers inserted. A non-empty library is left alone.
func (l *Library) SeedDefaults(ctx context.Context) (int, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM papers`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting papers: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	// Inserted in reverse so List, which breaks timestamp ties by newest
	// row, shows them in curated order.
	now := l.now().UTC()
	for i := len(DefaultPapers) - 1; i >= 0; i-- {
		p := DefaultPapers[i]
		p.URL = "https://arxiv.org/abs/" + p.PaperID.String()
		p.AddedAt = now
		if err := insert(ctx, tx, p); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing seed: %w", err)
	}
	l.log.Info("library seeded", zap.Int("papers", len(DefaultPapers)))
	return len(DefaultPapers), nil
}

// UpdateFromMetadata refreshes the title, abstract and authors of a
// tracked paper from fetched metadata. Empty metadata fields keep the
// stored value. It reports whether a tracked paper was updated.
func (l *Library) UpdateFromMetadata(ctx context.Context, m types.Metadata) (bool, error) {
	authors := m.AuthorNames()
	var authorsJSON any
	if len(authors) > 0 {
		data, _ := json.Marshal(authors)
		authorsJSON = string(data)
	}

	res, err := l.db.ExecContext(ctx,
		`UPDATE papers SET
			title = COALESCE(NULLIF(?, ''), title),
			abstract = COALESCE(NULLIF(?, ''), abstract),
			authors = COALESCE(?, authors)
		WHERE id = ?`,
		m.Title, m.Abstract, authorsJSON, m.PaperID.String())
	if err != nil {
		return false, fmt.Errorf("updating paper %s: %w", m.PaperID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("updating paper %s: %w", m.PaperID, err)
	}
	return n > 0, nil
}

func scanPapers(rows *sql.Rows) ([]types.LibraryPaper, error) {
	papers := []types.LibraryPaper{}
	for rows.Next() {
		var (
			p           types.LibraryPaper
			id          string
			authorsJSON string
			addedAt     string
		)
		if err := rows.Scan(&id, &p.Title, &authorsJSON, &p.Abstract, &p.URL, &addedAt); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		p.PaperID = types.PaperID(id)
		if err := json.Unmarshal([]byte(authorsJSON), &p.Authors); err != nil || p.Authors == nil {
			p.Authors = []string{}
		}
		if t, err := time.Parse(time.RFC3339Nano, addedAt); err == nil {
			p.AddedAt = t
		}
		papers = append(papers, p)
	}
	return papers, rows.Err()
}
