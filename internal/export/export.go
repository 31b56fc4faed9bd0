// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export writes a survey result to a SQLite database for ad-hoc
// querying. The pipeline never reads the database back.
package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/pdiddy/bibextract/pkg/types"
)

// Store writes survey results into one SQLite database.
type Store struct {
	db  *sqlx.DB
	log *zap.Logger
}

// Open opens or creates the database at path and creates the schema if it
// does not exist.
func Open(path string, log *zap.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating export directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := NewStore(db, log)
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// NewStore wraps an open database whose schema already exists.
func NewStore(db *sqlx.DB, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{db: db, log: log}
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			id TEXT PRIMARY KEY,
			title TEXT,
			authors TEXT,
			source_url TEXT,
			primary_file TEXT,
			status TEXT NOT NULL,
			sections INTEGER NOT NULL,
			entries INTEGER NOT NULL,
			error TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS entries (
			key TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			title TEXT,
			author TEXT,
			year TEXT,
			status TEXT,
			fields TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS aliases (
			paper_id TEXT NOT NULL,
			original_key TEXT NOT NULL,
			canonical_key TEXT NOT NULL REFERENCES entries(key),
			PRIMARY KEY (paper_id, original_key)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_aliases_canonical ON aliases(canonical_key)`,
		`CREATE TABLE IF NOT EXISTS sections (
			paper_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			title TEXT NOT NULL,
			level INTEGER NOT NULL,
			start_offset INTEGER NOT NULL,
			end_offset INTEGER NOT NULL,
			text TEXT NOT NULL,
			PRIMARY KEY (paper_id, position)
		)`,
		`CREATE TABLE IF NOT EXISTS warnings (
			position INTEGER PRIMARY KEY,
			paper_id TEXT,
			entry_key TEXT,
			kind TEXT NOT NULL,
			message TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_warnings_kind ON warnings(kind)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Rows as stored. Field names follow the column names.
type (
	paperRow struct {
		ID          string `db:"id"`
		Title       string `db:"title"`
		Authors     string `db:"authors"`
		SourceURL   string `db:"source_url"`
		PrimaryFile string `db:"primary_file"`
		Status      string `db:"status"`
		Sections    int    `db:"sections"`
		Entries     int    `db:"entries"`
		Error       string `db:"error"`
	}

	entryRow struct {
		Key    string `db:"key"`
		Type   string `db:"type"`
		Title  string `db:"title"`
		Author string `db:"author"`
		Year   string `db:"year"`
		Status string `db:"status"`
		Fields string `db:"fields"`
	}

	aliasRow struct {
		PaperID      string `db:"paper_id"`
		OriginalKey  string `db:"original_key"`
		CanonicalKey string `db:"canonical_key"`
	}

	sectionRow struct {
		PaperID     string `db:"paper_id"`
		Position    int    `db:"position"`
		Title       string `db:"title"`
		Level       int    `db:"level"`
		StartOffset int    `db:"start_offset"`
		EndOffset   int    `db:"end_offset"`
		Text        string `db:"text"`
	}

	warningRow struct {
		Position int    `db:"position"`
		PaperID  string `db:"paper_id"`
		EntryKey string `db:"entry_key"`
		Kind     string `db:"kind"`
		Message  string `db:"message"`
	}
)

// tables lists every table, children before parents.
var tables = []string{"warnings", "sections", "aliases", "entries", "papers"}

const (
	insertPaper = `INSERT INTO papers (id, title, authors, source_url, primary_file, status, sections, entries, error)
		VALUES (:id, :title, :authors, :source_url, :primary_file, :status, :sections, :entries, :error)`
	insertEntry = `INSERT INTO entries (key, type, title, author, year, status, fields)
		VALUES (:key, :type, :title, :author, :year, :status, :fields)`
	insertAlias = `INSERT INTO aliases (paper_id, original_key, canonical_key)
		VALUES (:paper_id, :original_key, :canonical_key)`
	insertSection = `INSERT INTO sections (paper_id, position, title, level, start_offset, end_offset, text)
		VALUES (:paper_id, :position, :title, :level, :start_offset, :end_offset, :text)`
	insertWarning = `INSERT INTO warnings (position, paper_id, entry_key, kind, message)
		VALUES (:position, :paper_id, :entry_key, :kind, :message)`
)

// Write replaces the database contents with result in one transaction. On
// any error the transaction is rolled back and the previous contents remain.
func (s *Store) Write(ctx context.Context, result *types.SurveyResult) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning export: %w", err)
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil && !errors.Is(rerr, sql.ErrTxDone) {
				err = errors.Join(err, fmt.Errorf("rolling back export: %w", rerr))
			}
		}
	}()

	for _, table := range tables {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	insert := func(what, query string, arg any) error {
		if _, err := tx.NamedExecContext(ctx, query, arg); err != nil {
			return fmt.Errorf("inserting %s: %w", what, err)
		}
		return nil
	}

	for _, p := range result.Papers {
		row := paperRow{
			ID:          p.ID,
			Title:       p.Title,
			Authors:     strings.Join(p.Authors, ", "),
			SourceURL:   p.SourceURL,
			PrimaryFile: p.Primary,
			Status:      string(p.Status),
			Sections:    p.Sections,
			Entries:     p.Entries,
			Error:       p.Error,
		}
		if err = insert("paper "+p.ID, insertPaper, row); err != nil {
			return err
		}
	}

	var aliases []aliasRow
	for _, e := range result.Entries {
		row, rerr := newEntryRow(e)
		if rerr != nil {
			return rerr
		}
		if err = insert("entry "+e.Key, insertEntry, row); err != nil {
			return err
		}
		for _, a := range e.Aliases {
			aliases = append(aliases, aliasRow{PaperID: a.PaperID, OriginalKey: a.Key, CanonicalKey: e.Key})
		}
	}
	for _, a := range aliases {
		if err = insert("alias "+a.OriginalKey, insertAlias, a); err != nil {
			return err
		}
	}

	positions := make(map[string]int)
	for _, sec := range result.Sections {
		row := sectionRow{
			PaperID:     sec.PaperID,
			Position:    positions[sec.PaperID],
			Title:       sec.Title,
			Level:       sec.Level,
			StartOffset: sec.Start,
			EndOffset:   sec.End,
			Text:        sec.Text,
		}
		positions[sec.PaperID]++
		if err = insert("section "+sec.Title, insertSection, row); err != nil {
			return err
		}
	}

	for i, w := range result.Warnings {
		row := warningRow{Position: i, PaperID: w.PaperID, EntryKey: w.EntryKey, Kind: string(w.Kind), Message: w.Message}
		if err = insert("warning", insertWarning, row); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing export: %w", err)
	}
	s.log.Info("exported survey",
		zap.Int("papers", len(result.Papers)),
		zap.Int("entries", len(result.Entries)),
		zap.Int("aliases", len(aliases)),
		zap.Int("sections", len(result.Sections)),
		zap.Int("warnings", len(result.Warnings)),
	)
	return nil
}

func newEntryRow(e types.CanonicalBibEntry) (entryRow, error) {
	fields := make(map[string]string, len(e.Fields))
	for _, name := range e.FieldNames() {
		fields[name] = e.Fields[name]
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return entryRow{}, fmt.Errorf("encoding fields of %s: %w", e.Key, err)
	}
	return entryRow{
		Key:    e.Key,
		Type:   e.Type,
		Title:  e.Get(types.FieldTitle),
		Author: e.Get(types.FieldAuthor),
		Year:   e.Get(types.FieldYear),
		Status: string(e.Status),
		Fields: string(data),
	}, nil
}
