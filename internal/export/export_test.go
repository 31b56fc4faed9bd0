// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pdiddy/bibextract/pkg/types"
)

func sampleResult() *types.SurveyResult {
	return &types.SurveyResult{
		Papers: []types.PaperSummary{
			{Paper: types.Paper{ID: "2301.00001", Title: "Sequence Models", Authors: []string{"Alice Smith", "Bob Jones"}}, Status: types.PaperDone, Primary: "main.tex", Sections: 1, Entries: 1},
			{Paper: types.Paper{ID: "9999.99999"}, Status: types.PaperFailed, Error: "not found"},
		},
		Entries: []types.CanonicalBibEntry{
			{
				BibEntry: types.BibEntry{Type: "inproceedings", Key: "vaswani_attention_need_2017", Fields: map[string]string{
					types.FieldTitle:  "Attention is all you need",
					types.FieldAuthor: "Vaswani, Ashish",
					types.FieldYear:   "2017",
					types.FieldRaw:    `\bibitem{v} ...`,
				}},
				Aliases: []types.EntryRef{
					{PaperID: "2301.00001", Key: "vaswani2017attention"},
					{PaperID: "2301.00002", Key: "Vaswani17"},
				},
				Status: types.StatusConfirmed,
			},
		},
		Sections: []types.ExtractedSection{
			{PaperID: "2301.00001", Title: "Related Work", Level: 1, Start: 120, End: 340, Text: "Transformers \\cite{vaswani_attention_need_2017}."},
		},
		Warnings: []types.Warning{
			{PaperID: "9999.99999", Kind: types.KindNotFound, Message: "not found"},
			{PaperID: "2301.00001", EntryKey: "hochreiter1997", Kind: types.KindCitation, Message: "cited key has no bibliography entry, cited in: recurrent models \\citep{hochreiter1997}"},
		},
	}
}

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "out", "survey.db"), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func count(t *testing.T, s *Store, table string) int {
	t.Helper()
	var n int
	require.NoError(t, s.db.Get(&n, "SELECT count(*) FROM "+table))
	return n
}

func TestWrite_SQLite(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.Write(context.Background(), sampleResult()))

	assert.Equal(t, 2, count(t, s, "papers"))
	assert.Equal(t, 1, count(t, s, "entries"))
	assert.Equal(t, 2, count(t, s, "aliases"))
	assert.Equal(t, 1, count(t, s, "sections"))
	assert.Equal(t, 2, count(t, s, "warnings"))

	var entry entryRow
	require.NoError(t, s.db.Get(&entry, "SELECT * FROM entries WHERE key = ?", "vaswani_attention_need_2017"))
	assert.Equal(t, "inproceedings", entry.Type)
	assert.Equal(t, "confirmed", entry.Status)
	var fields map[string]string
	require.NoError(t, json.Unmarshal([]byte(entry.Fields), &fields))
	assert.Equal(t, "2017", fields[types.FieldYear])
	assert.NotContains(t, fields, types.FieldRaw)

	var canonical string
	require.NoError(t, s.db.Get(&canonical,
		"SELECT canonical_key FROM aliases WHERE paper_id = ? AND original_key = ?", "2301.00002", "Vaswani17"))
	assert.Equal(t, "vaswani_attention_need_2017", canonical)

	var paper paperRow
	require.NoError(t, s.db.Get(&paper, "SELECT * FROM papers WHERE id = ?", "2301.00001"))
	assert.Equal(t, "Alice Smith, Bob Jones", paper.Authors)
	assert.Equal(t, "main.tex", paper.PrimaryFile)

	var kinds []string
	require.NoError(t, s.db.Select(&kinds, "SELECT kind FROM warnings ORDER BY position"))
	assert.Equal(t, []string{"not_found", "citation"}, kinds)
}

func TestWrite_ReplacesPreviousContents(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.Write(context.Background(), sampleResult()))

	smaller := sampleResult()
	smaller.Warnings = smaller.Warnings[:1]
	smaller.Papers = smaller.Papers[:1]
	require.NoError(t, s.Write(context.Background(), smaller))

	assert.Equal(t, 1, count(t, s, "papers"))
	assert.Equal(t, 1, count(t, s, "warnings"))
	assert.Equal(t, 1, count(t, s, "entries"))
}

func TestWrite_EmptyResult(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.Write(context.Background(), &types.SurveyResult{}))
	assert.Zero(t, count(t, s, "entries"))
}

// --- failure paths ---

func mockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(sqlx.NewDb(db, "sqlmock"), zaptest.NewLogger(t)), mock
}

func expectClear(mock sqlmock.Sqlmock) {
	for _, table := range tables {
		mock.ExpectExec("DELETE FROM " + table).WillReturnResult(sqlmock.NewResult(0, 0))
	}
}

func TestWrite_InsertFailureRollsBack(t *testing.T) {
	s, mock := mockStore(t)
	mock.ExpectBegin()
	expectClear(mock)
	mock.ExpectExec("INSERT INTO papers").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO papers").WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err := s.Write(context.Background(), sampleResult())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inserting paper 9999.99999")
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWrite_ClearFailureRollsBack(t *testing.T) {
	s, mock := mockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM warnings").WillReturnError(errors.New("database is locked"))
	mock.ExpectRollback()

	err := s.Write(context.Background(), sampleResult())
	assert.ErrorContains(t, err, "clearing warnings")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWrite_CommitFailure(t *testing.T) {
	s, mock := mockStore(t)
	mock.ExpectBegin()
	expectClear(mock)
	mock.ExpectCommit().WillReturnError(errors.New("disk full"))

	err := s.Write(context.Background(), &types.SurveyResult{})
	assert.ErrorContains(t, err, "committing export")
	assert.NotContains(t, err.Error(), "rolling back")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWrite_BeginFailure(t *testing.T) {
	s, mock := mockStore(t)
	mock.ExpectBegin().WillReturnError(errors.New("no connection"))

	err := s.Write(context.Background(), sampleResult())
	assert.ErrorContains(t, err, "beginning export")
	assert.NoError(t, mock.ExpectationsWereMet())
}
