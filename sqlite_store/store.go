// Package sqlite_store persists classified posts in a single durable SQLite
// table. Deduplication relies on the database's atomic INSERT OR IGNORE, so
// two runs racing on the same post id cannot duplicate rows.
package sqlite_store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/haileyok/brandwatch/models"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS posts (
	post_id TEXT PRIMARY KEY,
	platform TEXT,
	author_id TEXT,
	author_name TEXT,
	created_at TEXT,
	text TEXT,
	lang TEXT,
	sentiment_score REAL,
	sentiment_label TEXT,
	raw_json TEXT,
	fetched_at TEXT DEFAULT CURRENT_TIMESTAMP
);`

type Store struct {
	db *sql.DB
}

// Open opens the database at path, creating the file, its parent directory,
// and the posts table as needed. Safe to call against an existing database.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create posts table: %w", err)
	}

	return &Store{db: db}, nil
}

// InsertIfAbsent writes post and reports whether a new row was created.
// The first write for an id wins: re-inserting an already stored id is a
// silent no-op that leaves the existing row untouched. fetched_at is
// assigned by the database at insertion time, never by the caller.
func (s *Store) InsertIfAbsent(ctx context.Context, post *models.Post) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
	INSERT OR IGNORE INTO posts (
		post_id, platform, author_id, author_name, created_at, text, lang, sentiment_score, sentiment_label, raw_json
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		post.ID,
		post.Platform,
		post.AuthorID,
		post.AuthorName,
		post.CreatedAt,
		post.Text,
		post.Lang,
		post.SentimentScore,
		post.SentimentLabel,
		string(post.RawJSON),
	)
	if err != nil {
		return false, fmt.Errorf("failed to save post %s: %w", post.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

// ListRecent returns up to limit stored posts, most recently fetched first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]models.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT post_id, platform, author_id, author_name, created_at, text, lang, sentiment_score, sentiment_label, raw_json, fetched_at
	FROM posts
	ORDER BY fetched_at DESC
	LIMIT ?;`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent posts: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		var p models.Post
		var rawJSON string
		if err := rows.Scan(
			&p.ID,
			&p.Platform,
			&p.AuthorID,
			&p.AuthorName,
			&p.CreatedAt,
			&p.Text,
			&p.Lang,
			&p.SentimentScore,
			&p.SentimentLabel,
			&rawJSON,
			&p.FetchedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		p.RawJSON = []byte(rawJSON)
		posts = append(posts, p)
	}

	return posts, rows.Err()
}

type LabelCount struct {
	Label string
	Count int
}

// SummaryByLabel returns stored post counts grouped by sentiment label.
func (s *Store) SummaryByLabel(ctx context.Context) ([]LabelCount, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT sentiment_label, COUNT(*)
	FROM posts
	GROUP BY sentiment_label
	ORDER BY sentiment_label;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query summary: %w", err)
	}
	defer rows.Close()

	var counts []LabelCount
	for rows.Next() {
		var lc LabelCount
		if err := rows.Scan(&lc.Label, &lc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		counts = append(counts, lc)
	}

	return counts, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
