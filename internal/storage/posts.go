package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/jmoiron/sqlx"

	derrors "git.home.luguber.info/inful/sitebuilder/internal/errors"
)

// DateFormat is the ISO-8601 layout dates are stored in. SQLite's datetime()
// understands it, which is what index ordering relies on.
const DateFormat = time.RFC3339

// Tags is a list of tags stored as a JSON array column.
type Tags []string

// Value implements driver.Valuer.
func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(t))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (t *Tags) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*t = Tags{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("scan tags: unsupported type %T", src)
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("scan tags: %w", err)
	}
	*t = out
	return nil
}

// Post is one row of the post index.
type Post struct {
	Path      string    `json:"path"`
	Permalink string    `json:"permalink"`
	Title     string    `json:"title"`
	Tags      []string  `json:"tags"`
	Series    string    `json:"series,omitempty"`
	Date      time.Time `json:"date"`
	Updated   time.Time `json:"updated"`
	Summary   string    `json:"summary"`
	Hash      string    `json:"hash"`
	Fresh     bool      `json:"fresh"`
}

type postRow struct {
	Path      string `db:"path"`
	Permalink string `db:"permalink"`
	Title     string `db:"title"`
	Tags      Tags   `db:"tags"`
	Series    string `db:"series"`
	Date      string `db:"date"`
	Updated   string `db:"updated"`
	Summary   string `db:"summary"`
	Hash      string `db:"hash"`
	Fresh     bool   `db:"fresh"`
}

func (r postRow) post() (Post, error) {
	date, err := time.Parse(DateFormat, r.Date)
	if err != nil {
		return Post{}, fmt.Errorf("post %s: date: %w", r.Path, err)
	}
	updated, err := time.Parse(DateFormat, r.Updated)
	if err != nil {
		return Post{}, fmt.Errorf("post %s: updated: %w", r.Path, err)
	}
	return Post{
		Path:      r.Path,
		Permalink: r.Permalink,
		Title:     r.Title,
		Tags:      []string(r.Tags),
		Series:    r.Series,
		Date:      date,
		Updated:   updated,
		Summary:   r.Summary,
		Hash:      r.Hash,
		Fresh:     r.Fresh,
	}, nil
}

// WriteOp reports which statement persisted a post.
type WriteOp string

const (
	OpInsert WriteOp = "insert"
	OpUpdate WriteOp = "update"
)

const postColumns = `path, permalink, title, tags, series, date, updated, summary, hash, fresh`

// Posts is the persisted index of published pages.
type Posts struct {
	q Queryer
}

// NewPosts returns a post index backed by q.
func NewPosts(q Queryer) *Posts {
	return &Posts{q: q}
}

// Save persists p. Fresh posts are inserted; others are updated by path and
// fall back to an insert when no row exists yet.
func (s *Posts) Save(ctx context.Context, p Post) (WriteOp, error) {
	args := []any{
		p.Path, p.Permalink, p.Title, Tags(p.Tags), p.Series,
		p.Date.UTC().Format(DateFormat), p.Updated.UTC().Format(DateFormat),
		p.Summary, p.Hash, p.Fresh,
	}

	if !p.Fresh {
		res, err := s.q.ExecContext(ctx, `UPDATE posts SET permalink = ?, title = ?, tags = ?, series = ?,
			date = ?, updated = ?, summary = ?, hash = ?, fresh = ? WHERE path = ?`,
			append(slices.Clone(args[1:]), p.Path)...)
		if err != nil {
			return "", derrors.Storage("update post", err).WithContext("path", p.Path)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			return OpUpdate, nil
		}
	}

	_, err := s.q.ExecContext(ctx, `INSERT INTO posts (`+postColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET permalink = excluded.permalink, title = excluded.title,
		tags = excluded.tags, series = excluded.series, date = excluded.date, updated = excluded.updated,
		summary = excluded.summary, hash = excluded.hash, fresh = excluded.fresh`, args...)
	if err != nil {
		return "", derrors.Storage("insert post", err).WithContext("path", p.Path)
	}
	return OpInsert, nil
}

// Get returns the indexed post for path.
func (s *Posts) Get(ctx context.Context, path string) (Post, bool, error) {
	var row postRow
	err := sqlx.GetContext(ctx, s.q, &row, `SELECT `+postColumns+` FROM posts WHERE path = ?`, path)
	if errors.Is(err, sql.ErrNoRows) {
		return Post{}, false, nil
	}
	if err != nil {
		return Post{}, false, derrors.Storage("get post", err).WithContext("path", path)
	}
	p, err := row.post()
	if err != nil {
		return Post{}, false, derrors.Storage("get post", err).WithContext("path", path)
	}
	return p, true, nil
}

// All loads every indexed post, newest first.
func (s *Posts) All(ctx context.Context) ([]Post, error) {
	var rows []postRow
	err := sqlx.SelectContext(ctx, s.q, &rows,
		`SELECT `+postColumns+` FROM posts ORDER BY datetime(date) DESC, path ASC`)
	if err != nil {
		return nil, derrors.Storage("load posts", err)
	}

	posts := make([]Post, 0, len(rows))
	for _, r := range rows {
		p, err := r.post()
		if err != nil {
			return nil, derrors.Storage("load posts", err)
		}
		posts = append(posts, p)
	}
	return posts, nil
}

// Delete removes path from the index.
func (s *Posts) Delete(ctx context.Context, path string) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM posts WHERE path = ?`, path); err != nil {
		return derrors.Storage("delete post", err).WithContext("path", path)
	}
	return nil
}
