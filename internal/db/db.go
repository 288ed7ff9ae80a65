package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/labelfeed/github-label-feed/internal/models"
)

// DB represents the database connection
type DB struct {
	*sql.DB
}

// New creates a new database connection. The store is fully re-derivable
// from the remote, so synchronous writes are disabled and there is no
// migration support: a missing or corrupt file is recreated by resyncing.
func New(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// One command owns the single connection for its full duration.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON; PRAGMA synchronous = OFF"); err != nil {
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	return &DB{DB: db}, nil
}

// Initialize creates the database schema if it doesn't exist
func (db *DB) Initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS repositories (
		id INTEGER PRIMARY KEY,
		owner TEXT NOT NULL,
		name TEXT NOT NULL,
		UNIQUE(owner, name)
	);

	CREATE TABLE IF NOT EXISTS issues (
		repo_id INTEGER NOT NULL REFERENCES repositories(id),
		number INTEGER NOT NULL,
		state INTEGER NOT NULL,
		title TEXT NOT NULL,
		body TEXT NOT NULL,
		author_login TEXT NOT NULL,
		html_url TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (repo_id, number)
	);

	CREATE TABLE IF NOT EXISTS labels (
		id INTEGER PRIMARY KEY,
		repo_id INTEGER NOT NULL REFERENCES repositories(id),
		name TEXT NOT NULL,
		UNIQUE(repo_id, name)
	);

	CREATE TABLE IF NOT EXISTS issue_labels (
		repo_id INTEGER NOT NULL,
		issue_number INTEGER NOT NULL,
		label_id INTEGER NOT NULL REFERENCES labels(id),
		PRIMARY KEY (repo_id, issue_number, label_id),
		-- REPLACE INTO issues deletes the old row first; cascade so the
		-- associations (reinserted right after) don't block it
		FOREIGN KEY (repo_id, issue_number) REFERENCES issues(repo_id, number) ON DELETE CASCADE
	);
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Tx wraps a transaction and exposes the store primitives. Every top-level
// command runs inside exactly one Tx; a fatal error rolls the whole
// invocation back.
type Tx struct {
	*sql.Tx
}

// WithTransaction runs fn inside a transaction, committing on success and
// rolling back on error or panic.
func (db *DB) WithTransaction(fn func(tx *Tx) error) error {
	sqlTx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	tx := &Tx{Tx: sqlTx}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = sqlTx.Rollback()
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// RepoID resolves the id for owner/name, creating the repository row if it
// doesn't exist yet. Repositories are never deleted.
func (tx *Tx) RepoID(owner, name string) (int64, error) {
	_, err := tx.Exec(`INSERT OR IGNORE INTO repositories (owner, name) VALUES (?, ?)`, owner, name)
	if err != nil {
		return 0, fmt.Errorf("failed to create repository %s/%s: %w", owner, name, err)
	}

	var id int64
	err = tx.QueryRow(`SELECT id FROM repositories WHERE owner = ? AND name = ?`, owner, name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve repository %s/%s: %w", owner, name, err)
	}

	return id, nil
}

// LastUpdated returns the maximum updated_at over the stored issues of a
// repository. ok is false when no issues are stored yet, which triggers a
// full resync.
func (tx *Tx) LastUpdated(repoID int64) (ts int64, ok bool, err error) {
	var max sql.NullInt64
	err = tx.QueryRow(`SELECT MAX(updated_at) FROM issues WHERE repo_id = ?`, repoID).Scan(&max)
	if err != nil {
		return 0, false, fmt.Errorf("failed to get last update time for repo id %d: %w", repoID, err)
	}

	return max.Int64, max.Valid, nil
}

// ListRepositories lists all stored repositories with derived label and
// issue counts.
func (tx *Tx) ListRepositories() ([]models.RepositoryInfo, error) {
	rows, err := tx.Query(`
		SELECT repositories.owner, repositories.name,
			(SELECT count(id) FROM labels WHERE repo_id = repositories.id) AS label_count,
			(SELECT count(number) FROM issues WHERE repo_id = repositories.id) AS issue_count
		FROM repositories`)
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}
	defer rows.Close()

	var repos []models.RepositoryInfo
	for rows.Next() {
		var info models.RepositoryInfo
		if err := rows.Scan(&info.Owner, &info.Name, &info.LabelCount, &info.IssueCount); err != nil {
			return nil, fmt.Errorf("failed to scan repository row: %w", err)
		}
		repos = append(repos, info)
	}

	return repos, rows.Err()
}

// UpsertIssue replaces the issue row wholesale, keyed by (repo_id, number)
func (tx *Tx) UpsertIssue(issue *models.Issue) error {
	_, err := tx.Exec(`
		REPLACE INTO issues (repo_id, number, state, title, body, author_login, html_url, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		issue.RepoID,
		issue.Number,
		int64(issue.State),
		issue.Title,
		issue.Body,
		issue.AuthorLogin,
		issue.URL,
		issue.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save issue #%d: %w", issue.Number, err)
	}

	return nil
}

// ReplaceIssueLabels deletes and reinserts the label associations of an
// issue from the given label names. A name not present in the labels table
// for this repo is dropped from the association.
func (tx *Tx) ReplaceIssueLabels(repoID int64, number int, labelNames []string) error {
	_, err := tx.Exec(`DELETE FROM issue_labels WHERE repo_id = ? AND issue_number = ?`, repoID, number)
	if err != nil {
		return fmt.Errorf("failed to clear labels of issue #%d: %w", number, err)
	}

	for _, name := range labelNames {
		var labelID int64
		err := tx.QueryRow(`SELECT id FROM labels WHERE repo_id = ? AND name = ?`, repoID, name).Scan(&labelID)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to look up label %q: %w", name, err)
		}

		_, err = tx.Exec(`
			INSERT OR IGNORE INTO issue_labels (repo_id, issue_number, label_id)
			VALUES (?, ?, ?)`, repoID, number, labelID)
		if err != nil {
			return fmt.Errorf("failed to save issue-label relationship: %w", err)
		}
	}

	return nil
}

// InsertLabel inserts a label name if it isn't stored yet. Labels removed
// remotely are never pruned locally.
func (tx *Tx) InsertLabel(repoID int64, name string) error {
	_, err := tx.Exec(`INSERT OR IGNORE INTO labels (repo_id, name) VALUES (?, ?)`, repoID, name)
	if err != nil {
		return fmt.Errorf("failed to save label %q: %w", name, err)
	}

	return nil
}

// LabelNames returns all label names stored for a repository
func (tx *Tx) LabelNames(repoID int64) ([]string, error) {
	rows, err := tx.Query(`SELECT name FROM labels WHERE repo_id = ? ORDER BY name`, repoID)
	if err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan label row: %w", err)
		}
		names = append(names, name)
	}

	return names, rows.Err()
}

// IssuesForLabel returns the issues carrying the given label, ordered by
// number descending, filtered by the include flags.
func (tx *Tx) IssuesForLabel(repoID int64, label string, includeOpen, includeClosed bool) ([]models.Issue, error) {
	rows, err := tx.Query(`
		SELECT issues.repo_id, issues.number, state, title, body, author_login, html_url, updated_at
		FROM issues
		INNER JOIN issue_labels
			ON issue_labels.repo_id = issues.repo_id AND issue_labels.issue_number = issues.number
		WHERE issue_labels.label_id = (SELECT id FROM labels WHERE repo_id = ? AND name = ?)
		ORDER BY issues.number DESC`, repoID, label)
	if err != nil {
		return nil, fmt.Errorf("failed to query issues for label %q: %w", label, err)
	}
	defer rows.Close()

	var issues []models.Issue
	for rows.Next() {
		var issue models.Issue
		var state int64
		if err := rows.Scan(&issue.RepoID, &issue.Number, &state, &issue.Title, &issue.Body,
			&issue.AuthorLogin, &issue.URL, &issue.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan issue row: %w", err)
		}

		issue.State, err = models.IssueStateFromInt(state)
		if err != nil {
			return nil, fmt.Errorf("inconsistent database: %w", err)
		}

		if issue.State == models.StateOpen && !includeOpen {
			continue
		}
		if issue.State == models.StateClosed && !includeClosed {
			continue
		}

		issues = append(issues, issue)
	}

	return issues, rows.Err()
}

// IssueLabelNames returns the label names attached to one issue
func (tx *Tx) IssueLabelNames(repoID int64, number int) ([]string, error) {
	rows, err := tx.Query(`
		SELECT labels.name FROM issue_labels
		JOIN labels ON issue_labels.label_id = labels.id
		WHERE issue_labels.repo_id = ? AND issue_labels.issue_number = ?
		ORDER BY labels.name`, repoID, number)
	if err != nil {
		return nil, fmt.Errorf("failed to query labels of issue #%d: %w", number, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan label row: %w", err)
		}
		names = append(names, name)
	}

	return names, rows.Err()
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
