package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/labelfeed/github-label-feed/internal/db"
	"github.com/labelfeed/github-label-feed/internal/github"
	"github.com/labelfeed/github-label-feed/internal/models"
)

// ghostLogin substitutes for issues whose author no longer exists
const ghostLogin = "ghost"

// Source yields pages from the remote issue tracker. Satisfied by
// *github.Client; tests substitute a fake.
type Source interface {
	FetchIssues(ctx context.Context, owner, name, since, cursor string) (*github.IssuePage, error)
	FetchLabels(ctx context.Context, owner, name, cursor string) (*github.LabelPage, error)
}

// Syncer mirrors a repository's labels and issues into the local store.
// It is strictly sequential: one page at a time, one node at a time.
type Syncer struct {
	source Source
	log    *logrus.Entry
}

// New creates a new syncer
func New(source Source, log *logrus.Entry) *Syncer {
	return &Syncer{source: source, log: log}
}

// SyncRepository mirrors owner/name into the store. The caller provides the
// enclosing transaction: any error aborts the whole sync with no partial
// commit. Labels are synced before issues so that associations can resolve
// freshly created names.
func (s *Syncer) SyncRepository(ctx context.Context, tx *db.Tx, owner, name string) error {
	if err := s.syncLabels(ctx, tx, owner, name); err != nil {
		return fmt.Errorf("failed to update labels: %w", err)
	}
	if err := s.syncIssues(ctx, tx, owner, name); err != nil {
		return fmt.Errorf("failed to update issues: %w", err)
	}
	return nil
}

// syncLabels fetches the full label list and inserts names not stored yet.
// There is no watermark for labels, and stored labels are never pruned.
func (s *Syncer) syncLabels(ctx context.Context, tx *db.Tx, owner, name string) error {
	repoID, err := tx.RepoID(owner, name)
	if err != nil {
		return err
	}

	cursor := ""
	for {
		page, err := s.source.FetchLabels(ctx, owner, name, cursor)
		if err != nil {
			return err
		}

		for _, label := range page.Labels {
			s.log.WithField("label", label.Name).Debug("Storing label")
			if err := tx.InsertLabel(repoID, label.Name); err != nil {
				return err
			}
		}

		if !page.HasNextPage || len(page.Labels) == 0 {
			return nil
		}
		cursor = page.EndCursor
	}
}

// syncIssues mirrors all issues updated since the stored watermark
func (s *Syncer) syncIssues(ctx context.Context, tx *db.Tx, owner, name string) error {
	repoID, err := tx.RepoID(owner, name)
	if err != nil {
		return err
	}

	since := ""
	if ts, ok, err := tx.LastUpdated(repoID); err != nil {
		return err
	} else if ok {
		since = time.Unix(ts, 0).UTC().Format(time.RFC3339)
	}

	s.log.WithFields(logrus.Fields{
		"repo":  owner + "/" + name,
		"since": since,
	}).Info("Syncing issues")

	cursor := ""
	for {
		page, err := s.source.FetchIssues(ctx, owner, name, since, cursor)
		if err != nil {
			return err
		}

		for i := range page.Issues {
			if err := s.storeIssue(tx, repoID, &page.Issues[i]); err != nil {
				return err
			}
		}

		if !page.HasNextPage || len(page.Issues) == 0 {
			return nil
		}
		cursor = page.EndCursor
	}
}

// storeIssue replaces one issue row and its label associations
func (s *Syncer) storeIssue(tx *db.Tx, repoID int64, node *github.IssueNode) error {
	s.log.WithField("number", node.Number).Debug("Storing issue")

	// A timestamp the remote can't format is protocol drift, not a
	// transient failure: abort the sync.
	updated, err := time.Parse(time.RFC3339, node.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to parse updatedAt of issue #%d: %w", node.Number, err)
	}

	author := node.AuthorLogin
	if author == "" {
		author = ghostLogin
	}

	issue := &models.Issue{
		RepoID:      repoID,
		Number:      node.Number,
		State:       models.ParseIssueState(node.State),
		Title:       node.Title,
		Body:        node.Body,
		AuthorLogin: author,
		URL:         node.URL,
		UpdatedAt:   updated.Unix(),
	}
	if err := tx.UpsertIssue(issue); err != nil {
		return err
	}

	return tx.ReplaceIssueLabels(repoID, node.Number, node.Labels)
}

// ParseRepositoryString parses a repository string in the format "owner/name"
func ParseRepositoryString(repoStr string) (string, string, error) {
	parts := strings.Split(repoStr, "/")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid repository format, expected 'owner/name', got '%s'", repoStr)
	}

	owner := strings.TrimSpace(parts[0])
	name := strings.TrimSpace(parts[1])
	if owner == "" || name == "" {
		return "", "", fmt.Errorf("invalid repository format, expected 'owner/name', got '%s'", repoStr)
	}

	return owner, name, nil
}
