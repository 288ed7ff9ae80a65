package feed

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/labelfeed/github-label-feed/internal/db"
	"github.com/labelfeed/github-label-feed/internal/models"
)

// Options selects what Generate emits
type Options struct {
	// OutPath is the directory feeds are written under, one subdirectory
	// per label.
	OutPath string
	// Labels restricts generation to the given label names. Empty means
	// all labels stored for the repository.
	Labels []string
	// WithoutOpen and WithoutClosed exclude issues by state
	WithoutOpen   bool
	WithoutClosed bool
	// Atom and RSS select the output formats
	Atom bool
	RSS  bool
}

// entry is one issue prepared for serialization. All fields are unescaped;
// the writers escape at embedding time.
type entry struct {
	Title      string
	URL        string
	Updated    time.Time
	Author     string
	Categories []string
	Body       string
}

// Projector reads the store and writes syndication documents to disk
type Projector struct {
	tx  *db.Tx
	log *logrus.Entry

	now func() time.Time
}

// New creates a new projector
func New(tx *db.Tx, log *logrus.Entry) *Projector {
	return &Projector{tx: tx, log: log, now: time.Now}
}

// Generate writes the selected feeds for owner/name under opts.OutPath
func (p *Projector) Generate(owner, name string, opts Options) error {
	repoID, err := p.tx.RepoID(owner, name)
	if err != nil {
		return err
	}

	labels := opts.Labels
	if len(labels) == 0 {
		labels, err = p.tx.LabelNames(repoID)
		if err != nil {
			return err
		}
	}

	for _, label := range labels {
		if err := p.generateLabel(repoID, owner, name, label, opts); err != nil {
			return fmt.Errorf("failed to generate feed for label %q: %w", label, err)
		}
	}

	return nil
}

// generateLabel writes the feed documents of one label
func (p *Projector) generateLabel(repoID int64, owner, name, label string, opts Options) error {
	dir := filepath.Join(opts.OutPath, escapePath(label))
	p.log.WithField("dir", dir).Info("Generating feeds")

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create feed directory: %w", err)
	}

	issues, err := p.tx.IssuesForLabel(repoID, label, !opts.WithoutOpen, !opts.WithoutClosed)
	if err != nil {
		return err
	}

	entries := make([]entry, 0, len(issues))
	for i := range issues {
		e, err := p.issueEntry(&issues[i])
		if err != nil {
			return err
		}
		entries = append(entries, e)
	}

	labelURL := labelListingURL(owner, name, label)

	if opts.Atom {
		if err := p.writeDocument(filepath.Join(dir, "atom.xml"), func(w io.Writer) error {
			return writeAtom(w, label, labelURL, p.now().UTC(), entries)
		}); err != nil {
			return err
		}
	}

	if opts.RSS {
		if err := p.writeDocument(filepath.Join(dir, "rss.xml"), func(w io.Writer) error {
			return writeRSS(w, label, labelURL, p.now().UTC(), entries)
		}); err != nil {
			return err
		}
	}

	return nil
}

// issueEntry projects one stored issue into an entry. The category set is
// the state name (when the state has one) followed by the issue's labels.
func (p *Projector) issueEntry(issue *models.Issue) (entry, error) {
	labels, err := p.tx.IssueLabelNames(issue.RepoID, issue.Number)
	if err != nil {
		return entry{}, err
	}

	var categories []string
	if state := issue.State.String(); state != "" {
		categories = append(categories, state)
	}
	categories = append(categories, labels...)

	return entry{
		Title:      issue.Title,
		URL:        issue.URL,
		Updated:    time.Unix(issue.UpdatedAt, 0).UTC(),
		Author:     issue.AuthorLogin,
		Categories: categories,
		Body:       issue.Body,
	}, nil
}

// writeDocument writes one document through fn, creating path
func (p *Projector) writeDocument(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := fn(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return f.Close()
}

// labelListingURL is the canonical GitHub URL of the label's issue listing
func labelListingURL(owner, name, label string) string {
	u := url.URL{
		Scheme: "https",
		Host:   "github.com",
		Path:   "/" + owner + "/" + name + "/labels/" + label,
	}
	return u.String()
}

// profileURL is the canonical GitHub URL of a user profile
func profileURL(login string) string {
	return "https://github.com/" + login
}
