package sync

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labelfeed/github-label-feed/internal/db"
	"github.com/labelfeed/github-label-feed/internal/github"
	"github.com/labelfeed/github-label-feed/internal/models"
)

// fakeSource serves canned pages and records the queries it saw
type fakeSource struct {
	issuePages []*github.IssuePage
	labelPages []*github.LabelPage

	issueCalls  int
	labelCalls  int
	sinceSeen   []string
	cursorsSeen []string
}

func (f *fakeSource) FetchIssues(ctx context.Context, owner, name, since, cursor string) (*github.IssuePage, error) {
	f.sinceSeen = append(f.sinceSeen, since)
	f.cursorsSeen = append(f.cursorsSeen, cursor)
	page := f.issuePages[f.issueCalls]
	f.issueCalls++
	return page, nil
}

func (f *fakeSource) FetchLabels(ctx context.Context, owner, name, cursor string) (*github.LabelPage, error) {
	page := f.labelPages[f.labelCalls]
	f.labelCalls++
	return page, nil
}

func newTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, database.Initialize())
	return database
}

func newSyncer(source Source) *Syncer {
	logger, _ := logrustest.NewNullLogger()
	return New(source, logrus.NewEntry(logger))
}

func issueNode(number int, state, updatedAt, author string, labels ...string) github.IssueNode {
	return github.IssueNode{
		Number:      number,
		State:       state,
		Title:       "issue",
		Body:        "<p>body</p>",
		URL:         "https://github.com/acme/widgets/issues/1",
		UpdatedAt:   updatedAt,
		AuthorLogin: author,
		Labels:      labels,
	}
}

func labelPage(names ...string) *github.LabelPage {
	page := &github.LabelPage{}
	for _, name := range names {
		page.Labels = append(page.Labels, github.LabelNode{Name: name})
	}
	return page
}

func runSync(t *testing.T, database *db.DB, source Source) error {
	t.Helper()
	return database.WithTransaction(func(tx *db.Tx) error {
		return newSyncer(source).SyncRepository(context.Background(), tx, "acme", "widgets")
	})
}

func TestSyncStoresIssuesAndAssociations(t *testing.T) {
	database := newTestDB(t)
	source := &fakeSource{
		labelPages: []*github.LabelPage{labelPage("bug", "p1")},
		issuePages: []*github.IssuePage{{
			Issues: []github.IssueNode{
				issueNode(1, "OPEN", "2024-05-01T10:00:00Z", "alice", "bug"),
				issueNode(2, "CLOSED", "2024-05-02T10:00:00Z", "", "bug", "p1"),
			},
		}},
	}

	require.NoError(t, runSync(t, database, source))

	require.NoError(t, database.WithTransaction(func(tx *db.Tx) error {
		repoID, err := tx.RepoID("acme", "widgets")
		require.NoError(t, err)

		names, err := tx.IssueLabelNames(repoID, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"bug", "p1"}, names,
			"stored label set equals exactly what the remote reported")

		issues, err := tx.IssuesForLabel(repoID, "bug", true, true)
		require.NoError(t, err)
		require.Len(t, issues, 2)
		assert.Equal(t, "ghost", issues[0].AuthorLogin,
			"absent author resolves to the ghost placeholder")
		assert.Equal(t, models.StateClosed, issues[0].State)
		return nil
	}))
}

func TestSyncIdempotent(t *testing.T) {
	database := newTestDB(t)
	pages := func() *fakeSource {
		return &fakeSource{
			labelPages: []*github.LabelPage{labelPage("bug")},
			issuePages: []*github.IssuePage{{
				Issues: []github.IssueNode{issueNode(1, "OPEN", "2024-05-01T10:00:00Z", "alice", "bug")},
			}},
		}
	}

	require.NoError(t, runSync(t, database, pages()))

	var dump1 []models.Issue
	var labels1 []string
	require.NoError(t, database.WithTransaction(func(tx *db.Tx) error {
		repoID, _ := tx.RepoID("acme", "widgets")
		dump1, _ = tx.IssuesForLabel(repoID, "bug", true, true)
		labels1, _ = tx.LabelNames(repoID)
		return nil
	}))

	require.NoError(t, runSync(t, database, pages()))

	require.NoError(t, database.WithTransaction(func(tx *db.Tx) error {
		repoID, _ := tx.RepoID("acme", "widgets")
		dump2, _ := tx.IssuesForLabel(repoID, "bug", true, true)
		labels2, _ := tx.LabelNames(repoID)
		assert.Equal(t, dump1, dump2, "rerunning against unchanged remote state is a no-op")
		assert.Equal(t, labels1, labels2)
		return nil
	}))
}

func TestSyncPassesWatermarkAndCursors(t *testing.T) {
	database := newTestDB(t)

	first := &fakeSource{
		labelPages: []*github.LabelPage{labelPage()},
		issuePages: []*github.IssuePage{
			{
				HasNextPage: true,
				EndCursor:   "opaque-cursor-1",
				Issues:      []github.IssueNode{issueNode(1, "OPEN", "2024-05-01T10:00:00Z", "alice")},
			},
			{
				Issues: []github.IssueNode{issueNode(2, "OPEN", "2024-05-03T10:00:00Z", "alice")},
			},
		},
	}
	require.NoError(t, runSync(t, database, first))

	assert.Equal(t, []string{"", "opaque-cursor-1"}, first.cursorsSeen,
		"continuation cursor replayed verbatim")
	assert.Equal(t, []string{"", ""}, first.sinceSeen,
		"empty store means full resync without since")

	second := &fakeSource{
		labelPages: []*github.LabelPage{labelPage()},
		issuePages: []*github.IssuePage{{}},
	}
	require.NoError(t, runSync(t, database, second))

	require.Len(t, second.sinceSeen, 1)
	assert.Equal(t, "2024-05-03T10:00:00Z", second.sinceSeen[0],
		"watermark is the max stored updated_at")
}

func TestSyncStopsOnEmptyPage(t *testing.T) {
	database := newTestDB(t)
	source := &fakeSource{
		labelPages: []*github.LabelPage{labelPage()},
		// hasNextPage lies, but a page with zero nodes ends pagination
		issuePages: []*github.IssuePage{{HasNextPage: true, EndCursor: "c"}},
	}

	require.NoError(t, runSync(t, database, source))
	assert.Equal(t, 1, source.issueCalls)
}

func TestSyncMalformedTimestampFatal(t *testing.T) {
	database := newTestDB(t)
	source := &fakeSource{
		labelPages: []*github.LabelPage{labelPage()},
		issuePages: []*github.IssuePage{{
			Issues: []github.IssueNode{issueNode(1, "OPEN", "yesterday-ish", "alice")},
		}},
	}

	err := runSync(t, database, source)
	require.Error(t, err, "a timestamp the remote can't format is protocol drift")

	require.NoError(t, database.WithTransaction(func(tx *db.Tx) error {
		repos, err := tx.ListRepositories()
		require.NoError(t, err)
		assert.Empty(t, repos, "fatal errors abort the whole sync with no partial commit")
		return nil
	}))
}

func TestSyncUnknownLabelDropped(t *testing.T) {
	database := newTestDB(t)
	source := &fakeSource{
		labelPages: []*github.LabelPage{labelPage("bug")},
		issuePages: []*github.IssuePage{{
			Issues: []github.IssueNode{
				issueNode(1, "OPEN", "2024-05-01T10:00:00Z", "alice", "bug", "brand-new"),
			},
		}},
	}

	require.NoError(t, runSync(t, database, source))

	require.NoError(t, database.WithTransaction(func(tx *db.Tx) error {
		repoID, _ := tx.RepoID("acme", "widgets")
		names, err := tx.IssueLabelNames(repoID, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"bug"}, names,
			"a label name not yet known locally is dropped from the association")
		return nil
	}))
}

func TestSyncLabelsNeverPruned(t *testing.T) {
	database := newTestDB(t)

	first := &fakeSource{
		labelPages: []*github.LabelPage{labelPage("bug", "p1")},
		issuePages: []*github.IssuePage{{}},
	}
	require.NoError(t, runSync(t, database, first))

	second := &fakeSource{
		labelPages: []*github.LabelPage{labelPage("p1")},
		issuePages: []*github.IssuePage{{}},
	}
	require.NoError(t, runSync(t, database, second))

	require.NoError(t, database.WithTransaction(func(tx *db.Tx) error {
		repoID, _ := tx.RepoID("acme", "widgets")
		names, err := tx.LabelNames(repoID)
		require.NoError(t, err)
		assert.Equal(t, []string{"bug", "p1"}, names,
			"labels removed remotely persist locally")
		return nil
	}))
}

func TestParseRepositoryString(t *testing.T) {
	tests := []struct {
		in        string
		owner     string
		name      string
		expectErr bool
	}{
		{in: "acme/widgets", owner: "acme", name: "widgets"},
		{in: " acme / widgets ", owner: "acme", name: "widgets"},
		{in: "acme", expectErr: true},
		{in: "acme/widgets/extra", expectErr: true},
		{in: "/widgets", expectErr: true},
		{in: "", expectErr: true},
	}

	for _, tt := range tests {
		owner, name, err := ParseRepositoryString(tt.in)
		if tt.expectErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.owner, owner)
		assert.Equal(t, tt.name, name)
	}
}
