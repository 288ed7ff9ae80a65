package models

import "fmt"

// Repository represents a GitHub repository mirrored into the local store
type Repository struct {
	ID    int64
	Owner string
	Name  string
}

// RepositoryInfo is a repository together with counts derived from the store
type RepositoryInfo struct {
	Owner      string
	Name       string
	LabelCount int64
	IssueCount int64
}

// IssueState is the state of an issue as stored locally. The remote reports
// it as a string; anything unrecognized maps to StateOther so future remote
// values don't break syncs.
type IssueState int

const (
	StateOpen IssueState = iota
	StateClosed
	StateOther
)

// ParseIssueState maps the remote state string to the local enum
func ParseIssueState(s string) IssueState {
	switch s {
	case "OPEN":
		return StateOpen
	case "CLOSED":
		return StateClosed
	default:
		return StateOther
	}
}

// IssueStateFromInt decodes a stored state integer. An out-of-range value
// means the store is corrupted or was written by an incompatible version.
func IssueStateFromInt(i int64) (IssueState, error) {
	switch i {
	case 0:
		return StateOpen, nil
	case 1:
		return StateClosed, nil
	case 2:
		return StateOther, nil
	default:
		return 0, fmt.Errorf("invalid issue state %d in database", i)
	}
}

// String returns the feed category name for the state. StateOther has no
// category name and returns the empty string.
func (s IssueState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return ""
	}
}

// Issue represents a GitHub issue row. Each sync replaces the row wholesale.
type Issue struct {
	RepoID      int64
	Number      int
	State       IssueState
	Title       string
	Body        string
	AuthorLogin string
	URL         string
	UpdatedAt   int64
}

// Label represents a GitHub label scoped to a repository
type Label struct {
	ID     int64
	RepoID int64
	Name   string
}
