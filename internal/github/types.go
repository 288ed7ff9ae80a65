package github

// IssueNode is one issue as reported by the remote, decoded and validated
// at the API boundary. UpdatedAt stays a string here; the sync controller
// parses it and treats a malformed value as fatal.
type IssueNode struct {
	Number      int
	State       string
	Title       string
	Body        string
	URL         string
	UpdatedAt   string
	AuthorLogin string
	Labels      []string
}

// IssuePage is one page of the paginated issues query
type IssuePage struct {
	HasNextPage bool
	// EndCursor is the cursor of the last edge on the page, replayed
	// verbatim as the `after` variable of the next call. It is opaque:
	// never parsed or compared.
	EndCursor string
	Issues    []IssueNode
}

// LabelNode is one label as reported by the remote
type LabelNode struct {
	Name string
}

// LabelPage is one page of the paginated labels query
type LabelPage struct {
	HasNextPage bool
	EndCursor   string
	Labels      []LabelNode
}
