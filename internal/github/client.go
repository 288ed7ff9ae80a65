package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	apierrors "github.com/labelfeed/github-label-feed/internal/errors"
)

const (
	// DefaultEndpoint is the GitHub GraphQL API endpoint
	DefaultEndpoint = "https://api.github.com/graphql"

	// DefaultPageSize is the number of nodes requested per page
	DefaultPageSize = 50

	userAgent      = "github.com/labelfeed/github-label-feed"
	requestTimeout = 60 * time.Second

	// maxResponseSize caps how much of a response body is read (10MB)
	maxResponseSize = 10 * 1024 * 1024
)

const issuesQuery = `
query($owner: String!, $name: String!, $first: Int!, $since: DateTime, $after: String) {
  repository(owner: $owner, name: $name) {
    issues(first: $first, after: $after, orderBy: {field: UPDATED_AT, direction: ASC}, filterBy: {since: $since}) {
      pageInfo { hasNextPage }
      edges {
        cursor
        node {
          number
          state
          title
          bodyHTML
          url
          updatedAt
          author { login }
          labels(first: 100) { edges { node { name } } }
        }
      }
    }
  }
}`

const labelsQuery = `
query($owner: String!, $name: String!, $first: Int!, $after: String) {
  repository(owner: $owner, name: $name) {
    labels(first: $first, after: $after) {
      pageInfo { hasNextPage }
      edges {
        cursor
        node { name }
      }
    }
  }
}`

// Client talks to the GitHub GraphQL API. Responses are decoded from the
// raw JSON envelope so that a single malformed node can be skipped without
// discarding the rest of the page, and so that response-embedded errors can
// be logged while the data portion is still processed.
type Client struct {
	http     *http.Client
	endpoint string
	pageSize int
	log      *logrus.Entry

	retrySchedule []time.Duration
	sleep         func(ctx context.Context, d time.Duration) error
}

// NewClient creates a new GraphQL client authenticated with the given token
func NewClient(token, endpoint string, pageSize int, log *logrus.Entry) *Client {
	src := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	httpClient := oauth2.NewClient(context.Background(), src)
	httpClient.Timeout = requestTimeout

	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	return &Client{
		http:          httpClient,
		endpoint:      endpoint,
		pageSize:      pageSize,
		log:           log,
		retrySchedule: RetrySchedule,
		sleep:         sleepContext,
	}
}

// graphqlRequest is the POST body of a GraphQL call
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// graphqlResponse is the top-level response envelope. Data is kept raw so
// each query can decode its own shape.
type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors"`
}

type graphqlError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// edge is one entry of a connection. The node stays raw so a malformed one
// can be skipped on its own.
type edge struct {
	Cursor string          `json:"cursor"`
	Node   json.RawMessage `json:"node"`
}

type connection struct {
	PageInfo struct {
		HasNextPage bool `json:"hasNextPage"`
	} `json:"pageInfo"`
	Edges []edge `json:"edges"`
}

// FetchIssues fetches one page of issues updated at or after since,
// continuing from cursor. Pass since == "" for a full resync and
// cursor == "" for the first page.
func (c *Client) FetchIssues(ctx context.Context, owner, name, since, cursor string) (*IssuePage, error) {
	variables := map[string]any{
		"owner": owner,
		"name":  name,
		"first": c.pageSize,
	}
	if since != "" {
		variables["since"] = since
	}
	if cursor != "" {
		variables["after"] = cursor
	}

	var data struct {
		Repository *struct {
			Issues connection `json:"issues"`
		} `json:"repository"`
	}
	if err := c.query(ctx, issuesQuery, variables, &data); err != nil {
		return nil, err
	}
	if data.Repository == nil {
		return nil, fmt.Errorf("repository %s/%s: %w", owner, name, apierrors.ErrRepoNotFound)
	}

	conn := data.Repository.Issues
	page := &IssuePage{
		HasNextPage: conn.PageInfo.HasNextPage,
		Issues:      make([]IssueNode, 0, len(conn.Edges)),
	}

	for _, e := range conn.Edges {
		page.EndCursor = e.Cursor

		var node struct {
			Number    *int   `json:"number"`
			State     string `json:"state"`
			Title     string `json:"title"`
			BodyHTML  string `json:"bodyHTML"`
			URL       string `json:"url"`
			UpdatedAt string `json:"updatedAt"`
			Author    *struct {
				Login string `json:"login"`
			} `json:"author"`
			Labels struct {
				Edges []struct {
					Node *struct {
						Name string `json:"name"`
					} `json:"node"`
				} `json:"edges"`
			} `json:"labels"`
		}
		if err := json.Unmarshal(e.Node, &node); err != nil {
			c.log.WithError(err).Warn("Skipping malformed issue node")
			continue
		}
		if node.Number == nil {
			c.log.Warn("Skipping issue node without number")
			continue
		}

		issue := IssueNode{
			Number:    *node.Number,
			State:     node.State,
			Title:     node.Title,
			Body:      node.BodyHTML,
			URL:       node.URL,
			UpdatedAt: node.UpdatedAt,
		}
		if node.Author != nil {
			issue.AuthorLogin = node.Author.Login
		}
		for _, le := range node.Labels.Edges {
			if le.Node != nil {
				issue.Labels = append(issue.Labels, le.Node.Name)
			}
		}

		page.Issues = append(page.Issues, issue)
	}

	return page, nil
}

// FetchLabels fetches one page of the repository's labels, continuing from
// cursor. Pass cursor == "" for the first page.
func (c *Client) FetchLabels(ctx context.Context, owner, name, cursor string) (*LabelPage, error) {
	variables := map[string]any{
		"owner": owner,
		"name":  name,
		"first": c.pageSize,
	}
	if cursor != "" {
		variables["after"] = cursor
	}

	var data struct {
		Repository *struct {
			Labels *connection `json:"labels"`
		} `json:"repository"`
	}
	if err := c.query(ctx, labelsQuery, variables, &data); err != nil {
		return nil, err
	}
	if data.Repository == nil {
		return nil, fmt.Errorf("repository %s/%s: %w", owner, name, apierrors.ErrRepoNotFound)
	}
	if data.Repository.Labels == nil {
		return &LabelPage{}, nil
	}

	conn := data.Repository.Labels
	page := &LabelPage{
		HasNextPage: conn.PageInfo.HasNextPage,
		Labels:      make([]LabelNode, 0, len(conn.Edges)),
	}

	for _, e := range conn.Edges {
		page.EndCursor = e.Cursor

		var node struct {
			Name *string `json:"name"`
		}
		if err := json.Unmarshal(e.Node, &node); err != nil {
			c.log.WithError(err).Warn("Skipping malformed label node")
			continue
		}
		if node.Name == nil {
			c.log.Warn("Skipping label node without name")
			continue
		}

		page.Labels = append(page.Labels, LabelNode{Name: *node.Name})
	}

	return page, nil
}

// query performs one retried GraphQL call and decodes the data portion into
// out. Errors embedded in an otherwise successful response are logged and
// do not block processing of the returned data.
func (c *Client) query(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to encode query: %w", err)
	}

	resp, err := c.doWithRetry(ctx, body)
	if err != nil {
		return err
	}

	for _, gqlErr := range resp.Errors {
		c.log.WithField("type", gqlErr.Type).Error(gqlErr.Message)
	}

	if len(resp.Data) == 0 {
		return fmt.Errorf("response carries no data")
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}

	return nil
}

// do performs a single GraphQL POST without retries
func (c *Client) do(ctx context.Context, body []byte) (*graphqlResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	switch httpResp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, fmt.Errorf("authentication failed, provide a valid token via the token argument or GITHUB_TOKEN: %w", apierrors.ErrInvalidToken)
	case http.StatusNotFound:
		return nil, apierrors.ErrRepoNotFound
	case http.StatusForbidden, http.StatusTooManyRequests:
		return nil, apierrors.ErrRateLimit
	default:
		return nil, fmt.Errorf("unexpected status %s", httpResp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp graphqlResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &resp, nil
}

// sleepContext sleeps for d unless the context is cancelled first
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
