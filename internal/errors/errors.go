// Package errors defines sentinel errors for consistent error handling
// across the application. They map to specific exit codes in the CLI so
// scripts can distinguish failure modes.
package errors

import "errors"

var (
	// ErrInvalidToken indicates GitHub authentication failed.
	ErrInvalidToken = errors.New("invalid github token")

	// ErrRepoNotFound indicates the repository does not exist or is not accessible.
	ErrRepoNotFound = errors.New("repository not found")

	// ErrNetworkFailure indicates the retry schedule was exhausted without a
	// successful response.
	ErrNetworkFailure = errors.New("network connection failed")

	// ErrRateLimit indicates the GitHub API rate limit has been exceeded.
	ErrRateLimit = errors.New("github rate limit exceeded")
)
