// Package fetcher provides full-article content extraction for feed items
// whose summaries are too thin for reliable similarity scoring.
package fetcher

import "errors"

var (
	// ErrInvalidURL means the URL failed validation before any request.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrPrivateIP means the hostname resolves to a private address.
	ErrPrivateIP = errors.New("URL resolves to private IP")

	// ErrTooManyRedirects means the redirect limit was exceeded.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrTimeout means the per-request timeout elapsed.
	ErrTimeout = errors.New("content fetch timeout")

	// ErrBodyTooLarge means the response exceeded the size limit.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrExtractionFailed means no readable article text could be pulled
	// from the page by any strategy.
	ErrExtractionFailed = errors.New("content extraction failed")
)
