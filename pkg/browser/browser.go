// Package browser defines the browser automation capability the crawler
// drives, plus a chromedp-backed implementation.
//
// Callers only see opaque Element handles and selector strings. How a
// selector resolves is up to the implementation; the crawl logic never
// inspects selector syntax.
package browser

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrElementNotFound is returned when a selector matches nothing.
	ErrElementNotFound = errors.New("element not found")
	// ErrWaitTimeout is returned when WaitUntilPresent gives up.
	ErrWaitTimeout = errors.New("timed out waiting for element")
	// ErrStaleElement is returned for handles from a page that is no longer loaded.
	ErrStaleElement = errors.New("stale element")
	// ErrAttributeMissing is returned when an element lacks the requested attribute.
	ErrAttributeMissing = errors.New("attribute not present")
)

// Element is an opaque handle to a node of the current page. Only the
// Browser that returned it can interpret it.
type Element interface{}

// Browser is a single automated browser tab. Exactly one call may be in
// flight at a time.
type Browser interface {
	Navigate(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)
	Back(ctx context.Context) error

	// Find returns the first match or ErrElementNotFound. It does not wait.
	Find(ctx context.Context, selector string) (Element, error)
	// FindAll returns every match in document order, possibly none.
	FindAll(ctx context.Context, selector string) ([]Element, error)
	FindIn(ctx context.Context, parent Element, selector string) (Element, error)
	FindAllIn(ctx context.Context, parent Element, selector string) ([]Element, error)

	Click(ctx context.Context, selector string) error
	ClickElement(ctx context.Context, el Element) error
	// TypeText clears the matched input and types text into it.
	TypeText(ctx context.Context, selector, text string) error

	ScrollToBottom(ctx context.Context) error
	ScrollBy(ctx context.Context, pixels int) error

	ReadText(ctx context.Context, el Element) (string, error)
	ReadAttribute(ctx context.Context, el Element, name string) (string, error)

	// WaitUntilPresent blocks until selector matches or timeout elapses.
	WaitUntilPresent(ctx context.Context, selector string, timeout time.Duration) error

	Close() error
}
