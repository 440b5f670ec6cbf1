// Package browser drives a headless Chrome for QA runs. The Engine/Session/Page
// contract is the only surface the QA executor sees; RodEngine implements it
// with go-rod.
package browser

import (
	"context"
	"errors"
	"time"
)

// ErrElementNotFound is returned when a selector matches nothing.
var ErrElementNotFound = errors.New("element not found")

// Engine starts isolated browser sessions.
type Engine interface {
	Launch(ctx context.Context) (Session, error)
}

// Session is one isolated browsing context. Close must be safe to call more
// than once.
type Session interface {
	Open(ctx context.Context, url string, timeout time.Duration) (Page, error)
	Close() error
}

// Page is a loaded document.
type Page interface {
	// Locate finds the first element matching selector without waiting.
	Locate(ctx context.Context, selector string) (Element, bool, error)
	ComputedStyle(ctx context.Context, el Element) (Style, error)
	// Text returns the textContent of the first element matching selector.
	Text(ctx context.Context, selector string) (string, error)
	Click(ctx context.Context, selector string) error
}

// Element is an opaque handle returned by Page.Locate.
type Element interface {
	Selector() string
}

// Style is the subset of computed style that check_style compares against.
type Style struct {
	BackgroundColor string `json:"backgroundColor"`
	Color           string `json:"color"`
	FontSize        string `json:"fontSize"`
}
