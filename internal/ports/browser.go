package ports

import (
	"context"
	"fmt"
	"time"

	"github.com/minhvn/lacefarm/internal/domain"
)

// Browser provisions isolated execution environments, one per session.
type Browser interface {
	// Provision creates a fresh environment for the session. Any
	// pre-existing profile for the same id is destroyed first.
	Provision(ctx context.Context, id domain.SessionID) (Env, error)
}

// Env is the live, in-memory-only handle to one session's browser
// context. It is owned by the lifecycle controller while the session
// runs and is never persisted.
type Env interface {
	OpenPage(ctx context.Context, url string) (Page, error)
	Pages(ctx context.Context) ([]Page, error)
	Close() error
}

// Page is one window or tab inside an environment.
type Page interface {
	URL() string
	// Navigate loads the url and returns the HTTP status of the main
	// document response.
	Navigate(ctx context.Context, url string) (int, error)
	// Find locates the first element matching loc. A non-positive
	// timeout means a single immediate lookup. Absence is reported as
	// domain.ErrElementNotFound.
	Find(ctx context.Context, loc Locator, timeout time.Duration) (Element, error)
	FindAll(ctx context.Context, loc Locator) ([]Element, error)
	// HasText reports whether the rendered page text contains the
	// given marker, case-insensitively.
	HasText(ctx context.Context, text string) (bool, error)
	Close() error
}

type Element interface {
	Click(ctx context.Context) error
	Fill(ctx context.Context, value string) error
	Text(ctx context.Context) (string, error)
	Enabled(ctx context.Context) (bool, error)
	Checked(ctx context.Context) (bool, error)
}

// Locator addresses an element by CSS selector and, optionally, by its
// visible text.
type Locator struct {
	Selector string
	Text     string
}

func BySelector(selector string) Locator {
	return Locator{Selector: selector}
}

func ByText(selector, text string) Locator {
	return Locator{Selector: selector, Text: text}
}

func (l Locator) String() string {
	if l.Text == "" {
		return l.Selector
	}
	return fmt.Sprintf("%s[text=%q]", l.Selector, l.Text)
}
