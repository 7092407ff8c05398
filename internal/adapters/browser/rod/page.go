package rod

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/minhvn/lacefarm/internal/domain"
	"github.com/minhvn/lacefarm/internal/ports"
)

type page struct {
	page       *rod.Page
	navTimeout time.Duration
}

var _ ports.Page = (*page)(nil)

func (p *page) URL() string {
	var url string
	err := rod.Try(func() {
		url = p.page.MustInfo().URL
	})
	if err != nil {
		return ""
	}
	return url
}

// Navigate loads url and reports the status of the final main document
// response, which is how the target site signals rate limiting. The
// whole navigation, event wait included, runs under the driver's
// navigation timeout; a site that accepts the connection but never
// finishes loading must not wedge the session's worker.
func (p *page) Navigate(ctx context.Context, url string) (int, error) {
	pg := p.page.Context(ctx)
	if p.navTimeout > 0 {
		pg = pg.Timeout(p.navTimeout)
	}

	var status int
	wait := pg.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type != proto.NetworkResourceTypeDocument {
			return false
		}
		status = e.Response.Status
		return !redirectStatus(status)
	})

	if err := pg.Navigate(url); err != nil {
		return 0, fmt.Errorf("navigate to %s: %w", url, err)
	}
	wait()

	if err := pg.WaitLoad(); err != nil {
		return status, fmt.Errorf("wait for %s to load: %w", url, err)
	}

	return status, nil
}

func (p *page) Find(ctx context.Context, loc ports.Locator, timeout time.Duration) (ports.Element, error) {
	pg := p.page.Context(ctx)
	if timeout > 0 {
		pg = pg.Timeout(timeout)
	} else {
		pg = pg.Sleeper(rod.NotFoundSleeper)
	}

	var el *rod.Element
	err := rod.Try(func() {
		if loc.Text != "" {
			el = pg.MustElementR(loc.Selector, textPattern(loc.Text))
		} else {
			el = pg.MustElement(loc.Selector)
		}
	})
	if err != nil {
		var notFound *rod.ElementNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", domain.ErrElementNotFound, loc)
		}
		return nil, fmt.Errorf("find %s: %w", loc, err)
	}

	return &element{el: el}, nil
}

func (p *page) FindAll(ctx context.Context, loc ports.Locator) ([]ports.Element, error) {
	pg := p.page.Context(ctx)

	var els rod.Elements
	err := rod.Try(func() {
		els = pg.MustElements(loc.Selector)
	})
	if err != nil {
		return nil, fmt.Errorf("find all %s: %w", loc, err)
	}

	elements := make([]ports.Element, 0, len(els))
	for _, el := range els {
		elements = append(elements, &element{el: el})
	}

	return elements, nil
}

func (p *page) HasText(ctx context.Context, text string) (bool, error) {
	pg := p.page.Context(ctx)

	var body string
	err := rod.Try(func() {
		body = pg.MustEval(`() => document.body ? document.body.innerText : ""`).Str()
	})
	if err != nil {
		return false, fmt.Errorf("read page text: %w", err)
	}

	return strings.Contains(strings.ToLower(body), strings.ToLower(text)), nil
}

func (p *page) Close() error {
	return p.page.Close()
}

// redirectStatus reports whether status is an intermediate redirect
// hop rather than the final document response.
func redirectStatus(status int) bool {
	return status >= 300 && status < 400
}

// textPattern builds the case-insensitive regex ElementR expects.
func textPattern(text string) string {
	escaped := strings.NewReplacer(
		`\`, `\\`, `(`, `\(`, `)`, `\)`, `[`, `\[`, `]`, `\]`,
		`.`, `\.`, `+`, `\+`, `*`, `\*`, `?`, `\?`, `$`, `\$`, `^`, `\^`,
	).Replace(text)
	return fmt.Sprintf("/%s/i", escaped)
}

type element struct {
	el *rod.Element
}

var _ ports.Element = (*element)(nil)

func (e *element) Click(ctx context.Context) error {
	err := rod.Try(func() {
		e.el.Context(ctx).MustClick()
	})
	if err != nil {
		return fmt.Errorf("click element: %w", err)
	}
	return nil
}

func (e *element) Fill(ctx context.Context, value string) error {
	err := rod.Try(func() {
		el := e.el.Context(ctx)
		el.MustSelectAllText().MustInput(value)
	})
	if err != nil {
		return fmt.Errorf("fill element: %w", err)
	}
	return nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	var text string
	err := rod.Try(func() {
		text = e.el.Context(ctx).MustText()
	})
	if err != nil {
		return "", fmt.Errorf("read element text: %w", err)
	}
	return text, nil
}

func (e *element) Enabled(ctx context.Context) (bool, error) {
	var disabled bool
	err := rod.Try(func() {
		disabled = e.el.Context(ctx).MustProperty("disabled").Bool()
	})
	if err != nil {
		return false, fmt.Errorf("read element disabled state: %w", err)
	}
	return !disabled, nil
}

func (e *element) Checked(ctx context.Context) (bool, error) {
	var checked bool
	err := rod.Try(func() {
		checked = e.el.Context(ctx).MustProperty("checked").Bool()
	})
	if err != nil {
		return false, fmt.Errorf("read element checked state: %w", err)
	}
	return checked, nil
}
