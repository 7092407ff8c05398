package rod

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/minhvn/lacefarm/internal/ports"
)

type env struct {
	browser *rod.Browser
	launch  *launcher.Launcher
	cfg     Config
}

var _ ports.Env = (*env)(nil)

func (e *env) OpenPage(ctx context.Context, url string) (ports.Page, error) {
	p, err := e.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}

	err = rod.Try(func() {
		p.MustSetViewport(e.cfg.ViewportWidth, e.cfg.ViewportHeight, 1.0, false)
	})
	if err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("set viewport: %w", err)
	}

	return &page{page: p, navTimeout: e.cfg.NavigationTimeout}, nil
}

func (e *env) Pages(ctx context.Context) ([]ports.Page, error) {
	open, err := e.browser.Context(ctx).Pages()
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}

	pages := make([]ports.Page, 0, len(open))
	for _, p := range open {
		pages = append(pages, &page{page: p, navTimeout: e.cfg.NavigationTimeout})
	}

	return pages, nil
}

func (e *env) Close() error {
	err := e.browser.Close()
	e.launch.Kill()
	if err != nil {
		return fmt.Errorf("close browser: %w", err)
	}
	return nil
}
