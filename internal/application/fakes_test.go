package application

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/minhvn/lacefarm/internal/domain"
	"github.com/minhvn/lacefarm/internal/ports"
)

type fakeElement struct {
	mu      sync.Mutex
	absent  bool
	text    string
	enabled bool
	checked bool
	clicks  int
	fills   []string
	onClick func()
}

func newFakeElement() *fakeElement {
	return &fakeElement{enabled: true}
}

func (e *fakeElement) Click(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clicks++
	if e.onClick != nil {
		e.onClick()
	}
	return nil
}

func (e *fakeElement) Fill(_ context.Context, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fills = append(e.fills, value)
	return nil
}

func (e *fakeElement) Text(context.Context) (string, error) {
	return e.text, nil
}

func (e *fakeElement) Enabled(context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled, nil
}

func (e *fakeElement) Checked(context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.checked, nil
}

func (e *fakeElement) clickCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clicks
}

func (e *fakeElement) gone() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.absent = true
}

type fakePage struct {
	mu        sync.Mutex
	url       string
	navStatus int
	navErr    error
	elements  map[string]*fakeElement
	lists     map[string][]*fakeElement
	bodyText  string
	closed    bool
}

func newFakePage(url string) *fakePage {
	return &fakePage{
		url:       url,
		navStatus: 200,
		elements:  make(map[string]*fakeElement),
		lists:     make(map[string][]*fakeElement),
	}
}

func (p *fakePage) put(loc ports.Locator) *fakeElement {
	el := newFakeElement()
	p.elements[loc.String()] = el
	return el
}

func (p *fakePage) putList(loc ports.Locator, texts ...string) []*fakeElement {
	els := make([]*fakeElement, 0, len(texts))
	for _, text := range texts {
		el := newFakeElement()
		el.text = text
		els = append(els, el)
	}
	p.lists[loc.String()] = els
	return els
}

func (p *fakePage) URL() string { return p.url }

func (p *fakePage) Navigate(_ context.Context, url string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.navErr != nil {
		return 0, p.navErr
	}
	p.url = url
	return p.navStatus, nil
}

func (p *fakePage) Find(_ context.Context, loc ports.Locator, _ time.Duration) (ports.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	el, ok := p.elements[loc.String()]
	if !ok || el.absent {
		return nil, domain.ErrElementNotFound
	}
	return el, nil
}

func (p *fakePage) FindAll(_ context.Context, loc ports.Locator) ([]ports.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	els := p.lists[loc.String()]
	out := make([]ports.Element, 0, len(els))
	for _, el := range els {
		out = append(out, el)
	}
	return out, nil
}

func (p *fakePage) HasText(_ context.Context, text string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return strings.Contains(strings.ToLower(p.bodyText), strings.ToLower(text)), nil
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

type fakeEnv struct {
	mu       sync.Mutex
	byURL    map[string]*fakePage
	popups   []*fakePage
	opened   []string
	closed   bool
	closeErr error
}

func newFakeEnv() *fakeEnv {
	return &fakeEnv{byURL: make(map[string]*fakePage)}
}

func (e *fakeEnv) page(url string) *fakePage {
	page := newFakePage(url)
	e.byURL[url] = page
	return page
}

func (e *fakeEnv) popup(url string) *fakePage {
	page := newFakePage(url)
	e.popups = append(e.popups, page)
	return page
}

func (e *fakeEnv) OpenPage(_ context.Context, url string) (ports.Page, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opened = append(e.opened, url)
	if page, ok := e.byURL[url]; ok {
		return page, nil
	}
	page := newFakePage(url)
	e.byURL[url] = page
	return page, nil
}

func (e *fakeEnv) Pages(context.Context) ([]ports.Page, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var pages []ports.Page
	for _, page := range e.byURL {
		pages = append(pages, page)
	}
	for _, page := range e.popups {
		pages = append(pages, page)
	}
	return pages, nil
}

func (e *fakeEnv) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return e.closeErr
}

type fakeBrowser struct {
	mu       sync.Mutex
	envs     map[domain.SessionID]*fakeEnv
	err      error
	sessions []domain.SessionID
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{envs: make(map[domain.SessionID]*fakeEnv)}
}

func (b *fakeBrowser) Provision(_ context.Context, id domain.SessionID) (ports.Env, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	b.sessions = append(b.sessions, id)
	env, ok := b.envs[id]
	if !ok {
		env = newFakeEnv()
		b.envs[id] = env
	}
	return env, nil
}

type fakeVault struct {
	mu          sync.Mutex
	phrases     map[domain.SessionID]string
	credentials map[domain.SessionID]domain.Credential
	archived    map[domain.SessionID]int
}

func newFakeVault() *fakeVault {
	return &fakeVault{
		phrases:     make(map[domain.SessionID]string),
		credentials: make(map[domain.SessionID]domain.Credential),
		archived:    make(map[domain.SessionID]int),
	}
}

func (v *fakeVault) SavePhrase(_ context.Context, id domain.SessionID, phrase string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.phrases[id] = phrase
	return nil
}

func (v *fakeVault) SaveCredential(_ context.Context, id domain.SessionID, cred domain.Credential) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.credentials[id] = cred
	return nil
}

func (v *fakeVault) Credential(_ context.Context, id domain.SessionID) (domain.Credential, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	cred, ok := v.credentials[id]
	if !ok {
		return domain.Credential{}, domain.ErrCredentialNotFound
	}
	return cred, nil
}

func (v *fakeVault) Archive(_ context.Context, id domain.SessionID) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.archived[id]++
	return nil
}

type fakeRepo struct {
	mu       sync.Mutex
	sessions map[domain.SessionID]domain.Session
	saves    int
	loadErr  error
	saveErr  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{sessions: make(map[domain.SessionID]domain.Session)}
}

func (r *fakeRepo) Load(context.Context) (map[domain.SessionID]domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	out := make(map[domain.SessionID]domain.Session, len(r.sessions))
	for id, session := range r.sessions {
		out[id] = session
	}
	return out, nil
}

func (r *fakeRepo) Save(_ context.Context, sessions map[domain.SessionID]domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saves++
	r.sessions = make(map[domain.SessionID]domain.Session, len(sessions))
	for id, session := range sessions {
		r.sessions[id] = session
	}
	return nil
}

func (r *fakeRepo) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

type fakeClock struct {
	now time.Time
}

func (c fakeClock) Now() time.Time { return c.now }

// fakeRunner scripts per-session outcomes and records the order in
// which sessions ran.
type fakeRunner struct {
	mu       sync.Mutex
	outcomes map[domain.SessionID]RegistrationOutcome
	envs     map[domain.SessionID]ports.Env
	ran      []domain.SessionID
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		outcomes: make(map[domain.SessionID]RegistrationOutcome),
		envs:     make(map[domain.SessionID]ports.Env),
	}
}

func (r *fakeRunner) succeed(id domain.SessionID) {
	r.outcomes[id] = RegistrationOutcome{Result: RegistrationDone}
	r.envs[id] = newFakeEnv()
}

func (r *fakeRunner) fail(id domain.SessionID, cause string) {
	r.outcomes[id] = RegistrationOutcome{Result: RegistrationFailed, Cause: cause}
}

func (r *fakeRunner) Run(_ context.Context, id domain.SessionID, _ string) (ports.Env, RegistrationOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ran = append(r.ran, id)
	outcome, ok := r.outcomes[id]
	if !ok {
		outcome = RegistrationOutcome{Result: RegistrationDone}
	}
	return r.envs[id], outcome
}

func (r *fakeRunner) runs() []domain.SessionID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.SessionID, len(r.ran))
	copy(out, r.ran)
	return out
}
