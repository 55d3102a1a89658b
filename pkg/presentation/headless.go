package presentation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/aretw0/lantern/internal/logging"
	"github.com/aretw0/lantern/internal/presentation/tui"
	"github.com/aretw0/lantern/pkg/domain"
	"github.com/aretw0/lantern/pkg/ports"
)

// ErrDismissed is returned when a dismissed package is used again.
var ErrDismissed = errors.New("package already dismissed")

// HeadlessOption configures a Headless builder.
type HeadlessOption func(*Headless)

// WithStyle selects the glamour style ("notty", "dark", "light", ...). Empty detects the terminal.
func WithStyle(style string) HeadlessOption {
	return func(h *Headless) {
		h.style = style
	}
}

// WithWordWrap sets the rendering width.
func WithWordWrap(width int) HeadlessOption {
	return func(h *Headless) {
		h.wordWrap = width
	}
}

// WithLogger sets the builder logger.
func WithLogger(logger *slog.Logger) HeadlessOption {
	return func(h *Headless) {
		h.logger = logger
	}
}

// Headless builds packages that render step content as markdown to a writer.
// Failures can be scripted to exercise error handling.
type Headless struct {
	out      io.Writer
	style    string
	wordWrap int
	logger   *slog.Logger
	render   func(string) (string, error)

	mu           sync.Mutex
	buildErrs    []error
	presentErrs  []error
	current      *HeadlessPackage
	buildCount   int
	presentCount int
}

// NewHeadless creates a headless builder writing to out.
func NewHeadless(out io.Writer, opts ...HeadlessOption) (*Headless, error) {
	h := &Headless{
		out:      out,
		style:    "notty",
		wordWrap: 80,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	render, err := tui.NewRenderer(h.style, h.wordWrap)
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	h.render = render
	return h, nil
}

// FailNextBuild makes the next Build return err.
func (h *Headless) FailNextBuild(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buildErrs = append(h.buildErrs, err)
}

// FailNextPresent makes the next Present of any package return err.
// Wrap err with domain.Recoverable to make it retryable.
func (h *Headless) FailNextPresent(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.presentErrs = append(h.presentErrs, err)
}

// Current returns the most recently built package, or nil.
func (h *Headless) Current() *HeadlessPackage {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Builds returns how many packages were built.
func (h *Headless) Builds() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.buildCount
}

// Build implements ports.PresentationBuilder. The package presents the group of idx,
// starting on its page.
func (h *Headless) Build(_ context.Context, exp *domain.ExperienceData, idx domain.StepIndex) (ports.PresentationPackage, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.buildErrs) > 0 {
		err := h.buildErrs[0]
		h.buildErrs = h.buildErrs[1:]
		return nil, err
	}
	if idx.Group < 0 || idx.Group >= len(exp.Groups) {
		return nil, fmt.Errorf("%w: group %d", domain.ErrStepNotFound, idx.Group)
	}

	h.buildCount++
	pkg := &HeadlessPackage{
		owner:   h,
		exp:     exp,
		group:   idx.Group,
		steps:   exp.Groups[idx.Group].Steps,
		monitor: NewPageMonitor(idx.Item),
	}
	pkg.monitor.AddObserver(pkg.forward)
	h.current = pkg
	return pkg, nil
}

func (h *Headless) nextPresentErr() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.presentCount++
	if len(h.presentErrs) == 0 {
		return nil
	}
	err := h.presentErrs[0]
	h.presentErrs = h.presentErrs[1:]
	return err
}

// HeadlessPackage presents one step group as rendered text.
type HeadlessPackage struct {
	owner   *Headless
	exp     *domain.ExperienceData
	group   int
	steps   []domain.Step
	monitor *PageMonitor

	mu        sync.Mutex
	handler   ports.ContainerEventHandler
	presented bool
	dismissed bool
}

func (p *HeadlessPackage) Steps() []domain.Step {
	return p.steps
}

func (p *HeadlessPackage) PageMonitor() ports.PageMonitor {
	return p.monitor
}

func (p *HeadlessPackage) Attach(h ports.ContainerEventHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handler = h
}

// Present renders the current page.
func (p *HeadlessPackage) Present(ctx context.Context) error {
	if p.isDismissed() {
		return ErrDismissed
	}
	if err := p.owner.nextPresentErr(); err != nil {
		return err
	}
	p.mu.Lock()
	p.presented = true
	p.mu.Unlock()
	return p.renderPage(p.monitor.CurrentPage())
}

// Navigate moves to page and renders it.
func (p *HeadlessPackage) Navigate(ctx context.Context, page int) error {
	if p.isDismissed() {
		return ErrDismissed
	}
	if page < 0 || page >= len(p.steps) {
		return fmt.Errorf("%w: page %d of group %d", domain.ErrStepNotFound, page, p.group)
	}
	p.monitor.Set(page)
	return nil
}

// Dismiss removes the package.
func (p *HeadlessPackage) Dismiss(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dismissed {
		return ErrDismissed
	}
	p.dismissed = true
	return nil
}

// Presented reports whether the package is on screen.
func (p *HeadlessPackage) Presented() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.presented && !p.dismissed
}

// Swipe simulates the user paging the container to page.
func (p *HeadlessPackage) Swipe(ctx context.Context, page int) {
	from := p.monitor.CurrentPage()
	p.monitor.Set(page)
	if h := p.attached(); h != nil && from != page {
		h.ContainerNavigated(ctx, from, page)
	}
}

// UserDismiss simulates the user closing the container.
func (p *HeadlessPackage) UserDismiss(ctx context.Context) {
	if h := p.attached(); h != nil {
		h.ContainerDismissed(ctx)
	}
}

func (p *HeadlessPackage) attached() ports.ContainerEventHandler {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handler
}

func (p *HeadlessPackage) isDismissed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dismissed
}

// forward re-renders after page changes once the package is presented.
func (p *HeadlessPackage) forward(_, to int) {
	p.mu.Lock()
	presented := p.presented && !p.dismissed
	p.mu.Unlock()
	if !presented {
		return
	}
	if err := p.renderPage(to); err != nil {
		p.owner.logger.Warn("failed to render page", "page", to, "err", err)
	}
}

func (p *HeadlessPackage) renderPage(page int) error {
	if page < 0 || page >= len(p.steps) {
		return fmt.Errorf("%w: page %d of group %d", domain.ErrStepNotFound, page, p.group)
	}
	step := p.steps[page]
	content := step.Content
	if content == "" {
		content = "_(" + step.ID + ")_"
	}
	rendered, err := p.owner.render(content)
	if err != nil {
		return fmt.Errorf("failed to render step %s: %w", step.ID, err)
	}

	flat := p.exp.FlatIndex(domain.StepIndex{Group: p.group, Item: page}) + 1
	_, err = fmt.Fprintf(p.owner.out, "── %s · step %d/%d (%s)\n%s", p.exp.Name, flat, p.exp.StepCount(), step.ID, rendered)
	return err
}
