// Package browser owns the shared headless Chrome process used as the
// expensive page strategy. Each request runs in a short-lived isolated
// tab; a circuit breaker disables the browser after repeated crashes and
// a use-count policy restarts the process to bound memory growth.
package browser

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/insightforge/webintel/internal/fetch"
)

// Config controls the browser manager.
type Config struct {
	Enabled          bool
	NavTimeout       time.Duration
	MaxUses          int
	BreakerThreshold int
	BlockAssets      bool
	UserAgent        string
	// OnBreakerOpen is invoked once, when the breaker trips.
	OnBreakerOpen func()
}

// blockedAssetPatterns covers heavy sub-resources skipped when
// Config.BlockAssets is set, trading completeness for navigation speed.
var blockedAssetPatterns = []string{
	"*.png", "*.jpg", "*.jpeg", "*.gif", "*.webp", "*.svg",
	"*.woff", "*.woff2", "*.ttf", "*.otf",
	"*.mp4", "*.webm", "*.mp3",
	"*.css",
}

// Manager lazily launches one headless Chrome process and opens an
// isolated tab per request. Session and tab are always closed on exit.
type Manager struct {
	cfg     Config
	logger  *zap.Logger
	breaker *Breaker

	mu          sync.Mutex
	alloc       context.Context
	allocCancel context.CancelFunc
	uses        int
}

// NewManager builds a Manager. The browser process is not launched until
// the first fetch.
func NewManager(cfg Config, logger *zap.Logger) *Manager {
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 25 * time.Second
	}
	if cfg.MaxUses <= 0 {
		cfg.MaxUses = 50
	}
	return &Manager{
		cfg:     cfg,
		logger:  logger,
		breaker: NewBreaker(cfg.BreakerThreshold),
	}
}

// Method identifies this strategy on produced results.
func (m *Manager) Method() fetch.Method {
	return fetch.MethodBrowser
}

// Breaker exposes the circuit breaker for observability.
func (m *Manager) Breaker() *Breaker {
	return m.breaker
}

// FetchMarkup renders url in an isolated session and returns the DOM.
// It fails immediately with ResourceUnavailableError when the strategy is
// disabled or the breaker is open.
func (m *Manager) FetchMarkup(ctx context.Context, url string, timeout time.Duration) (string, error) {
	if !m.cfg.Enabled {
		return "", &fetch.ResourceUnavailableError{Resource: "browser", Reason: "disabled by configuration"}
	}
	if !m.breaker.Allow() {
		return "", &fetch.ResourceUnavailableError{Resource: "browser", Reason: "circuit breaker open"}
	}
	if timeout <= 0 {
		timeout = m.cfg.NavTimeout
	}

	html, err := m.withSession(ctx, url, timeout)
	if err != nil {
		return "", m.noteFailure(url, err)
	}
	m.breaker.RecordSuccess()
	m.noteUse()
	return html, nil
}

// Close tears down the browser process if one is running.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardownLocked()
}

func (m *Manager) withSession(ctx context.Context, url string, timeout time.Duration) (string, error) {
	alloc, err := m.allocator()
	if err != nil {
		return "", err
	}

	// Isolated tab per request: independent cookies and storage, closed
	// on every exit path by the deferred cancels.
	taskCtx, taskCancel := chromedp.NewContext(alloc)
	defer taskCancel()
	taskCtx, cancel := context.WithTimeout(taskCtx, timeout)
	defer cancel()

	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-taskCtx.Done():
		}
	}()

	var html string
	actions := []chromedp.Action{network.Enable()}
	if m.cfg.BlockAssets {
		actions = append(actions, network.SetBlockedURLs(blockedAssetPatterns))
	}
	actions = append(actions,
		chromedp.Navigate(url),
		// DOM ready only, not network idle: full quiescence on asset-heavy
		// pages routinely exceeds any sane navigation budget.
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return "", err
	}
	return html, nil
}

// allocator returns the shared exec allocator, launching it lazily.
func (m *Manager) allocator() (context.Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.alloc != nil {
		return m.alloc, nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	if m.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(m.cfg.UserAgent))
	}
	m.alloc, m.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	m.uses = 0
	m.logger.Info("browser allocator created")
	return m.alloc, nil
}

// noteUse counts a successful session and restarts the process once the
// use budget is spent. The restart is planned maintenance, not a failure.
func (m *Manager) noteUse() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uses++
	if m.uses < m.cfg.MaxUses {
		return
	}
	m.logger.Info("browser use budget reached, restarting process",
		zap.Int("uses", m.uses),
	)
	m.teardownLocked()
}

func (m *Manager) noteFailure(url string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &fetch.NetworkError{URL: url, Err: err}
	}
	if isNavigationError(err) {
		return &fetch.NetworkError{URL: url, Err: err}
	}

	// Crash-class: the process or target is gone. Drop the allocator so a
	// later call relaunches (if the breaker still allows it).
	m.mu.Lock()
	m.teardownLocked()
	m.mu.Unlock()

	if m.breaker.RecordFailure() {
		m.logger.Error("browser circuit breaker opened",
			zap.Int("consecutive_failures", m.breaker.Failures()),
			zap.Error(err),
		)
		if m.cfg.OnBreakerOpen != nil {
			m.cfg.OnBreakerOpen()
		}
	} else {
		m.logger.Warn("browser crash-class failure",
			zap.Int("consecutive_failures", m.breaker.Failures()),
			zap.Error(err),
		)
	}
	return &fetch.ResourceUnavailableError{Resource: "browser", Reason: err.Error()}
}

func (m *Manager) teardownLocked() {
	if m.allocCancel != nil {
		m.allocCancel()
	}
	m.alloc = nil
	m.allocCancel = nil
	m.uses = 0
}

// isNavigationError distinguishes page-level failures (bad DNS, refused
// connection) from process-level crashes.
func isNavigationError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "net::ERR") || strings.Contains(msg, "page load error")
}
