// Package browser manages a bounded pool of headless Chrome sessions and
// records browsing traces as animated GIFs.
package browser

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/chromedp"
	"golang.org/x/sync/semaphore"

	"medassist/internal/logging"
)

const defaultActionTimeout = 60 * time.Second

// Config controls how Chrome is launched and where traces are written.
type Config struct {
	Headless      bool
	ChromePath    string
	CDPURL        string
	HistoryDir    string
	PoolSize      int
	TextOnly      bool
	ProxyServer   string
	ProxyUsername string
	ProxyPassword string
}

// Manager hands out browser sessions, bounding concurrency with a semaphore
// so parallel runs cannot exhaust the host.
type Manager struct {
	cfg    Config
	sem    *semaphore.Weighted
	logger logging.Logger

	mu     sync.Mutex
	closed bool
}

func NewManager(cfg Config) *Manager {
	if cfg.PoolSize < 1 {
		cfg.PoolSize = 1
	}
	return &Manager{
		cfg:    cfg,
		sem:    semaphore.NewWeighted(int64(cfg.PoolSize)),
		logger: logging.NewComponentLogger("Browser"),
	}
}

func (m *Manager) Config() Config { return m.cfg }

// Acquire blocks until a pool slot is free, then launches a fresh Chrome
// session. The caller must Release the session.
func (m *Manager) Acquire(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, fmt.Errorf("browser manager is closed")
	}
	m.mu.Unlock()

	if err := m.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire browser slot: %w", err)
	}

	sess, err := m.newSession()
	if err != nil {
		m.sem.Release(1)
		return nil, err
	}
	return sess, nil
}

func (m *Manager) newSession() (*Session, error) {
	baseCtx := context.Background()
	var allocCtx context.Context
	var allocCancel context.CancelFunc

	if strings.TrimSpace(m.cfg.CDPURL) != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(baseCtx, m.cfg.CDPURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", m.cfg.Headless),
			chromedp.Flag("disable-gpu", m.cfg.Headless),
		)
		if path := strings.TrimSpace(m.cfg.ChromePath); path != "" {
			opts = append(opts, chromedp.ExecPath(path))
		}
		if proxy := strings.TrimSpace(m.cfg.ProxyServer); proxy != "" {
			opts = append(opts, chromedp.ProxyServer(proxy))
		}
		allocCtx, allocCancel = chromedp.NewExecAllocator(baseCtx, opts...)
	}

	ctx, cancel := chromedp.NewContext(allocCtx)

	startup := []chromedp.Action{chromedp.Navigate("about:blank")}
	if m.cfg.ProxyUsername != "" {
		// Authenticated proxies challenge via CDP; answer with the
		// configured credentials and let every other request through.
		chromedp.ListenTarget(ctx, func(ev interface{}) {
			switch e := ev.(type) {
			case *fetch.EventAuthRequired:
				go func() {
					_ = chromedp.Run(ctx, fetch.ContinueWithAuth(e.RequestID,
						proxyAuthResponse(m.cfg.ProxyUsername, m.cfg.ProxyPassword)))
				}()
			case *fetch.EventRequestPaused:
				go func() {
					_ = chromedp.Run(ctx, fetch.ContinueRequest(e.RequestID))
				}()
			}
		})
		startup = append([]chromedp.Action{fetch.Enable().WithHandleAuthRequests(true)}, startup...)
	}

	if err := chromedp.Run(ctx, startup...); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	return &Session{
		manager:     m,
		allocCancel: allocCancel,
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

func proxyAuthResponse(username, password string) *fetch.AuthChallengeResponse {
	return &fetch.AuthChallengeResponse{
		Response: fetch.AuthChallengeResponseResponseProvideCredentials,
		Username: username,
		Password: password,
	}
}

// Close marks the manager closed. In-flight sessions finish normally.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

// Session is one exclusive Chrome instance from the pool.
type Session struct {
	manager     *Manager
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc

	mu     sync.Mutex
	frames []*image.Paletted
}

// Release tears down the Chrome instance and returns the slot to the pool.
func (s *Session) Release() {
	s.cancel()
	s.allocCancel()
	s.manager.sem.Release(1)
}

// run executes chromedp actions with the call context and a per-action
// timeout layered over the session context.
func (s *Session) run(callCtx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.ctx, defaultActionTimeout)
	defer cancel()
	if callCtx != nil {
		stop := context.AfterFunc(callCtx, cancel)
		defer stop()
	}
	return chromedp.Run(runCtx, actions...)
}

// Navigate loads a URL and waits for the body to be ready.
func (s *Session) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, chromedp.Navigate(url), chromedp.WaitReady("body"))
}

// Click clicks the first node matching the CSS selector.
func (s *Session) Click(ctx context.Context, selector string) error {
	return s.run(ctx, chromedp.Click(selector, chromedp.NodeVisible))
}

// Type focuses a node and types text into it.
func (s *Session) Type(ctx context.Context, selector, text string) error {
	return s.run(ctx,
		chromedp.Click(selector, chromedp.NodeVisible),
		chromedp.SendKeys(selector, text),
	)
}

// Scroll scrolls the page down by one viewport.
func (s *Session) Scroll(ctx context.Context) error {
	return s.run(ctx, chromedp.Evaluate("window.scrollBy(0, window.innerHeight)", nil))
}

// PageState is the observable state handed to the driving model.
type PageState struct {
	URL   string
	Title string
	Text  string
}

// Observe captures the current URL, title, and visible text.
func (s *Session) Observe(ctx context.Context) (PageState, error) {
	var state PageState
	err := s.run(ctx,
		chromedp.Location(&state.URL),
		chromedp.Title(&state.Title),
		chromedp.Text("body", &state.Text, chromedp.NodeVisible),
	)
	return state, err
}

// CaptureFrame screenshots the viewport and appends it to the session trace.
// A failed capture is logged and skipped; browsing continues.
func (s *Session) CaptureFrame(ctx context.Context) {
	if s.manager.cfg.TextOnly {
		return
	}
	var buf []byte
	if err := s.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		s.manager.logger.Debug("Screenshot failed: %v", err)
		return
	}
	img, err := png.Decode(bytes.NewReader(buf))
	if err != nil {
		s.manager.logger.Debug("Screenshot decode failed: %v", err)
		return
	}

	paletted := image.NewPaletted(img.Bounds(), websafePalette())
	drawPaletted(paletted, img)

	s.mu.Lock()
	s.frames = append(s.frames, paletted)
	s.mu.Unlock()
}

// SaveTrace writes the captured frames as an animated GIF under the history
// directory and returns the file name. Returns "" when nothing was captured.
func (s *Session) SaveTrace(name string) (string, error) {
	s.mu.Lock()
	frames := s.frames
	s.frames = nil
	s.mu.Unlock()

	if len(frames) == 0 {
		return "", nil
	}
	dir := s.manager.cfg.HistoryDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create history dir: %w", err)
	}

	anim := &gif.GIF{}
	for _, frame := range frames {
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, 100)
	}

	filename := name + ".gif"
	path := filepath.Join(dir, filename)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create trace file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := gif.EncodeAll(f, anim); err != nil {
		return "", fmt.Errorf("encode trace: %w", err)
	}
	s.manager.logger.Info("Saved browsing trace %s (%d frames)", path, len(frames))
	return filename, nil
}
