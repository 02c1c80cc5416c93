package scraper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/chromedp/chromedp"

	"sepet/utils"
)

// BrowserSession owns one headless Chrome process shared by the tabs of a
// single shop plugin. The browser is started on first use.
type BrowserSession struct {
	name      string
	chromeBin string
	userAgent string
	proxyURL  string
	logger    *utils.Logger

	mu            sync.Mutex
	browserCtx    context.Context
	cancelAlloc   context.CancelFunc
	cancelBrowser context.CancelFunc
	closed        bool
}

// NewBrowserSession prepares a session; no process is spawned yet.
func NewBrowserSession(name string, opts Options) *BrowserSession {
	return &BrowserSession{
		name:      name,
		chromeBin: opts.ChromeBin,
		userAgent: opts.UserAgent,
		proxyURL:  opts.ProxyURL,
		logger:    opts.Logger,
	}
}

var errSessionClosed = errors.New("browser session closed")

func (b *BrowserSession) start() (context.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, errSessionClosed
	}
	if b.browserCtx != nil {
		return b.browserCtx, nil
	}

	chromeBin := b.chromeBin
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	if b.logger != nil {
		b.logger.Info("[%s] Using browser binary: %s", b.name, chromeBin)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.WindowSize(1920, 1080),
	)
	if b.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(b.userAgent))
	}
	if b.proxyURL != "" {
		opts = append(opts, chromedp.ProxyServer(b.proxyURL))
	}
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)

	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	b.browserCtx = browserCtx
	b.cancelAlloc = cancelAlloc
	b.cancelBrowser = cancelBrowser
	return browserCtx, nil
}

// Run executes actions in a fresh tab. The tab is torn down when ctx ends,
// and ctx's error is reported in place of chromedp's.
func (b *BrowserSession) Run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	browserCtx, err := b.start()
	if err != nil {
		return err
	}

	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	if err := chromedp.Run(tabCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

// Close shuts the browser down. It is safe to call more than once.
func (b *BrowserSession) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	if b.cancelBrowser != nil {
		b.cancelBrowser()
		b.cancelAlloc()
	}
	b.browserCtx = nil
	return nil
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
