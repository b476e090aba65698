package render

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"

	"fattura/internal/domain"
	"fattura/internal/port"
)

// ChromeRenderer renders HTML to PDF through a shared headless Chrome
// instance. The browser is created lazily on first use and recreated on the
// next call after any failure, so one file's render error never blocks a
// sibling pipeline: each render runs in its own tab.
type ChromeRenderer struct {
	execPath string
	timeout  time.Duration
	log      zerolog.Logger

	mu          sync.Mutex
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewChromeRenderer creates the renderer. execPath may be empty to use the
// Chrome binary found on PATH.
func NewChromeRenderer(execPath string, timeout time.Duration, log zerolog.Logger) port.PDFRenderer {
	return &ChromeRenderer{
		execPath: execPath,
		timeout:  timeout,
		log:      log.With().Str("component", "chrome_renderer").Logger(),
	}
}

// RenderPDF prints the HTML document to PDF, preserving CSS page-break hints
// (PreferCSSPageSize). The call carries a bounded timeout since headless
// rendering can hang on malformed HTML.
func (r *ChromeRenderer) RenderPDF(ctx context.Context, html string) ([]byte, error) {
	alloc, err := r.allocator()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRenderFailed, err)
	}

	tabCtx, tabCancel := chromedp.NewContext(alloc)
	defer tabCancel()

	runCtx, cancel := context.WithTimeout(tabCtx, r.timeout)
	defer cancel()

	var pdf []byte
	err = chromedp.Run(runCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPreferCSSPageSize(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		// The browser may be gone; drop it so the next call starts fresh.
		r.invalidate()
		return nil, fmt.Errorf("%w: headless print: %v", domain.ErrRenderFailed, err)
	}
	return pdf, nil
}

// allocator returns the shared browser allocator, creating it if it does not
// exist or its context has died.
func (r *ChromeRenderer) allocator() (context.Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.allocCtx != nil && r.allocCtx.Err() == nil {
		return r.allocCtx, nil
	}
	if r.allocCancel != nil {
		r.allocCancel()
	}

	opts := chromedp.DefaultExecAllocatorOptions[:]
	if r.execPath != "" {
		opts = append(opts, chromedp.ExecPath(r.execPath))
	}
	r.allocCtx, r.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	r.log.Debug().Msg("headless browser allocator created")
	return r.allocCtx, nil
}

func (r *ChromeRenderer) invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.allocCancel != nil {
		r.allocCancel()
	}
	r.allocCtx = nil
	r.allocCancel = nil
	r.log.Warn().Msg("headless browser dropped after failure; will recreate on next use")
}

// Close tears down the browser instance.
func (r *ChromeRenderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.allocCancel != nil {
		r.allocCancel()
		r.allocCtx = nil
		r.allocCancel = nil
	}
}
