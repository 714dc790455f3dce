package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Default print parameters: A4 portrait, in inches.
const (
	DefaultPaperWidth  = 8.27
	DefaultPaperHeight = 11.69
	DefaultTimeoutSec  = 30
)

// PDFOptions defines parameters for a Chromium-based HTML to PDF print.
type PDFOptions struct {
	// PaperWidth and PaperHeight are in inches. Zero means A4.
	PaperWidth  float64
	PaperHeight float64
	Landscape   bool

	// RemoteURL attaches to a running browser's DevTools websocket instead
	// of launching a local headless Chromium.
	RemoteURL string

	// Timeout bounds the whole print. Zero means DefaultTimeoutSec.
	Timeout time.Duration
}

func (o PDFOptions) normalized() PDFOptions {
	if o.PaperWidth <= 0 {
		o.PaperWidth = DefaultPaperWidth
	}
	if o.PaperHeight <= 0 {
		o.PaperHeight = DefaultPaperHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}
	return o
}

// PDFPrinter prints HTML documents through headless Chromium via chromedp.
type PDFPrinter struct {
	Options PDFOptions
}

// NewPDFPrinter creates a printer with the given options.
func NewPDFPrinter(opts PDFOptions) *PDFPrinter {
	return &PDFPrinter{Options: opts}
}

// PrintHTML loads html into a blank page, waits for the body and prints it.
func (p *PDFPrinter) PrintHTML(parentCtx context.Context, html []byte) ([]byte, error) {
	if len(html) == 0 {
		return nil, errors.New("capture: empty document")
	}
	opts := p.Options.normalized()

	allocCtx := parentCtx
	if opts.RemoteURL != "" {
		var cancel context.CancelFunc
		allocCtx, cancel = chromedp.NewRemoteAllocator(parentCtx, opts.RemoteURL)
		defer cancel()
	}

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var pdf []byte
	tasks := chromedp.Tasks{
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, string(html)).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithLandscape(opts.Landscape).
				WithPaperWidth(opts.PaperWidth).
				WithPaperHeight(opts.PaperHeight).
				Do(ctx)
			pdf = buf
			return err
		}),
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		return nil, fmt.Errorf("capture: chromedp run failed: %w", err)
	}
	return pdf, nil
}
