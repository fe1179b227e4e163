package pdf

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/beanvault/storefront-backend/pkg/config"
)

const (
	defaultRenderTimeout = 25 * time.Second
	defaultPaperWidthMM  = 210.0
	defaultPaperHeightMM = 297.0
)

// ChromeRenderer prints receipts to PDF through a headless Chrome instance.
// One allocator is shared; each render gets its own browser context so a
// crashed tab cannot poison later renders.
type ChromeRenderer struct {
	cfg         config.ReceiptConfig
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewChromeRenderer prepares the shared Chrome allocator. The browser process
// itself is only launched on the first render.
func NewChromeRenderer(cfg config.ReceiptConfig) *ChromeRenderer {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("font-render-hinting", "none"),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &ChromeRenderer{
		cfg:         cfg,
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
	}
}

// RenderReceipt builds the receipt HTML and prints it to a PDF document.
func (r *ChromeRenderer) RenderReceipt(ctx context.Context, data ReceiptData) ([]byte, error) {
	html, err := BuildReceiptHTML(data)
	if err != nil {
		return nil, err
	}

	timeout := r.cfg.RenderTimeout
	if timeout <= 0 {
		timeout = defaultRenderTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	browserCtx, browserCancel := chromedp.NewContext(r.allocCtx)
	defer browserCancel()

	done := make(chan struct{})
	var pdfData []byte
	var runErr error
	go func() {
		defer close(done)
		runErr = chromedp.Run(browserCtx,
			chromedp.Navigate("about:blank"),
			chromedp.ActionFunc(func(cdpCtx context.Context) error {
				frameTree, err := page.GetFrameTree().Do(cdpCtx)
				if err != nil {
					return err
				}
				return page.SetDocumentContent(frameTree.Frame.ID, html).Do(cdpCtx)
			}),
			chromedp.ActionFunc(func(cdpCtx context.Context) error {
				buf, _, err := page.PrintToPDF().
					WithPrintBackground(true).
					WithPaperWidth(mmToInches(r.paperWidthMM())).
					WithPaperHeight(mmToInches(r.paperHeightMM())).
					WithMarginTop(0).
					WithMarginBottom(0).
					WithMarginLeft(0).
					WithMarginRight(0).
					Do(cdpCtx)
				if err != nil {
					return err
				}
				pdfData = buf
				return nil
			}),
		)
	}()

	select {
	case <-ctx.Done():
		browserCancel()
		<-done
		return nil, fmt.Errorf("render receipt %s: %w", data.InvoiceNumber, ctx.Err())
	case <-done:
	}
	if runErr != nil {
		return nil, fmt.Errorf("render receipt %s: %w", data.InvoiceNumber, runErr)
	}
	if len(pdfData) == 0 {
		return nil, fmt.Errorf("render receipt %s: empty document", data.InvoiceNumber)
	}
	return pdfData, nil
}

// Close shuts down the shared allocator and any browser it launched.
func (r *ChromeRenderer) Close() {
	if r.allocCancel != nil {
		r.allocCancel()
	}
}

func (r *ChromeRenderer) paperWidthMM() float64 {
	if r.cfg.PaperWidthMM > 0 {
		return r.cfg.PaperWidthMM
	}
	return defaultPaperWidthMM
}

func (r *ChromeRenderer) paperHeightMM() float64 {
	if r.cfg.PaperHeightMM > 0 {
		return r.cfg.PaperHeightMM
	}
	return defaultPaperHeightMM
}

func mmToInches(mm float64) float64 {
	return mm / 25.4
}
