package capture

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Defaults for rendering the print view. The viewport is a landscape
// letter page at 96 dpi.
const (
	DefaultWidth      = 1056
	DefaultHeight     = 816
	DefaultTimeoutSec = 30
)

type Format string

const (
	FormatPDF Format = "pdf"
	FormatPNG Format = "png"
)

// FormatFromPath picks a format from the output file extension, defaulting
// to PDF.
func FormatFromPath(path string) Format {
	if filepath.Ext(path) == ".png" {
		return FormatPNG
	}
	return FormatPDF
}

// Options defines one headless-Chromium render of a planner page.
type Options struct {
	// URL to render, e.g. "http://127.0.0.1:8080/print?month=2024-03".
	URL string

	// OutputPath is where the PDF or PNG is written.
	OutputPath string

	Format Format

	// Width and Height are the viewport in pixels; zero means the defaults.
	Width  int
	Height int

	// Username and Password, if set, are sent as HTTP Basic credentials.
	Username string
	Password string

	// Timeout bounds the whole render. Zero means DefaultTimeoutSec.
	Timeout time.Duration
}

func (o *Options) validate() error {
	if o.URL == "" {
		return fmt.Errorf("capture: URL is required")
	}
	if o.OutputPath == "" {
		return fmt.Errorf("capture: OutputPath is required")
	}
	if o.Format == "" {
		o.Format = FormatFromPath(o.OutputPath)
	}
	if o.Format != FormatPDF && o.Format != FormatPNG {
		return fmt.Errorf("capture: unknown format %q", o.Format)
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}
	return nil
}

// Render navigates a headless Chromium to opts.URL, waits for the page to
// mark itself ready with data-ready="true", and writes either a landscape
// PDF (one sheet per printed page) or a full-page PNG.
func Render(parentCtx context.Context, opts Options) error {
	if err := opts.validate(); err != nil {
		return err
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var out []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
	}
	if opts.Username != "" {
		cred := base64.StdEncoding.EncodeToString([]byte(opts.Username + ":" + opts.Password))
		tasks = append(tasks,
			network.Enable(),
			network.SetExtraHTTPHeaders(network.Headers{"Authorization": "Basic " + cred}),
		)
	}
	tasks = append(tasks,
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(`[data-ready="true"]`, chromedp.ByQuery),
	)

	switch opts.Format {
	case FormatPNG:
		tasks = append(tasks, chromedp.FullScreenshot(&out, 100))
	default:
		tasks = append(tasks, chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithLandscape(true).
				WithPrintBackground(true).
				WithPreferCSSPageSize(true).
				Do(ctx)
			out = buf
			return err
		}))
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if dir := filepath.Dir(opts.OutputPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("capture: create output dir: %w", err)
		}
	}
	if err := os.WriteFile(opts.OutputPath, out, 0o644); err != nil {
		return fmt.Errorf("capture: failed to write %s: %w", opts.Format, err)
	}
	return nil
}
