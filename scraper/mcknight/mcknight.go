package mcknight

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"

	"apartment-tracker/config"
	"apartment-tracker/utils"
)

// Fetcher loads the floorplan search page in headless Chrome and returns
// the raw markup of each unit row. It owns all browser concerns — captcha
// detection, nudge modal dismissal, retries — so callers only ever see a
// list of fragments or an error.
type Fetcher struct {
	cfg    *config.Config
	logger *utils.Logger
	retry  *utils.RetryConfig
}

// New creates a ready-to-use Fetcher.
func New(cfg *config.Config, logger *utils.Logger) *Fetcher {
	return &Fetcher{
		cfg:    cfg,
		logger: logger,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
	}
}

// Fetch navigates to the search page and collects the outerHTML of every
// unit-container row. A detected captcha page is a fetch error: headless
// runs cannot solve it, and reporting failure keeps the persisted state
// authoritative.
func (f *Fetcher) Fetch(ctx context.Context) ([]string, error) {
	chromeBin := findChromeBinary(f.cfg.ChromeBin)
	f.logger.Debug("[mcknight] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	// Suppress chromedp log noise
	allocCtx, cancelSilent := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelSilent()

	var fragments []string
	err := f.retry.Do(ctx, "fetch-floorplans", func() error {
		tabCtx, cancel := chromedp.NewContext(allocCtx)
		defer cancel()

		tabCtx, cancelTimeout := context.WithTimeout(tabCtx,
			time.Duration(f.cfg.FetchTimeoutSec)*time.Second)
		defer cancelTimeout()

		var title string
		var rows []string

		err := chromedp.Run(tabCtx,
			chromedp.Navigate(f.cfg.SearchURL),
			chromedp.Sleep(3*time.Second),
			chromedp.Title(&title),

			// The nudge modal covers the listing table when present.
			chromedp.Evaluate(`
				(function() {
					try { ysi.nudge.closeNudge(); return true; }
					catch (e) { return false; }
				})()
			`, nil),

			chromedp.Evaluate(`
				Array.from(
					document.querySelectorAll("tr.unit-container"),
					function(row) { return row.outerHTML; }
				)
			`, &rows),
		)
		if err != nil {
			return fmt.Errorf("chromedp run: %w", err)
		}

		if title == "Just a moment..." {
			return fmt.Errorf("captcha challenge detected on %s", f.cfg.SearchURL)
		}

		fragments = rows
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("mcknight: %w", err)
	}

	f.logger.Info("[mcknight] Fetched %d unit rows from %s", len(fragments), f.cfg.SearchURL)
	return fragments, nil
}

// findChromeBinary locates a Chrome/Chromium binary, preferring the
// configured path.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
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
