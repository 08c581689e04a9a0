package page

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// DefaultRenderTimeout bounds a single headless browser session.
const DefaultRenderTimeout = 30 * time.Second

// BrowserRenderer returns a Renderer backed by a headless Chrome/Chromium.
// Chrome must be installed on the system.
func BrowserRenderer(timeout time.Duration) Renderer {
	if timeout <= 0 {
		timeout = DefaultRenderTimeout
	}

	return func(ctx context.Context, pageURL string) (string, error) {
		allocCtx, cancel := chromedp.NewExecAllocator(ctx,
			append(chromedp.DefaultExecAllocatorOptions[:],
				chromedp.Flag("headless", true),
				chromedp.Flag("disable-gpu", true),
				chromedp.Flag("no-sandbox", true),
				chromedp.Flag("disable-dev-shm-usage", true),
			)...,
		)
		defer cancel()

		browserCtx, cancel := chromedp.NewContext(allocCtx)
		defer cancel()

		browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
		defer cancel()

		var html string
		err := chromedp.Run(browserCtx,
			chromedp.Navigate(pageURL),
			chromedp.WaitReady("body"),
			// Job boards commonly hydrate the posting after load.
			chromedp.Sleep(2*time.Second),
			chromedp.OuterHTML("html", &html),
		)
		if err != nil {
			return "", fmt.Errorf("browser rendering failed: %w", err)
		}

		return html, nil
	}
}
