package capture

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/contexthub/pkg/models"
)

// settleDelay gives the page time to finish client-side rendering before
// the screenshot is taken.
const settleDelay = 2 * time.Second

// pageCountJS reads the deck viewer's page navigation control. The viewer
// labels the jump buttons "Go to page" and renders the total in the last one.
const pageCountJS = `(() => {
	const els = document.querySelectorAll('button[aria-label="Go to page"] p._bsk3w');
	if (els.length === 0) return 0;
	return parseInt(els[els.length - 1].textContent, 10) || 0;
})()`

// Sessions abstracts Browserbase session provisioning for tests.
type Sessions interface {
	CreateSession(ctx context.Context) (string, error)
	ConnectURL(sessionID string) string
}

// Capturer screenshots pages through remote browsers. A rate limiter paces
// session creation so parallel deck captures stay inside the Browserbase
// concurrency allowance.
type Capturer struct {
	sessions Sessions
	limiter  *rate.Limiter
}

// NewCapturer builds a Capturer allowing sessionsPerSecond new browsers
// with bursts up to burst.
func NewCapturer(sessions Sessions, sessionsPerSecond float64, burst int) *Capturer {
	return &Capturer{
		sessions: sessions,
		limiter:  rate.NewLimiter(rate.Limit(sessionsPerSecond), burst),
	}
}

// withBrowser runs fn inside a fresh remote browser context.
func (c *Capturer) withBrowser(ctx context.Context, fn func(browserCtx context.Context) error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	sessionID, err := c.sessions.CreateSession(ctx)
	if err != nil {
		return err
	}

	allocCtx, cancelAlloc := chromedp.NewRemoteAllocator(ctx, c.sessions.ConnectURL(sessionID))
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	return fn(browserCtx)
}

// CaptureScreenshot loads a URL and returns a base64 full-page screenshot.
func (c *Capturer) CaptureScreenshot(ctx context.Context, pageURL string) (string, error) {
	log.Info().Str("url", pageURL).Msg("Capturing screenshot")

	var buf []byte
	err := c.withBrowser(ctx, func(browserCtx context.Context) error {
		return chromedp.Run(browserCtx,
			chromedp.Navigate(pageURL),
			chromedp.Sleep(settleDelay),
			chromedp.FullScreenshot(&buf, 80),
		)
	})
	if err != nil {
		return "", fmt.Errorf("capture: screenshot of %s failed: %w", pageURL, err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// PageCount opens a deck URL and reads the total page count from the
// viewer's navigation control.
func (c *Capturer) PageCount(ctx context.Context, deckURL string) (int, error) {
	var count int
	err := c.withBrowser(ctx, func(browserCtx context.Context) error {
		return chromedp.Run(browserCtx,
			chromedp.Navigate(deckURL),
			chromedp.Sleep(settleDelay),
			chromedp.Evaluate(pageCountJS, &count),
		)
	})
	if err != nil {
		return 0, fmt.Errorf("capture: page count for %s failed: %w", deckURL, err)
	}
	if count <= 0 {
		return 0, fmt.Errorf("capture: could not determine page count for %s", deckURL)
	}
	log.Info().Str("url", deckURL).Int("pages", count).Msg("Resolved deck page count")
	return count, nil
}

// CapturePage screenshots one page of a deck by navigating to url#pageNumber.
func (c *Capturer) CapturePage(ctx context.Context, deckURL string, pageNumber int) (models.PageScreenshot, error) {
	var buf []byte
	err := c.withBrowser(ctx, func(browserCtx context.Context) error {
		return chromedp.Run(browserCtx,
			chromedp.Navigate(fmt.Sprintf("%s#%d", deckURL, pageNumber)),
			chromedp.Sleep(settleDelay),
			chromedp.CaptureScreenshot(&buf),
		)
	})
	if err != nil {
		return models.PageScreenshot{}, fmt.Errorf("capture: page %d of %s failed: %w", pageNumber, deckURL, err)
	}
	return models.PageScreenshot{
		PageNumber:  pageNumber,
		Base64Image: base64.StdEncoding.EncodeToString(buf),
	}, nil
}

// CaptureDeck resolves the deck's page count and captures every page
// concurrently. Failed pages are dropped; the result reports how many of
// the total made it so callers can decide whether partial coverage is
// good enough.
func (c *Capturer) CaptureDeck(ctx context.Context, deckURL string) (models.DeckCaptureResult, error) {
	total, err := c.PageCount(ctx, deckURL)
	if err != nil {
		return models.DeckCaptureResult{}, err
	}

	log.Info().Int("pages", total).Str("url", deckURL).Msg("Capturing deck pages in parallel")

	var (
		mu          sync.Mutex
		screenshots []models.PageScreenshot
		wg          sync.WaitGroup
	)
	for page := 1; page <= total; page++ {
		wg.Add(1)
		go func(page int) {
			defer wg.Done()
			shot, err := c.CapturePage(ctx, deckURL, page)
			if err != nil {
				log.Warn().Err(err).Int("page", page).Msg("Page capture failed, continuing")
				return
			}
			mu.Lock()
			screenshots = append(screenshots, shot)
			mu.Unlock()
		}(page)
	}
	wg.Wait()

	sort.Slice(screenshots, func(i, j int) bool {
		return screenshots[i].PageNumber < screenshots[j].PageNumber
	})

	log.Info().Int("captured", len(screenshots)).Int("total", total).Msg("Deck capture finished")
	return models.DeckCaptureResult{
		Screenshots: screenshots,
		Captured:    len(screenshots),
		Total:       total,
	}, nil
}
