package investigation

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// capturedEntry is one HAR-equivalent network request observed during a
// single headless page load (§4.8).
type capturedEntry struct {
	URL            string
	Host           string
	InitiatorHost  string
	Size           int64
	Redirect       bool
	ResourceType   string
}

// capturedPage is the full result of one headless capture: the
// HAR-equivalent request log, the post-redirect URL, and (when
// withScreenshot is requested) a full-page PNG taken before the browser
// context is torn down.
type capturedPage struct {
	Entries    []capturedEntry
	FinalURL   string
	Screenshot []byte
}

// capturePage navigates headlessly to target and returns every request the
// page issued plus, optionally, a full-page screenshot — both captured
// within the same browser context before it is closed, since chromedp
// contexts are not reusable once their allocator is cancelled. Grounded on
// the browser-context construction in the teacher's crawler.ChromeDPPool
// and the chromedp.ListenTarget/network.EventRequestWillBeSent capture
// pattern used by the teacher's UI test harness.
func capturePage(ctx context.Context, target string, timeout time.Duration, withScreenshot bool) (*capturedPage, error) {
	allocatorOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.UserAgent("Mozilla/5.0 (compatible; ThreatWatch/1.0)"),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocatorOpts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	runCtx, cancel := context.WithTimeout(browserCtx, timeout)
	defer cancel()

	var mu sync.Mutex
	entries := map[network.RequestID]*capturedEntry{}
	order := []network.RequestID{}

	chromedp.ListenTarget(runCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			mu.Lock()
			defer mu.Unlock()
			host := hostOf(e.Request.URL)
			initiatorHost := ""
			if e.Initiator != nil {
				initiatorHost = hostOf(e.Initiator.URL)
			}
			if _, exists := entries[e.RequestID]; !exists {
				order = append(order, e.RequestID)
			}
			entries[e.RequestID] = &capturedEntry{
				URL:           e.Request.URL,
				Host:          host,
				InitiatorHost: initiatorHost,
				Redirect:      e.RedirectResponse != nil,
				ResourceType:  e.Type.String(),
			}
		case *network.EventLoadingFinished:
			mu.Lock()
			defer mu.Unlock()
			if entry, ok := entries[e.RequestID]; ok {
				entry.Size = int64(e.EncodedDataLength)
			}
		}
	})

	if err := chromedp.Run(runCtx, network.Enable()); err != nil {
		return nil, fmt.Errorf("enable network tracking: %w", err)
	}

	var finalURL string
	if err := chromedp.Run(runCtx,
		chromedp.Navigate(target),
		chromedp.Sleep(1*time.Second),
		chromedp.Location(&finalURL),
	); err != nil {
		return nil, fmt.Errorf("navigate %s: %w", target, err)
	}

	var screenshot []byte
	if withScreenshot {
		if err := chromedp.Run(runCtx, chromedp.FullScreenshot(&screenshot, 90)); err != nil {
			screenshot = nil
		}
	}

	mu.Lock()
	defer mu.Unlock()
	out := make([]capturedEntry, 0, len(order))
	for _, id := range order {
		out = append(out, *entries[id])
	}
	return &capturedPage{Entries: out, FinalURL: finalURL, Screenshot: screenshot}, nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
