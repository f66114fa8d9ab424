// Package collyfetch implements the lightweight probe fetch via gocolly.
//
// A plain GET is enough when the tracking page renders status server-side or
// embeds it in an inline data blob. Script-rendered responses are handled by
// promotion to the headless fetcher.
package collyfetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/ozwatch/ozwatch/internal/track"
)

// Config controls collector behavior.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Fetcher issues single-page probe requests with a realistic browser
// identity.
type Fetcher struct {
	cfg  Config
	base *colly.Collector
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	c := colly.NewCollector(colly.Async(false))
	c.WithTransport(newHTTPTransport())
	return &Fetcher{cfg: cfg, base: c}
}

// Fetch executes one HTTP GET for a tracking number and returns the body.
// Network errors and non-2xx responses come back as *track.FetchError; Fetch
// never returns truncated content as success.
func (f *Fetcher) Fetch(ctx context.Context, number string) (string, error) {
	var (
		body     []byte
		status   int
		fetchErr error
	)

	collector := f.base.Clone()
	collector.IgnoreRobotsTxt = true
	// polling revisits the same URL every cycle
	collector.AllowURLRevisit = true
	collector.SetRequestTimeout(f.cfg.Timeout)
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}

	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept-Language", "ru-RU,ru;q=0.9,en-US;q=0.8")
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	})
	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = err
	})

	if err := f.visit(ctx, collector, track.PageURL(f.cfg.BaseURL, number)); err != nil {
		return "", &track.FetchError{Number: number, StatusCode: status, Err: err}
	}
	if fetchErr != nil {
		return "", &track.FetchError{Number: number, StatusCode: status, Err: fetchErr}
	}
	if status < 200 || status >= 300 {
		return "", &track.FetchError{Number: number, StatusCode: status, Err: fmt.Errorf("unexpected status %d", status)}
	}
	return string(body), nil
}

// visit races the collector against the context, matching the crawl budget
// discipline elsewhere in the fetch layer.
func (f *Fetcher) visit(ctx context.Context, collector *colly.Collector, url string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("probe fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("probe visit: %w", err)
		}
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
