// Package fetch combines the probe and rendered strategies behind the
// Fetcher contract.
package fetch

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Detector decides whether a probe response needs a rendered fetch. The
// signals are the same ones a human would use: barely any visible text, or
// markers of a script-driven app shell.
type Detector struct {
	minTextBytes int
	markers      []string
}

var defaultMarkers = []string{
	"__nuxt__",
	"__next_data__",
	"window.__apollo_state__",
	"data-reactroot",
	"<noscript",
	"включите javascript",
	"enable javascript",
}

// NewDetector constructs a Detector; zero minTextBytes and nil markers pick
// the defaults.
func NewDetector(minTextBytes int, markers []string) *Detector {
	if minTextBytes <= 0 {
		minTextBytes = 400
	}
	if markers == nil {
		markers = defaultMarkers
	}
	lowered := make([]string, 0, len(markers))
	for _, m := range markers {
		m = strings.ToLower(strings.TrimSpace(m))
		if m != "" {
			lowered = append(lowered, m)
		}
	}
	return &Detector{minTextBytes: minTextBytes, markers: lowered}
}

// ShouldPromote reports whether the probe body looks script-rendered.
func (d *Detector) ShouldPromote(body string) bool {
	if d == nil {
		return false
	}
	if strings.TrimSpace(body) == "" {
		return true
	}
	lower := strings.ToLower(body)
	for _, m := range d.markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return len(visibleText(body)) < d.minTextBytes
}

// visibleText strips markup; on a parse failure the raw body stands in.
func visibleText(body string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return body
	}
	doc.Find("script,style").Remove()
	return strings.TrimSpace(doc.Text())
}
