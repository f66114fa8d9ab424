// Package extract turns raw tracking pages into canonical statuses.
//
// The page may arrive as full HTML, as a structured data blob serialized
// inside the markup, or as already-rendered visible text. Extraction is
// deliberately format-agnostic: everything is folded into one normalized
// text corpus and matched by substring containment, so it keeps working when
// the page's structured-data shape drifts.
package extract

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ozwatch/ozwatch/internal/track"
)

type candidate struct {
	phrase string
	status track.Status
}

// Candidate phrases in priority order: generic phrases first, more specific
// ones later. Scanning keeps the last match, so a specific phrase always
// beats a generic one it contains ("заказ везут" vs "заказ везут на таможню
// в стране назначения").
var candidates = []candidate{
	{"ожидает", track.StatusCreated},
	{"создан", track.StatusCreated},
	{"отправлено", track.StatusHandedToCarrier},
	{"передается в доставку", track.StatusHandedToCarrier},
	{"заказ принят перевозчиком", track.StatusHandedToCarrier},
	{"прибыло", track.StatusInTransit},
	{"в пути", track.StatusInTransit},
	{"заказ везут", track.StatusInTransit},
	{"заказ ожидает отправки в город получателя", track.StatusInTransit},
	{"заказ везут в город получателя", track.StatusInTransit},
	{"заказ везут на таможню в стране отправления", track.StatusCustomsOutbound},
	{"заказ привезли на таможню для экспортного таможенного оформления", track.StatusCustomsOutbound},
	{"заказ везут на таможню в стране назначения", track.StatusCustomsInbound},
	{"заказ привезли в страну назначения", track.StatusCustomsInbound},
	{"заказ передан на импортное таможенное оформление", track.StatusCustomsInbound},
	{"заказ проходит импортное таможенное оформление", track.StatusCustomsInbound},
	{"заказ выпущен импортной таможней", track.StatusCustomsInbound},
	{"заказ отправили на сортировочный терминал", track.StatusAtSortation},
	{"заказ покинул сортировочный терминал", track.StatusAtSortation},
	{"заказ передали в курьерскую доставку", track.StatusOutForDelivery},
	{"передан курьеру", track.StatusOutForDelivery},
	{"готов к выдаче", track.StatusReadyForPickup},
	{"готово к выдаче", track.StatusReadyForPickup},
	{"на пункте выдачи", track.StatusReadyForPickup},
	{"получено", track.StatusDelivered},
	{"доставлен", track.StatusDelivered},
	{"доставлено", track.StatusDelivered},
}

// Anti-automation boilerplate. Checked before lifecycle matching and
// short-circuits to StatusBlocked.
var blockedIndicators = []string{
	"доступ ограничен",
	"доступ запрещен",
	"подтвердите, что вы не робот",
	"проверка браузера",
	"слишком много запросов",
	"captcha",
	"access denied",
	"access restricted",
	"too many requests",
	"checking your browser",
}

// Extractor implements track.Extractor.
type Extractor struct{}

// New returns an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract returns the canonical status for a raw page and a reason code. For
// a blocked page the reason is the matched indicator phrase. Extract never
// fails on malformed input; the worst case is unknown/no-match.
func (e *Extractor) Extract(pageContent string) (track.Status, string) {
	corpus := buildCorpus(pageContent)

	for _, indicator := range blockedIndicators {
		if strings.Contains(corpus, indicator) {
			return track.StatusBlocked, indicator
		}
	}

	status := track.StatusUnknown
	for _, c := range candidates {
		if strings.Contains(corpus, c.phrase) {
			status = c.status
		}
	}
	if status == track.StatusUnknown {
		return track.StatusUnknown, track.ReasonNoMatch
	}
	return status, track.ReasonMatched
}

// buildCorpus folds every view of the page we can get into one normalized
// string: the raw input, the tag-stripped visible text, and the string
// leaves of any JSON found in the page (handles \u-escaped embedded data).
func buildCorpus(pageContent string) string {
	parts := []string{pageContent}

	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageContent)); err == nil {
		parts = append(parts, doc.Text())
		doc.Find("script").Each(func(_ int, sel *goquery.Selection) {
			parts = append(parts, jsonLeaves(sel.Text())...)
		})
	}
	parts = append(parts, jsonLeaves(pageContent)...)

	for i, p := range parts {
		parts[i] = normalize(p)
	}
	return strings.Join(parts, " ")
}

// jsonLeaves parses text as JSON and collects its string leaves. Non-JSON
// input yields nothing.
func jsonLeaves(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" || (text[0] != '{' && text[0] != '[') {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil
	}
	var out []string
	collectLeaves(v, &out)
	return out
}

func collectLeaves(v any, out *[]string) {
	switch t := v.(type) {
	case string:
		*out = append(*out, t)
	case []any:
		for _, e := range t {
			collectLeaves(e, out)
		}
	case map[string]any:
		for _, e := range t {
			collectLeaves(e, out)
		}
	}
}

// normalize lowercases, folds ё to е and collapses whitespace runs.
func normalize(s string) string {
	s = strings.ToLower(s)
	s = strings.Map(func(r rune) rune {
		if r == 'ё' {
			return 'е'
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
