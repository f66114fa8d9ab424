package extract

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ozwatch/ozwatch/internal/track"
)

func TestExtractPlainText(t *testing.T) {
	tests := []struct {
		name string
		page string
		want track.Status
	}{
		{"created", "Заказ создан", track.StatusCreated},
		{"handed to carrier", "Заказ принят перевозчиком", track.StatusHandedToCarrier},
		{"in transit", "Посылка в пути", track.StatusInTransit},
		{"customs outbound", "Заказ везут на таможню в стране отправления", track.StatusCustomsOutbound},
		{"customs inbound released", "Заказ выпущен импортной таможней", track.StatusCustomsInbound},
		{"sortation", "Заказ покинул сортировочный терминал", track.StatusAtSortation},
		{"out for delivery", "Передан курьеру", track.StatusOutForDelivery},
		{"ready for pickup", "Заказ готов к выдаче", track.StatusReadyForPickup},
		{"delivered", "Доставлено", track.StatusDelivered},
	}
	ex := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, reason := ex.Extract(tt.page)
			assert.Equal(t, tt.want, status)
			assert.Equal(t, track.ReasonMatched, reason)
		})
	}
}

func TestExtractNoMatch(t *testing.T) {
	status, reason := New().Extract("<html><body>Страница не найдена</body></html>")
	assert.Equal(t, track.StatusUnknown, status)
	assert.Equal(t, track.ReasonNoMatch, reason)
}

func TestExtractEmptyPage(t *testing.T) {
	status, reason := New().Extract("")
	assert.Equal(t, track.StatusUnknown, status)
	assert.Equal(t, track.ReasonNoMatch, reason)
}

func TestExtractBlockedWinsOverLifecycle(t *testing.T) {
	// Anti-bot pages sometimes still carry marketing copy that matches a
	// lifecycle phrase; blocked must take precedence.
	page := "Доступ ограничен. Ваш заказ в пути будет показан после проверки."
	status, reason := New().Extract(page)
	assert.Equal(t, track.StatusBlocked, status)
	assert.Equal(t, "доступ ограничен", reason)
}

func TestExtractSpecificPhraseBeatsGeneric(t *testing.T) {
	// "заказ везут на таможню в стране назначения" contains "заказ везут";
	// the more specific phrase must decide the status.
	status, _ := New().Extract("Заказ везут на таможню в стране назначения")
	assert.Equal(t, track.StatusCustomsInbound, status)

	status, _ = New().Extract("Заказ везут в город получателя")
	assert.Equal(t, track.StatusInTransit, status)
}

func TestExtractFoldsYo(t *testing.T) {
	status, _ := New().Extract("Передаётся в доставку")
	assert.Equal(t, track.StatusHandedToCarrier, status)
}

func TestExtractNormalizesWhitespaceAndCase(t *testing.T) {
	status, _ := New().Extract("ЗАКАЗ   ПРИНЯТ\n\tПЕРЕВОЗЧИКОМ")
	assert.Equal(t, track.StatusHandedToCarrier, status)
}

func TestExtractHTMLMarkupInsidePhrase(t *testing.T) {
	// Tags split the phrase in the raw text; the tag-stripped view joins it.
	page := `<html><body><div class="status"><span>Заказ</span> <b>готов к выдаче</b></div></body></html>`
	status, reason := New().Extract(page)
	assert.Equal(t, track.StatusReadyForPickup, status)
	assert.Equal(t, track.ReasonMatched, reason)
}

func TestExtractEmbeddedJSONState(t *testing.T) {
	// Status hidden in a script-embedded state blob as \u escapes, invisible
	// to both the raw scan and the visible-text scan until the JSON string
	// leaves are decoded.
	var esc strings.Builder
	for _, r := range "Заказ выпущен импортной таможней" {
		if r > 127 {
			fmt.Fprintf(&esc, `\u%04x`, r)
		} else {
			esc.WriteRune(r)
		}
	}
	page := `<html><body><div id="app"></div>` +
		`<script>{"state":{"tracking":{"statusText":"` + esc.String() + `"}}}</script>` +
		`</body></html>`
	status, reason := New().Extract(page)
	assert.Equal(t, track.StatusCustomsInbound, status)
	assert.Equal(t, track.ReasonMatched, reason)
}

func TestExtractIdempotent(t *testing.T) {
	page := "<html><body>Заказ везут в город получателя</body></html>"
	ex := New()
	first, _ := ex.Extract(page)
	second, _ := ex.Extract(page)
	assert.Equal(t, first, second)
}

func TestExtractMalformedJSONIsHarmless(t *testing.T) {
	page := `<script>{"broken": </script> Доставлено`
	status, _ := New().Extract(page)
	assert.Equal(t, track.StatusDelivered, status)
}
