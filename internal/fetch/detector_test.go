package fetch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldPromoteEmptyBody(t *testing.T) {
	d := NewDetector(0, nil)
	assert.True(t, d.ShouldPromote(""))
	assert.True(t, d.ShouldPromote("   \n\t"))
}

func TestShouldPromoteAppShellMarkers(t *testing.T) {
	d := NewDetector(0, nil)
	tests := []string{
		`<html><body><div id="app"></div><script>window.__NUXT__={}</script></body></html>`,
		`<html><body><div data-reactroot=""></div></body></html>`,
		`<html><body><noscript>Включите JavaScript</noscript></body></html>`,
	}
	for _, body := range tests {
		assert.True(t, d.ShouldPromote(body), "body: %s", body)
	}
}

func TestShouldPromoteThinVisibleText(t *testing.T) {
	d := NewDetector(400, []string{"never-matches"})
	assert.True(t, d.ShouldPromote("<html><body><p>почти пусто</p></body></html>"))
}

func TestShouldNotPromoteContentfulPage(t *testing.T) {
	d := NewDetector(100, []string{"never-matches"})
	body := "<html><body><p>" + strings.Repeat("Заказ везут в город получателя. ", 20) + "</p></body></html>"
	assert.False(t, d.ShouldPromote(body))
}

func TestShouldPromoteIgnoresScriptText(t *testing.T) {
	// script content does not count as visible text
	d := NewDetector(400, []string{"never-matches"})
	body := "<html><body><script>" + strings.Repeat("var x = 1; ", 200) + "</script></body></html>"
	assert.True(t, d.ShouldPromote(body))
}

func TestNilDetectorNeverPromotes(t *testing.T) {
	var d *Detector
	assert.False(t, d.ShouldPromote(""))
}
