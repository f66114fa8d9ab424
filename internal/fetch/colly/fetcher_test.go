package collyfetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozwatch/ozwatch/internal/track"
)

func TestFetchReturnsBody(t *testing.T) {
	var gotPath, gotLang string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.RequestURI()
		gotLang = r.Header.Get("Accept-Language")
		w.Write([]byte("<html><body>Заказ в пути</body></html>"))
	}))
	defer srv.Close()

	f := New(Config{BaseURL: srv.URL, Timeout: 5 * time.Second})
	body, err := f.Fetch(context.Background(), "94044975-0220-1")
	require.NoError(t, err)
	assert.Contains(t, body, "в пути")
	assert.Equal(t, "/?track=94044975-0220-1", gotPath)
	assert.Contains(t, gotLang, "ru-RU")
}

func TestFetchSetsUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := New(Config{BaseURL: srv.URL, UserAgent: "ozwatch-test/1.0", Timeout: 5 * time.Second})
	_, err := f.Fetch(context.Background(), "111111")
	require.NoError(t, err)
	assert.Equal(t, "ozwatch-test/1.0", gotUA)
}

func TestFetchNotFoundIsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	f := New(Config{BaseURL: srv.URL, Timeout: 5 * time.Second})
	_, err := f.Fetch(context.Background(), "111111")
	require.Error(t, err)

	var fe *track.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusNotFound, fe.StatusCode)
	assert.Equal(t, "111111", fe.Number)
}

func TestFetchConnectionRefusedIsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // nothing listening anymore

	f := New(Config{BaseURL: srv.URL, Timeout: 2 * time.Second})
	_, err := f.Fetch(context.Background(), "111111")

	var fe *track.FetchError
	require.True(t, errors.As(err, &fe))
}

func TestFetchReusableAcrossCalls(t *testing.T) {
	// A failed fetch must not poison the next one; every call clones the base
	// collector.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("track") == "000000" {
			http.Error(w, "gone", http.StatusGone)
			return
		}
		w.Write([]byte("Доставлено"))
	}))
	defer srv.Close()

	f := New(Config{BaseURL: srv.URL, Timeout: 5 * time.Second})
	_, err := f.Fetch(context.Background(), "000000")
	require.Error(t, err)

	body, err := f.Fetch(context.Background(), "111111")
	require.NoError(t, err)
	assert.Contains(t, body, "Доставлено")
}
