package uniovi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// the lookup form submits via GET, which is exactly what StaticClient
// piggybacks on
const lookupPage = `<!DOCTYPE html>
<html><body>
<h1>Consulta de horarios</h1>
<form method="get" action="">
  <input type="text" id="uo" name="uo">
  <button type="submit" id="buscar">Buscar</button>
</form>
</body></html>`

// neither a results container nor a not-found notice, the outcome poll can
// only time out on this
const pendingPage = `<!DOCTYPE html>
<html><body>
<p>Cargando horario...</p>
</body></html>`

// needs a local Chrome/Chromium install, so it stays behind an env var
func requireBrowserEnv(t *testing.T) {
	if os.Getenv("UNIOVI_BROWSER_TEST") == "" {
		t.Skip("set UNIOVI_BROWSER_TEST=1 to run headless browser tests")
	}
}

func TestBrowserLookup(t *testing.T) {
	requireBrowserEnv(t)

	server := httptest.NewServer(http.HandlerFunc(fixtureHandler))
	defer server.Close()

	browser, err := NewBrowser(context.Background(), fixtureConfig(server.URL))
	require.NoError(t, err)
	defer browser.Close()

	ctx := context.Background()
	err = browser.Locate(ctx, "Uo287577")
	require.NoError(t, err)

	classes, err := browser.Extract(ctx)
	require.NoError(t, err)

	diff := cmp.Diff([]string{"Alg.T.2", "Alg.S.1", "Alg.L.3"}, classes)
	require.Empty(t, diff)
}

func TestBrowserLookupResultsTimeoutIsBounded(t *testing.T) {
	requireBrowserEnv(t)

	server := httptest.NewServer(http.HandlerFunc(fixtureHandler))
	defer server.Close()

	cfg := fixtureConfig(server.URL)
	cfg.ResultsTimeoutSeconds = 2

	browser, err := NewBrowser(context.Background(), cfg)
	require.NoError(t, err)
	defer browser.Close()

	start := time.Now()
	err = browser.Locate(context.Background(), "Uo555555")
	elapsed := time.Since(start)

	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	require.Equal(t, KindTimeout, kind)
	require.Less(t, elapsed, time.Second*4)
}

func TestBrowserSubmitControlMissingIsBounded(t *testing.T) {
	requireBrowserEnv(t)

	server := httptest.NewServer(http.HandlerFunc(fixtureHandler))
	defer server.Close()

	cfg := fixtureConfig(server.URL)
	cfg.PageLoadTimeoutSeconds = 2
	cfg.Selectors.Submit = "button#nonexistent"

	browser, err := NewBrowser(context.Background(), cfg)
	require.NoError(t, err)
	defer browser.Close()

	start := time.Now()
	err = browser.Locate(context.Background(), "Uo287577")
	elapsed := time.Since(start)

	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	require.Equal(t, KindTimeout, kind)
	require.Less(t, elapsed, time.Second*4)
}

func TestBrowserLookupUnknownIdentifier(t *testing.T) {
	requireBrowserEnv(t)

	server := httptest.NewServer(http.HandlerFunc(fixtureHandler))
	defer server.Close()

	browser, err := NewBrowser(context.Background(), fixtureConfig(server.URL))
	require.NoError(t, err)
	defer browser.Close()

	err = browser.Locate(context.Background(), "Uo000000")
	require.Error(t, err)

	kind, ok := KindOf(err)
	require.True(t, ok)
	require.Equal(t, KindInvalidIdentifier, kind)
}
