package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"uniovi-scraper/lib/scrapers/uniovi"
	"uniovi-scraper/lib/telemetry"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type fakePortal struct {
	classes    []string
	locateErr  error
	extractErr error

	locatedUO    string
	closed       bool
	panicExtract bool
}

func (p *fakePortal) Locate(ctx context.Context, uo string) error {
	p.locatedUO = uo
	return p.locateErr
}

func (p *fakePortal) Extract(ctx context.Context) ([]string, error) {
	if p.panicExtract {
		panic("portal exploded")
	}
	return p.classes, p.extractErr
}

func (p *fakePortal) Close() error {
	p.closed = true
	return nil
}

func openerFor(p *fakePortal, err error) PortalOpener {
	return func(ctx context.Context) (uniovi.Portal, error) {
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

func marshal(t *testing.T, r Result) string {
	data, err := json.Marshal(r)
	require.NoError(t, err)
	return string(data)
}

func TestNormalizeUO(t *testing.T) {
	for _, raw := range []string{"uo287577", "Uo287577", "UO287577", " uO287577 "} {
		require.Equal(t, "Uo287577", NormalizeUO(raw), "raw: %q", raw)
	}

	// bare digits get the prefix added
	require.Equal(t, "Uo287577", NormalizeUO("287577"))
	require.Equal(t, "", NormalizeUO("   "))

	// idempotent
	once := NormalizeUO("uO287577")
	require.Equal(t, once, NormalizeUO(once))
}

func TestRunSuccessShape(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:services/schedule")
	defer cleanup()

	portal := &fakePortal{classes: []string{"Alg.T.2", "Alg.S.1", "Alg.L.3"}}
	svc := NewService(openerFor(portal, nil))

	result := svc.Run(context.Background(), "UO287577")

	require.JSONEq(
		t,
		`{"success": true, "uo": "Uo287577", "classes": ["Alg.T.2", "Alg.S.1", "Alg.L.3"]}`,
		marshal(t, result),
	)
	require.Equal(t, "Uo287577", portal.locatedUO)
	require.True(t, portal.closed)
}

func TestRunEmptyScheduleIsSuccess(t *testing.T) {
	portal := &fakePortal{classes: nil}
	svc := NewService(openerFor(portal, nil))

	result := svc.Run(context.Background(), "uo287577")

	require.JSONEq(
		t,
		`{"success": true, "uo": "Uo287577", "classes": []}`,
		marshal(t, result),
	)
}

func TestRunPreservesDuplicates(t *testing.T) {
	portal := &fakePortal{classes: []string{"SO.L.1", "SO.L.1"}}
	svc := NewService(openerFor(portal, nil))

	result := svc.Run(context.Background(), "Uo287577")
	require.True(t, result.Success)

	diff := cmp.Diff([]string{"SO.L.1", "SO.L.1"}, result.Classes)
	require.Empty(t, diff)
}

func TestRunUnknownIdentifier(t *testing.T) {
	portal := &fakePortal{
		locateErr: &uniovi.Error{
			Kind:    uniovi.KindInvalidIdentifier,
			Message: "the portal does not know this identifier",
		},
	}
	svc := NewService(openerFor(portal, nil))

	result := svc.Run(context.Background(), "Uo000000")

	require.False(t, result.Success)
	require.NotEmpty(t, result.Err)
	require.True(t, portal.closed)

	var payload struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(marshal(t, result)), &payload))
	require.False(t, payload.Success)
	require.NotEmpty(t, payload.Error)
}

func TestRunSessionOpenFailure(t *testing.T) {
	svc := NewService(openerFor(nil, fmt.Errorf("no chrome executable found")))

	result := svc.Run(context.Background(), "Uo287577")
	require.False(t, result.Success)
	require.Contains(t, result.Err, "no chrome executable found")
}

func TestRunEmptyIdentifier(t *testing.T) {
	svc := NewService(openerFor(&fakePortal{}, nil))

	result := svc.Run(context.Background(), "   ")
	require.False(t, result.Success)
	require.NotEmpty(t, result.Err)
}

func TestRunExtractFailureClosesPortal(t *testing.T) {
	portal := &fakePortal{
		extractErr: &uniovi.Error{
			Kind:    uniovi.KindUnexpectedPortalShape,
			Message: "results container has no class entries",
		},
	}
	svc := NewService(openerFor(portal, nil))

	result := svc.Run(context.Background(), "Uo287577")
	require.False(t, result.Success)
	require.True(t, portal.closed)
}

func TestRunRecoversPanics(t *testing.T) {
	portal := &fakePortal{panicExtract: true}
	svc := NewService(openerFor(portal, nil))

	result := svc.Run(context.Background(), "Uo287577")
	require.False(t, result.Success)
	require.Contains(t, result.Err, "internal error")
}

const fixtureSchedulePage = `<!DOCTYPE html>
<html><body>
<section id="horario">
  <ul>
    <li class="clase">Alg.T.2</li>
    <li class="clase">Alg.S.1</li>
    <li class="clase">Alg.L.3</li>
  </ul>
</section>
</body></html>`

const fixtureNotFoundPage = `<!DOCTYPE html>
<html><body>
<div class="uo-desconocido">No se ha encontrado ese UO.</div>
</body></html>`

// end to end against a fixture portal, using the real static client
func TestRunAgainstFixturePortal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "text/html; charset=utf-8")
		if r.URL.Query().Get("uo") == "Uo287577" {
			w.Write([]byte(fixtureSchedulePage))
			return
		}
		w.Write([]byte(fixtureNotFoundPage))
	}))
	defer server.Close()

	cfg := uniovi.DefaultConfig()
	cfg.BaseUrl = server.URL
	cfg.PageLoadTimeoutSeconds = 5

	svc := NewService(func(ctx context.Context) (uniovi.Portal, error) {
		return uniovi.NewStaticClient(cfg)
	})

	result := svc.Run(context.Background(), "UO287577")
	require.JSONEq(
		t,
		`{"success": true, "uo": "Uo287577", "classes": ["Alg.T.2", "Alg.S.1", "Alg.L.3"]}`,
		marshal(t, result),
	)

	result = svc.Run(context.Background(), "uo123456")
	require.False(t, result.Success)
	require.NotEmpty(t, result.Err)
}
