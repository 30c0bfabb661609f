package uniovi

import (
	"bytes"
	"context"
	"fmt"
	"net/http/cookiejar"
	"time"

	"uniovi-scraper/lib/restyutil"
	"uniovi-scraper/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
)

// StaticClient talks to the portal with plain HTTP instead of a browser. The
// lookup form submits via GET, so sending the identifier as the `uo` query
// parameter yields the same results document the browser would render. It
// only works while the portal keeps serving the schedule without JavaScript,
// which the informatics site historically has.
type StaticClient struct {
	cfg  Config
	http *resty.Client

	// results document captured by the last successful Locate
	doc *goquery.Document
}

var _ Portal = (*StaticClient)(nil)

func NewStaticClient(cfg Config) (*StaticClient, error) {
	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, &Error{
			Kind:    KindSession,
			Message: "failed to initialize http session",
			Cause:   err,
		}
	}
	client.SetCookieJar(jar)
	client.SetHeader("user-agent", userAgent)
	client.SetTimeout(time.Duration(cfg.PageLoadTimeoutSeconds) * time.Second)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	telemetry.InstrumentResty(client, "scrapers/uniovi/http")

	return &StaticClient{
		cfg:  cfg,
		http: client,
	}, nil
}

// SetInstrumentOutput dumps every request/response pair to out, for debugging
// portal markup drift.
func (c *StaticClient) SetInstrumentOutput(out restyutil.InstrumentOutput) {
	restyutil.InstrumentClient(c.http, out)
}

func (c *StaticClient) Close() error {
	c.http.GetClient().CloseIdleConnections()
	return nil
}

func (c *StaticClient) Locate(ctx context.Context, uo string) error {
	ctx, span := tracer.Start(ctx, "static:Locate")
	defer span.End()

	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("uo", uo).
		Get(c.cfg.LookupURL())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup request failed")
		// network trouble and portal downtime land in the same bucket
		// as a results wait that never completes
		return &Error{
			Kind:    KindTimeout,
			Message: "the portal could not be reached",
			Cause:   err,
		}
	}
	if res.IsError() {
		span.SetStatus(codes.Error, "lookup returned an error status")
		return &Error{
			Kind:    KindTimeout,
			Message: fmt.Sprintf("the portal answered with status %d", res.StatusCode()),
		}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse lookup response")
		return &Error{
			Kind:    KindUnexpectedPortalShape,
			Message: "could not parse the lookup response",
			Cause:   err,
		}
	}

	if doc.Find(c.cfg.Selectors.NotFound).Length() > 0 {
		span.SetStatus(codes.Error, "portal reported unknown identifier")
		return &Error{
			Kind:    KindInvalidIdentifier,
			Message: "the portal does not know this identifier",
		}
	}
	if doc.Find(c.cfg.Selectors.Results).Length() == 0 {
		span.SetStatus(codes.Error, "lookup response has no recognizable outcome")
		return &Error{
			Kind:    KindUnexpectedPortalShape,
			Message: "lookup response contains neither a schedule nor a not-found notice",
		}
	}

	c.doc = doc
	return nil
}

func (c *StaticClient) Extract(ctx context.Context) ([]string, error) {
	_, span := tracer.Start(ctx, "static:Extract")
	defer span.End()

	if c.doc == nil {
		span.SetStatus(codes.Error, "extract called before a successful locate")
		return nil, &Error{
			Kind:    KindSession,
			Message: "no schedule page has been located",
		}
	}
	return extractClasses(c.cfg, c.doc)
}
