package uniovi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// how often the outcome of a lookup is polled for while waiting on the portal
const outcomePollInterval = time.Millisecond * 250

// Browser drives the portal through a headless Chrome tab. One Browser is
// one tab in one browser process, owned by a single lookup for its lifetime.
type Browser struct {
	cfg Config

	tabCtx      context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
}

var _ Portal = (*Browser)(nil)

// NewBrowser launches a headless browser process and opens the tab that will
// host the lookup. Launch failures surface here, not in Locate.
func NewBrowser(ctx context.Context, cfg Config) (*Browser, error) {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(userAgent),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	// an empty task list forces the browser to actually start
	err := chromedp.Run(tabCtx)
	if err != nil {
		cancelTab()
		cancelAlloc()
		return nil, &Error{
			Kind:    KindSession,
			Message: "failed to launch headless browser",
			Cause:   err,
		}
	}

	return &Browser{
		cfg:         cfg,
		tabCtx:      tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
	}, nil
}

func (b *Browser) Close() error {
	b.cancelTab()
	b.cancelAlloc()
	return nil
}

func (b *Browser) Locate(ctx context.Context, uo string) error {
	ctx, span := tracer.Start(ctx, "browser:Locate")
	defer span.End()

	sel := b.cfg.Selectors
	target := b.cfg.LookupURL()

	loadCtx, cancel := context.WithTimeout(b.tabCtx, time.Duration(b.cfg.PageLoadTimeoutSeconds)*time.Second)
	defer cancel()

	err := chromedp.Run(loadCtx,
		chromedp.Navigate(target),
		chromedp.WaitVisible(sel.IdentifierInput, chromedp.ByQuery),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load lookup page")
		if errors.Is(err, context.DeadlineExceeded) {
			return &Error{
				Kind:    KindTimeout,
				Message: fmt.Sprintf("lookup page did not settle within %ds", b.cfg.PageLoadTimeoutSeconds),
				Cause:   err,
			}
		}
		return &Error{
			Kind:    KindSession,
			Message: "browser failed while loading the lookup page",
			Cause:   err,
		}
	}

	// Click polls for the submit control, so this step needs its own
	// deadline or a drifted selector would block forever
	submitCtx, cancelSubmit := context.WithTimeout(b.tabCtx, time.Duration(b.cfg.PageLoadTimeoutSeconds)*time.Second)
	defer cancelSubmit()

	err = chromedp.Run(submitCtx,
		chromedp.SendKeys(sel.IdentifierInput, uo, chromedp.ByQuery),
		chromedp.Click(sel.Submit, chromedp.ByQuery),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to submit identifier")
		if errors.Is(err, context.DeadlineExceeded) {
			return &Error{
				Kind:    KindTimeout,
				Message: fmt.Sprintf("lookup form controls did not respond within %ds", b.cfg.PageLoadTimeoutSeconds),
				Cause:   err,
			}
		}
		return &Error{
			Kind:    KindSession,
			Message: "browser failed while submitting the identifier",
			Cause:   err,
		}
	}

	return b.waitForOutcome(ctx)
}

// waitForOutcome polls the page until either the results container or the
// unknown-identifier notice renders, bounded by the results timeout.
func (b *Browser) waitForOutcome(ctx context.Context) error {
	span := trace.SpanFromContext(ctx)
	sel := b.cfg.Selectors

	expr := fmt.Sprintf(
		`(function() {
			if (document.querySelector(%q)) { return "results"; }
			if (document.querySelector(%q)) { return "notfound"; }
			return "pending";
		})()`,
		sel.Results, sel.NotFound,
	)

	deadline := time.Now().Add(time.Duration(b.cfg.ResultsTimeoutSeconds) * time.Second)
	for {
		var state string
		err := chromedp.Run(b.tabCtx, chromedp.Evaluate(expr, &state))
		if err != nil {
			if b.tabCtx.Err() != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "browser died while waiting for the schedule")
				return &Error{
					Kind:    KindSession,
					Message: "browser died while waiting for the schedule",
					Cause:   err,
				}
			}
			// evaluation can fail transiently while the submission
			// navigation is in flight, keep polling until the deadline
			state = "pending"
		}

		switch state {
		case "results":
			return nil
		case "notfound":
			span.SetStatus(codes.Error, "portal reported unknown identifier")
			return &Error{
				Kind:    KindInvalidIdentifier,
				Message: "the portal does not know this identifier",
			}
		}

		if time.Now().After(deadline) {
			span.SetStatus(codes.Error, "timed out waiting for results")
			return &Error{
				Kind:    KindTimeout,
				Message: fmt.Sprintf("schedule did not appear within %ds", b.cfg.ResultsTimeoutSeconds),
			}
		}

		select {
		case <-ctx.Done():
			return &Error{
				Kind:    KindTimeout,
				Message: "lookup canceled while waiting for the schedule",
				Cause:   ctx.Err(),
			}
		case <-time.After(outcomePollInterval):
		}
	}
}

func (b *Browser) Extract(ctx context.Context) ([]string, error) {
	ctx, span := tracer.Start(ctx, "browser:Extract")
	defer span.End()

	var pageHtml string
	err := chromedp.Run(b.tabCtx, chromedp.OuterHTML("html", &pageHtml, chromedp.ByQuery))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read rendered page")
		return nil, &Error{
			Kind:    KindSession,
			Message: "browser failed while reading the schedule page",
			Cause:   err,
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHtml))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse rendered page")
		return nil, &Error{
			Kind:    KindUnexpectedPortalShape,
			Message: "could not parse the rendered schedule page",
			Cause:   err,
		}
	}

	return extractClasses(b.cfg, doc)
}
