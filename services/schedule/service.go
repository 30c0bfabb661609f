// Package schedule turns one student identifier into one JSON-shaped result.
// It owns identifier normalization, the portal session lifecycle and the
// mapping of every failure into the single result shape existing consumers
// already parse.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"uniovi-scraper/lib/scrapers/uniovi"
	"uniovi-scraper/lib/telemetry"

	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("uniovi-scraper.services.schedule")

// NormalizeUO canonicalizes a student identifier: the `UO` prefix becomes
// exactly `Uo` (added if absent), digits are left untouched. Idempotent, and
// consumers pattern-match on the result, so the casing rule must not drift.
func NormalizeUO(raw string) string {
	v := strings.TrimSpace(raw)
	if v == "" {
		return ""
	}
	if len(v) >= 2 && strings.EqualFold(v[:2], "uo") {
		return "Uo" + v[2:]
	}
	return "Uo" + v
}

// PortalOpener hands out a fresh portal session. Each Run opens exactly one
// and closes it on every exit path; sessions are never reused.
type PortalOpener func(ctx context.Context) (uniovi.Portal, error)

type Service struct {
	open PortalOpener
}

func NewService(open PortalOpener) Service {
	return Service{open: open}
}

// Run performs one lookup. It never returns an error and never lets a panic
// escape: whatever goes wrong becomes the failure variant of Result, because
// the caller's contract is "always parseable JSON".
func (s Service) Run(ctx context.Context, rawUO string) (result Result) {
	ctx, span := tracer.Start(ctx, "schedule:Run")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "recovered panic during lookup", "panic", r)
			span.SetStatus(codes.Error, "panic during lookup")
			result = Failed(fmt.Errorf("internal error: %v", r))
		}
	}()

	uo := NormalizeUO(rawUO)
	if uo == "" {
		span.SetStatus(codes.Error, "empty identifier")
		return Failed(fmt.Errorf("a UO identifier is required"))
	}

	portal, err := s.open(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open portal session")
		return Failed(err)
	}
	defer func() {
		err := portal.Close()
		if err != nil {
			slog.WarnContext(ctx, "failed to close portal session", "err", err)
		}
	}()

	slog.DebugContext(ctx, "locating schedule", "uo", uo)
	err = portal.Locate(ctx, uo)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "locate failed")
		return Failed(err)
	}

	classes, err := portal.Extract(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "extract failed")
		return Failed(err)
	}

	slog.DebugContext(ctx, "schedule extracted", "uo", uo, "classes", len(classes))
	return Successful(uo, classes)
}
