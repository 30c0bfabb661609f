package uniovi

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	// the browser or HTTP session could not be created or died underneath us
	KindSession ErrorKind = iota
	// an expected page element did not appear within the bounded wait
	KindTimeout
	// the portal explicitly reported that it does not know the identifier
	KindInvalidIdentifier
	// a selector resolved to nothing even though the portal claimed success
	KindUnexpectedPortalShape
)

func (k ErrorKind) String() string {
	switch k {
	case KindSession:
		return "session"
	case KindTimeout:
		return "timeout"
	case KindInvalidIdentifier:
		return "invalid identifier"
	case KindUnexpectedPortalShape:
		return "unexpected portal shape"
	}
	return "unknown"
}

// Error is any failure the scraper can produce. Callers that care about the
// failure class use errors.As and Kind; the rendered message stays a plain
// human-readable string since that is what existing consumers parse.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Message, e.Cause.Error())
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// KindOf reports the scraper error kind of err, if it carries one.
func KindOf(err error) (ErrorKind, bool) {
	var scrapeErr *Error
	if errors.As(err, &scrapeErr) {
		return scrapeErr.Kind, true
	}
	return 0, false
}
