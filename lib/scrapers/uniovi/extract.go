package uniovi

import (
	"github.com/PuerkitoBio/goquery"

	"uniovi-scraper/lib/htmlutil"
)

// extractClasses reads the class entries out of a results document in
// document order. That order is the portal's own day/period ordering and is
// part of the contract: never sort, never deduplicate (a student can hold two
// lab groups with identical codes).
func extractClasses(cfg Config, doc *goquery.Document) ([]string, error) {
	container := doc.Find(cfg.Selectors.Results)
	if container.Length() == 0 {
		return nil, &Error{
			Kind:    KindUnexpectedPortalShape,
			Message: "results container is missing from the schedule document",
		}
	}

	entries := container.Find(cfg.Selectors.ClassEntry)
	if entries.Length() == 0 {
		// an empty schedule is only trusted when the portal says so
		// explicitly, otherwise assume the markup changed underneath us
		if container.Find(cfg.Selectors.EmptySchedule).Length() > 0 {
			return []string{}, nil
		}
		return nil, &Error{
			Kind:    KindUnexpectedPortalShape,
			Message: "results container has no class entries and no empty-schedule notice",
		}
	}

	classes := make([]string, 0, entries.Length())
	for _, node := range entries.Nodes {
		classes = append(classes, htmlutil.CleanText(node))
	}
	return classes, nil
}
