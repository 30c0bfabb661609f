// Package uniovi scrapes a student's enrolled class groups out of the
// university schedule-planning portal. The portal is an uncontrolled HTML
// surface: everything here is best effort against its current markup, and
// the selectors live in Config so a markup change is a config edit, not a
// code change.
package uniovi

import (
	"context"
	"fmt"
	"os"

	"uniovi-scraper/lib/configuration"
	"uniovi-scraper/lib/telemetry"

	"dario.cat/mergo"
)

var tracer = telemetry.Tracer("uniovi-scraper.lib.scrapers.uniovi")

// Portal is the capability a schedule lookup needs from the portal: drive it
// to a student's schedule view, then read the class entries off that view.
// Locate must succeed before Extract is called. After a failed Locate the
// page state is undefined and the portal must not be reused.
type Portal interface {
	Locate(ctx context.Context, uo string) error
	Extract(ctx context.Context) ([]string, error)
	Close() error
}

type Selectors struct {
	// text input that receives the student identifier
	IdentifierInput string `json:"identifier_input"`
	// control that triggers the lookup
	Submit string `json:"submit"`
	// container that appears once a schedule has loaded
	Results string `json:"results"`
	// one scheduled class group inside the results container
	ClassEntry string `json:"class_entry"`
	// notice the portal renders for an unknown identifier
	NotFound string `json:"not_found"`
	// marker inside the results container for a student with no classes
	EmptySchedule string `json:"empty_schedule"`
}

type Config struct {
	BaseUrl  string `json:"base_url"`
	YearCode string `json:"year_code"`
	TermCode string `json:"term_code"`

	Selectors Selectors `json:"selectors"`

	PageLoadTimeoutSeconds int `json:"page_load_timeout_seconds"`
	ResultsTimeoutSeconds  int `json:"results_timeout_seconds"`
}

func DefaultConfig() Config {
	return Config{
		BaseUrl:  "https://gobierno.ingenieriainformatica.uniovi.es/horarios",
		YearCode: "2024-2025",
		TermCode: "1",
		Selectors: Selectors{
			IdentifierInput: "input#uo",
			Submit:          "button#buscar",
			Results:         "section#horario",
			ClassEntry:      "li.clase",
			NotFound:        "div.uo-desconocido",
			EmptySchedule:   "p.sin-clases",
		},
		PageLoadTimeoutSeconds: 30,
		ResultsTimeoutSeconds:  15,
	}
}

// LoadConfig returns DefaultConfig overridden by the nearest uniovi.json5,
// searching from the cwd up. A missing file just means defaults.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	override, err := configuration.ReadRecursively[Config]("uniovi.json5")
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}

	err = mergo.Merge(&cfg, override, mergo.WithOverride)
	if err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LookupURL is the schedule-lookup page for the configured academic year and
// term. The identifier is not part of the URL, it goes through the lookup
// form (or the equivalent `uo` query parameter, the form submits via GET).
func (c Config) LookupURL() string {
	return fmt.Sprintf("%s/%s/%s/", c.BaseUrl, c.YearCode, c.TermCode)
}
