package schemas

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidTask is returned when a task request fails validation. It is always
// raised before a browser is launched or the remote service is contacted.
var ErrInvalidTask = errors.New("invalid task request")

// DefaultRequiredDomain is the scheduling domain every destination must belong to.
const DefaultRequiredDomain = "meetings.hubspot.com"

// TaskRequest describes the end goal of a single booking session. It is built
// once per session and never mutated afterwards.
type TaskRequest struct {
	URL       string `json:"url" mapstructure:"url"`
	FirstName string `json:"first" mapstructure:"first_name"`
	LastName  string `json:"last" mapstructure:"last_name"`
	Email     string `json:"mail" mapstructure:"email"`
	Hour      string `json:"hour" mapstructure:"hour"`
}

// WithDefaults returns a copy of the request where every empty field is taken
// from defaults.
func (t TaskRequest) WithDefaults(defaults TaskRequest) TaskRequest {
	out := t
	if strings.TrimSpace(out.URL) == "" {
		out.URL = defaults.URL
	}
	if strings.TrimSpace(out.FirstName) == "" {
		out.FirstName = defaults.FirstName
	}
	if strings.TrimSpace(out.LastName) == "" {
		out.LastName = defaults.LastName
	}
	if strings.TrimSpace(out.Email) == "" {
		out.Email = defaults.Email
	}
	if strings.TrimSpace(out.Hour) == "" {
		out.Hour = defaults.Hour
	}
	return out
}

// Validate checks that the destination is an absolute http(s) URL on the
// required scheduling domain. An empty requiredDomain falls back to
// DefaultRequiredDomain.
func (t TaskRequest) Validate(requiredDomain string) error {
	if requiredDomain == "" {
		requiredDomain = DefaultRequiredDomain
	}
	raw := strings.TrimSpace(t.URL)
	if raw == "" {
		return fmt.Errorf("%w: destination url is required", ErrInvalidTask)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: unparseable destination url %q: %v", ErrInvalidTask, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: destination url %q must use http or https", ErrInvalidTask, raw)
	}
	if !strings.Contains(strings.ToLower(u.Host), strings.ToLower(requiredDomain)) {
		return fmt.Errorf("%w: destination url %q is not on %s", ErrInvalidTask, raw, requiredDomain)
	}
	return nil
}

// instructionTemplate mirrors the wording the booking flow was tuned against.
const instructionTemplate = "Abre %s y agenda cualquier cita disponible; luego llena: " +
	"Nombre=%s, Apellido=%s, email=%s, hora=%s y confirma."

// Instruction composes the first-turn instruction sent to the computer-use model.
func (t TaskRequest) Instruction() string {
	return fmt.Sprintf(instructionTemplate, t.URL, t.FirstName, t.LastName, t.Email, t.Hour)
}
