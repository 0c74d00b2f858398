// Package subscription defines email digest opt-ins.
package subscription

import (
	"fmt"
	"net/mail"
	"slices"
	"strings"
	"time"

	"github.com/Strob0t/AgentShift/internal/domain"
)

// Recurrence is how often a subscriber receives a digest.
type Recurrence string

const (
	Daily  Recurrence = "daily"
	Weekly Recurrence = "weekly"
)

// ParseRecurrence accepts "daily" or "weekly" in any case.
func ParseRecurrence(s string) (Recurrence, error) {
	switch Recurrence(strings.ToLower(strings.TrimSpace(s))) {
	case Daily:
		return Daily, nil
	case Weekly:
		return Weekly, nil
	default:
		return "", fmt.Errorf("recurrence %q: %w", s, domain.ErrValidation)
	}
}

// Title returns the capitalised recurrence name for subjects.
func (r Recurrence) Title() string {
	if r == "" {
		return ""
	}
	return strings.ToUpper(string(r[:1])) + string(r[1:])
}

// Subscription is one opt-in. Identical tuples of recipient, agent list
// and recurrence flags are stored once.
type Subscription struct {
	ID        int64     `json:"id"`
	ToEmail   string    `json:"to_email"`
	Agents    []string  `json:"agents"`
	Daily     bool      `json:"daily"`
	Weekly    bool      `json:"weekly"`
	CreatedAt time.Time `json:"created_at"`
}

// New builds a subscription for a single recurrence.
func New(toEmail string, agents []string, r Recurrence) Subscription {
	return Subscription{
		ToEmail: strings.TrimSpace(toEmail),
		Agents:  agents,
		Daily:   r == Daily,
		Weekly:  r == Weekly,
	}
}

// Validate checks the recipient against the accepted mail domains, that at
// least one agent is named and that exactly one recurrence is selected.
// An empty validDomains accepts any domain.
func (s Subscription) Validate(validDomains []string) error {
	addr, err := mail.ParseAddress(s.ToEmail)
	if err != nil || addr.Address != s.ToEmail {
		return fmt.Errorf("invalid email address %q: %w", s.ToEmail, domain.ErrValidation)
	}
	if len(validDomains) > 0 {
		at := strings.LastIndex(s.ToEmail, "@")
		host := strings.ToLower(s.ToEmail[at+1:])
		if !slices.ContainsFunc(validDomains, func(d string) bool {
			return strings.EqualFold(strings.TrimPrefix(d, "@"), host)
		}) {
			return fmt.Errorf("email domain %q not accepted: %w", host, domain.ErrValidation)
		}
	}
	if len(s.Agents) == 0 {
		return fmt.Errorf("at least one agent is required: %w", domain.ErrValidation)
	}
	for _, a := range s.Agents {
		if strings.TrimSpace(a) == "" || strings.Contains(a, ",") {
			return fmt.Errorf("invalid agent name %q: %w", a, domain.ErrValidation)
		}
	}
	if s.Daily == s.Weekly {
		return fmt.Errorf("exactly one of daily or weekly is required: %w", domain.ErrValidation)
	}
	return nil
}

// AgentList is the comma-joined form persisted with the subscription.
func (s Subscription) AgentList() string {
	return strings.Join(s.Agents, ",")
}

// ParseAgents splits a persisted agent list.
func ParseAgents(list string) []string {
	var out []string
	for _, a := range strings.Split(list, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// Greeting derives a first name from the address, e.g.
// "jane.doe@example.com" becomes "Jane".
func (s Subscription) Greeting() string {
	local, _, _ := strings.Cut(s.ToEmail, "@")
	first, _, _ := strings.Cut(local, ".")
	if first == "" {
		return ""
	}
	return strings.ToUpper(first[:1]) + strings.ToLower(first[1:])
}
