// Package search evaluates ticket list criteria both in process and as SQL.
package search

import (
	"fmt"
	"strings"

	"github.com/spec-kit/field-ticket-service/internal/domain"
	apperrors "github.com/spec-kit/field-ticket-service/pkg/util/errorutil"
)

// Filter narrows the list to open or closed tickets.
type Filter string

const (
	FilterAll    Filter = ""
	FilterOpen   Filter = "open"
	FilterClosed Filter = "closed"
)

// ParseFilter treats "all" and the empty string as no constraint.
func ParseFilter(raw string) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "all":
		return FilterAll, nil
	case "open":
		return FilterOpen, nil
	case "closed":
		return FilterClosed, nil
	}
	return "", fmt.Errorf("unknown filter %q", raw)
}

// Criteria is a conjunction of the optional list constraints.
type Criteria struct {
	Search string
	Status *domain.TicketStatus
	Filter Filter
}

// Parse validates raw query parameters into Criteria.
func Parse(searchTerm, status, filter string) (Criteria, error) {
	fields := apperrors.FieldErrors{}
	criteria := Criteria{Search: strings.TrimSpace(searchTerm)}

	if status = strings.TrimSpace(status); status != "" {
		parsed, err := domain.ParseTicketStatus(status)
		if err != nil {
			fields.Add("status", "status must be one of Open, Need to Receive, In Progress, Resolved, Closed")
		} else {
			criteria.Status = &parsed
		}
	}
	parsedFilter, err := ParseFilter(filter)
	if err != nil {
		fields.Add("filter", "filter must be one of all, open, closed")
	}
	criteria.Filter = parsedFilter

	if err := fields.Err(); err != nil {
		return Criteria{}, err
	}
	return criteria, nil
}

// IsEmpty reports whether the criteria impose no constraint.
func (c Criteria) IsEmpty() bool {
	return c.Search == "" && c.Status == nil && c.Filter == FilterAll
}

// Matches applies the criteria to a single ticket.
func (c Criteria) Matches(t *domain.Ticket) bool {
	if c.Search != "" && !matchesTerm(t, c.Search) {
		return false
	}
	if c.Status != nil && t.Status != *c.Status {
		return false
	}
	switch c.Filter {
	case FilterOpen:
		return t.Status.IsOpen()
	case FilterClosed:
		return t.IsClosedComplete()
	case FilterAll:
	}
	return true
}

func matchesTerm(t *domain.Ticket, term string) bool {
	needle := strings.ToLower(term)
	candidates := []string{t.TicketNumber, t.Company, t.Problem}
	if t.CaseID != nil {
		candidates = append(candidates, *t.CaseID)
	}
	for _, c := range candidates {
		if strings.Contains(strings.ToLower(c), needle) {
			return true
		}
	}
	return false
}

// Where renders the criteria as SQL clauses over the tickets table. Bind values
// are appended to args and placeholders numbered after any existing ones.
func (c Criteria) Where(args *[]any) []string {
	var clauses []string
	if c.Search != "" {
		*args = append(*args, "%"+escapeLike(c.Search)+"%")
		p := fmt.Sprintf("$%d", len(*args))
		clauses = append(clauses, fmt.Sprintf(
			"(ticket_number ILIKE %[1]s OR case_id ILIKE %[1]s OR company ILIKE %[1]s OR problem ILIKE %[1]s)", p))
	}
	if c.Status != nil {
		*args = append(*args, string(*c.Status))
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(*args)))
	}
	switch c.Filter {
	case FilterOpen:
		*args = append(*args, string(domain.TicketStatusClosed), string(domain.TicketStatusResolved))
		clauses = append(clauses, fmt.Sprintf("status NOT IN ($%d, $%d)", len(*args)-1, len(*args)))
	case FilterClosed:
		*args = append(*args, string(domain.TicketStatusClosed))
		clauses = append(clauses, fmt.Sprintf("(status = $%d AND completed_at IS NOT NULL)", len(*args)))
	case FilterAll:
	}
	return clauses
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}
