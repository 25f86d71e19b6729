package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/field-ticket-service/internal/domain"
	apperrors "github.com/spec-kit/field-ticket-service/pkg/util/errorutil"
)

func strPtr(s string) *string { return &s }

func ticket(number string, status domain.TicketStatus, completed bool) *domain.Ticket {
	t := &domain.Ticket{TicketNumber: number, Company: "Acme", Problem: "No power", Status: status}
	if completed {
		now := time.Now()
		t.CompletedAt = &now
	}
	return t
}

func TestParse(t *testing.T) {
	c, err := Parse("  acme ", "In Progress", "ALL")
	require.NoError(t, err)
	assert.Equal(t, "acme", c.Search)
	require.NotNil(t, c.Status)
	assert.Equal(t, domain.TicketStatusInProgress, *c.Status)
	assert.Equal(t, FilterAll, c.Filter)

	c, err = Parse("", "", "")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())

	_, err = Parse("", "Pending", "archived")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	fields := apperrors.Fields(err)
	assert.Contains(t, fields, "status")
	assert.Contains(t, fields, "filter")
}

func TestMatchesFilter(t *testing.T) {
	tickets := []*domain.Ticket{
		ticket("T-1", domain.TicketStatusOpen, false),
		ticket("T-2", domain.TicketStatusNeedToReceive, false),
		ticket("T-3", domain.TicketStatusInProgress, false),
		ticket("T-4", domain.TicketStatusResolved, true),
		ticket("T-5", domain.TicketStatusClosed, true),
		ticket("T-6", domain.TicketStatusClosed, false),
	}

	count := func(c Criteria) []string {
		var out []string
		for _, tk := range tickets {
			if c.Matches(tk) {
				out = append(out, tk.TicketNumber)
			}
		}
		return out
	}

	assert.Equal(t, []string{"T-1", "T-2", "T-3"}, count(Criteria{Filter: FilterOpen}))
	assert.Equal(t, []string{"T-5"}, count(Criteria{Filter: FilterClosed}))
	assert.Len(t, count(Criteria{}), len(tickets))

	closed := domain.TicketStatusClosed
	assert.Equal(t, []string{"T-5", "T-6"}, count(Criteria{Status: &closed}))
	assert.Equal(t, []string{"T-5"}, count(Criteria{Status: &closed, Filter: FilterClosed}))
}

func TestMatchesSearch(t *testing.T) {
	tk := &domain.Ticket{
		TicketNumber: "T-001",
		CaseID:       strPtr("CASE-77"),
		Company:      "Acme Corp",
		Problem:      "No power at site",
		Status:       domain.TicketStatusOpen,
	}

	tests := []struct {
		term string
		want bool
	}{
		{"t-001", true},
		{"case-7", true},
		{"ACME", true},
		{"power", true},
		{"globex", false},
		{"%", false},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			assert.Equal(t, tt.want, Criteria{Search: tt.term}.Matches(tk))
		})
	}
}

func TestWhere(t *testing.T) {
	status := domain.TicketStatusOpen
	c := Criteria{Search: "50%_off", Status: &status, Filter: FilterOpen}

	args := []any{"existing"}
	clauses := c.Where(&args)

	require.Len(t, clauses, 3)
	assert.Equal(t, "(ticket_number ILIKE $2 OR case_id ILIKE $2 OR company ILIKE $2 OR problem ILIKE $2)", clauses[0])
	assert.Equal(t, "status = $3", clauses[1])
	assert.Equal(t, "status NOT IN ($4, $5)", clauses[2])
	assert.Equal(t, []any{"existing", `%50\%\_off%`, "Open", "Closed", "Resolved"}, args)

	args = nil
	clauses = Criteria{Filter: FilterClosed}.Where(&args)
	assert.Equal(t, []string{"(status = $1 AND completed_at IS NOT NULL)"}, clauses)
	assert.Equal(t, []any{"Closed"}, args)

	args = nil
	assert.Empty(t, Criteria{}.Where(&args))
	assert.Empty(t, args)
}
