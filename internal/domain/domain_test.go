package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTicketStatus(t *testing.T) {
	for _, status := range TicketStatuses {
		got, err := ParseTicketStatus(string(status))
		require.NoError(t, err)
		assert.Equal(t, status, got)
	}

	for _, raw := range []string{"", "open", "OPEN", "Cancelled", "Need To Receive"} {
		_, err := ParseTicketStatus(raw)
		assert.Error(t, err, raw)
	}
}

func TestTicketStatusIsOpen(t *testing.T) {
	tests := map[TicketStatus]bool{
		TicketStatusOpen:          true,
		TicketStatusNeedToReceive: true,
		TicketStatusInProgress:    true,
		TicketStatusResolved:      false,
		TicketStatusClosed:        false,
	}
	for status, want := range tests {
		assert.Equal(t, want, status.IsOpen(), status)
	}
}

func TestParseActivityType(t *testing.T) {
	got, err := ParseActivityType("on_the_way")
	require.NoError(t, err)
	assert.Equal(t, ActivityHitTheRoad, got)

	got, err = ParseActivityType("end_case")
	require.NoError(t, err)
	assert.Equal(t, ActivityEndCase, got)

	_, err = ParseActivityType("teleported")
	assert.Error(t, err)
}

func TestActivityTypeChangesStatus(t *testing.T) {
	assert.True(t, ActivityEndWorking.ChangesStatus())
	assert.True(t, ActivityCompleted.ChangesStatus())
	assert.True(t, ActivityRevisit.ChangesStatus())
	assert.False(t, ActivityReceived.ChangesStatus())
	assert.False(t, ActivityNote.ChangesStatus())
}

func TestTicketIsClosedComplete(t *testing.T) {
	now := time.Now()
	assert.True(t, (&Ticket{Status: TicketStatusClosed, CompletedAt: &now}).IsClosedComplete())
	assert.False(t, (&Ticket{Status: TicketStatusClosed}).IsClosedComplete())
	assert.False(t, (&Ticket{Status: TicketStatusResolved, CompletedAt: &now}).IsClosedComplete())
}

func TestDocumentsMerge(t *testing.T) {
	oldBad, newBad, bap := "old-bad", "new-bad", "bap"
	base := Documents{CTBadPart: &oldBad, BAPFile: &bap}

	merged := base.Merge(Documents{CTBadPart: &newBad})
	assert.Equal(t, "new-bad", *merged.CTBadPart)
	assert.Equal(t, "bap", *merged.BAPFile)
	assert.Nil(t, merged.CTGoodPart)

	assert.True(t, Documents{}.IsEmpty())
	assert.False(t, merged.IsEmpty())
}
