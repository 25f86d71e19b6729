package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/field-ticket-service/internal/domain"
	"github.com/spec-kit/field-ticket-service/internal/events"
	"github.com/spec-kit/field-ticket-service/internal/upload/uploadtest"
	"github.com/spec-kit/field-ticket-service/internal/workflow"
	apperrors "github.com/spec-kit/field-ticket-service/pkg/util/errorutil"
)

func evidence(t *testing.T) Documents {
	return Documents{
		CTBadPart:  uploadtest.FileHeader(t, "ct_bad_part", "bad.jpg", uploadtest.JPEG),
		CTGoodPart: uploadtest.FileHeader(t, "ct_good_part", "good.png", uploadtest.PNG),
		BAPFile:    uploadtest.FileHeader(t, "bap_file", "bap.pdf", uploadtest.PDF),
	}
}

func toEndWorking(t *testing.T, f *fixture, ticketID string) {
	f.advance(t, ticketID, domain.ActivityReceived, domain.ActivityHitTheRoad, domain.ActivityArrived, domain.ActivityStartWorking)
}

func TestAppendActivityValidation(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	ticket := f.createTicket(t, "T-001")

	_, err := f.workflow.AppendActivity(ctx, f.actor.ID, ticket.ID, ActivityInput{})
	require.True(t, apperrors.IsValidation(err))
	fields := apperrors.Fields(err)
	assert.Contains(t, fields, "activity_type")
	assert.Contains(t, fields, "title")
	assert.Contains(t, fields, "activity_time")

	for _, typ := range []string{"end_working", "completed", "revisit", "teleported"} {
		_, err := f.workflow.AppendActivity(ctx, f.actor.ID, ticket.ID, ActivityInput{
			Type: typ, Title: "x", ActivityTime: "2024-05-01T10:00",
		})
		assert.Contains(t, apperrors.Fields(err), "activity_type", typ)
	}

	_, err = f.workflow.AppendActivity(ctx, f.actor.ID, "missing", ActivityInput{Type: "note"})
	assert.True(t, apperrors.IsNotFound(err))

	activities, err := f.workflow.ListActivities(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, activities)
}

func TestAppendActivityEnforcesStageOrder(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	ticket := f.createTicket(t, "T-001")

	_, err := f.workflow.AppendActivity(ctx, f.actor.ID, ticket.ID, ActivityInput{
		Type: "arrived", Title: "Arrived", ActivityTime: "2024-05-01 10:00",
	})
	assert.Contains(t, apperrors.Fields(err), "activity_type")

	_, err = f.workflow.AppendActivity(ctx, f.actor.ID, ticket.ID, ActivityInput{
		Type: "need_part", Title: "Waiting on PSU", ActivityTime: "2024-05-01",
	})
	require.NoError(t, err)

	f.advance(t, ticket.ID, domain.ActivityReceived)
	activity, err := f.workflow.AppendActivity(ctx, f.actor.ID, ticket.ID, ActivityInput{
		Type: "on_the_way", Title: "Driving", ActivityTime: "2024-05-01T11:00:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ActivityHitTheRoad, activity.Type)

	timeline, err := f.workflow.Timeline(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActivityArrived, timeline.Progress.Current().Type)
	assert.Len(t, timeline.Activities, 3)
}

func TestAppendActivityWithoutStageOrder(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	ticket := f.createTicket(t, "T-001")

	f.advance(t, ticket.ID, domain.ActivityArrived, domain.ActivityReceived)

	timeline, err := f.workflow.Timeline(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActivityHitTheRoad, timeline.Progress.Current().Type)
	assert.True(t, timeline.Progress.Stages[2].Completed)
}

func TestEndWorking(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	ticket := f.createTicket(t, "T-001")
	toEndWorking(t, f, ticket.ID)

	updated, activity, err := f.workflow.EndWorking(ctx, f.actor.ID, ticket.ID, EndWorkingInput{Files: evidence(t)})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)
	assert.Equal(t, domain.ActivityEndWorking, activity.Type)
	assert.Equal(t, EndWorkingTitle, activity.Title)
	require.NotNil(t, activity.Description)
	assert.Equal(t, EndWorkingDescription, *activity.Description)
	assert.True(t, updated.Documents.IsEmpty())

	refs := []*string{activity.Attachments.CTBadPart, activity.Attachments.CTGoodPart, activity.Attachments.BAPFile}
	for _, ref := range refs {
		require.NotNil(t, ref)
		_, err := os.Stat(filepath.Join(f.files.Root, filepath.FromSlash(*ref)))
		assert.NoError(t, err)
	}
	assert.True(t, strings.HasPrefix(*activity.Attachments.BAPFile, "tickets/bap_files/"))

	timeline, err := f.workflow.Timeline(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActivityFinishJob, timeline.Progress.Current().Type)
	assert.Equal(t, workflow.ActionFinishJob, timeline.Progress.NextAction)

	assert.Contains(t, f.eventTypes(), events.EventTicketStatusChanged)
}

func TestEndWorkingRejectsIncompleteEvidence(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	ticket := f.createTicket(t, "T-001")
	toEndWorking(t, f, ticket.ID)

	files := evidence(t)
	files.BAPFile = nil
	files.CTGoodPart = uploadtest.FileHeader(t, "ct_good_part", "good.gif", uploadtest.PNG)

	_, _, err := f.workflow.EndWorking(ctx, f.actor.ID, ticket.ID, EndWorkingInput{Files: files})
	require.True(t, apperrors.IsValidation(err))
	fields := apperrors.Fields(err)
	assert.Contains(t, fields, "bap_file")
	assert.Contains(t, fields, "ct_good_part")
	assert.NotContains(t, fields, "ct_bad_part")

	got, err := f.tickets.Get(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, got.Ticket.Status)

	activities, err := f.workflow.ListActivities(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, activities, 4)
}

func TestEndWorkingOutOfOrder(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	ticket := f.createTicket(t, "T-001")
	f.advance(t, ticket.ID, domain.ActivityReceived)

	_, _, err := f.workflow.EndWorking(ctx, f.actor.ID, ticket.ID, EndWorkingInput{Files: evidence(t)})
	assert.Contains(t, apperrors.Fields(err), "activity_type")

	_, _, err = f.workflow.EndWorking(ctx, f.actor.ID, "missing", EndWorkingInput{Files: evidence(t)})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestComplete(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	ticket := f.createTicket(t, "T-001")

	bap := uploadtest.FileHeader(t, "bap_file", "signed.docx", uploadtest.DOCX)
	updated, activity, err := f.workflow.Complete(ctx, f.actor.ID, ticket.ID, CompleteInput{
		Files:           Documents{BAPFile: bap},
		CompletionNotes: "Replaced PSU",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, updated.Status)
	require.NotNil(t, updated.CompletedAt)
	assert.True(t, updated.CompletedAt.Equal(f.now))
	require.NotNil(t, updated.CompletionNotes)
	assert.Equal(t, "Replaced PSU", *updated.CompletionNotes)

	require.NotNil(t, updated.Documents.BAPFile)
	assert.Nil(t, updated.Documents.CTBadPart)
	assert.Equal(t, updated.Documents.BAPFile, activity.Attachments.BAPFile)
	assert.Nil(t, activity.Attachments.CTGoodPart)
	assert.Equal(t, "Replaced PSU", *activity.Description)

	activities, err := f.workflow.ListActivities(ctx, ticket.ID)
	require.NoError(t, err)
	completed := 0
	for _, a := range activities {
		if a.Type == domain.ActivityCompleted {
			completed++
		}
	}
	assert.Equal(t, 1, completed)
}

func TestCompleteWithoutInput(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	ticket := f.createTicket(t, "T-001")

	updated, activity, err := f.workflow.Complete(ctx, f.actor.ID, ticket.ID, CompleteInput{})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, updated.Status)
	assert.Nil(t, updated.CompletionNotes)
	assert.Equal(t, CompletedDescription, *activity.Description)
	assert.True(t, activity.Attachments.IsEmpty())

	_, _, err = f.workflow.Complete(ctx, f.actor.ID, ticket.ID, CompleteInput{
		Files: Documents{CTBadPart: uploadtest.FileHeader(t, "ct_bad_part", "bad.pdf", []byte("plain text, not a pdf"))},
	})
	assert.Contains(t, apperrors.Fields(err), "ct_bad_part")
}

func TestRevisit(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	ticket := f.createTicket(t, "T-001")

	_, _, err := f.workflow.Revisit(ctx, f.actor.ID, ticket.ID, "  ")
	assert.Contains(t, apperrors.Fields(err), "reason")

	updated, activity, err := f.workflow.Revisit(ctx, f.actor.ID, ticket.ID, "Part on backorder")
	require.NoError(t, err)
	assert.True(t, updated.NeedsRevisit)
	assert.Equal(t, domain.TicketStatusNeedToReceive, updated.Status)
	assert.Equal(t, domain.ActivityRevisit, activity.Type)
	assert.Equal(t, "Part on backorder", *activity.Description)

	_, _, err = f.workflow.Revisit(ctx, f.actor.ID, "missing", "x")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestRevisitThenContinue(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	ticket := f.createTicket(t, "T-001")
	toEndWorking(t, f, ticket.ID)
	_, _, err := f.workflow.EndWorking(ctx, f.actor.ID, ticket.ID, EndWorkingInput{Files: evidence(t)})
	require.NoError(t, err)

	revisited, _, err := f.workflow.Revisit(ctx, f.actor.ID, ticket.ID, "part missing")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusNeedToReceive, revisited.Status)

	f.advance(t, ticket.ID, domain.ActivityReceived, domain.ActivityHitTheRoad, domain.ActivityArrived, domain.ActivityStartWorking)
	updated, _, err := f.workflow.EndWorking(ctx, f.actor.ID, ticket.ID, EndWorkingInput{Files: evidence(t)})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)
	assert.True(t, updated.NeedsRevisit)

	timeline, err := f.workflow.Timeline(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActivityFinishJob, timeline.Progress.Current().Type)
}

func TestAppendActivityTitleLimitCountsCharacters(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	ticket := f.createTicket(t, "T-001")

	activity, err := f.workflow.AppendActivity(ctx, f.actor.ID, ticket.ID, ActivityInput{
		Type: "note", Title: strings.Repeat("ß", 200), ActivityTime: "2024-05-01",
	})
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("ß", 200), activity.Title)

	_, err = f.workflow.AppendActivity(ctx, f.actor.ID, ticket.ID, ActivityInput{
		Type: "note", Title: strings.Repeat("ß", 256), ActivityTime: "2024-05-01",
	})
	assert.Contains(t, apperrors.Fields(err), "title")
}
