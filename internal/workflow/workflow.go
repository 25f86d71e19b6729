// Package workflow derives the six-stage field workflow of a ticket from its
// activity log. Nothing here is persisted; progress is recomputed on read.
package workflow

import (
	"fmt"

	"github.com/spec-kit/field-ticket-service/internal/domain"
)

// Stage describes one step of the fixed workflow.
type Stage struct {
	Type          domain.ActivityType
	Title         string
	Description   string
	RequiresInput bool
}

// Stages is the fixed workflow sequence.
var Stages = []Stage{
	{Type: domain.ActivityReceived, Title: "Received Ticket", Description: "Ticket has been received and logged"},
	{Type: domain.ActivityHitTheRoad, Title: "Hit The Road", Description: "Technician is on the way to location"},
	{Type: domain.ActivityArrived, Title: "It's Arrived", Description: "Technician has arrived at location"},
	{Type: domain.ActivityStartWorking, Title: "Start Working", Description: "Work has started on the issue"},
	{Type: domain.ActivityEndWorking, Title: "End Working", Description: "Upload images and BAP document", RequiresInput: true},
	{Type: domain.ActivityFinishJob, Title: "Finish Job", Description: "Choose to end case or revisit", RequiresInput: true},
}

// NextAction names the operation a client should offer for the current stage.
type NextAction string

const (
	ActionNone        NextAction = ""
	ActionAddActivity NextAction = "add_activity"
	ActionEndWorking  NextAction = "end_working"
	ActionFinishJob   NextAction = "finish_job"
)

// StageState is the derived state of one stage.
type StageState struct {
	Stage
	Completed bool
	Current   bool
	Visible   bool
	// Activity is the first log entry that completed the stage.
	Activity *domain.Activity
}

// Progress is the derived view over all stages.
type Progress struct {
	Stages []StageState
	// CurrentIndex is -1 once every stage is completed.
	CurrentIndex int
	NextAction   NextAction
}

// Current returns the current stage, or nil when the workflow is finished.
func (p Progress) Current() *StageState {
	if p.CurrentIndex < 0 {
		return nil
	}
	return &p.Stages[p.CurrentIndex]
}

// Finished reports whether every stage has been completed.
func (p Progress) Finished() bool {
	return p.CurrentIndex < 0
}

// IsStage reports whether t is one of the six workflow stages.
func IsStage(t domain.ActivityType) bool {
	return stageIndex(t) >= 0
}

func stageIndex(t domain.ActivityType) int {
	for i, s := range Stages {
		if s.Type == t {
			return i
		}
	}
	return -1
}

// Derive walks the stages against activities, which must already be in log
// order (activity time, then insertion).
func Derive(activities []domain.Activity) Progress {
	first := make(map[domain.ActivityType]*domain.Activity, len(Stages))
	for i := range activities {
		a := &activities[i]
		if _, seen := first[a.Type]; !seen {
			first[a.Type] = a
		}
	}

	progress := Progress{Stages: make([]StageState, len(Stages)), CurrentIndex: -1}
	for i, stage := range Stages {
		state := StageState{Stage: stage}
		if a, ok := first[stage.Type]; ok {
			state.Completed = true
			state.Activity = a
		}
		if !state.Completed && progress.CurrentIndex < 0 {
			progress.CurrentIndex = i
			state.Current = true
		}
		state.Visible = state.Completed || state.Current
		progress.Stages[i] = state
	}

	if current := progress.Current(); current != nil {
		switch current.Type {
		case domain.ActivityEndWorking:
			progress.NextAction = ActionEndWorking
		case domain.ActivityFinishJob:
			progress.NextAction = ActionFinishJob
		default:
			progress.NextAction = ActionAddActivity
		}
	}
	return progress
}

// StageOrderError reports an attempt to record a stage ahead of the current
// one.
type StageOrderError struct {
	Attempted domain.ActivityType
	Current   domain.ActivityType
}

func (e *StageOrderError) Error() string {
	return fmt.Sprintf("stage %s cannot be recorded while current stage is %s", e.Attempted, e.Current)
}

// CheckAppend rejects a stage activity that would skip past the current
// stage. The current stage and any earlier one may be recorded again, which
// is how a revisit logs the second trip. Non-stage types are always allowed.
func CheckAppend(activities []domain.Activity, t domain.ActivityType) error {
	if !IsStage(t) {
		return nil
	}
	progress := Derive(activities)
	current := progress.Current()
	if current == nil || stageIndex(t) <= progress.CurrentIndex {
		return nil
	}
	return &StageOrderError{Attempted: t, Current: current.Type}
}
