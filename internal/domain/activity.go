package domain

import (
	"fmt"
	"time"
)

// ActivityType tags an entry of the ticket activity log.
type ActivityType string

const (
	ActivityReceived     ActivityType = "received"
	ActivityHitTheRoad   ActivityType = "hit_the_road"
	ActivityArrived      ActivityType = "arrived"
	ActivityStartWorking ActivityType = "start_working"
	ActivityEndWorking   ActivityType = "end_working"
	ActivityFinishJob    ActivityType = "finish_job"
	ActivityNeedPart     ActivityType = "need_part"
	ActivityCompleted    ActivityType = "completed"
	ActivityRevisit      ActivityType = "revisit"
	ActivityEndCase      ActivityType = "end_case"
	ActivityStatusChange ActivityType = "status_change"
	ActivityNote         ActivityType = "note"
)

// activityAliases maps legacy names onto their canonical type.
var activityAliases = map[string]ActivityType{
	"on_the_way": ActivityHitTheRoad,
}

// ParseActivityType accepts the closed vocabulary plus legacy aliases.
func ParseActivityType(raw string) (ActivityType, error) {
	if alias, ok := activityAliases[raw]; ok {
		return alias, nil
	}
	t := ActivityType(raw)
	if !t.IsValid() {
		return "", fmt.Errorf("unknown activity type %q", raw)
	}
	return t, nil
}

// IsValid reports whether t belongs to the vocabulary.
func (t ActivityType) IsValid() bool {
	switch t {
	case ActivityReceived, ActivityHitTheRoad, ActivityArrived, ActivityStartWorking,
		ActivityEndWorking, ActivityFinishJob, ActivityNeedPart, ActivityCompleted,
		ActivityRevisit, ActivityEndCase, ActivityStatusChange, ActivityNote:
		return true
	}
	return false
}

// ChangesStatus reports whether appending t is coupled with a ticket status change.
func (t ActivityType) ChangesStatus() bool {
	switch t {
	case ActivityEndWorking, ActivityCompleted, ActivityRevisit:
		return true
	case ActivityReceived, ActivityHitTheRoad, ActivityArrived, ActivityStartWorking,
		ActivityFinishJob, ActivityNeedPart, ActivityEndCase, ActivityStatusChange, ActivityNote:
		return false
	}
	return false
}

// Activity is an immutable entry of a ticket's activity log.
type Activity struct {
	ID           string
	TicketID     string
	Type         ActivityType
	Title        string
	Description  *string
	ActivityTime time.Time
	UserID       *string
	Attachments  Documents
	CreatedAt    time.Time
}
