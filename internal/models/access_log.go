package models

import (
	"time"

	"github.com/google/uuid"
)

type AccessAction string

const (
	ActionAccessGranted AccessAction = "access_granted"
	ActionAccessDenied  AccessAction = "access_denied"
	ActionDoorLocked    AccessAction = "door_locked"
	ActionDoorUnlocked  AccessAction = "door_unlocked"
)

// AccessLog is one event at a door. Timestamp is an ISO-8601 UTC string so that
// lexicographic and chronological order agree.
type AccessLog struct {
	ID        string       `json:"id" gorm:"primaryKey;size:64"`
	UserID    string       `json:"user_id,omitempty" gorm:"index"`
	UserName  string       `json:"user_name"`
	DoorID    string       `json:"door_id" gorm:"index"`
	DoorName  string       `json:"door_name"`
	Action    AccessAction `json:"action" gorm:"index"`
	Method    string       `json:"method,omitempty"`
	Reason    string       `json:"reason,omitempty"`
	Timestamp string       `json:"timestamp" gorm:"index;not null"`
	CreatedAt time.Time    `json:"-"`
}

func (AccessLog) TableName() string {
	return "access_logs"
}

// NewAccessLog stamps a log entry with a fresh ID and the given time.
func NewAccessLog(action AccessAction, at time.Time) AccessLog {
	return AccessLog{
		ID:        uuid.NewString(),
		Action:    action,
		Timestamp: FormatTimestamp(at),
	}
}

// FormatTimestamp renders t in the fixed-width UTC layout stored on access logs.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// ParseTimestamp accepts the stored layout and plain RFC3339.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02T15:04:05.000Z", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
