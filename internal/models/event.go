// internal/models/event.go
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	Component                  = "local_ehealthapi"
	CertificateTransferredName = `\local_ehealthapi\event\certificate_transferred`

	// ContextLevelCourse mirrors the host's CONTEXT_COURSE level.
	ContextLevelCourse = 50
	// EduLevelOther marks events that are neither teaching nor participating.
	EduLevelOther = 0
)

// CertificateTransferredEvent is raised after a transfer has been logged.
type CertificateTransferredEvent struct {
	EventID           string    `json:"eventId"`
	EventName         string    `json:"eventname"`
	Component         string    `json:"component"`
	Action            string    `json:"action"`
	Target            string    `json:"target"`
	CRUD              string    `json:"crud"`
	EduLevel          int       `json:"edulevel"`
	ObjectTable       string    `json:"objecttable"`
	ObjectID          int64     `json:"objectid"`
	ContextLevel      int       `json:"contextlevel"`
	ContextInstanceID int64     `json:"contextinstanceid"`
	CourseID          int64     `json:"courseid"`
	UserID            int64     `json:"userid"`
	RelatedUserID     int64     `json:"relateduserid"`
	Description       string    `json:"description"`
	URL               string    `json:"url"`
	TimeCreated       time.Time `json:"timecreated"`
}

// NewCertificateTransferredEvent builds the notification for an audit entry.
func NewCertificateTransferredEvent(entry *TransferLogEntry, courseID int64, at time.Time) *CertificateTransferredEvent {
	return &CertificateTransferredEvent{
		EventID:           uuid.New().String(),
		EventName:         CertificateTransferredName,
		Component:         Component,
		Action:            "transferred",
		Target:            "certificate",
		CRUD:              "c",
		EduLevel:          EduLevelOther,
		ObjectTable:       TransferLogTable,
		ObjectID:          entry.ID,
		ContextLevel:      ContextLevelCourse,
		ContextInstanceID: courseID,
		CourseID:          courseID,
		UserID:            entry.UserID,
		RelatedUserID:     entry.UserID,
		Description: fmt.Sprintf(
			"The course completion of course with id '%d' for user with id '%d' was successfully transferred.",
			courseID, entry.UserID),
		URL:         fmt.Sprintf("/course/view.php?id=%d", courseID),
		TimeCreated: at.UTC(),
	}
}
