// internal/models/certificate.go
package models

import "time"

// DateLayout is the wire format for every date the registry accepts.
const DateLayout = "2006-01-02"

// CompletionEvent is the decoded "course completed" trigger.
type CompletionEvent struct {
	CourseID      int64     `json:"courseid"`
	UserID        int64     `json:"relateduserid"`
	CompletionID  int64     `json:"objectid"`
	TimeCompleted time.Time `json:"timecompleted,omitzero"`
}

// CertificateTransferRecord is the payload posted to the certificate registry.
// Field names on the wire are fixed by the registry.
type CertificateTransferRecord struct {
	PersonalID         string `json:"pin"`
	EducationLevelCode int    `json:"educationLevel_MKId"`
	StartDate          string `json:"startDate"`
	EndDate            string `json:"endDate"`
	HoursOfStudy       string `json:"hoursOfStudy"`
	ReferenceNumber    string `json:"number"`
	CourseTitle        string `json:"naimenovaniyeKursa"`
	DocumentIssueDate  string `json:"documentIssueDate"`
}

// ToMap returns the record as generic JSON values, used for schema validation.
func (r *CertificateTransferRecord) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"pin":                 r.PersonalID,
		"educationLevel_MKId": r.EducationLevelCode,
		"startDate":           r.StartDate,
		"endDate":             r.EndDate,
		"hoursOfStudy":        r.HoursOfStudy,
		"number":              r.ReferenceNumber,
		"naimenovaniyeKursa":  r.CourseTitle,
		"documentIssueDate":   r.DocumentIssueDate,
	}
}
