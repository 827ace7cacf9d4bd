package moodle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"ehealth-workers/internal/models"
)

// CourseFields is what the certificate record needs from a course.
// Empty strings mean the custom field has no value for the course.
type CourseFields struct {
	Title      string `json:"title"`
	StartDate  string `json:"startDate"`
	EndDate    string `json:"endDate"`
	StudyHours string `json:"studyHours"`
}

// Missing lists the mapped custom fields that have no value.
func (f *CourseFields) Missing() []string {
	var missing []string
	if f.StartDate == "" {
		missing = append(missing, "startDate")
	}
	if f.EndDate == "" {
		missing = append(missing, "endDate")
	}
	if f.StudyHours == "" {
		missing = append(missing, "hoursOfStudy")
	}
	return missing
}

type CourseFieldsLookup interface {
	CourseFields(ctx context.Context, courseID int64) (*CourseFields, error)
}

func (s *Store) CourseFields(ctx context.Context, courseID int64) (*CourseFields, error) {
	fields := &CourseFields{}

	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT fullname FROM %s WHERE id = $1`, s.table("course")),
		courseID,
	).Scan(&fields.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrCourseNotFound, courseID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read course %d: %w", courseID, err)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT f.shortname, f.type, d.value, d.intvalue
		FROM %s d
		JOIN %s f ON f.id = d.fieldid
		JOIN %s c ON c.id = f.categoryid
		WHERE d.instanceid = $1
		  AND c.component = 'core_course'
		  AND c.area = 'course'
		  AND f.shortname IN ($2, $3, $4)`,
		s.table("customfield_data"), s.table("customfield_field"), s.table("customfield_category")),
		courseID, s.fields.StartDate, s.fields.EndDate, s.fields.StudyHours,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read custom fields of course %d: %w", courseID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var shortname, fieldType string
		var value sql.NullString
		var intValue sql.NullInt64
		if err := rows.Scan(&shortname, &fieldType, &value, &intValue); err != nil {
			return nil, fmt.Errorf("failed to scan custom field: %w", err)
		}

		v := customFieldValue(fieldType, value, intValue, s.loc)
		switch shortname {
		case s.fields.StartDate:
			fields.StartDate = v
		case s.fields.EndDate:
			fields.EndDate = v
		case s.fields.StudyHours:
			fields.StudyHours = v
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate custom fields: %w", err)
	}

	return fields, nil
}

// customFieldValue renders a stored value as the registry expects it.
// Date fields hold unix seconds and are rendered as the calendar day in loc;
// a zero date counts as unset.
func customFieldValue(fieldType string, value sql.NullString, intValue sql.NullInt64, loc *time.Location) string {
	if fieldType == "date" {
		if !intValue.Valid || intValue.Int64 == 0 {
			return ""
		}
		return time.Unix(intValue.Int64, 0).In(loc).Format(models.DateLayout)
	}
	if value.Valid && value.String != "" {
		return value.String
	}
	if intValue.Valid {
		return strconv.FormatInt(intValue.Int64, 10)
	}
	return ""
}
