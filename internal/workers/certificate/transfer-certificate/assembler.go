package transfercertificate

import (
	"context"
	"errors"
	"strconv"
	"time"

	apperrors "ehealth-workers/internal/common/errors"
	"ehealth-workers/internal/common/moodle"
	"ehealth-workers/internal/common/validation"
	"ehealth-workers/internal/models"
)

// Assembler builds the registry record from host data. It only reads.
type Assembler struct {
	courses            moodle.CourseFieldsLookup
	users              moodle.UserProfileLookup
	educationLevelCode int
	loc                *time.Location
	now                func() time.Time
}

// NewAssembler renders the issue date as the calendar day in loc (UTC when nil).
func NewAssembler(courses moodle.CourseFieldsLookup, users moodle.UserProfileLookup, educationLevelCode int, loc *time.Location, now func() time.Time) *Assembler {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Assembler{
		courses:            courses,
		users:              users,
		educationLevelCode: educationLevelCode,
		loc:                loc,
		now:                now,
	}
}

func (a *Assembler) Assemble(ctx context.Context, input *Input) (*models.CertificateTransferRecord, error) {
	course, err := a.courses.CourseFields(ctx, input.CourseID)
	if err != nil {
		if errors.Is(err, moodle.ErrCourseNotFound) {
			return nil, apperrors.NewCourseFieldsMissingError(input.CourseID, []string{"course"})
		}
		return nil, apperrors.NewLookupFailedError("course fields", err)
	}
	if missing := course.Missing(); len(missing) > 0 {
		return nil, apperrors.NewCourseFieldsMissingError(input.CourseID, missing)
	}

	profile, err := a.users.UserProfile(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, moodle.ErrUserNotFound) {
			return nil, apperrors.NewUserProfileMissingError(input.UserID, "user")
		}
		return nil, apperrors.NewLookupFailedError("user profile", err)
	}
	if profile.PIN == "" {
		return nil, apperrors.NewUserProfileMissingError(input.UserID, "pin")
	}

	issued := input.TimeCompleted
	if issued.IsZero() {
		issued = a.now()
	}

	record := &models.CertificateTransferRecord{
		PersonalID:         profile.PIN,
		EducationLevelCode: a.educationLevelCode,
		StartDate:          course.StartDate,
		EndDate:            course.EndDate,
		HoursOfStudy:       course.StudyHours,
		ReferenceNumber:    strconv.FormatInt(input.CourseID, 10),
		CourseTitle:        course.Title,
		DocumentIssueDate:  issued.In(a.loc).Format(models.DateLayout),
	}

	if result := validation.ValidateInput(record.ToMap(), validation.CertificateRecordSchema()); !result.Valid {
		return nil, apperrors.NewRecordValidationFailedError(result.String())
	}

	return record, nil
}
