package moodle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ehealth-workers/internal/common/config"
	"ehealth-workers/internal/common/database"
	"ehealth-workers/internal/models"
)

func testFields() config.FieldMapping {
	return config.FieldMapping{
		StartDate:  "coursestart",
		EndDate:    "courseenddate",
		StudyHours: "crhours",
		PIN:        "pin",
	}
}

func newTestStore(t *testing.T) (*Store, *database.PostgresClient, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	pg := &database.PostgresClient{DB: db, Prefix: "mdl_"}
	return NewStore(pg, testFields(), []string{"customcert"}, time.UTC), pg, mock
}

func unix(date string) int64 {
	ts, _ := time.Parse(models.DateLayout, date)
	return ts.Unix()
}

func TestStore_CourseFields(t *testing.T) {
	store, _, mock := newTestStore(t)

	mock.ExpectQuery(`SELECT fullname FROM mdl_course WHERE id = \$1`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"fullname"}).AddRow("Test course"))
	mock.ExpectQuery(`FROM mdl_customfield_data d\s+JOIN mdl_customfield_field f`).
		WithArgs(int64(42), "coursestart", "courseenddate", "crhours").
		WillReturnRows(sqlmock.NewRows([]string{"shortname", "type", "value", "intvalue"}).
			AddRow("coursestart", "date", "", unix("2017-03-01")).
			AddRow("courseenddate", "date", "", unix("2017-06-01")).
			AddRow("crhours", "text", "12", nil))

	fields, err := store.CourseFields(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "Test course", fields.Title)
	assert.Equal(t, "2017-03-01", fields.StartDate)
	assert.Equal(t, "2017-06-01", fields.EndDate)
	assert.Equal(t, "12", fields.StudyHours)
	assert.Empty(t, fields.Missing())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CourseFields_SiteTimezone(t *testing.T) {
	almaty, err := time.LoadLocation("Asia/Almaty")
	require.NoError(t, err)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store := NewStore(&database.PostgresClient{DB: db, Prefix: "mdl_"}, testFields(), []string{"customcert"}, almaty)

	// Moodle stores a date field as local midnight, which is the previous day in UTC.
	start := time.Date(2017, 3, 1, 0, 0, 0, 0, almaty).Unix()
	end := time.Date(2017, 6, 1, 0, 0, 0, 0, almaty).Unix()

	mock.ExpectQuery(`SELECT fullname FROM mdl_course`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"fullname"}).AddRow("Test course"))
	mock.ExpectQuery(`FROM mdl_customfield_data`).
		WithArgs(int64(42), "coursestart", "courseenddate", "crhours").
		WillReturnRows(sqlmock.NewRows([]string{"shortname", "type", "value", "intvalue"}).
			AddRow("coursestart", "date", "", start).
			AddRow("courseenddate", "date", "", end).
			AddRow("crhours", "text", "12", nil))

	fields, err := store.CourseFields(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "2017-03-01", fields.StartDate)
	assert.Equal(t, "2017-06-01", fields.EndDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CourseFields_MissingValues(t *testing.T) {
	store, _, mock := newTestStore(t)

	mock.ExpectQuery(`SELECT fullname FROM mdl_course`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"fullname"}).AddRow("No dates"))
	mock.ExpectQuery(`FROM mdl_customfield_data`).
		WithArgs(int64(7), "coursestart", "courseenddate", "crhours").
		WillReturnRows(sqlmock.NewRows([]string{"shortname", "type", "value", "intvalue"}).
			AddRow("coursestart", "date", "", 0).
			AddRow("crhours", "number", nil, 40))

	fields, err := store.CourseFields(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "40", fields.StudyHours)
	assert.Equal(t, []string{"startDate", "endDate"}, fields.Missing())
}

func TestStore_CourseFields_NotFound(t *testing.T) {
	store, _, mock := newTestStore(t)

	mock.ExpectQuery(`SELECT fullname FROM mdl_course`).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"fullname"}))

	_, err := store.CourseFields(context.Background(), 99)
	assert.True(t, errors.Is(err, ErrCourseNotFound))
}

func TestStore_UserProfile(t *testing.T) {
	store, _, mock := newTestStore(t)

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM mdl_user WHERE id = \$1 AND deleted = 0\)`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`FROM mdl_user_info_data d\s+JOIN mdl_user_info_field f`).
		WithArgs(int64(5), "pin").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow("12508200001043"))

	profile, err := store.UserProfile(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "12508200001043", profile.PIN)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UserProfile_NoPIN(t *testing.T) {
	store, _, mock := newTestStore(t)

	mock.ExpectQuery(`FROM mdl_user WHERE`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`FROM mdl_user_info_data`).
		WithArgs(int64(5), "pin").
		WillReturnRows(sqlmock.NewRows([]string{"data"}))

	profile, err := store.UserProfile(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, profile.PIN)
}

func TestStore_UserProfile_UnknownUser(t *testing.T) {
	store, _, mock := newTestStore(t)

	mock.ExpectQuery(`FROM mdl_user WHERE`).
		WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := store.UserProfile(context.Background(), 8)
	assert.True(t, errors.Is(err, ErrUserNotFound))
}

func TestStore_HasCertificateActivity(t *testing.T) {
	tests := []struct {
		name   string
		exists bool
	}{
		{"course with certificate", true},
		{"course without certificate", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _, mock := newTestStore(t)

			mock.ExpectQuery(`FROM mdl_course_modules cm\s+JOIN mdl_modules m`).
				WithArgs(int64(42), sqlmock.AnyArg()).
				WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(tt.exists))

			ok, err := store.HasCertificateActivity(context.Background(), 42)
			require.NoError(t, err)
			assert.Equal(t, tt.exists, ok)
		})
	}
}

func TestStore_HasCertificateActivity_NoModulesConfigured(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(&database.PostgresClient{DB: db, Prefix: "mdl_"}, testFields(), nil, nil)

	ok, err := store.HasCertificateActivity(context.Background(), 42)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_HasCertificateActivity_QueryError(t *testing.T) {
	store, _, mock := newTestStore(t)

	mock.ExpectQuery(`FROM mdl_course_modules`).
		WillReturnError(errors.New("connection lost"))

	_, err := store.HasCertificateActivity(context.Background(), 42)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "connection lost")
}
