package moodle

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ehealth-workers/internal/models"
)

func TestTransferLogRepository_Insert(t *testing.T) {
	_, pg, mock := newTestStore(t)
	repo := NewTransferLogRepository(pg)

	mock.ExpectQuery(`INSERT INTO mdl_local_ehealthapi \(userid, timecreated, completionid\) VALUES \(\$1, \$2, \$3\) RETURNING id`).
		WithArgs(int64(5), int64(1700000000), int64(900)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(31)))

	entry := &models.TransferLogEntry{UserID: 5, TimeCreated: 1700000000, CompletionID: 900}
	id, err := repo.Insert(context.Background(), entry)

	require.NoError(t, err)
	assert.Equal(t, int64(31), id)
	assert.Equal(t, int64(31), entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferLogRepository_InsertTwiceYieldsTwoRows(t *testing.T) {
	_, pg, mock := newTestStore(t)
	repo := NewTransferLogRepository(pg)

	for _, id := range []int64{1, 2} {
		mock.ExpectQuery(`INSERT INTO mdl_local_ehealthapi`).
			WithArgs(int64(5), int64(1700000000), int64(900)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(id))
	}
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM mdl_local_ehealthapi WHERE completionid = \$1`).
		WithArgs(int64(900)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	for i := 0; i < 2; i++ {
		_, err := repo.Insert(context.Background(), &models.TransferLogEntry{UserID: 5, TimeCreated: 1700000000, CompletionID: 900})
		require.NoError(t, err)
	}

	n, err := repo.CountByCompletion(context.Background(), 900)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferLogRepository_InsertError(t *testing.T) {
	_, pg, mock := newTestStore(t)
	repo := NewTransferLogRepository(pg)

	mock.ExpectQuery(`INSERT INTO mdl_local_ehealthapi`).
		WillReturnError(errors.New("disk full"))

	_, err := repo.Insert(context.Background(), &models.TransferLogEntry{UserID: 5, CompletionID: 900})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
