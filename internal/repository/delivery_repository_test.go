package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/mailpacer-backend/internal/model"
)

func sampleResults() []model.DeliveryResult {
	return []model.DeliveryResult{
		{Email: "ana@x.ro", Name: "Ana", Status: model.DeliverySent, Timestamp: time.Now()},
		{Email: "bob@x.com", Name: "Bob", Status: model.DeliveryFailed, Error: "550", Timestamp: time.Now()},
	}
}

func TestRecordRunCommitsBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO delivery_results").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO delivery_results").WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	repo := &DeliveryRepository{DB: db}
	require.NoError(t, repo.RecordRun("c1", "sess1", 1, sampleResults()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRunRollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// a mid-batch failure must leave no partial rows behind
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO delivery_results").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO delivery_results").WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	repo := &DeliveryRepository{DB: db}
	err = repo.RecordRun("c1", "sess1", 1, sampleResults())
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
