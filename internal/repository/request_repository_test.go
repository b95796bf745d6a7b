package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/badge-issuance-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func approveParams() TransitionParams {
	actor := "officer-1"
	now := time.Now().UTC()
	return TransitionParams{
		RequestID:    "req-1",
		FromStatuses: []models.RequestStatus{models.StatusSubmitted, models.StatusUnderReview},
		ToStatus:     models.StatusApproved,
		ApprovedBy:   &actor,
		ApprovedAt:   &now,
		Log: models.ApprovalLog{
			RequestID:      "req-1",
			Action:         models.ActionApprove,
			PreviousStatus: models.StatusSubmitted,
			NewStatus:      models.StatusApproved,
			PerformedBy:    &actor,
		},
	}
}

func TestRequestRepositoryTransition(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE badge_requests SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO approval_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Transition(context.Background(), approveParams()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryTransitionStaleState(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)

	// No row matches the status guard: another actor moved the
	// request first. The log append never happens.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE badge_requests SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Transition(context.Background(), approveParams())
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryTransitionLogFailureRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE badge_requests SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO approval_logs").
		WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	err := repo.Transition(context.Background(), approveParams())
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryCreateDefaultsToDraft(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)

	mock.ExpectExec("INSERT INTO badge_requests").
		WillReturnResult(sqlmock.NewResult(0, 1))

	request := &models.BadgeRequest{StaffID: "staff-1"}
	require.NoError(t, repo.Create(context.Background(), request))
	assert.Equal(t, models.StatusDraft, request.Status)
	assert.NotEmpty(t, request.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
