package repository

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linggong-dev/shift-dispatch/backend/internal/config"
	"github.com/linggong-dev/shift-dispatch/backend/internal/domain"
)

func newMockRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})

	cfg := &config.Config{}
	cfg.Database.QueryTimeout = 5
	cfg.Database.TransactionTimeout = 10

	return NewRepository(cfg, db), mock
}

func offerAssignment() *domain.Assignment {
	return &domain.Assignment{
		ShiftID:       1,
		WorkerID:      2,
		Score: 87.5,
		ScoreBreakdown: domain.ScoreBreakdown{
			Distance:    30,
			Reliability: 20,
		},
		DistanceMiles: 3.2,
		Rank:          1,
		OfferSentAt:   time.Now(),
	}
}

func TestCreateOffer_Inserted(t *testing.T) {
	repo, mock := newMockRepository(t)

	createdAt := time.Now()
	mock.ExpectQuery("INSERT INTO assignments").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "version"}).
			AddRow(int64(100), createdAt, int32(1)))

	a := offerAssignment()
	ok, err := repo.CreateOffer(a)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(100), a.ID)
	assert.Equal(t, domain.AssignmentStatusOffered, a.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

// 守卫条件不满足时（已有未决邀约等），INSERT 不返回行，
// CreateOffer 返回 false 而不是错误
func TestCreateOffer_BlockedByGuard(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("INSERT INTO assignments").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "version"}))

	ok, err := repo.CreateOffer(offerAssignment())
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAcceptOffer_SlotsRemain(t *testing.T) {
	repo, mock := newMockRepository(t)

	sentAt := time.Now().Add(-8 * time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE assignments").
		WillReturnRows(sqlmock.NewRows([]string{"shift_id", "worker_id", "offer_sent_at"}).
			AddRow(int64(1), int64(2), sentAt))
	mock.ExpectExec("UPDATE shifts SET slots_filled = slots_filled \\+ 1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// 名额未满，满员更新不匹配任何行
	mock.ExpectExec("UPDATE shifts SET status = 'filled'").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE workers").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ok, result, err := repo.AcceptOffer(100, "email")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, result.ShiftFilled)
	assert.Equal(t, domain.AssignmentStatusAccepted, result.Assignment.Status)
	assert.InDelta(t, 8, result.ResponseMinutes, 0.1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAcceptOffer_FillsShift(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE assignments").
		WillReturnRows(sqlmock.NewRows([]string{"shift_id", "worker_id", "offer_sent_at"}).
			AddRow(int64(1), int64(2), time.Now()))
	mock.ExpectExec("UPDATE shifts SET slots_filled = slots_filled \\+ 1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE shifts SET status = 'filled'").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE workers").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ok, result, err := repo.AcceptOffer(100, "app")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, result.ShiftFilled)
	require.NoError(t, mock.ExpectationsWereMet())
}

// 邀约已被响应过时状态守卫不通过，整个事务回滚且不报错
func TestAcceptOffer_GuardFailure(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE assignments").
		WillReturnRows(sqlmock.NewRows([]string{"shift_id", "worker_id", "offer_sent_at"}))
	mock.ExpectRollback()

	ok, result, err := repo.AcceptOffer(100, "email")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, result)
	require.NoError(t, mock.ExpectationsWereMet())
}

// 工人抢先响应后到期更新不匹配任何行，到期事件是幂等的空操作
func TestTimeoutOffer_NoopAfterResponse(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("UPDATE assignments").
		WillReturnRows(sqlmock.NewRows([]string{"shift_id", "worker_id", "offer_sent_at"}))

	ok, result, err := repo.TimeoutOffer(100)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, result)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeoutOffer_MarksNoResponse(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("UPDATE assignments").
		WillReturnRows(sqlmock.NewRows([]string{"shift_id", "worker_id", "offer_sent_at"}).
			AddRow(int64(1), int64(2), time.Now()))

	ok, result, err := repo.TimeoutOffer(100)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.AssignmentStatusNoResponse, result.Assignment.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeclineOffer_RecordsReason(t *testing.T) {
	repo, mock := newMockRepository(t)

	sentAt := time.Now().Add(-3 * time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE assignments").
		WithArgs(int64(100), sqlmock.AnyArg(), "app", "时间冲突").
		WillReturnRows(sqlmock.NewRows([]string{"shift_id", "worker_id", "offer_sent_at"}).
			AddRow(int64(1), int64(2), sentAt))
	mock.ExpectExec("UPDATE workers").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ok, result, err := repo.DeclineOffer(100, "时间冲突", "app")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.AssignmentStatusDeclined, result.Assignment.Status)
	require.Equal(t, "时间冲突", *result.Assignment.DeclineReason)
	assert.InDelta(t, 3, result.ResponseMinutes, 0.1)
	require.NoError(t, mock.ExpectationsWereMet())
}
