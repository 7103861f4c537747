package sequencer

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linggong-dev/shift-dispatch/backend/internal/config"
	"github.com/linggong-dev/shift-dispatch/backend/internal/domain"
	"github.com/linggong-dev/shift-dispatch/backend/internal/repository"
)

// fakeStore 实现 Store 接口，记录所有写操作供断言
type fakeStore struct {
	shift        *domain.Shift
	workers      []*domain.Worker
	organization *domain.Organization
	blocked      map[int64]bool
	assigned     map[int64]bool
	assignment   *domain.Assignment

	createOfferOK  bool
	createdOffers  []*domain.Assignment
	activities     []*domain.ActivityRecord
	assignedCounts map[int64]int

	acceptOK      bool
	acceptResult  *repository.TransitionResult
	declineOK     bool
	declineResult *repository.TransitionResult
	timeoutOK     bool
	timeoutResult *repository.TransitionResult
}

func (f *fakeStore) GetShiftByID(id int64) (*domain.Shift, error) {
	return f.shift, nil
}

func (f *fakeStore) GetWorkerByID(id int64) (*domain.Worker, error) {
	for _, w := range f.workers {
		if w.ID == id {
			return w, nil
		}
	}
	return f.workers[0], nil
}

func (f *fakeStore) GetAssignmentByID(id int64) (*domain.Assignment, error) {
	return f.assignment, nil
}

func (f *fakeStore) GetOrganizationByID(id int64) (*domain.Organization, error) {
	return f.organization, nil
}

func (f *fakeStore) ListMatchableWorkers() ([]*domain.Worker, error) {
	return f.workers, nil
}

func (f *fakeStore) ListBlockedWorkerIDs(organizationID int64) (map[int64]bool, error) {
	return f.blocked, nil
}

func (f *fakeStore) ListAssignmentWorkerIDs(shiftID int64) (map[int64]bool, error) {
	return f.assigned, nil
}

func (f *fakeStore) CreateOffer(a *domain.Assignment) (bool, error) {
	if !f.createOfferOK {
		return false, nil
	}
	a.ID = int64(100 + len(f.createdOffers))
	f.createdOffers = append(f.createdOffers, a)
	return true, nil
}

func (f *fakeStore) IncrementAssignedCount(workerID int64) error {
	if f.assignedCounts == nil {
		f.assignedCounts = map[int64]int{}
	}
	f.assignedCounts[workerID]++
	return nil
}

func (f *fakeStore) AcceptOffer(id int64, method string) (bool, *repository.TransitionResult, error) {
	return f.acceptOK, f.acceptResult, nil
}

func (f *fakeStore) DeclineOffer(id int64, reason string, method string) (bool, *repository.TransitionResult, error) {
	return f.declineOK, f.declineResult, nil
}

func (f *fakeStore) TimeoutOffer(id int64) (bool, *repository.TransitionResult, error) {
	return f.timeoutOK, f.timeoutResult, nil
}

func (f *fakeStore) InsertActivity(record *domain.ActivityRecord) error {
	f.activities = append(f.activities, record)
	return nil
}

func (f *fakeStore) actions() []domain.ActivityAction {
	actions := make([]domain.ActivityAction, 0, len(f.activities))
	for _, record := range f.activities {
		actions = append(actions, record.Action)
	}
	return actions
}

// fakePublisher 实现 Publisher 接口，记录所有投递的消息
type fakePublisher struct {
	notifications []*domain.NotificationMessage
	cycles        []int64
	timeouts      []int64
}

func (f *fakePublisher) PublishNotification(message *domain.NotificationMessage) error {
	f.notifications = append(f.notifications, message)
	return nil
}

func (f *fakePublisher) PublishCycle(shiftID int64) error {
	f.cycles = append(f.cycles, shiftID)
	return nil
}

func (f *fakePublisher) PublishTimeout(assignmentID int64) error {
	f.timeouts = append(f.timeouts, assignmentID)
	return nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Matching.RadiusMiles = 25
	cfg.Offer.ResponseWindow = 900
	cfg.Offer.RespondBaseURL = "https://dispatch.example.com/offers/respond"
	cfg.Offer.TokenSecret = "test-secret"
	return cfg
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// 2026-08-31 是周一
var shiftStart = time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)

func recruitingShift() *domain.Shift {
	return &domain.Shift{
		ID:             1,
		OrganizationID: 1,
		Title:          "餐饮服务临时班次",
		JobCategory:    "餐饮服务",
		Latitude:       31.0,
		Longitude:      121.0,
		StartTime:      shiftStart,
		EndTime:        shiftStart.Add(4 * time.Hour),
		PayRate:        25,
		SlotsTotal:     2,
		SlotsFilled:    0,
		Status:         domain.ShiftStatusRecruiting,
	}
}

func matchableWorker(id int64, reliability float64) *domain.Worker {
	lat := 31.0
	lon := 121.0
	return &domain.Worker{
		ID:                  id,
		FullName:            "测试工人",
		Email:               "worker@example.com",
		IsActive:            true,
		Onboarded:           true,
		Latitude:            &lat,
		Longitude:           &lon,
		ReliabilityScore:    &reliability,
		PreferredCategories: []string{"餐饮服务"},
		AvailabilityWindows: []domain.AvailabilityWindow{
			{DayOfWeek: 1, StartTime: "08:00:00", EndTime: "18:00:00"},
		},
	}
}

func TestRunCycle_OffersBestCandidate(t *testing.T) {
	store := &fakeStore{
		shift: recruitingShift(),
		workers: []*domain.Worker{
			matchableWorker(1, 60),
			matchableWorker(2, 95), // 可靠度最高，应该被选中
			matchableWorker(3, 80),
		},
		organization:  &domain.Organization{ID: 1, Name: "晨光餐饮"},
		createOfferOK: true,
	}
	publisher := &fakePublisher{}
	seq := NewSequencer(testConfig(), testLogger(), store, publisher)

	err := seq.RunCycle(1)
	require.NoError(t, err)

	require.Len(t, store.createdOffers, 1)
	offer := store.createdOffers[0]
	assert.Equal(t, int64(2), offer.WorkerID)
	assert.Equal(t, int32(1), offer.Rank)
	assert.Greater(t, offer.Score, float64(0))

	// 每轮记录所有候选人的评分，然后是邀约发出
	assert.Contains(t, store.actions(), domain.ActivityWorkerScored)
	assert.Contains(t, store.actions(), domain.ActivityOfferSent)

	// 邀约通知与响应窗口倒计时都应该被投递
	require.Len(t, publisher.notifications, 1)
	assert.Equal(t, "offer_invitation", publisher.notifications[0].Type)
	require.Len(t, publisher.timeouts, 1)
	assert.Equal(t, offer.ID, publisher.timeouts[0])

	assert.Equal(t, 1, store.assignedCounts[2])
}

// 邀约邮件携带接受与拒绝的签名链接
func TestRunCycle_OfferMailCarriesRespondLinks(t *testing.T) {
	store := &fakeStore{
		shift:         recruitingShift(),
		workers:       []*domain.Worker{matchableWorker(1, 80)},
		organization:  &domain.Organization{ID: 1, Name: "晨光餐饮"},
		createOfferOK: true,
	}
	publisher := &fakePublisher{}
	seq := NewSequencer(testConfig(), testLogger(), store, publisher)

	require.NoError(t, seq.RunCycle(1))

	require.Len(t, publisher.notifications, 1)
	data, ok := publisher.notifications[0].Data.(*domain.OfferMailData)
	require.True(t, ok)
	assert.Contains(t, data.AcceptURL, "https://dispatch.example.com/offers/respond?token=")
	assert.Contains(t, data.DeclineURL, "https://dispatch.example.com/offers/respond?token=")
	assert.NotEqual(t, data.AcceptURL, data.DeclineURL)
	assert.Equal(t, 15, data.ExpireMinutes)
}

func TestRunCycle_SkipsWhenNotRecruiting(t *testing.T) {
	shift := recruitingShift()
	shift.Status = domain.ShiftStatusFilled

	store := &fakeStore{
		shift:         shift,
		workers:       []*domain.Worker{matchableWorker(1, 80)},
		createOfferOK: true,
	}
	publisher := &fakePublisher{}
	seq := NewSequencer(testConfig(), testLogger(), store, publisher)

	require.NoError(t, seq.RunCycle(1))

	assert.Empty(t, store.createdOffers)
	assert.Empty(t, store.activities)
	assert.Empty(t, publisher.notifications)
}

func TestRunCycle_SkipsWhenNoOpenSlots(t *testing.T) {
	shift := recruitingShift()
	shift.SlotsFilled = shift.SlotsTotal

	store := &fakeStore{
		shift:         shift,
		workers:       []*domain.Worker{matchableWorker(1, 80)},
		createOfferOK: true,
	}
	publisher := &fakePublisher{}
	seq := NewSequencer(testConfig(), testLogger(), store, publisher)

	require.NoError(t, seq.RunCycle(1))

	assert.Empty(t, store.createdOffers)
}

// 候选人耗尽时记录招募暂停，班次保持招募状态等待条件变化
func TestRunCycle_RecordsExhaustion(t *testing.T) {
	// 所有工人都已有该班次的 Assignment 记录
	store := &fakeStore{
		shift:         recruitingShift(),
		workers:       []*domain.Worker{matchableWorker(1, 80)},
		assigned:      map[int64]bool{1: true},
		createOfferOK: true,
	}
	publisher := &fakePublisher{}
	seq := NewSequencer(testConfig(), testLogger(), store, publisher)

	require.NoError(t, seq.RunCycle(1))

	assert.Empty(t, store.createdOffers)
	assert.Equal(t, []domain.ActivityAction{domain.ActivityRecruitingExhausted}, store.actions())
	assert.Empty(t, publisher.cycles)
}

// 已被邀约过的工人（无论最终状态）不会再次被选中
func TestRunCycle_NeverReoffersSameWorker(t *testing.T) {
	store := &fakeStore{
		shift: recruitingShift(),
		workers: []*domain.Worker{
			matchableWorker(1, 95),
			matchableWorker(2, 60),
		},
		assigned:      map[int64]bool{1: true}, // 最佳人选已被邀约过
		organization:  &domain.Organization{ID: 1, Name: "晨光餐饮"},
		createOfferOK: true,
	}
	publisher := &fakePublisher{}
	seq := NewSequencer(testConfig(), testLogger(), store, publisher)

	require.NoError(t, seq.RunCycle(1))

	require.Len(t, store.createdOffers, 1)
	assert.Equal(t, int64(2), store.createdOffers[0].WorkerID)
}

func acceptedAssignment() *domain.Assignment {
	now := time.Now()
	return &domain.Assignment{
		ID:          100,
		ShiftID:     1,
		WorkerID:    2,
		Status:      domain.AssignmentStatusAccepted,
		OfferSentAt: now.Add(-10 * time.Minute),
		RespondedAt: &now,
	}
}

func TestHandleAcceptance_ContinuesWhenSlotsRemain(t *testing.T) {
	store := &fakeStore{
		shift:    recruitingShift(),
		workers:  []*domain.Worker{matchableWorker(2, 80)},
		acceptOK: true,
		acceptResult: &repository.TransitionResult{
			Assignment:      acceptedAssignment(),
			ShiftFilled:     false,
			ResponseMinutes: 10,
		},
	}
	publisher := &fakePublisher{}
	seq := NewSequencer(testConfig(), testLogger(), store, publisher)

	ok, err := seq.HandleAcceptance(100, "email")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Contains(t, store.actions(), domain.ActivityOfferAccepted)
	assert.NotContains(t, store.actions(), domain.ActivityRecruitingCompleted)
	// 还有空缺，继续下一轮邀约
	assert.Equal(t, []int64{1}, publisher.cycles)
}

func TestHandleAcceptance_FilledCompletesRecruiting(t *testing.T) {
	store := &fakeStore{
		shift:    recruitingShift(),
		workers:  []*domain.Worker{matchableWorker(2, 80)},
		acceptOK: true,
		acceptResult: &repository.TransitionResult{
			Assignment:      acceptedAssignment(),
			ShiftFilled:     true,
			ResponseMinutes: 10,
		},
	}
	publisher := &fakePublisher{}
	seq := NewSequencer(testConfig(), testLogger(), store, publisher)

	ok, err := seq.HandleAcceptance(100, "email")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Contains(t, store.actions(), domain.ActivityRecruitingCompleted)
	// 满员后不再发起新一轮邀约
	assert.Empty(t, publisher.cycles)
	// 工人收到接单确认邮件
	require.Len(t, publisher.notifications, 1)
	assert.Equal(t, "offer_accepted", publisher.notifications[0].Type)
}

// 守卫失败（邀约已不处于待响应状态）返回 false 而不是错误
func TestHandleAcceptance_GuardFailure(t *testing.T) {
	store := &fakeStore{shift: recruitingShift(), acceptOK: false}
	publisher := &fakePublisher{}
	seq := NewSequencer(testConfig(), testLogger(), store, publisher)

	ok, err := seq.HandleAcceptance(100, "email")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Empty(t, store.activities)
	assert.Empty(t, publisher.cycles)
}

// 拒绝后无论名额情况如何都立即开始下一轮
func TestHandleDecline_SchedulesNextCycle(t *testing.T) {
	assignment := acceptedAssignment()
	assignment.Status = domain.AssignmentStatusDeclined

	store := &fakeStore{
		shift:     recruitingShift(),
		declineOK: true,
		declineResult: &repository.TransitionResult{
			Assignment:      assignment,
			ResponseMinutes: 3,
		},
	}
	publisher := &fakePublisher{}
	seq := NewSequencer(testConfig(), testLogger(), store, publisher)

	ok, err := seq.HandleDecline(100, "时间冲突", "app")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Contains(t, store.actions(), domain.ActivityOfferDeclined)
	assert.Equal(t, []int64{1}, publisher.cycles)
}

func TestHandleTimeout_AdvancesCycle(t *testing.T) {
	assignment := acceptedAssignment()
	assignment.Status = domain.AssignmentStatusNoResponse

	store := &fakeStore{
		shift:         recruitingShift(),
		timeoutOK:     true,
		timeoutResult: &repository.TransitionResult{Assignment: assignment},
	}
	publisher := &fakePublisher{}
	seq := NewSequencer(testConfig(), testLogger(), store, publisher)

	require.NoError(t, seq.HandleTimeout(100))

	assert.Contains(t, store.actions(), domain.ActivityOfferTimeout)
	assert.Equal(t, []int64{1}, publisher.cycles)
}

// 工人抢先响应后，到期事件必须退化为空操作（幂等性）
func TestHandleTimeout_NoopWhenAlreadyResponded(t *testing.T) {
	store := &fakeStore{shift: recruitingShift(), timeoutOK: false}
	publisher := &fakePublisher{}
	seq := NewSequencer(testConfig(), testLogger(), store, publisher)

	require.NoError(t, seq.HandleTimeout(100))

	assert.Empty(t, store.activities)
	assert.Empty(t, publisher.cycles)
}
