package sequencer

import (
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/linggong-dev/shift-dispatch/backend/internal/config"
	"github.com/linggong-dev/shift-dispatch/backend/internal/domain"
	"github.com/linggong-dev/shift-dispatch/backend/internal/matching"
	"github.com/linggong-dev/shift-dispatch/backend/internal/repository"
)

// Store 是排序器对持久层的依赖，由 repository.Repository 满足
type Store interface {
	GetShiftByID(id int64) (*domain.Shift, error)
	GetWorkerByID(id int64) (*domain.Worker, error)
	GetAssignmentByID(id int64) (*domain.Assignment, error)
	GetOrganizationByID(id int64) (*domain.Organization, error)
	ListMatchableWorkers() ([]*domain.Worker, error)
	ListBlockedWorkerIDs(organizationID int64) (map[int64]bool, error)
	ListAssignmentWorkerIDs(shiftID int64) (map[int64]bool, error)
	CreateOffer(a *domain.Assignment) (bool, error)
	IncrementAssignedCount(workerID int64) error
	AcceptOffer(id int64, method string) (bool, *repository.TransitionResult, error)
	DeclineOffer(id int64, reason string, method string) (bool, *repository.TransitionResult, error)
	TimeoutOffer(id int64) (bool, *repository.TransitionResult, error)
	InsertActivity(record *domain.ActivityRecord) error
}

// Publisher 是排序器对消息队列的依赖，由 queue.Publisher 满足
type Publisher interface {
	PublishNotification(message *domain.NotificationMessage) error
	PublishCycle(shiftID int64) error
	PublishTimeout(assignmentID int64) error
}

// Sequencer 实现串行邀约：任何时刻每个班次至多一个未决邀约，
// 工人接受、拒绝或超时后才轮到下一个人选。
type Sequencer struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     Store
	publisher Publisher
}

func NewSequencer(cfg *config.Config, logger *slog.Logger, store Store, publisher Publisher) *Sequencer {
	return &Sequencer{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		publisher: publisher,
	}
}

// RunCycle 对某个班次执行一轮邀约：
// 过滤、评分、排序，然后向当前最佳的未邀约工人发出邀约。
// 班次不在招募状态或已无空缺时整轮是空操作。
func (s *Sequencer) RunCycle(shiftID int64) error {
	shift, err := s.store.GetShiftByID(shiftID)
	if err != nil {
		return fmt.Errorf("无法获取班次: %w", err)
	}

	if !shift.IsRecruiting() || !shift.HasOpenSlots() {
		s.logger.Info("班次不需要发出新邀约，跳过本轮",
			"shift_id", shiftID,
			"status", shift.Status,
			"slots_filled", shift.SlotsFilled,
			"slots_total", shift.SlotsTotal,
		)
		return nil
	}

	workers, err := s.store.ListMatchableWorkers()
	if err != nil {
		return fmt.Errorf("无法获取工人列表: %w", err)
	}
	blocked, err := s.store.ListBlockedWorkerIDs(shift.OrganizationID)
	if err != nil {
		return fmt.Errorf("无法获取拉黑关系: %w", err)
	}
	assigned, err := s.store.ListAssignmentWorkerIDs(shiftID)
	if err != nil {
		return fmt.Errorf("无法获取已邀约工人: %w", err)
	}

	sc := &matching.ShiftContext{
		Shift:             shift,
		Workers:           workers,
		BlockedWorkerIDs:  blocked,
		AssignedWorkerIDs: assigned,
	}

	filter := matching.NewFilter(s.cfg.Matching.RadiusMiles)
	ranker := matching.NewRanker(sc, filter.EligibleCandidates(sc))

	// 记录本轮的评分决策，便于事后追溯为什么选中了某个工人
	for i, candidate := range ranker.Ranked() {
		workerID := candidate.Worker.ID
		record := &domain.ActivityRecord{
			Action:   domain.ActivityWorkerScored,
			ShiftID:  shiftID,
			WorkerID: &workerID,
			Detail: map[string]any{
				"score":          candidate.Score,
				"breakdown":      candidate.Breakdown,
				"distance_miles": candidate.DistanceMiles,
				"rank":           i + 1,
			},
		}
		if err := s.store.InsertActivity(record); err != nil {
			return fmt.Errorf("无法记录评分活动: %w", err)
		}
	}

	candidate, rank := ranker.NextBest(nil)
	if candidate == nil {
		s.logger.Info("候选人已耗尽，招募暂停", "shift_id", shiftID)
		record := &domain.ActivityRecord{
			Action:  domain.ActivityRecruitingExhausted,
			ShiftID: shiftID,
			Detail: map[string]any{
				"slots_filled": shift.SlotsFilled,
				"slots_total":  shift.SlotsTotal,
			},
		}
		return s.store.InsertActivity(record)
	}

	return s.sendOffer(shift, candidate, rank)
}

// sendOffer 发出邀约并启动响应窗口倒计时
func (s *Sequencer) sendOffer(shift *domain.Shift, candidate *matching.Candidate, rank int32) error {
	assignment := &domain.Assignment{
		ShiftID:        shift.ID,
		WorkerID:       candidate.Worker.ID,
		Score:          candidate.Score,
		ScoreBreakdown: candidate.Breakdown,
		DistanceMiles:  candidate.DistanceMiles,
		Rank:           rank,
		OfferSentAt:    time.Now(),
	}

	ok, err := s.store.CreateOffer(assignment)
	if err != nil {
		return fmt.Errorf("无法创建邀约: %w", err)
	}
	if !ok {
		// 数据库守卫没有通过，最常见的情况是并发的轮次已经发出了邀约
		s.logger.Info("邀约创建被守卫拦截，跳过本轮",
			"shift_id", shift.ID,
			"worker_id", candidate.Worker.ID,
		)
		return nil
	}

	if err := s.store.IncrementAssignedCount(candidate.Worker.ID); err != nil {
		return fmt.Errorf("无法更新工人被指派计数: %w", err)
	}

	workerID := candidate.Worker.ID
	record := &domain.ActivityRecord{
		Action:       domain.ActivityOfferSent,
		ShiftID:      shift.ID,
		WorkerID:     &workerID,
		AssignmentID: &assignment.ID,
		Detail: map[string]any{
			"score":          candidate.Score,
			"distance_miles": candidate.DistanceMiles,
			"rank":           rank,
		},
	}
	if err := s.store.InsertActivity(record); err != nil {
		return fmt.Errorf("无法记录邀约活动: %w", err)
	}

	organization, err := s.store.GetOrganizationByID(shift.OrganizationID)
	if err != nil {
		return fmt.Errorf("无法获取用人方: %w", err)
	}

	window := time.Duration(s.cfg.Offer.ResponseWindow) * time.Second
	acceptURL, err := s.respondURL(assignment, TokenActionAccept, window)
	if err != nil {
		return fmt.Errorf("无法签发接受令牌: %w", err)
	}
	declineURL, err := s.respondURL(assignment, TokenActionDecline, window)
	if err != nil {
		return fmt.Errorf("无法签发拒绝令牌: %w", err)
	}

	notification := &domain.NotificationMessage{
		Type:    "offer_invitation",
		To:      candidate.Worker.Email,
		Channel: "email",
		Data: &domain.OfferMailData{
			FullName:         candidate.Worker.FullName,
			ShiftTitle:       shift.Title,
			OrganizationName: organization.Name,
			StartTime:        shift.StartTime.Format("2006-01-02 15:04"),
			EndTime:          shift.EndTime.Format("2006-01-02 15:04"),
			PayRate:          shift.PayRate,
			DistanceMiles:    candidate.DistanceMiles,
			AcceptURL:        acceptURL,
			DeclineURL:       declineURL,
			ExpireMinutes:    int(window.Minutes()),
		},
	}
	if err := s.publisher.PublishNotification(notification); err != nil {
		return fmt.Errorf("无法投递邀约通知: %w", err)
	}

	if err := s.publisher.PublishTimeout(assignment.ID); err != nil {
		return fmt.Errorf("无法启动响应窗口倒计时: %w", err)
	}

	s.logger.Info("邀约已发出",
		"shift_id", shift.ID,
		"worker_id", candidate.Worker.ID,
		"assignment_id", assignment.ID,
		"score", candidate.Score,
		"rank", rank,
	)
	return nil
}

func (s *Sequencer) respondURL(assignment *domain.Assignment, action string, window time.Duration) (string, error) {
	token, err := SignOfferToken(s.cfg.Offer.TokenSecret, assignment.ID, assignment.WorkerID, action, window)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s?token=%s", s.cfg.Offer.RespondBaseURL, url.QueryEscape(token)), nil
}

// HandleAcceptance 处理工人接受邀约。
// 返回 false 表示状态守卫没有通过（邀约已不处于待响应状态）。
func (s *Sequencer) HandleAcceptance(assignmentID int64, method string) (bool, error) {
	ok, result, err := s.store.AcceptOffer(assignmentID, method)
	if err != nil {
		return false, fmt.Errorf("无法接受邀约: %w", err)
	}
	if !ok {
		return false, nil
	}

	a := result.Assignment
	record := &domain.ActivityRecord{
		Action:       domain.ActivityOfferAccepted,
		ShiftID:      a.ShiftID,
		WorkerID:     &a.WorkerID,
		AssignmentID: &a.ID,
		Detail: map[string]any{
			"response_minutes": result.ResponseMinutes,
			"method":           method,
		},
	}
	if err := s.store.InsertActivity(record); err != nil {
		return false, fmt.Errorf("无法记录接受活动: %w", err)
	}

	if result.ShiftFilled {
		s.logger.Info("班次已满员，招募完成", "shift_id", a.ShiftID)
		record := &domain.ActivityRecord{
			Action:  domain.ActivityRecruitingCompleted,
			ShiftID: a.ShiftID,
		}
		if err := s.store.InsertActivity(record); err != nil {
			return false, fmt.Errorf("无法记录招募完成活动: %w", err)
		}
	} else {
		// 还有空缺，继续下一轮邀约
		if err := s.publisher.PublishCycle(a.ShiftID); err != nil {
			return false, fmt.Errorf("无法投递下一轮邀约请求: %w", err)
		}
	}

	if err := s.notifyAcceptance(a); err != nil {
		return false, err
	}

	return true, nil
}

// notifyAcceptance 向工人发送接受成功的确认邮件
func (s *Sequencer) notifyAcceptance(a *domain.Assignment) error {
	worker, err := s.store.GetWorkerByID(a.WorkerID)
	if err != nil {
		return fmt.Errorf("无法获取工人信息: %w", err)
	}
	shift, err := s.store.GetShiftByID(a.ShiftID)
	if err != nil {
		return fmt.Errorf("无法获取班次信息: %w", err)
	}

	notification := &domain.NotificationMessage{
		Type:    "offer_accepted",
		To:      worker.Email,
		Channel: "email",
		Data: &domain.OfferAcceptedMailData{
			FullName:   worker.FullName,
			ShiftTitle: shift.Title,
			StartTime:  shift.StartTime.Format("2006-01-02 15:04"),
		},
	}
	if err := s.publisher.PublishNotification(notification); err != nil {
		return fmt.Errorf("无法投递确认通知: %w", err)
	}
	return nil
}

// HandleDecline 处理工人拒绝邀约，拒绝后立即开始下一轮
func (s *Sequencer) HandleDecline(assignmentID int64, reason string, method string) (bool, error) {
	ok, result, err := s.store.DeclineOffer(assignmentID, reason, method)
	if err != nil {
		return false, fmt.Errorf("无法拒绝邀约: %w", err)
	}
	if !ok {
		return false, nil
	}

	a := result.Assignment
	record := &domain.ActivityRecord{
		Action:       domain.ActivityOfferDeclined,
		ShiftID:      a.ShiftID,
		WorkerID:     &a.WorkerID,
		AssignmentID: &a.ID,
		Detail: map[string]any{
			"response_minutes": result.ResponseMinutes,
			"reason":           reason,
			"method":           method,
		},
	}
	if err := s.store.InsertActivity(record); err != nil {
		return false, fmt.Errorf("无法记录拒绝活动: %w", err)
	}

	if err := s.publisher.PublishCycle(a.ShiftID); err != nil {
		return false, fmt.Errorf("无法投递下一轮邀约请求: %w", err)
	}

	return true, nil
}

// AssignmentForTimeout 查出到期邀约，供调用方确定班次锁的粒度
func (s *Sequencer) AssignmentForTimeout(assignmentID int64) (*domain.Assignment, error) {
	return s.store.GetAssignmentByID(assignmentID)
}

// HandleTimeout 处理响应窗口到期。
// 工人已经抢先响应时数据库守卫不会通过，到期事件退化为空操作，
// 因此到期消息天然是幂等的，重复消费也不会产生影响。
func (s *Sequencer) HandleTimeout(assignmentID int64) error {
	ok, result, err := s.store.TimeoutOffer(assignmentID)
	if err != nil {
		return fmt.Errorf("无法处理邀约超时: %w", err)
	}
	if !ok {
		s.logger.Info("邀约已被响应，忽略到期事件", "assignment_id", assignmentID)
		return nil
	}

	a := result.Assignment
	record := &domain.ActivityRecord{
		Action:       domain.ActivityOfferTimeout,
		ShiftID:      a.ShiftID,
		WorkerID:     &a.WorkerID,
		AssignmentID: &a.ID,
	}
	if err := s.store.InsertActivity(record); err != nil {
		return fmt.Errorf("无法记录超时活动: %w", err)
	}

	if err := s.publisher.PublishCycle(a.ShiftID); err != nil {
		return fmt.Errorf("无法投递下一轮邀约请求: %w", err)
	}

	return nil
}
