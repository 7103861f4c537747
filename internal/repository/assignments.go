package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/linggong-dev/shift-dispatch/backend/internal/domain"
	"github.com/linggong-dev/shift-dispatch/backend/internal/lifecycle"
)

// TransitionResult: 一次状态流转的结果，供上层决定后续动作
type TransitionResult struct {
	Assignment      *domain.Assignment
	SlotReleased    bool    // 本次流转是否释放了一个名额
	ShiftFilled     bool    // 本次流转是否使班次满员
	ShiftReopened   bool    // 本次流转是否使已满员的班次重新回到招募状态
	ResponseMinutes float64 // 接受/拒绝时距离邀约发出的分钟数
}

const assignmentColumns = `
	shift_id, worker_id, status,
	score, score_breakdown, distance_miles, rank,
	offer_sent_at, responded_at, response_method, decline_reason,
	cancelled_by, cancel_reason,
	actual_start_time, actual_end_time, hours_worked, timesheet_approver,
	created_at, version
`

func scanAssignment(scan func(dst ...any) error, a *domain.Assignment) error {
	var (
		breakdown      []byte
		respondedAt    sql.NullTime
		responseMethod sql.NullString
		declineReason  sql.NullString
		cancelledBy    sql.NullString
		cancelReason   sql.NullString
		actualStart    sql.NullTime
		actualEnd      sql.NullTime
		hoursWorked    sql.NullFloat64
		approver       sql.NullString
	)

	dst := []any{
		&a.ShiftID, &a.WorkerID, &a.Status,
		&a.Score, &breakdown, &a.DistanceMiles, &a.Rank,
		&a.OfferSentAt, &respondedAt, &responseMethod, &declineReason,
		&cancelledBy, &cancelReason,
		&actualStart, &actualEnd, &hoursWorked, &approver,
		&a.CreatedAt, &a.Version,
	}
	if err := scan(dst...); err != nil {
		return err
	}

	if len(breakdown) > 0 {
		if err := json.Unmarshal(breakdown, &a.ScoreBreakdown); err != nil {
			return err
		}
	}
	if respondedAt.Valid {
		a.RespondedAt = &respondedAt.Time
	}
	if responseMethod.Valid {
		a.ResponseMethod = &responseMethod.String
	}
	if declineReason.Valid {
		a.DeclineReason = &declineReason.String
	}
	if cancelledBy.Valid {
		actor := domain.CancelActor(cancelledBy.String)
		a.CancelledBy = &actor
	}
	if cancelReason.Valid {
		a.CancelReason = &cancelReason.String
	}
	if actualStart.Valid {
		a.ActualStartTime = &actualStart.Time
	}
	if actualEnd.Valid {
		a.ActualEndTime = &actualEnd.Time
	}
	if hoursWorked.Valid {
		a.HoursWorked = &hoursWorked.Float64
	}
	if approver.Valid {
		a.TimesheetApprover = &approver.String
	}

	return nil
}

// CreateOffer 创建处于 offered 状态的 Assignment。
// 单一未决邀约不变量在这里由 SQL 强制：
// 只要该班次还存在 offered 状态的记录，或该工人已有该班次的记录，
// 或者班次已不在招募状态/已无空缺，插入都不会发生并返回 false。
func (r *Repository) CreateOffer(a *domain.Assignment) (bool, error) {
	breakdown, err := json.Marshal(a.ScoreBreakdown)
	if err != nil {
		return false, err
	}

	query := `
		INSERT INTO assignments (
			shift_id, worker_id, status,
			score, score_breakdown, distance_miles, rank, offer_sent_at
		)
		SELECT $1, $2, 'offered', $3, $4, $5, $6, $7
		WHERE EXISTS (
			SELECT 1 FROM shifts
			WHERE id = $1 AND status = 'recruiting' AND slots_filled < slots_total
		)
		AND NOT EXISTS (
			SELECT 1 FROM assignments WHERE shift_id = $1 AND status = 'offered'
		)
		AND NOT EXISTS (
			SELECT 1 FROM assignments WHERE shift_id = $1 AND worker_id = $2
		)
		RETURNING id, created_at, version
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	params := []any{
		a.ShiftID, a.WorkerID,
		a.Score, breakdown, a.DistanceMiles, a.Rank, a.OfferSentAt,
	}
	dst := []any{&a.ID, &a.CreatedAt, &a.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(dst...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	a.Status = domain.AssignmentStatusOffered
	return true, nil
}

func (r *Repository) GetAssignmentByID(id int64) (*domain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = $1`

	ctx, cancel := r.queryContext()
	defer cancel()

	a := &domain.Assignment{
		ID: id,
	}

	row := r.dbpool.QueryRowContext(ctx, query, id)
	if err := scanAssignment(row.Scan, a); err != nil {
		return nil, err
	}

	return a, nil
}

func (r *Repository) ListAssignmentsByShift(shiftID int64) ([]*domain.Assignment, error) {
	query := `SELECT id, ` + assignmentColumns + ` FROM assignments WHERE shift_id = $1 ORDER BY id`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assignments := []*domain.Assignment{}
	for rows.Next() {
		var a domain.Assignment
		scan := func(dst ...any) error {
			return rows.Scan(append([]any{&a.ID}, dst...)...)
		}
		if err := scanAssignment(scan, &a); err != nil {
			return nil, err
		}
		assignments = append(assignments, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return assignments, nil
}

// ListAssignmentWorkerIDs 返回某个班次所有 Assignment 涉及的工人 ID 集合（无论状态）
func (r *Repository) ListAssignmentWorkerIDs(shiftID int64) (map[int64]bool, error) {
	query := `SELECT worker_id FROM assignments WHERE shift_id = $1`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	workerIDs := map[int64]bool{}
	for rows.Next() {
		var workerID int64
		if err := rows.Scan(&workerID); err != nil {
			return nil, err
		}
		workerIDs[workerID] = true
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return workerIDs, nil
}

// AcceptOffer 处理工人接受邀约：
// Assignment 流转为 accepted、名额加一、满员时班次置为 filled，
// 并在同一个事务里更新工人的响应统计。
func (r *Repository) AcceptOffer(id int64, method string) (bool, *TransitionResult, error) {
	ctx, cancel := r.transactionContext()
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return false, nil, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()

	query := `
		UPDATE assignments
		SET status = 'accepted', responded_at = $2, response_method = $3, version = version + 1
		WHERE id = $1 AND status = 'offered'
		RETURNING shift_id, worker_id, offer_sent_at
	`

	a := &domain.Assignment{
		ID:             id,
		Status:         domain.AssignmentStatusAccepted,
		ResponseMethod: &method,
		RespondedAt:    &now,
	}
	if err := tx.QueryRowContext(ctx, query, id, now, method).Scan(&a.ShiftID, &a.WorkerID, &a.OfferSentAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil, nil
		}
		return false, nil, err
	}

	// 名额加一必须是单条原子语句，不允许读出再写回
	query = `UPDATE shifts SET slots_filled = slots_filled + 1 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, a.ShiftID); err != nil {
		return false, nil, err
	}

	// 满员时把班次置为 filled
	query = `
		UPDATE shifts SET status = 'filled'
		WHERE id = $1 AND status IN ('posted', 'recruiting') AND slots_filled >= slots_total
	`
	filledResult, err := tx.ExecContext(ctx, query, a.ShiftID)
	if err != nil {
		return false, nil, err
	}
	filledRows, err := filledResult.RowsAffected()
	if err != nil {
		return false, nil, err
	}

	responseMinutes := now.Sub(a.OfferSentAt).Minutes()
	if err := updateResponseStats(ctx, tx, a.WorkerID, responseMinutes); err != nil {
		return false, nil, err
	}

	if err := tx.Commit(); err != nil {
		return false, nil, err
	}

	return true, &TransitionResult{
		Assignment:      a,
		ShiftFilled:     filledRows == 1,
		ResponseMinutes: responseMinutes,
	}, nil
}

// DeclineOffer 处理工人拒绝邀约，不涉及名额变化
func (r *Repository) DeclineOffer(id int64, reason string, method string) (bool, *TransitionResult, error) {
	ctx, cancel := r.transactionContext()
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return false, nil, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()

	query := `
		UPDATE assignments
		SET status = 'declined', responded_at = $2, response_method = $3, decline_reason = $4, version = version + 1
		WHERE id = $1 AND status = 'offered'
		RETURNING shift_id, worker_id, offer_sent_at
	`

	a := &domain.Assignment{
		ID:             id,
		Status:         domain.AssignmentStatusDeclined,
		RespondedAt:    &now,
		ResponseMethod: &method,
		DeclineReason:  &reason,
	}
	if err := tx.QueryRowContext(ctx, query, id, now, method, reason).Scan(&a.ShiftID, &a.WorkerID, &a.OfferSentAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil, nil
		}
		return false, nil, err
	}

	responseMinutes := now.Sub(a.OfferSentAt).Minutes()
	if err := updateResponseStats(ctx, tx, a.WorkerID, responseMinutes); err != nil {
		return false, nil, err
	}

	if err := tx.Commit(); err != nil {
		return false, nil, err
	}

	return true, &TransitionResult{
		Assignment:      a,
		ResponseMinutes: responseMinutes,
	}, nil
}

// TimeoutOffer 处理响应窗口到期。
// 状态守卫同时也是幂等保护：如果工人抢在定时器之前做出了响应，
// 这里不会匹配到任何行，到期事件自然成为空操作。
func (r *Repository) TimeoutOffer(id int64) (bool, *TransitionResult, error) {
	query := `
		UPDATE assignments
		SET status = 'no_response', version = version + 1
		WHERE id = $1 AND status = 'offered'
		RETURNING shift_id, worker_id, offer_sent_at
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	a := &domain.Assignment{
		ID:     id,
		Status: domain.AssignmentStatusNoResponse,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(&a.ShiftID, &a.WorkerID, &a.OfferSentAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil, nil
		}
		return false, nil, err
	}

	return true, &TransitionResult{Assignment: a}, nil
}

// ConfirmAssignment 把已接受的 Assignment 确认为 confirmed
func (r *Repository) ConfirmAssignment(id int64) (bool, *TransitionResult, error) {
	return r.simpleTransition(id, lifecycle.EventConfirm, `
		UPDATE assignments
		SET status = 'confirmed', version = version + 1
		WHERE id = $1 AND status = ANY($2)
		RETURNING shift_id, worker_id, offer_sent_at
	`)
}

// CheckInAssignment 签到，时间守卫（班次已开始）直接编码在 SQL 里
func (r *Repository) CheckInAssignment(id int64, now time.Time) (bool, *TransitionResult, error) {
	query := `
		UPDATE assignments a
		SET status = 'checked_in', actual_start_time = $2, version = a.version + 1
		FROM shifts s
		WHERE a.id = $1 AND a.shift_id = s.id
			AND a.status = ANY($3)
			AND s.start_time <= $2
		RETURNING a.shift_id, a.worker_id, a.offer_sent_at
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	a := &domain.Assignment{
		ID:              id,
		Status:          domain.AssignmentStatusCheckedIn,
		ActualStartTime: &now,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, id, now, statusList(lifecycle.EventCheckIn)).Scan(&a.ShiftID, &a.WorkerID, &a.OfferSentAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil, nil
		}
		return false, nil, err
	}

	return true, &TransitionResult{Assignment: a}, nil
}

// CheckOutAssignment 签退并按实际起止时间计算工时
func (r *Repository) CheckOutAssignment(id int64, now time.Time) (bool, *TransitionResult, error) {
	query := `
		UPDATE assignments
		SET
			status = 'checked_out',
			actual_end_time = $2,
			hours_worked = EXTRACT(EPOCH FROM ($2 - actual_start_time)) / 3600,
			version = version + 1
		WHERE id = $1 AND status = ANY($3)
		RETURNING shift_id, worker_id, offer_sent_at, hours_worked
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	a := &domain.Assignment{
		ID:            id,
		Status:        domain.AssignmentStatusCheckedOut,
		ActualEndTime: &now,
	}
	var hoursWorked float64
	dst := []any{&a.ShiftID, &a.WorkerID, &a.OfferSentAt, &hoursWorked}
	if err := r.dbpool.QueryRowContext(ctx, query, id, now, statusList(lifecycle.EventCheckOut)).Scan(dst...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil, nil
		}
		return false, nil, err
	}
	a.HoursWorked = &hoursWorked

	return true, &TransitionResult{Assignment: a}, nil
}

// ApproveTimesheet 审批工时表并记录审批人
func (r *Repository) ApproveTimesheet(id int64, approver string) (bool, *TransitionResult, error) {
	query := `
		UPDATE assignments
		SET status = 'timesheet_approved', timesheet_approver = $2, version = version + 1
		WHERE id = $1 AND status = ANY($3)
		RETURNING shift_id, worker_id, offer_sent_at
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	a := &domain.Assignment{
		ID:                id,
		Status:            domain.AssignmentStatusTimesheetApproved,
		TimesheetApprover: &approver,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, id, approver, statusList(lifecycle.EventApproveTimesheet)).Scan(&a.ShiftID, &a.WorkerID, &a.OfferSentAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil, nil
		}
		return false, nil, err
	}

	return true, &TransitionResult{Assignment: a}, nil
}

// CompleteAssignment 完工：流转为 completed 并在同一个事务里
// 重算工人的完成数、可靠度与工种完成记录
func (r *Repository) CompleteAssignment(id int64) (bool, *TransitionResult, error) {
	ctx, cancel := r.transactionContext()
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return false, nil, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		UPDATE assignments
		SET status = 'completed', version = version + 1
		WHERE id = $1 AND status = ANY($2)
		RETURNING shift_id, worker_id, offer_sent_at
	`

	a := &domain.Assignment{
		ID:     id,
		Status: domain.AssignmentStatusCompleted,
	}
	if err := tx.QueryRowContext(ctx, query, id, statusList(lifecycle.EventComplete)).Scan(&a.ShiftID, &a.WorkerID, &a.OfferSentAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil, nil
		}
		return false, nil, err
	}

	// 完成数加一并重算可靠度：可靠度 = 100 * 完成数 / (完成数 + 缺勤数)
	query = `
		UPDATE workers
		SET
			completed_shifts_count = completed_shifts_count + 1,
			reliability_score = ROUND(100.0 * (completed_shifts_count + 1) / (completed_shifts_count + 1 + no_show_count))
		WHERE id = $1
	`
	if _, err := tx.ExecContext(ctx, query, a.WorkerID); err != nil {
		return false, nil, err
	}

	// 记录工种完成历史，供后续匹配的工种契合分使用
	query = `
		INSERT INTO worker_categories (worker_id, category, kind)
		SELECT $1, job_category, 'worked' FROM shifts WHERE id = $2
		ON CONFLICT DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, query, a.WorkerID, a.ShiftID); err != nil {
		return false, nil, err
	}

	if err := tx.Commit(); err != nil {
		return false, nil, err
	}

	return true, &TransitionResult{Assignment: a}, nil
}

// MarkNoShow 标记缺勤。名额是否释放取决于流转前的状态，
// 所以这里用行锁读出当前状态后查询转移表，而不是单条条件更新。
func (r *Repository) MarkNoShow(id int64) (bool, *TransitionResult, error) {
	return r.releaseTransition(id, lifecycle.EventNoShow, func(ctx context.Context, tx *sql.Tx, a *domain.Assignment) error {
		query := `
			UPDATE assignments
			SET status = 'no_show', version = version + 1
			WHERE id = $1
		`
		if _, err := tx.ExecContext(ctx, query, id); err != nil {
			return err
		}

		// 缺勤数加一并重算可靠度
		query = `
			UPDATE workers
			SET
				no_show_count = no_show_count + 1,
				reliability_score = ROUND(100.0 * completed_shifts_count / (completed_shifts_count + no_show_count + 1))
			WHERE id = $1
		`
		if _, err := tx.ExecContext(ctx, query, a.WorkerID); err != nil {
			return err
		}

		a.Status = domain.AssignmentStatusNoShow
		return nil
	})
}

// CancelAssignment 取消 Assignment 并记录发起方与原因
func (r *Repository) CancelAssignment(id int64, by domain.CancelActor, reason string) (bool, *TransitionResult, error) {
	return r.releaseTransition(id, lifecycle.EventCancel, func(ctx context.Context, tx *sql.Tx, a *domain.Assignment) error {
		query := `
			UPDATE assignments
			SET status = 'cancelled', cancelled_by = $2, cancel_reason = $3, version = version + 1
			WHERE id = $1
		`
		if _, err := tx.ExecContext(ctx, query, id, by, reason); err != nil {
			return err
		}

		a.Status = domain.AssignmentStatusCancelled
		a.CancelledBy = &by
		a.CancelReason = &reason
		return nil
	})
}

// releaseTransition 处理可能释放名额的流转（取消/缺勤）：
// 在事务里用 FOR UPDATE 锁住 Assignment 行，按转移表判断守卫与名额效果。
func (r *Repository) releaseTransition(
	id int64,
	event lifecycle.Event,
	apply func(ctx context.Context, tx *sql.Tx, a *domain.Assignment) error,
) (bool, *TransitionResult, error) {
	ctx, cancel := r.transactionContext()
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return false, nil, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `SELECT shift_id, worker_id, status, offer_sent_at FROM assignments WHERE id = $1 FOR UPDATE`

	a := &domain.Assignment{
		ID: id,
	}
	if err := tx.QueryRowContext(ctx, query, id).Scan(&a.ShiftID, &a.WorkerID, &a.Status, &a.OfferSentAt); err != nil {
		return false, nil, err
	}

	_, slotEffect, ok := lifecycle.Next(a.Status, event)
	if !ok {
		return false, nil, nil
	}

	if err := apply(ctx, tx, a); err != nil {
		return false, nil, err
	}

	result := &TransitionResult{Assignment: a}

	if slotEffect == lifecycle.SlotDecrement {
		query := `UPDATE shifts SET slots_filled = slots_filled - 1 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, query, a.ShiftID); err != nil {
			return false, nil, err
		}
		result.SlotReleased = true

		// 已满员的班次在名额释放后回到招募状态，等待下一轮邀约
		query = `
			UPDATE shifts SET status = 'recruiting'
			WHERE id = $1 AND status = 'filled' AND slots_filled < slots_total
		`
		reopened, err := tx.ExecContext(ctx, query, a.ShiftID)
		if err != nil {
			return false, nil, err
		}
		reopenedRows, err := reopened.RowsAffected()
		if err != nil {
			return false, nil, err
		}
		result.ShiftReopened = reopenedRows == 1
	}

	if err := tx.Commit(); err != nil {
		return false, nil, err
	}

	return true, result, nil
}

// simpleTransition 处理不涉及名额变化的单语句条件流转
func (r *Repository) simpleTransition(id int64, event lifecycle.Event, query string) (bool, *TransitionResult, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	next, _, _ := lifecycle.Next(lifecycle.FromStatuses(event)[0], event)

	a := &domain.Assignment{
		ID:     id,
		Status: next,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, id, statusList(event)).Scan(&a.ShiftID, &a.WorkerID, &a.OfferSentAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil, nil
		}
		return false, nil, err
	}

	return true, &TransitionResult{Assignment: a}, nil
}

// updateResponseStats 在事务里更新工人的平均响应时长
func updateResponseStats(ctx context.Context, tx *sql.Tx, workerID int64, minutes float64) error {
	query := `
		UPDATE workers
		SET
			average_response_minutes = CASE
				WHEN average_response_minutes IS NULL THEN $2
				ELSE (average_response_minutes * response_count + $2) / (response_count + 1)
			END,
			response_count = response_count + 1
		WHERE id = $1
	`
	if _, err := tx.ExecContext(ctx, query, workerID, minutes); err != nil {
		return err
	}
	return nil
}

// statusList 把转移表允许的来源状态转换为 SQL 参数
func statusList(event lifecycle.Event) []string {
	statuses := lifecycle.FromStatuses(event)
	list := make([]string, len(statuses))
	for i, s := range statuses {
		list[i] = string(s)
	}
	return list
}
