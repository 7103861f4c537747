package repository

import (
	"database/sql"

	"github.com/linggong-dev/shift-dispatch/backend/internal/domain"
)

const workerColumns = `
	full_name, username, email, phone, is_active, onboarded,
	latitude, longitude,
	reliability_score, average_rating, average_response_minutes,
	completed_shifts_count, no_show_count, assigned_shifts_count,
	created_at, version
`

// scanWorker 处理可空列到指针字段的转换
func scanWorker(scan func(dst ...any) error, worker *domain.Worker) error {
	var (
		latitude        sql.NullFloat64
		longitude       sql.NullFloat64
		reliability     sql.NullFloat64
		rating          sql.NullFloat64
		responseMinutes sql.NullFloat64
	)

	dst := []any{
		&worker.FullName, &worker.Username, &worker.Email, &worker.Phone,
		&worker.IsActive, &worker.Onboarded,
		&latitude, &longitude,
		&reliability, &rating, &responseMinutes,
		&worker.CompletedShiftsCount, &worker.NoShowCount, &worker.AssignedShiftsCount,
		&worker.CreatedAt, &worker.Version,
	}
	if err := scan(dst...); err != nil {
		return err
	}

	if latitude.Valid {
		worker.Latitude = &latitude.Float64
	}
	if longitude.Valid {
		worker.Longitude = &longitude.Float64
	}
	if reliability.Valid {
		worker.ReliabilityScore = &reliability.Float64
	}
	if rating.Valid {
		worker.AverageRating = &rating.Float64
	}
	if responseMinutes.Valid {
		worker.AverageResponseMinutes = &responseMinutes.Float64
	}

	return nil
}

func (r *Repository) CreateWorker(worker *domain.Worker) error {
	ctx, cancel := r.transactionContext()
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		INSERT INTO workers (
			full_name, username, email, phone, is_active, onboarded, latitude, longitude
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, version
	`

	params := []any{
		worker.FullName, worker.Username, worker.Email, worker.Phone,
		worker.IsActive, worker.Onboarded, worker.Latitude, worker.Longitude,
	}
	if err := tx.QueryRowContext(ctx, query, params...).Scan(&worker.ID, &worker.CreatedAt, &worker.Version); err != nil {
		return err
	}

	for _, category := range worker.PreferredCategories {
		query := `
			INSERT INTO worker_categories (worker_id, category, kind)
			VALUES ($1, $2, 'preferred')
			ON CONFLICT DO NOTHING
		`
		if _, err := tx.ExecContext(ctx, query, worker.ID, category); err != nil {
			return err
		}
	}

	for _, category := range worker.WorkedCategories {
		query := `
			INSERT INTO worker_categories (worker_id, category, kind)
			VALUES ($1, $2, 'worked')
			ON CONFLICT DO NOTHING
		`
		if _, err := tx.ExecContext(ctx, query, worker.ID, category); err != nil {
			return err
		}
	}

	for _, window := range worker.AvailabilityWindows {
		query := `
			INSERT INTO worker_availability_windows (worker_id, day_of_week, start_time, end_time)
			VALUES ($1, $2, $3, $4)
		`
		if _, err := tx.ExecContext(ctx, query, worker.ID, window.DayOfWeek, window.StartTime, window.EndTime); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetWorkerByID(id int64) (*domain.Worker, error) {
	query := `SELECT ` + workerColumns + ` FROM workers WHERE id = $1`

	ctx, cancel := r.queryContext()
	defer cancel()

	worker := &domain.Worker{
		ID: id,
	}

	row := r.dbpool.QueryRowContext(ctx, query, id)
	if err := scanWorker(row.Scan, worker); err != nil {
		return nil, err
	}

	if err := r.attachWorkerDetails([]*domain.Worker{worker}); err != nil {
		return nil, err
	}

	return worker, nil
}

func (r *Repository) GetAllWorkers() ([]*domain.Worker, error) {
	return r.listWorkers(`SELECT id, ` + workerColumns + ` FROM workers`)
}

// ListMatchableWorkers 返回所有在职且完成入驻的工人，
// 定位、工种、时间段等排除逻辑统一由匹配模块处理
func (r *Repository) ListMatchableWorkers() ([]*domain.Worker, error) {
	return r.listWorkers(`SELECT id, ` + workerColumns + ` FROM workers WHERE is_active = TRUE AND onboarded = TRUE`)
}

func (r *Repository) listWorkers(query string) ([]*domain.Worker, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	workers := []*domain.Worker{}
	for rows.Next() {
		var worker domain.Worker
		scan := func(dst ...any) error {
			return rows.Scan(append([]any{&worker.ID}, dst...)...)
		}
		if err := scanWorker(scan, &worker); err != nil {
			return nil, err
		}
		workers = append(workers, &worker)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachWorkerDetails(workers); err != nil {
		return nil, err
	}

	return workers, nil
}

// attachWorkerDetails 批量装载工人的工种与可工作时间段
func (r *Repository) attachWorkerDetails(workers []*domain.Worker) error {
	if len(workers) == 0 {
		return nil
	}

	workerMap := make(map[int64]*domain.Worker, len(workers))
	ids := make([]int64, 0, len(workers))
	for _, worker := range workers {
		worker.PreferredCategories = []string{}
		worker.WorkedCategories = []string{}
		worker.AvailabilityWindows = []domain.AvailabilityWindow{}
		workerMap[worker.ID] = worker
		ids = append(ids, worker.ID)
	}

	ctx, cancel := r.queryContext()
	defer cancel()

	query := `
		SELECT worker_id, category, kind
		FROM worker_categories
		WHERE worker_id = ANY($1)
	`

	rows, err := r.dbpool.QueryContext(ctx, query, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			workerID int64
			category string
			kind     string
		)
		if err := rows.Scan(&workerID, &category, &kind); err != nil {
			return err
		}

		worker := workerMap[workerID]
		if worker == nil {
			continue
		}
		switch kind {
		case "preferred":
			worker.PreferredCategories = append(worker.PreferredCategories, category)
		case "worked":
			worker.WorkedCategories = append(worker.WorkedCategories, category)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	query = `
		SELECT worker_id, day_of_week, start_time, end_time
		FROM worker_availability_windows
		WHERE worker_id = ANY($1)
	`

	windowRows, err := r.dbpool.QueryContext(ctx, query, ids)
	if err != nil {
		return err
	}
	defer windowRows.Close()

	for windowRows.Next() {
		var (
			workerID int64
			window   domain.AvailabilityWindow
		)
		if err := windowRows.Scan(&workerID, &window.DayOfWeek, &window.StartTime, &window.EndTime); err != nil {
			return err
		}

		if worker := workerMap[workerID]; worker != nil {
			worker.AvailabilityWindows = append(worker.AvailabilityWindows, window)
		}
	}

	return windowRows.Err()
}

func (r *Repository) UpdateWorker(worker *domain.Worker) error {
	query := `
		UPDATE workers
		SET
			full_name = $1,
			email = $2,
			phone = $3,
			is_active = $4,
			onboarded = $5,
			latitude = $6,
			longitude = $7,
			version = version + 1
		WHERE id = $8 AND version = $9
		RETURNING version
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	params := []any{
		worker.FullName, worker.Email, worker.Phone,
		worker.IsActive, worker.Onboarded,
		worker.Latitude, worker.Longitude,
		worker.ID, worker.Version,
	}

	if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(&worker.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) ReplaceAvailabilityWindows(workerID int64, windows []domain.AvailabilityWindow) error {
	ctx, cancel := r.transactionContext()
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `DELETE FROM worker_availability_windows WHERE worker_id = $1`
	if _, err := tx.ExecContext(ctx, query, workerID); err != nil {
		return err
	}

	for _, window := range windows {
		query := `
			INSERT INTO worker_availability_windows (worker_id, day_of_week, start_time, end_time)
			VALUES ($1, $2, $3, $4)
		`
		if _, err := tx.ExecContext(ctx, query, workerID, window.DayOfWeek, window.StartTime, window.EndTime); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

// IncrementAssignedCount 在邀约发出时累加工人的被指派计数
func (r *Repository) IncrementAssignedCount(workerID int64) error {
	query := `UPDATE workers SET assigned_shifts_count = assigned_shifts_count + 1 WHERE id = $1`

	ctx, cancel := r.queryContext()
	defer cancel()

	if _, err := r.dbpool.ExecContext(ctx, query, workerID); err != nil {
		return err
	}

	return nil
}
