package repository

import (
	"github.com/linggong-dev/shift-dispatch/backend/internal/domain"
)

func (r *Repository) CreateShift(shift *domain.Shift) error {
	query := `
		INSERT INTO shifts (
			organization_id, title, job_category, latitude, longitude,
			start_time, end_time, pay_rate, slots_total, slots_filled, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, $10)
		RETURNING id, created_at, version
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	params := []any{
		shift.OrganizationID, shift.Title, shift.JobCategory,
		shift.Latitude, shift.Longitude,
		shift.StartTime, shift.EndTime, shift.PayRate,
		shift.SlotsTotal, shift.Status,
	}
	dst := []any{&shift.ID, &shift.CreatedAt, &shift.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(dst...); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetShiftByID(id int64) (*domain.Shift, error) {
	query := `
		SELECT
			organization_id, title, job_category, latitude, longitude,
			start_time, end_time, pay_rate, slots_total, slots_filled, status,
			created_at, version
		FROM shifts WHERE id = $1
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	shift := &domain.Shift{
		ID: id,
	}

	dst := []any{
		&shift.OrganizationID, &shift.Title, &shift.JobCategory,
		&shift.Latitude, &shift.Longitude,
		&shift.StartTime, &shift.EndTime, &shift.PayRate,
		&shift.SlotsTotal, &shift.SlotsFilled, &shift.Status,
		&shift.CreatedAt, &shift.Version,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	return shift, nil
}

func (r *Repository) GetAllShifts() ([]*domain.Shift, error) {
	query := `
		SELECT
			id, organization_id, title, job_category, latitude, longitude,
			start_time, end_time, pay_rate, slots_total, slots_filled, status,
			created_at, version
		FROM shifts
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shifts := []*domain.Shift{}
	for rows.Next() {
		var shift domain.Shift
		dst := []any{
			&shift.ID, &shift.OrganizationID, &shift.Title, &shift.JobCategory,
			&shift.Latitude, &shift.Longitude,
			&shift.StartTime, &shift.EndTime, &shift.PayRate,
			&shift.SlotsTotal, &shift.SlotsFilled, &shift.Status,
			&shift.CreatedAt, &shift.Version,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		shifts = append(shifts, &shift)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return shifts, nil
}

// UpdateShiftStatus 带状态守卫的班次状态变更，守卫不满足时返回 false 而不是错误
func (r *Repository) UpdateShiftStatus(id int64, from []domain.ShiftStatus, to domain.ShiftStatus) (bool, error) {
	query := `
		UPDATE shifts
		SET status = $1, version = version + 1
		WHERE id = $2 AND status = ANY($3)
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	fromList := make([]string, len(from))
	for i, s := range from {
		fromList[i] = string(s)
	}

	result, err := r.dbpool.ExecContext(ctx, query, to, id, fromList)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected == 1, nil
}
