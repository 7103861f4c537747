package repository

import (
	"encoding/json"

	"github.com/linggong-dev/shift-dispatch/backend/internal/domain"
)

// InsertActivity 追加一条活动记录，活动流是只追加的，没有更新与删除
func (r *Repository) InsertActivity(record *domain.ActivityRecord) error {
	detail, err := json.Marshal(record.Detail)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO activity_records (action, shift_id, worker_id, assignment_id, detail)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	params := []any{record.Action, record.ShiftID, record.WorkerID, record.AssignmentID, detail}
	if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(&record.ID, &record.CreatedAt); err != nil {
		return err
	}

	return nil
}

// ListActivitiesByShift 按时间顺序返回某个班次的全部活动记录
func (r *Repository) ListActivitiesByShift(shiftID int64) ([]*domain.ActivityRecord, error) {
	query := `
		SELECT id, action, shift_id, worker_id, assignment_id, detail, created_at
		FROM activity_records
		WHERE shift_id = $1
		ORDER BY id
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []*domain.ActivityRecord{}
	for rows.Next() {
		var (
			record domain.ActivityRecord
			detail []byte
		)
		dst := []any{
			&record.ID, &record.Action, &record.ShiftID,
			&record.WorkerID, &record.AssignmentID, &detail, &record.CreatedAt,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &record.Detail); err != nil {
				return nil, err
			}
		}
		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}
