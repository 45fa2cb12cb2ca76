package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/lib/pq"
	apperrors "github.com/zhipai/zhipai/pkg/errors"
	"github.com/zhipai/zhipai/pkg/model"
)

// ListShifts 查询日期范围内指定状态的班次
func (r *Repository) ListShifts(ctx context.Context, businessID uuid.UUID, dateRange model.DateRange, statusIn []model.ShiftStatus) ([]*model.Shift, error) {
	statuses := make([]string, len(statusIn))
	for i, s := range statusIn {
		statuses[i] = string(s)
	}

	query := `
		SELECT id, business_id, date, start_time, end_time,
		       required_skill, required_count, hourly_rate, status,
		       created_at, updated_at
		FROM shifts
		WHERE business_id = $1
		  AND date >= $2 AND date <= $3
		  AND status = ANY($4)
		  AND deleted_at IS NULL
		ORDER BY date, start_time`

	rows, err := r.db.QueryContext(ctx, query, businessID, dateRange.StartDate, dateRange.EndDate, pq.Array(statuses))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabase, "查询班次失败")
	}
	defer rows.Close()

	var result []*model.Shift
	for rows.Next() {
		var shift model.Shift
		if err := rows.Scan(
			&shift.ID, &shift.BusinessID, &shift.Date, &shift.StartTime, &shift.EndTime,
			&shift.RequiredSkill, &shift.RequiredCount, &shift.HourlyRate, &shift.Status,
			&shift.CreatedAt, &shift.UpdatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeDatabase, "解析班次记录失败")
		}
		result = append(result, &shift)
	}
	return result, rows.Err()
}
