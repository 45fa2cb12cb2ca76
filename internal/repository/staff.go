package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	apperrors "github.com/zhipai/zhipai/pkg/errors"
	"github.com/zhipai/zhipai/pkg/model"
)

// ListActiveStaff 查询业务下的活跃员工
func (r *Repository) ListActiveStaff(ctx context.Context, businessID uuid.UUID) ([]*model.Staff, error) {
	query := `
		SELECT id, business_id, name, phone, email, is_active,
		       skills, hourly_rate, reliability_score, availability,
		       created_at, updated_at
		FROM staff
		WHERE business_id = $1 AND is_active = true AND deleted_at IS NULL
		ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, businessID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabase, "查询员工失败")
	}
	defer rows.Close()

	var result []*model.Staff
	for rows.Next() {
		staff, err := scanStaff(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeDatabase, "解析员工记录失败")
		}
		result = append(result, staff)
	}
	return result, rows.Err()
}

func scanStaff(rows *sql.Rows) (*model.Staff, error) {
	var (
		staff        model.Staff
		phone, email sql.NullString
		availability []byte
	)

	if err := rows.Scan(
		&staff.ID, &staff.BusinessID, &staff.Name, &phone, &email, &staff.IsActive,
		pq.Array(&staff.Skills), &staff.HourlyRate, &staff.Reliability, &availability,
		&staff.CreatedAt, &staff.UpdatedAt,
	); err != nil {
		return nil, err
	}

	staff.Phone = phone.String
	staff.Email = email.String

	if len(availability) > 0 {
		raw := make(map[string][]model.DayWindow)
		if err := json.Unmarshal(availability, &raw); err == nil {
			staff.WeeklyAvailability = make(map[time.Weekday][]model.DayWindow, len(raw))
			for day, windows := range raw {
				if wd, ok := parseWeekday(day); ok {
					staff.WeeklyAvailability[wd] = windows
				}
			}
		}
	}

	return &staff, nil
}

// parseWeekday 解析周几名称（小写英文，与写入端约定一致）
func parseWeekday(name string) (time.Weekday, bool) {
	switch name {
	case "sunday":
		return time.Sunday, true
	case "monday":
		return time.Monday, true
	case "tuesday":
		return time.Tuesday, true
	case "wednesday":
		return time.Wednesday, true
	case "thursday":
		return time.Thursday, true
	case "friday":
		return time.Friday, true
	case "saturday":
		return time.Saturday, true
	}
	return 0, false
}
