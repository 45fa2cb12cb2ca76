package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/lib/pq"
	apperrors "github.com/zhipai/zhipai/pkg/errors"
	"github.com/zhipai/zhipai/pkg/model"
)

// ListPreferences 查询员工在指定日期仍生效的偏好
func (r *Repository) ListPreferences(ctx context.Context, staffIDs []uuid.UUID, asOf string) ([]*model.Preference, error) {
	if len(staffIDs) == 0 {
		return nil, nil
	}

	ids := make([]string, len(staffIDs))
	for i, id := range staffIDs {
		ids[i] = id.String()
	}

	query := `
		SELECT id, staff_id, type, priority, is_active,
		       effective_from, expires_on, params,
		       created_at, updated_at
		FROM preferences
		WHERE staff_id = ANY($1)
		  AND is_active = true
		  AND (expires_on IS NULL OR expires_on >= $2)
		  AND deleted_at IS NULL
		ORDER BY staff_id, created_at`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids), asOf)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabase, "查询偏好失败")
	}
	defer rows.Close()

	var result []*model.Preference
	for rows.Next() {
		var (
			pref          model.Preference
			from, expires sql.NullString
			params        []byte
		)
		if err := rows.Scan(
			&pref.ID, &pref.StaffID, &pref.Type, &pref.Priority, &pref.IsActive,
			&from, &expires, &params,
			&pref.CreatedAt, &pref.UpdatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeDatabase, "解析偏好记录失败")
		}

		pref.EffectiveFrom = from.String
		pref.ExpiresOn = expires.String
		if len(params) > 0 {
			if err := json.Unmarshal(params, &pref.Params); err != nil {
				return nil, apperrors.Wrap(err, apperrors.CodeDatabase, "解析偏好参数失败")
			}
		}
		result = append(result, &pref)
	}
	return result, rows.Err()
}
