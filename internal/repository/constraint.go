package repository

import (
	"context"

	"github.com/google/uuid"
	apperrors "github.com/zhipai/zhipai/pkg/errors"
	"github.com/zhipai/zhipai/pkg/logger"
	"github.com/zhipai/zhipai/pkg/model"
)

// ListConstraints 查询业务下生效的约束
// 参数无法解码的约束跳过并告警，不影响整次查询
func (r *Repository) ListConstraints(ctx context.Context, businessID uuid.UUID) ([]*model.Constraint, error) {
	query := `
		SELECT id, business_id, type, params, priority, is_active,
		       created_at, updated_at
		FROM constraints
		WHERE business_id = $1 AND is_active = true AND deleted_at IS NULL
		ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, businessID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabase, "查询约束失败")
	}
	defer rows.Close()

	var result []*model.Constraint
	for rows.Next() {
		var (
			con    model.Constraint
			typ    model.ConstraintType
			params []byte
		)
		if err := rows.Scan(
			&con.ID, &con.BusinessID, &typ, &params, &con.Priority, &con.IsActive,
			&con.CreatedAt, &con.UpdatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeDatabase, "解析约束记录失败")
		}

		spec, err := model.DecodeConstraintSpec(typ, params)
		if err != nil {
			logger.Warn().
				Err(err).
				Str("constraint_id", con.ID.String()).
				Str("type", string(typ)).
				Msg("约束参数无法解码，已跳过")
			continue
		}
		con.Spec = spec
		result = append(result, &con)
	}
	return result, rows.Err()
}
