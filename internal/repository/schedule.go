package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	apperrors "github.com/zhipai/zhipai/pkg/errors"
	"github.com/zhipai/zhipai/pkg/model"
)

// CreateDraft 创建排班草稿
func (r *Repository) CreateDraft(ctx context.Context, draft *model.ScheduleDraft) error {
	query := `
		INSERT INTO schedule_drafts
			(id, business_id, start_date, end_date, status, confidence, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, query,
		draft.ID, draft.BusinessID,
		draft.DateRange.StartDate, draft.DateRange.EndDate,
		draft.Status, draft.Confidence, draft.CreatedBy,
		draft.CreatedAt, draft.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabase, "创建排班草稿失败")
	}
	return nil
}

// GetDraft 查询排班草稿，不存在时返回 nil
func (r *Repository) GetDraft(ctx context.Context, draftID uuid.UUID) (*model.ScheduleDraft, error) {
	query := `
		SELECT id, business_id, start_date, end_date, status, confidence, created_by,
		       created_at, updated_at
		FROM schedule_drafts
		WHERE id = $1 AND deleted_at IS NULL`

	var (
		draft     model.ScheduleDraft
		createdBy uuid.NullUUID
	)
	err := r.db.QueryRowContext(ctx, query, draftID).Scan(
		&draft.ID, &draft.BusinessID,
		&draft.DateRange.StartDate, &draft.DateRange.EndDate,
		&draft.Status, &draft.Confidence, &createdBy,
		&draft.CreatedAt, &draft.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabase, "查询排班草稿失败")
	}

	if createdBy.Valid {
		draft.CreatedBy = &createdBy.UUID
	}
	return &draft, nil
}

// UpdateDraftConfidence 更新草稿的置信度与状态
func (r *Repository) UpdateDraftConfidence(ctx context.Context, draftID uuid.UUID, confidence float64, status model.DraftStatus) error {
	query := `
		UPDATE schedule_drafts
		SET confidence = $2, status = $3, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	_, err := r.db.ExecContext(ctx, query, draftID, confidence, status)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabase, "更新排班草稿失败")
	}
	return nil
}

// SaveAssignments 保存分配记录
// 按 (draft_id, shift_id, staff_id) 幂等更新，部分失败后的重试不会产生重复行
func (r *Repository) SaveAssignments(ctx context.Context, assignments []*model.DraftAssignment) error {
	if len(assignments) == 0 {
		return nil
	}

	return r.db.Transaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO draft_assignments
				(id, draft_id, shift_id, staff_id, confidence, reasoning,
				 is_ai_generated, manual_override, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (draft_id, shift_id, staff_id) DO UPDATE SET
				confidence = EXCLUDED.confidence,
				reasoning = EXCLUDED.reasoning,
				is_ai_generated = EXCLUDED.is_ai_generated,
				updated_at = EXCLUDED.updated_at`

		for _, a := range assignments {
			if _, err := tx.ExecContext(ctx, query,
				a.ID, a.DraftID, a.ShiftID, a.StaffID,
				a.Confidence, a.Reasoning,
				a.IsAIGenerated, a.ManualOverride,
				a.CreatedAt, a.UpdatedAt,
			); err != nil {
				return apperrors.Wrap(err, apperrors.CodeDatabase, "保存排班分配失败")
			}
		}
		return nil
	})
}

// ListDraftAssignments 查询草稿下的全部分配
func (r *Repository) ListDraftAssignments(ctx context.Context, draftID uuid.UUID) ([]*model.DraftAssignment, error) {
	query := `
		SELECT id, draft_id, shift_id, staff_id, confidence, reasoning,
		       is_ai_generated, manual_override, created_at, updated_at
		FROM draft_assignments
		WHERE draft_id = $1 AND deleted_at IS NULL
		ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, draftID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabase, "查询草稿分配失败")
	}
	defer rows.Close()

	return scanAssignments(rows)
}

// ListExistingAssignments 查询日期范围内已发布排班的分配（公平性与工时计算输入）
func (r *Repository) ListExistingAssignments(ctx context.Context, businessID uuid.UUID, dateRange model.DateRange) ([]*model.DraftAssignment, error) {
	query := `
		SELECT a.id, a.draft_id, a.shift_id, a.staff_id, a.confidence, a.reasoning,
		       a.is_ai_generated, a.manual_override, a.created_at, a.updated_at
		FROM draft_assignments a
		JOIN schedule_drafts d ON d.id = a.draft_id
		JOIN shifts s ON s.id = a.shift_id
		WHERE d.business_id = $1
		  AND d.status = $2
		  AND s.date >= $3 AND s.date <= $4
		  AND a.deleted_at IS NULL
		ORDER BY a.created_at`

	rows, err := r.db.QueryContext(ctx, query, businessID, model.DraftPublished, dateRange.StartDate, dateRange.EndDate)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabase, "查询既有分配失败")
	}
	defer rows.Close()

	return scanAssignments(rows)
}

func scanAssignments(rows *sql.Rows) ([]*model.DraftAssignment, error) {
	var result []*model.DraftAssignment
	for rows.Next() {
		var (
			a         model.DraftAssignment
			reasoning sql.NullString
		)
		if err := rows.Scan(
			&a.ID, &a.DraftID, &a.ShiftID, &a.StaffID, &a.Confidence, &reasoning,
			&a.IsAIGenerated, &a.ManualOverride, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeDatabase, "解析分配记录失败")
		}
		a.Reasoning = reasoning.String
		result = append(result, &a)
	}
	return result, rows.Err()
}
