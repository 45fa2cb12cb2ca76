package engine

import (
	"context"

	"github.com/google/uuid"
	apperrors "github.com/zhipai/zhipai/pkg/errors"
	"github.com/zhipai/zhipai/pkg/model"
	"github.com/zhipai/zhipai/pkg/solver"
)

// ValidationReport 草稿的完整验证报告
type ValidationReport struct {
	DraftID    uuid.UUID                  `json:"draft_id"`
	IsValid    bool                       `json:"is_valid"`
	Violations []model.Violation          `json:"violations"`
	Warnings   []model.Violation          `json:"warnings"`
	Resolution *solver.ConflictResolution `json:"resolution,omitempty"`
}

// ValidateDraft 对草稿下的全部分配做批量验证
// 只读操作：发现冲突时附带解决方案建议，但不修改分配
func (e *Engine) ValidateDraft(ctx context.Context, draftID uuid.UUID) (*ValidationReport, error) {
	draft, err := e.repo.GetDraft(ctx, draftID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabase, "查询草稿失败")
	}
	if draft == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "排班草稿不存在")
	}

	sctx, err := e.buildContext(ctx, GenerateParams{
		BusinessID: draft.BusinessID,
		DateRange:  draft.DateRange,
	})
	if err != nil {
		return nil, err
	}

	assignments, err := e.repo.ListDraftAssignments(ctx, draftID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabase, "查询草稿分配失败")
	}

	bulk := e.solver.ValidateAssignments(assignments, sctx)
	report := &ValidationReport{
		DraftID:    draftID,
		IsValid:    len(bulk.Violations) == 0,
		Violations: bulk.Violations,
		Warnings:   bulk.Warnings,
	}

	if len(bulk.Violations) > 0 || len(bulk.Warnings) > 0 {
		all := append(append([]model.Violation{}, bulk.Violations...), bulk.Warnings...)
		report.Resolution = e.solver.ResolveConstraintConflicts(all, sctx)
	}
	return report, nil
}
