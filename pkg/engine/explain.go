package engine

import (
	"context"

	"github.com/google/uuid"
	apperrors "github.com/zhipai/zhipai/pkg/errors"
	"github.com/zhipai/zhipai/pkg/model"
	"github.com/zhipai/zhipai/pkg/reasoning"
)

// ExplainAssignment 生成单条分配的解释
func (e *Engine) ExplainAssignment(ctx context.Context, draftID, assignmentID uuid.UUID, aiEnabled bool) (*reasoning.AssignmentReasoning, error) {
	draft, err := e.repo.GetDraft(ctx, draftID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabase, "查询草稿失败")
	}
	if draft == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "排班草稿不存在")
	}

	assignments, err := e.repo.ListDraftAssignments(ctx, draftID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabase, "查询草稿分配失败")
	}

	var target *model.DraftAssignment
	for _, a := range assignments {
		if a.ID == assignmentID {
			target = a
			break
		}
	}
	if target == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "分配记录不存在")
	}

	sctx, err := e.buildContext(ctx, GenerateParams{
		BusinessID: draft.BusinessID,
		DateRange:  draft.DateRange,
	})
	if err != nil {
		return nil, err
	}

	shift := sctx.GetShift(target.ShiftID)
	staff := sctx.GetStaff(target.StaffID)
	if shift == nil || staff == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "分配引用的班次或员工不存在")
	}

	return e.reasoner.GenerateAssignmentReasoning(ctx, shift, staff, target, sctx, aiEnabled), nil
}
