package engine

import (
	"context"

	"github.com/google/uuid"
	apperrors "github.com/zhipai/zhipai/pkg/errors"
	"github.com/zhipai/zhipai/pkg/model"
	"github.com/zhipai/zhipai/pkg/solver"
)

// 优化目标
const (
	GoalFairness = "fairness"
	GoalCost     = "cost"
	GoalCoverage = "coverage"
)

// 优化目标对应的重点评分维度
var goalDimensions = map[string][]string{
	GoalFairness: {solver.DimFairDistribution},
	GoalCost:     {solver.DimLaborCost},
	GoalCoverage: {solver.DimSkillMatch, solver.DimAvailability},
}

// OptimizeExistingSchedule 对已有草稿做目标导向的再优化
// 重新评分（人工改派的分配不动）、解决约束冲突、重算整体置信度后持久化
func (e *Engine) OptimizeExistingSchedule(ctx context.Context, draftID uuid.UUID, goals []string) (*Result, error) {
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

	e.rescore(assignments, sctx, goals)

	bulk := e.solver.ValidateAssignments(assignments, sctx)
	if len(bulk.Violations) > 0 || len(bulk.Warnings) > 0 {
		all := append(append([]model.Violation{}, bulk.Violations...), bulk.Warnings...)
		resolution := e.solver.ResolveConstraintConflicts(all, sctx)
		assignments = e.solver.ApplyConflictResolution(assignments, resolution, all, sctx)
	}

	overall := meanConfidence(assignments)

	if err := e.repo.SaveAssignments(ctx, assignments); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabase, "保存优化后分配失败")
	}
	if err := e.repo.UpdateDraftConfidence(ctx, draftID, overall, draft.Status); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabase, "更新草稿置信度失败")
	}

	result := &Result{
		DraftID:           draftID,
		Assignments:       assignments,
		OverallConfidence: overall,
		Tier:              TierRuleBased,
	}
	e.buildSummary(ctx, result, sctx)
	return result, nil
}

// rescore 按优化目标重新计算置信度
// 置信度 = (综合得分 + 目标维度均分) / 2；无目标时直接用综合得分
func (e *Engine) rescore(assignments []*model.DraftAssignment, sctx *solver.Context, goals []string) {
	var dims []string
	for _, goal := range goals {
		dims = append(dims, goalDimensions[goal]...)
	}

	for _, a := range assignments {
		if a.ManualOverride {
			continue
		}
		shift := sctx.GetShift(a.ShiftID)
		staff := sctx.GetStaff(a.StaffID)
		if shift == nil || staff == nil {
			continue
		}

		result := solver.ValidateAssignment(shift, staff, assignments, sctx)
		confidence := result.Score

		if len(dims) > 0 {
			var sum float64
			for _, dim := range dims {
				sum += result.Breakdown[dim]
			}
			confidence = (confidence + sum/float64(len(dims))) / 2
		}

		a.Confidence = confidence
	}
}
