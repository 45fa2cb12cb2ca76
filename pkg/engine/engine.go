// Package engine 实现分层降级的排班生成引擎
// 生成梯队：AI 辅助 → 规则求解 → 最小兜底，任一层失败都降级到下一层
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/zhipai/zhipai/pkg/aiprovider"
	apperrors "github.com/zhipai/zhipai/pkg/errors"
	"github.com/zhipai/zhipai/pkg/logger"
	"github.com/zhipai/zhipai/pkg/model"
	"github.com/zhipai/zhipai/pkg/reasoning"
	"github.com/zhipai/zhipai/pkg/recovery"
	"github.com/zhipai/zhipai/pkg/solver"
	"github.com/zhipai/zhipai/pkg/stats"
)

// 生成梯队标识
const (
	TierAIAssisted = "ai_assisted"
	TierRuleBased  = "rule_based"
	TierMinimal    = "minimal"
)

const (
	ruleBasedConfidence = 0.6
	minimalConfidence   = 0.3
	defaultAITimeout    = 20 * time.Second
)

// GenerateParams 一次生成运行的输入
type GenerateParams struct {
	BusinessID uuid.UUID       `json:"business_id"`
	DateRange  model.DateRange `json:"date_range"`
	CreatedBy  *uuid.UUID      `json:"created_by,omitempty"`
	AIEnabled  bool            `json:"ai_enabled"`
}

// Summary 生成结果摘要
type Summary struct {
	ShiftCount      int                `json:"shift_count"`
	AssignmentCount int                `json:"assignment_count"`
	SkillCoverage   map[string]float64 `json:"skill_coverage"`
	OverallCoverage float64            `json:"overall_coverage"`
	OutlierStaff    []uuid.UUID        `json:"outlier_staff,omitempty"`
}

// Result 生成运行的完整结果
type Result struct {
	DraftID           uuid.UUID                `json:"draft_id"`
	Assignments       []*model.DraftAssignment `json:"assignments"`
	OverallConfidence float64                  `json:"overall_confidence"`
	Tier              string                   `json:"tier"`
	Summary           *Summary                 `json:"summary"`
	Warnings          []string                 `json:"warnings,omitempty"`
	Recommendations   []string                 `json:"recommendations,omitempty"`
}

// Engine 排班生成引擎
type Engine struct {
	repo      Repository
	provider  aiprovider.Provider
	solver    *solver.Solver
	reasoner  *reasoning.Engine
	handler   *recovery.Handler
	logger    *logger.EngineLogger
	aiTimeout time.Duration
	fallback  bool
}

// New 创建排班生成引擎
func New(repo Repository, handler *recovery.Handler) *Engine {
	if handler == nil {
		handler = recovery.NewHandler()
	}
	e := &Engine{
		repo:      repo,
		solver:    solver.New(),
		reasoner:  reasoning.New(),
		handler:   handler,
		logger:    logger.NewEngineLogger(),
		aiTimeout: defaultAITimeout,
		fallback:  true,
	}

	// AI 层失败时梯队本身就是降级手段
	handler.RegisterStrategy("rule_based_fallback", func(ctx context.Context, r *recovery.ErrorRecord) bool {
		return true
	})

	return e
}

// SetProvider 注入 AI 推荐服务（可选）
// 服务同时实现解释增强接口时，解释生成也走同一服务
func (e *Engine) SetProvider(provider aiprovider.Provider) {
	e.provider = provider
	if enricher, ok := provider.(reasoning.Enricher); ok {
		e.reasoner.SetEnricher(enricher)
	}
}

// SetAITimeout 设置 AI 调用超时
func (e *Engine) SetAITimeout(d time.Duration) {
	if d > 0 {
		e.aiTimeout = d
	}
}

// SetEnableFallback 设置上报错误时是否尝试恢复策略（默认开启）
func (e *Engine) SetEnableFallback(enabled bool) {
	e.fallback = enabled
}

// SetWorkers 设置候选人评分并行度
func (e *Engine) SetWorkers(n int) {
	e.solver.SetWorkers(n)
}

// GenerateSchedule 执行一次完整的生成运行
// 除了业务内确无可用员工或无待排班次的情况，总会返回一个可用结果
func (e *Engine) GenerateSchedule(ctx context.Context, params GenerateParams, strategy string) (*Result, error) {
	start := time.Now()

	draft := &model.ScheduleDraft{
		BaseModel:  model.NewBaseModel(),
		BusinessID: params.BusinessID,
		DateRange:  params.DateRange,
		Status:     model.DraftPending,
		CreatedBy:  params.CreatedBy,
	}
	if err := e.repo.CreateDraft(ctx, draft); err != nil {
		return nil, e.fail(ctx, draft.ID, apperrors.Wrap(err, apperrors.CodeDatabase, "创建排班草稿失败"))
	}

	sctx, err := e.buildContext(ctx, params)
	if err != nil {
		return nil, e.fail(ctx, draft.ID, err)
	}

	e.logger.StartRun(draft.ID.String(), len(sctx.Shifts), len(sctx.Staff))

	assignments, tier := e.runLadder(ctx, draft.ID, sctx, strategy, params.AIEnabled)
	if len(assignments) == 0 && len(sctx.Shifts) > 0 {
		// 三层全部落空：按首个班次技能报告缺口
		first := sctx.Shifts[0]
		return nil, e.fail(ctx, draft.ID,
			apperrors.InsufficientStaff(first.RequiredSkill, 0, first.RequiredCount))
	}

	overall := meanConfidence(assignments)

	if err := e.repo.SaveAssignments(ctx, assignments); err != nil {
		return nil, e.fail(ctx, draft.ID, apperrors.Wrap(err, apperrors.CodeDatabase, "保存排班分配失败"))
	}
	if err := e.repo.UpdateDraftConfidence(ctx, draft.ID, overall, model.DraftCompleted); err != nil {
		return nil, e.fail(ctx, draft.ID, apperrors.Wrap(err, apperrors.CodeDatabase, "更新草稿状态失败"))
	}

	result := &Result{
		DraftID:           draft.ID,
		Assignments:       assignments,
		OverallConfidence: overall,
		Tier:              tier,
	}
	e.buildSummary(ctx, result, sctx)

	e.logger.RunComplete(draft.ID.String(), tier, len(assignments), overall, time.Since(start))
	return result, nil
}

// buildContext 构建一次运行的不可变上下文快照
func (e *Engine) buildContext(ctx context.Context, params GenerateParams) (*solver.Context, error) {
	shifts, err := e.repo.ListShifts(ctx, params.BusinessID, params.DateRange,
		[]model.ShiftStatus{model.ShiftScheduled, model.ShiftUnderstaffed})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabase, "查询班次失败")
	}
	if len(shifts) == 0 {
		return nil, apperrors.NoShifts(params.DateRange.StartDate, params.DateRange.EndDate)
	}

	staff, err := e.repo.ListActiveStaff(ctx, params.BusinessID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabase, "查询员工失败")
	}
	if len(staff) == 0 {
		required := 0
		for _, sh := range shifts {
			required += sh.RequiredCount
		}
		return nil, apperrors.InsufficientStaff(shifts[0].RequiredSkill, 0, required)
	}

	constraints, err := e.repo.ListConstraints(ctx, params.BusinessID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabase, "查询约束失败")
	}

	staffIDs := make([]uuid.UUID, len(staff))
	for i, st := range staff {
		staffIDs[i] = st.ID
	}
	preferences, err := e.repo.ListPreferences(ctx, staffIDs, params.DateRange.StartDate)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabase, "查询偏好失败")
	}

	existing, err := e.repo.ListExistingAssignments(ctx, params.BusinessID, params.DateRange)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabase, "查询既有分配失败")
	}

	sctx := solver.NewContext(params.BusinessID, params.DateRange)
	sctx.SetStaff(staff)
	sctx.SetShifts(shifts)
	sctx.Constraints = constraints
	sctx.SetPreferences(preferences)
	sctx.SetExisting(existing)
	sctx.SnapshotFairBaseline()
	return sctx, nil
}

// runLadder 依次尝试三个生成层级
func (e *Engine) runLadder(ctx context.Context, draftID uuid.UUID, sctx *solver.Context, strategy string, aiEnabled bool) ([]*model.DraftAssignment, string) {
	baseline, solverErr := e.solver.Solve(ctx, sctx, draftID)

	if solverErr == nil && len(baseline) > 0 {
		if aiEnabled && e.provider != nil {
			if blended, ok := e.tryAIBlend(ctx, draftID, sctx, baseline, strategy); ok {
				return blended, TierAIAssisted
			}
			// AI 失败：丢弃 AI 输入，基线降为固定置信度
			for _, a := range baseline {
				a.Confidence = ruleBasedConfidence
				a.Reasoning = "规则排班（AI 降级）"
				a.IsAIGenerated = false
			}
			return baseline, TierRuleBased
		}
		return baseline, TierRuleBased
	}

	if solverErr != nil {
		e.handler.HandleError(ctx, apperrors.ScheduleGeneration(solverErr, "constraint_solver"), map[string]interface{}{
			"draft_id": draftID.String(),
		}, e.fallback)
		e.logger.TierFallback(draftID.String(), TierRuleBased, TierMinimal, solverErr.Error())
	}

	return e.minimalAssignment(sctx, draftID), TierMinimal
}

// tryAIBlend 调用外部推荐服务并把结果融合进基线分配
func (e *Engine) tryAIBlend(ctx context.Context, draftID uuid.UUID, sctx *solver.Context, baseline []*model.DraftAssignment, strategy string) ([]*model.DraftAssignment, bool) {
	aiCtx, cancel := context.WithTimeout(ctx, e.aiTimeout)
	defer cancel()

	recommendations, err := e.provider.GetRecommendations(aiCtx, sctx.Shifts, sctx.Staff, e.historicalSummary(sctx), strategy)
	if err != nil {
		e.handler.HandleError(ctx, err, map[string]interface{}{
			"draft_id": draftID.String(),
			"strategy": strategy,
		}, e.fallback)
		e.logger.TierFallback(draftID.String(), TierAIAssisted, TierRuleBased, err.Error())
		return nil, false
	}

	for _, a := range baseline {
		rec, ok := recommendations[a.ShiftID]
		if !ok {
			continue
		}
		a.Confidence = (a.Confidence + rec.Confidence) / 2
		if rec.Reasoning != "" {
			a.Reasoning += "；AI: " + rec.Reasoning
		}
		a.IsAIGenerated = true
	}
	return baseline, true
}

// historicalSummary 构建发送给推荐服务的历史摘要
func (e *Engine) historicalSummary(sctx *solver.Context) *aiprovider.HistoricalSummary {
	summary := &aiprovider.HistoricalSummary{
		TotalAssignments: len(sctx.Existing),
		CountByStaff:     make(map[string]int),
	}
	for _, a := range sctx.Existing {
		summary.CountByStaff[a.StaffID.String()]++
	}
	return summary
}

// minimalAssignment 最小兜底：仅按技能匹配做首次适配分配
// 每个班次一人，已分配员工退出候选池，避免兜底层内部重复占用
func (e *Engine) minimalAssignment(sctx *solver.Context, draftID uuid.UUID) []*model.DraftAssignment {
	var assignments []*model.DraftAssignment
	used := make(map[uuid.UUID]bool)

	for _, shift := range sctx.Shifts {
		if !shift.Assignable() {
			continue
		}
		for _, st := range sctx.Staff {
			if used[st.ID] || !st.IsActive || !st.HasSkill(shift.RequiredSkill) {
				continue
			}
			assignments = append(assignments, &model.DraftAssignment{
				BaseModel:  model.NewBaseModel(),
				DraftID:    draftID,
				ShiftID:    shift.ID,
				StaffID:    st.ID,
				Confidence: minimalConfidence,
				Reasoning:  "最小兜底排班：仅校验技能匹配",
			})
			used[st.ID] = true
			break
		}
	}
	return assignments
}

// buildSummary 填充结果摘要、警告与改进建议
// 结果中仍残留硬性约束违反时，作为运行级错误上报错误处理器
func (e *Engine) buildSummary(ctx context.Context, result *Result, sctx *solver.Context) {
	coverage := stats.AnalyzeCoverage(sctx.Shifts, result.Assignments)
	fairness := stats.AnalyzeFairness(sctx.Staff, sctx.Shifts, result.Assignments)

	result.Summary = &Summary{
		ShiftCount:      coverage.TotalShifts,
		AssignmentCount: len(result.Assignments),
		SkillCoverage:   coverage.SkillCoverage,
		OverallCoverage: coverage.OverallCoverage,
		OutlierStaff:    fairness.Outliers,
	}

	bulk := e.solver.ValidateAssignments(result.Assignments, sctx)
	for _, v := range bulk.Violations {
		result.Warnings = append(result.Warnings, v.Message)
	}
	for _, w := range bulk.Warnings {
		result.Warnings = append(result.Warnings, w.Message)
	}

	if len(bulk.Violations) > 0 {
		e.handler.HandleError(ctx, apperrors.ConstraintViolation(bulk.Violations[0].Message), map[string]interface{}{
			"draft_id":        result.DraftID.String(),
			"violation_count": len(bulk.Violations),
		}, e.fallback)
	}

	result.Recommendations = e.recommendations(result, coverage, fairness)
}

// recommendations 生成静态改进建议
func (e *Engine) recommendations(result *Result, coverage *stats.CoverageMetrics, fairness *stats.FairnessMetrics) []string {
	var recs []string

	if result.Tier == TierMinimal {
		recs = append(recs, "本次结果由最小兜底层生成，建议检查约束配置后重新生成")
	}
	if coverage.OverallCoverage < 1.0 {
		recs = append(recs, "存在未完全覆盖的班次，考虑补充相应技能的员工")
	}
	if len(fairness.Outliers) > 0 {
		recs = append(recs, "部分员工分配明显偏多，建议复核并向其他员工分摊")
	}
	if result.OverallConfidence < 0.6 {
		recs = append(recs, "整体置信度偏低，建议人工复核后再发布")
	}
	if len(recs) == 0 {
		recs = append(recs, "排班结果整体良好，可直接进入审核流程")
	}
	return recs
}

// fail 标记草稿失败并把错误交给错误处理器生成响应
func (e *Engine) fail(ctx context.Context, draftID uuid.UUID, err error) error {
	if updateErr := e.repo.UpdateDraftConfidence(ctx, draftID, 0, model.DraftFailed); updateErr != nil {
		logger.WithError(updateErr).Str("draft_id", draftID.String()).Msg("标记草稿失败时出错")
	}

	if e.handler != nil {
		e.handler.HandleError(ctx, err, map[string]interface{}{
			"draft_id": draftID.String(),
		}, e.fallback)
	}
	return err
}

func meanConfidence(assignments []*model.DraftAssignment) float64 {
	if len(assignments) == 0 {
		return 0
	}
	var sum float64
	for _, a := range assignments {
		sum += a.Confidence
	}
	return sum / float64(len(assignments))
}
