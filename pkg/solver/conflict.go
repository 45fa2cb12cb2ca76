package solver

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/zhipai/zhipai/pkg/model"
)

// Strategy 冲突解决策略
type Strategy string

const (
	StrategyNoConflicts     Strategy = "no_conflicts"
	StrategyEnforceCritical Strategy = "enforce_critical"
	StrategyEnforceHigh     Strategy = "enforce_high_priority"
	StrategyBalanceMedium   Strategy = "balance_medium_priority"
	StrategyOptimize        Strategy = "optimize_overall"
)

// RecommendationType 改进建议类型
type RecommendationType string

const (
	RecommendReduceHours        RecommendationType = "reduce_hours"
	RecommendAdjustTiming       RecommendationType = "adjust_timing"
	RecommendReassignStaff      RecommendationType = "reassign_staff"
	RecommendDistributeWorkload RecommendationType = "distribute_workload"
)

// Recommendation 冲突改进建议
type Recommendation struct {
	Type        RecommendationType `json:"type"`
	Priority    model.Priority     `json:"priority"`
	Description string             `json:"description"`
	Actions     []string           `json:"actions"`
}

// ViolationSummary 按优先级汇总的违反统计
type ViolationSummary struct {
	Total      int                    `json:"total"`
	ByPriority map[model.Priority]int `json:"by_priority"`
}

// ConflictResolution 冲突解决方案
type ConflictResolution struct {
	Strategy        Strategy         `json:"resolution_strategy"`
	Recommendations []Recommendation `json:"recommendations"`
	Summary         ViolationSummary `json:"violation_summary"`
}

// ResolveConstraintConflicts 根据违反的优先级分布选择解决策略并生成建议
func (s *Solver) ResolveConstraintConflicts(violations []model.Violation, sctx *Context) *ConflictResolution {
	resolution := &ConflictResolution{
		Summary: ViolationSummary{
			Total:      len(violations),
			ByPriority: make(map[model.Priority]int),
		},
	}

	if len(violations) == 0 {
		resolution.Strategy = StrategyNoConflicts
		resolution.Recommendations = []Recommendation{}
		return resolution
	}

	for _, v := range violations {
		resolution.Summary.ByPriority[violationPriority(v, sctx)]++
	}

	critical := resolution.Summary.ByPriority[model.PriorityCritical]
	high := resolution.Summary.ByPriority[model.PriorityHigh]
	medium := resolution.Summary.ByPriority[model.PriorityMedium]
	low := resolution.Summary.ByPriority[model.PriorityLow]

	switch {
	case critical > 0:
		resolution.Strategy = StrategyEnforceCritical
	case high > 2:
		resolution.Strategy = StrategyEnforceHigh
	case medium > 2*low:
		resolution.Strategy = StrategyBalanceMedium
	default:
		resolution.Strategy = StrategyOptimize
	}

	resolution.Recommendations = buildRecommendations(violations, sctx)
	return resolution
}

// violationPriority 查找违反对应约束的优先级
// 找不到原始约束时按严重程度推断
func violationPriority(v model.Violation, sctx *Context) model.Priority {
	if v.ConstraintID != uuid.Nil {
		for _, con := range sctx.Constraints {
			if con.ID == v.ConstraintID {
				return con.Priority
			}
		}
	}
	if v.Severity == model.SeverityError {
		return model.PriorityHigh
	}
	return model.PriorityMedium
}

// buildRecommendations 按违反类型分组生成建议，按优先级排序
func buildRecommendations(violations []model.Violation, sctx *Context) []Recommendation {
	grouped := make(map[RecommendationType][]model.Violation)
	priorities := make(map[RecommendationType]model.Priority)

	for _, v := range violations {
		typ := recommendationTypeFor(v.ConstraintType)
		grouped[typ] = append(grouped[typ], v)

		p := violationPriority(v, sctx)
		if p.Rank() > priorities[typ].Rank() {
			priorities[typ] = p
		}
	}

	descriptions := map[RecommendationType]string{
		RecommendReduceHours:        "部分员工工时或加班超限，需要削减排班量",
		RecommendAdjustTiming:       "存在休息不足或连续排班问题，需要调整班次时间安排",
		RecommendReassignStaff:      "存在技能不匹配或人数不足的班次，需要改派员工",
		RecommendDistributeWorkload: "班次分配不均衡，需要在员工间重新分摊",
	}

	var recs []Recommendation
	for typ, vs := range grouped {
		rec := Recommendation{
			Type:        typ,
			Priority:    priorities[typ],
			Description: descriptions[typ],
		}
		for i, v := range vs {
			if i >= 5 {
				rec.Actions = append(rec.Actions, fmt.Sprintf("…以及另外 %d 项类似问题", len(vs)-5))
				break
			}
			action := v.Message
			if v.SuggestedResolution != "" {
				action += "（建议: " + v.SuggestedResolution + "）"
			}
			rec.Actions = append(rec.Actions, action)
		}
		recs = append(recs, rec)
	}

	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Priority.Rank() != recs[j].Priority.Rank() {
			return recs[i].Priority.Rank() > recs[j].Priority.Rank()
		}
		return recs[i].Type < recs[j].Type
	})
	return recs
}

// recommendationTypeFor 违反类型到建议类型的映射
func recommendationTypeFor(typ model.ConstraintType) RecommendationType {
	switch typ {
	case model.ConstraintMaxHoursPerWeek, model.ConstraintMaxOvertimeHours:
		return RecommendReduceHours
	case model.ConstraintMinRestBetween, model.ConstraintMaxConsecutiveDays, model.ConstraintWeekendRotation:
		return RecommendAdjustTiming
	case model.ConstraintFairDistribution:
		return RecommendDistributeWorkload
	default:
		return RecommendReassignStaff
	}
}

// ApplyConflictResolution 按策略调整分配集
func (s *Solver) ApplyConflictResolution(assignments []*model.DraftAssignment, resolution *ConflictResolution, violations []model.Violation, sctx *Context) []*model.DraftAssignment {
	switch resolution.Strategy {
	case StrategyEnforceCritical:
		return dropFlaggedStaff(assignments, violations, sctx, model.PriorityCritical)
	case StrategyEnforceHigh:
		return dropFlaggedStaff(assignments, violations, sctx, model.PriorityHigh)
	case StrategyBalanceMedium:
		return s.balanceMediumPriority(assignments, violations, sctx)
	case StrategyOptimize:
		return s.optimizeOverall(assignments, sctx)
	default:
		return assignments
	}
}

// dropFlaggedStaff 移除被指定优先级及以上违反点名的员工的分配
func dropFlaggedStaff(assignments []*model.DraftAssignment, violations []model.Violation, sctx *Context, minPriority model.Priority) []*model.DraftAssignment {
	flagged := make(map[uuid.UUID]bool)
	for _, v := range violations {
		if violationPriority(v, sctx).Rank() < minPriority.Rank() {
			continue
		}
		for _, id := range v.StaffIDs {
			flagged[id] = true
		}
	}

	var kept []*model.DraftAssignment
	for _, a := range assignments {
		if !flagged[a.StaffID] {
			kept = append(kept, a)
		}
	}
	return kept
}

// balanceMediumPriority 对超载员工削减置信度最低的约1/4分配，
// 并对时间类违反尝试单个分配的换人
func (s *Solver) balanceMediumPriority(assignments []*model.DraftAssignment, violations []model.Violation, sctx *Context) []*model.DraftAssignment {
	overloaded := make(map[uuid.UUID]bool)
	var timing []model.Violation
	for _, v := range violations {
		switch recommendationTypeFor(v.ConstraintType) {
		case RecommendReduceHours, RecommendDistributeWorkload:
			for _, id := range v.StaffIDs {
				overloaded[id] = true
			}
		case RecommendAdjustTiming:
			timing = append(timing, v)
		}
	}

	dropped := make(map[uuid.UUID]bool) // 分配ID
	for staffID := range overloaded {
		var own []*model.DraftAssignment
		for _, a := range assignments {
			if a.StaffID == staffID {
				own = append(own, a)
			}
		}
		sort.SliceStable(own, func(i, j int) bool { return own[i].Confidence < own[j].Confidence })

		cut := len(own) / 4
		if cut == 0 && len(own) > 1 {
			cut = 1
		}
		for i := 0; i < cut; i++ {
			dropped[own[i].ID] = true
		}
	}

	var result []*model.DraftAssignment
	for _, a := range assignments {
		if !dropped[a.ID] {
			result = append(result, a)
		}
	}

	// 时间类违反：尝试把涉事班次换给其他候选人
	for _, v := range timing {
		if len(v.ShiftIDs) == 0 {
			continue
		}
		result = s.trySwap(result, v.ShiftIDs[len(v.ShiftIDs)-1], sctx)
	}

	return result
}

// trySwap 尝试把某个班次的分配换给评分更稳的其他员工
func (s *Solver) trySwap(assignments []*model.DraftAssignment, shiftID uuid.UUID, sctx *Context) []*model.DraftAssignment {
	shift := sctx.GetShift(shiftID)
	if shift == nil {
		return assignments
	}

	idx := -1
	for i, a := range assignments {
		if a.ShiftID == shiftID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return assignments
	}

	current := assignments[idx]
	others := make([]*model.DraftAssignment, 0, len(assignments)-1)
	others = append(others, assignments[:idx]...)
	others = append(others, assignments[idx+1:]...)

	var best *candidate
	for _, st := range sctx.Staff {
		if !st.IsActive || st.ID == current.StaffID {
			continue
		}
		r := ValidateAssignment(shift, st, others, sctx)
		if !r.IsValid || r.Breakdown[DimSkillMatch] <= 0 {
			continue
		}
		if best == nil || r.Score > best.result.Score {
			best = &candidate{staff: st, result: r}
		}
	}

	if best == nil || best.result.Score <= current.Confidence {
		return assignments
	}

	swapped := *current
	swapped.StaffID = best.staff.ID
	swapped.Confidence = best.result.Score
	swapped.Reasoning = buildReasoning(best.staff, best.result) + "（由冲突解决换人）"
	assignments[idx] = &swapped
	return assignments
}

// optimizeOverall 尝试三种局部启发式，保留满意度最高的方案
// 满意度 = 平均置信度 − 0.1×违反数 + 偏好满足加成
func (s *Solver) optimizeOverall(assignments []*model.DraftAssignment, sctx *Context) []*model.DraftAssignment {
	candidates := [][]*model.DraftAssignment{
		assignments,
		s.preferenceWeighted(cloneAssignments(assignments), sctx),
		s.constraintPriorityOrdered(cloneAssignments(assignments), sctx),
		s.workloadBalancing(cloneAssignments(assignments), sctx),
	}

	best := assignments
	bestScore := s.satisfactionScore(assignments, sctx)
	for _, c := range candidates[1:] {
		if score := s.satisfactionScore(c, sctx); score > bestScore {
			best = c
			bestScore = score
		}
	}
	return best
}

// preferenceWeighted 启发式一：对可用性评分差的分配尝试换人
func (s *Solver) preferenceWeighted(assignments []*model.DraftAssignment, sctx *Context) []*model.DraftAssignment {
	for _, a := range assignments {
		shift := sctx.GetShift(a.ShiftID)
		staff := sctx.GetStaff(a.StaffID)
		if shift == nil || staff == nil {
			continue
		}
		r := ValidateAssignment(shift, staff, assignments, sctx)
		if r.Breakdown[DimAvailability] < 0.5 {
			assignments = s.trySwap(assignments, a.ShiftID, sctx)
		}
	}
	return assignments
}

// constraintPriorityOrdered 启发式二：按约束优先级从高到低清理违反分配
func (s *Solver) constraintPriorityOrdered(assignments []*model.DraftAssignment, sctx *Context) []*model.DraftAssignment {
	bulk := s.ValidateAssignments(assignments, sctx)

	byPriority := make(map[model.Priority][]model.Violation)
	for _, v := range bulk.Violations {
		p := violationPriority(v, sctx)
		byPriority[p] = append(byPriority[p], v)
	}

	for _, p := range []model.Priority{model.PriorityCritical, model.PriorityHigh} {
		for _, v := range byPriority[p] {
			for _, shiftID := range v.ShiftIDs {
				assignments = s.trySwap(assignments, shiftID, sctx)
			}
		}
	}
	return assignments
}

// workloadBalancing 启发式三：把最忙员工的低置信度分配移给最闲的合格员工
func (s *Solver) workloadBalancing(assignments []*model.DraftAssignment, sctx *Context) []*model.DraftAssignment {
	counts := make(map[uuid.UUID]int)
	for _, a := range assignments {
		counts[a.StaffID]++
	}
	if len(counts) < 2 {
		return assignments
	}

	var busiest uuid.UUID
	maxCount := -1
	for _, st := range sctx.Staff {
		if counts[st.ID] > maxCount {
			busiest = st.ID
			maxCount = counts[st.ID]
		}
	}

	var own []*model.DraftAssignment
	for _, a := range assignments {
		if a.StaffID == busiest {
			own = append(own, a)
		}
	}
	sort.SliceStable(own, func(i, j int) bool { return own[i].Confidence < own[j].Confidence })

	for _, a := range own {
		if counts[a.StaffID] <= maxCount-2 {
			break
		}
		before := assignmentStaff(assignments, a.ID)
		assignments = s.trySwap(assignments, a.ShiftID, sctx)
		if after := assignmentStaff(assignments, a.ID); after != before {
			counts[before]--
			counts[after]++
		}
	}
	return assignments
}

// satisfactionScore 方案满意度评分
func (s *Solver) satisfactionScore(assignments []*model.DraftAssignment, sctx *Context) float64 {
	if len(assignments) == 0 {
		return 0
	}

	var confidenceSum float64
	satisfied := 0
	for _, a := range assignments {
		confidenceSum += a.Confidence

		shift := sctx.GetShift(a.ShiftID)
		staff := sctx.GetStaff(a.StaffID)
		if shift == nil || staff == nil {
			continue
		}
		r := ValidateAssignment(shift, staff, assignments, sctx)
		if r.Breakdown[DimAvailability] >= 0.8 {
			satisfied++
		}
	}

	bulk := s.ValidateAssignments(assignments, sctx)
	violationCount := len(bulk.Violations)

	mean := confidenceSum / float64(len(assignments))
	prefBonus := 0.1 * float64(satisfied) / float64(len(assignments))
	return mean - 0.1*float64(violationCount) + prefBonus
}

func cloneAssignments(assignments []*model.DraftAssignment) []*model.DraftAssignment {
	cloned := make([]*model.DraftAssignment, len(assignments))
	copy(cloned, assignments)
	return cloned
}

func assignmentStaff(assignments []*model.DraftAssignment, id uuid.UUID) uuid.UUID {
	for _, a := range assignments {
		if a.ID == id {
			return a.StaffID
		}
	}
	return uuid.Nil
}
