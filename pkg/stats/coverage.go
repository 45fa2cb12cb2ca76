// Package stats 提供排班结果的统计分析
package stats

import (
	"github.com/google/uuid"
	"github.com/zhipai/zhipai/pkg/model"
)

// CoverageMetrics 覆盖率指标
type CoverageMetrics struct {
	TotalShifts     int                `json:"total_shifts"`
	AssignedShifts  int                `json:"assigned_shifts"`
	OverallCoverage float64            `json:"overall_coverage"` // 0-1
	SkillCoverage   map[string]float64 `json:"skill_coverage"`   // 按技能的覆盖率
	DailyCoverage   map[string]float64 `json:"daily_coverage"`   // 按日期的覆盖率
	UncoveredShifts []UncoveredShift   `json:"uncovered_shifts,omitempty"`
}

// UncoveredShift 未覆盖或人数不足的班次
type UncoveredShift struct {
	ShiftID       uuid.UUID `json:"shift_id"`
	Date          string    `json:"date"`
	RequiredSkill string    `json:"required_skill"`
	Required      int       `json:"required"`
	Assigned      int       `json:"assigned"`
}

// AnalyzeCoverage 计算分配集对班次需求的覆盖情况
// 覆盖率 = 已分配人次 / 所需人次，按整体、技能与日期三个维度给出
func AnalyzeCoverage(shifts []*model.Shift, assignments []*model.DraftAssignment) *CoverageMetrics {
	metrics := &CoverageMetrics{
		SkillCoverage: make(map[string]float64),
		DailyCoverage: make(map[string]float64),
	}

	counts := make(map[uuid.UUID]int)
	for _, a := range assignments {
		counts[a.ShiftID]++
	}

	type tally struct{ required, assigned int }
	bySkill := make(map[string]*tally)
	byDate := make(map[string]*tally)
	var totalRequired, totalAssigned int

	for _, shift := range shifts {
		if !shift.Assignable() {
			continue
		}
		metrics.TotalShifts++

		required := shift.RequiredCount
		if required < 1 {
			required = 1
		}
		assigned := counts[shift.ID]
		if assigned > required {
			assigned = required
		}

		totalRequired += required
		totalAssigned += assigned
		if assigned > 0 {
			metrics.AssignedShifts++
		}

		if bySkill[shift.RequiredSkill] == nil {
			bySkill[shift.RequiredSkill] = &tally{}
		}
		bySkill[shift.RequiredSkill].required += required
		bySkill[shift.RequiredSkill].assigned += assigned

		if byDate[shift.Date] == nil {
			byDate[shift.Date] = &tally{}
		}
		byDate[shift.Date].required += required
		byDate[shift.Date].assigned += assigned

		if assigned < required {
			metrics.UncoveredShifts = append(metrics.UncoveredShifts, UncoveredShift{
				ShiftID:       shift.ID,
				Date:          shift.Date,
				RequiredSkill: shift.RequiredSkill,
				Required:      required,
				Assigned:      assigned,
			})
		}
	}

	if totalRequired > 0 {
		metrics.OverallCoverage = float64(totalAssigned) / float64(totalRequired)
	}
	for skill, t := range bySkill {
		if t.required > 0 {
			metrics.SkillCoverage[skill] = float64(t.assigned) / float64(t.required)
		}
	}
	for date, t := range byDate {
		if t.required > 0 {
			metrics.DailyCoverage[date] = float64(t.assigned) / float64(t.required)
		}
	}

	return metrics
}
