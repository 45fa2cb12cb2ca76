package stats

import (
	"testing"
	"time"

	"github.com/zhipai/zhipai/pkg/model"
)

func testShift(date string, skill string, count int) *model.Shift {
	day, _ := time.Parse("2006-01-02", date)
	return &model.Shift{
		BaseModel:     model.NewBaseModel(),
		Date:          date,
		StartTime:     time.Date(day.Year(), day.Month(), day.Day(), 9, 0, 0, 0, time.UTC),
		EndTime:       time.Date(day.Year(), day.Month(), day.Day(), 17, 0, 0, 0, time.UTC),
		RequiredSkill: skill,
		RequiredCount: count,
		Status:        model.ShiftScheduled,
	}
}

func testStaff(name string) *model.Staff {
	return &model.Staff{BaseModel: model.NewBaseModel(), Name: name, IsActive: true}
}

func assign(shift *model.Shift, staff *model.Staff) *model.DraftAssignment {
	return &model.DraftAssignment{
		BaseModel: model.NewBaseModel(),
		ShiftID:   shift.ID,
		StaffID:   staff.ID,
	}
}

func TestAnalyzeCoverage(t *testing.T) {
	chef := testShift("2026-03-02", "chef", 1)
	server := testShift("2026-03-02", "server", 2)
	unfilled := testShift("2026-03-03", "chef", 1)

	staffA := testStaff("老王")
	staffB := testStaff("小李")

	assignments := []*model.DraftAssignment{
		assign(chef, staffA),
		assign(server, staffA),
		assign(server, staffB),
	}

	metrics := AnalyzeCoverage([]*model.Shift{chef, server, unfilled}, assignments)

	if metrics.TotalShifts != 3 {
		t.Errorf("总班次数 = %d，期望 3", metrics.TotalShifts)
	}
	if metrics.AssignedShifts != 2 {
		t.Errorf("已分配班次数 = %d，期望 2", metrics.AssignedShifts)
	}
	// 所需 4 人次，已分配 3 人次
	if metrics.OverallCoverage != 0.75 {
		t.Errorf("整体覆盖率 = %.2f，期望 0.75", metrics.OverallCoverage)
	}
	if metrics.SkillCoverage["chef"] != 0.5 {
		t.Errorf("chef 覆盖率 = %.2f，期望 0.5", metrics.SkillCoverage["chef"])
	}
	if metrics.SkillCoverage["server"] != 1.0 {
		t.Errorf("server 覆盖率 = %.2f，期望 1.0", metrics.SkillCoverage["server"])
	}
	if len(metrics.UncoveredShifts) != 1 || metrics.UncoveredShifts[0].ShiftID != unfilled.ID {
		t.Errorf("未覆盖班次识别错误: %+v", metrics.UncoveredShifts)
	}
}

func TestAnalyzeCoverage_空输入(t *testing.T) {
	metrics := AnalyzeCoverage(nil, nil)
	if metrics.OverallCoverage != 0 || metrics.TotalShifts != 0 {
		t.Errorf("空输入应返回零值指标: %+v", metrics)
	}
}

func TestAnalyzeFairness_离群员工(t *testing.T) {
	staffA := testStaff("老王")
	staffB := testStaff("小李")
	staffC := testStaff("小张")

	var shifts []*model.Shift
	var assignments []*model.DraftAssignment

	// 老王 4 个班次，小李 1 个，小张 1 个：平均 2，老王 4 > 1.5×2
	for i, date := range []string{"2026-03-02", "2026-03-03", "2026-03-04", "2026-03-05", "2026-03-06", "2026-03-07"} {
		sh := testShift(date, "server", 1)
		shifts = append(shifts, sh)
		switch {
		case i < 4:
			assignments = append(assignments, assign(sh, staffA))
		case i == 4:
			assignments = append(assignments, assign(sh, staffB))
		default:
			assignments = append(assignments, assign(sh, staffC))
		}
	}

	metrics := AnalyzeFairness([]*model.Staff{staffA, staffB, staffC}, shifts, assignments)

	if len(metrics.Outliers) != 1 || metrics.Outliers[0] != staffA.ID {
		t.Errorf("离群员工识别错误: %v", metrics.Outliers)
	}
	if metrics.AvgCount != 2 {
		t.Errorf("平均分配数 = %.1f，期望 2", metrics.AvgCount)
	}
	if metrics.WorkloadGini <= 0 {
		t.Error("不均衡分配的基尼系数应大于 0")
	}
	if metrics.StaffLoads[0].StaffID != staffA.ID {
		t.Error("负载列表应按分配数降序排列")
	}
}

func TestAnalyzeFairness_完全均衡(t *testing.T) {
	staffA := testStaff("老王")
	staffB := testStaff("小李")

	shiftA := testShift("2026-03-02", "server", 1)
	shiftB := testShift("2026-03-03", "server", 1)

	metrics := AnalyzeFairness(
		[]*model.Staff{staffA, staffB},
		[]*model.Shift{shiftA, shiftB},
		[]*model.DraftAssignment{assign(shiftA, staffA), assign(shiftB, staffB)},
	)

	if len(metrics.Outliers) != 0 {
		t.Errorf("均衡分配不应有离群员工: %v", metrics.Outliers)
	}
	if metrics.WorkloadGini > 0.001 {
		t.Errorf("均衡分配的基尼系数应接近 0，实际 %.4f", metrics.WorkloadGini)
	}
}
