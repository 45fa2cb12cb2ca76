package solver

import (
	"testing"

	"github.com/google/uuid"
	"github.com/zhipai/zhipai/pkg/model"
)

func testConstraint(spec model.ConstraintSpec, priority model.Priority) *model.Constraint {
	return &model.Constraint{
		BaseModel: model.NewBaseModel(),
		Spec:      spec,
		Priority:  priority,
		IsActive:  true,
	}
}

func testAssignment(shift *model.Shift, staff *model.Staff, confidence float64) *model.DraftAssignment {
	return &model.DraftAssignment{
		BaseModel:  model.NewBaseModel(),
		ShiftID:    shift.ID,
		StaffID:    staff.ID,
		Confidence: confidence,
	}
}

func TestValidateAssignments_周工时超限(t *testing.T) {
	staff := testStaff("小李", "server")

	// 周一到周五各 8 小时，共 40 小时，超出约束的 30 小时
	dates := []string{"2026-03-02", "2026-03-03", "2026-03-04", "2026-03-05", "2026-03-06"}
	var shifts []*model.Shift
	var assignments []*model.DraftAssignment
	for _, d := range dates {
		sh := testShift(d, 9, 17, "server", 1)
		shifts = append(shifts, sh)
		assignments = append(assignments, testAssignment(sh, staff, 0.9))
	}

	sctx := testContext([]*model.Staff{staff}, shifts)
	sctx.Constraints = []*model.Constraint{
		testConstraint(model.MaxHoursPerWeekSpec{Hours: 30}, model.PriorityHigh),
	}

	result := New().ValidateAssignments(assignments, sctx)

	if len(result.Violations) != 1 {
		t.Fatalf("期望 1 条违反，实际 %d 条", len(result.Violations))
	}
	v := result.Violations[0]
	if v.ConstraintType != model.ConstraintMaxHoursPerWeek {
		t.Errorf("违反类型错误: %s", v.ConstraintType)
	}
	if v.Severity != model.SeverityError {
		t.Errorf("高优先级约束的违反应为 error 级别，实际 %s", v.Severity)
	}
}

func TestValidateAssignments_幂等性(t *testing.T) {
	staffA := testStaff("小李", "server")
	staffB := testStaff("小张", "server")

	var shifts []*model.Shift
	var assignments []*model.DraftAssignment
	for _, d := range []string{"2026-03-02", "2026-03-03", "2026-03-04", "2026-03-05", "2026-03-06", "2026-03-07"} {
		sh := testShift(d, 9, 17, "server", 1)
		shifts = append(shifts, sh)
		assignments = append(assignments, testAssignment(sh, staffA, 0.9))
	}

	sctx := testContext([]*model.Staff{staffA, staffB}, shifts)
	sctx.Constraints = []*model.Constraint{
		testConstraint(model.MaxHoursPerWeekSpec{Hours: 40}, model.PriorityHigh),
		testConstraint(model.FairDistributionSpec{}, model.PriorityMedium),
	}

	first := New().ValidateAssignments(assignments, sctx)
	second := New().ValidateAssignments(assignments, sctx)

	if len(first.Violations) != len(second.Violations) {
		t.Fatalf("两次验证违反数不一致: %d vs %d", len(first.Violations), len(second.Violations))
	}
	if len(first.Warnings) != len(second.Warnings) {
		t.Fatalf("两次验证警告数不一致: %d vs %d", len(first.Warnings), len(second.Warnings))
	}
	for i := range first.Violations {
		if first.Violations[i].Message != second.Violations[i].Message {
			t.Errorf("第 %d 条违反内容不一致", i)
		}
	}
}

func TestValidateAssignments_数据完整性(t *testing.T) {
	staff := testStaff("小李", "server")
	shift := testShift("2026-03-02", 9, 17, "server", 1)
	sctx := testContext([]*model.Staff{staff}, []*model.Shift{shift})

	// 引用不存在的班次
	assignments := []*model.DraftAssignment{{
		BaseModel:  model.NewBaseModel(),
		ShiftID:    uuid.New(),
		StaffID:    staff.ID,
		Confidence: 0.9,
	}}

	result := New().ValidateAssignments(assignments, sctx)

	if len(result.Violations) != 1 {
		t.Fatalf("期望 1 条数据完整性违反，实际 %d 条", len(result.Violations))
	}
	if result.Violations[0].ConstraintType != ConstraintDataIntegrity {
		t.Errorf("违反类型应为 %s，实际 %s", ConstraintDataIntegrity, result.Violations[0].ConstraintType)
	}
}

func TestValidateAssignments_低置信度警告(t *testing.T) {
	staff := testStaff("小李", "server")
	shift := testShift("2026-03-02", 9, 17, "server", 1)
	sctx := testContext([]*model.Staff{staff}, []*model.Shift{shift})

	assignments := []*model.DraftAssignment{testAssignment(shift, staff, 0.3)}

	result := New().ValidateAssignments(assignments, sctx)

	if len(result.Warnings) != 1 {
		t.Fatalf("期望 1 条低置信度警告，实际 %d 条", len(result.Warnings))
	}
	if len(result.Violations) != 0 {
		t.Errorf("不应产生违反，实际 %d 条", len(result.Violations))
	}
}

func TestValidateAssignments_班次人数不足(t *testing.T) {
	staff := testStaff("小李", "server")
	shift := testShift("2026-03-02", 9, 17, "server", 2)
	sctx := testContext([]*model.Staff{staff}, []*model.Shift{shift})
	sctx.Constraints = []*model.Constraint{
		testConstraint(model.MinStaffPerShiftSpec{Count: 1}, model.PriorityHigh),
	}

	// 需要 2 人只分配 1 人（班次要求高于约束参数时取班次要求）
	assignments := []*model.DraftAssignment{testAssignment(shift, staff, 0.9)}

	result := New().ValidateAssignments(assignments, sctx)

	if len(result.Violations) != 1 {
		t.Fatalf("期望 1 条人数不足违反，实际 %d 条", len(result.Violations))
	}
	if result.Violations[0].ConstraintType != model.ConstraintMinStaffPerShift {
		t.Errorf("违反类型错误: %s", result.Violations[0].ConstraintType)
	}
}

func TestValidateAssignments_连续工作天数(t *testing.T) {
	staff := testStaff("小李", "server")

	var shifts []*model.Shift
	var assignments []*model.DraftAssignment
	for _, d := range []string{"2026-03-02", "2026-03-03", "2026-03-04", "2026-03-05"} {
		sh := testShift(d, 9, 13, "server", 1)
		shifts = append(shifts, sh)
		assignments = append(assignments, testAssignment(sh, staff, 0.9))
	}

	sctx := testContext([]*model.Staff{staff}, shifts)
	sctx.Constraints = []*model.Constraint{
		testConstraint(model.MaxConsecutiveDaysSpec{Days: 3}, model.PriorityMedium),
	}

	result := New().ValidateAssignments(assignments, sctx)

	// 中优先级约束的违反归入警告
	if len(result.Warnings) != 1 {
		t.Fatalf("期望 1 条连续工作警告，实际 %d 条", len(result.Warnings))
	}
	if result.Warnings[0].ConstraintType != model.ConstraintMaxConsecutiveDays {
		t.Errorf("违反类型错误: %s", result.Warnings[0].ConstraintType)
	}
}
