package solver

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/zhipai/zhipai/pkg/model"
)

// 低置信度警告阈值
const lowConfidenceThreshold = 0.5

// ConstraintDataIntegrity 数据完整性伪约束类型（批量校验专用）
const ConstraintDataIntegrity model.ConstraintType = "data_integrity"

// BulkResult 批量验证结果
type BulkResult struct {
	Violations []model.Violation `json:"violations"`
	Warnings   []model.Violation `json:"warnings"`
}

// ValidateAssignments 对完整分配集做批量验证
// 先做逐条校验（数据完整性、低置信度），再按每种业务约束类型做整体校验。
// 输入不变时重复调用产生完全相同的结果
func (s *Solver) ValidateAssignments(assignments []*model.DraftAssignment, sctx *Context) *BulkResult {
	result := &BulkResult{}

	// 逐条校验
	for _, a := range assignments {
		shift := sctx.GetShift(a.ShiftID)
		staff := sctx.GetStaff(a.StaffID)

		if shift == nil || staff == nil {
			result.Violations = append(result.Violations, model.Violation{
				ConstraintType:      ConstraintDataIntegrity,
				Severity:            model.SeverityError,
				Message:             fmt.Sprintf("分配 %s 引用了不存在的班次或员工", a.ID),
				StaffIDs:            []uuid.UUID{a.StaffID},
				ShiftIDs:            []uuid.UUID{a.ShiftID},
				SuggestedResolution: "删除该分配或修复引用的数据",
			})
			continue
		}

		if a.Confidence < lowConfidenceThreshold {
			vr := ValidateAssignment(shift, staff, assignments, sctx)
			if len(vr.Violations) == 0 {
				result.Warnings = append(result.Warnings, model.Violation{
					ConstraintType:      ConstraintDataIntegrity,
					Severity:            model.SeverityWarning,
					Message:             fmt.Sprintf("分配 %s 置信度偏低 (%.2f) 但未发现具体违反", a.ID, a.Confidence),
					StaffIDs:            []uuid.UUID{a.StaffID},
					ShiftIDs:            []uuid.UUID{a.ShiftID},
					SuggestedResolution: "人工复核该分配",
				})
			}
		}
	}

	// 按业务约束类型做整体校验
	for _, con := range sctx.Constraints {
		if !con.IsActive {
			continue
		}

		var violations []model.Violation
		switch spec := con.Spec.(type) {
		case model.MaxHoursPerWeekSpec:
			violations = validateMaxHoursPerWeek(assignments, sctx, con, spec)
		case model.MinRestBetweenShiftsSpec:
			violations = validateMinRest(assignments, sctx, con, spec)
		case model.MaxConsecutiveDaysSpec:
			violations = validateMaxConsecutiveDays(assignments, sctx, con, spec)
		case model.SkillMatchRequiredSpec:
			violations = validateSkillMatch(assignments, sctx, con)
		case model.FairDistributionSpec:
			violations = validateFairDistribution(assignments, sctx, con)
		case model.MinStaffPerShiftSpec:
			violations = validateMinStaffPerShift(assignments, sctx, con, spec)
		case model.MaxOvertimeHoursSpec:
			violations = validateMaxOvertime(assignments, sctx, con, spec)
		case model.WeekendRotationSpec:
			violations = validateWeekendRotation(assignments, sctx, con, spec)
		}

		for _, v := range violations {
			if v.Severity == model.SeverityError {
				s.logger.ConstraintViolation(string(v.ConstraintType), v.Message)
				result.Violations = append(result.Violations, v)
			} else {
				result.Warnings = append(result.Warnings, v)
			}
		}
	}

	return result
}

// staffOrder 返回排序后的员工ID列表，保证遍历顺序确定
func staffOrder(byStaff map[uuid.UUID][]*model.Shift) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(byStaff))
	for id := range byStaff {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// shiftsByStaff 把分配解析为每个员工的班次列表（按开始时间排序）
func shiftsByStaff(assignments []*model.DraftAssignment, sctx *Context) map[uuid.UUID][]*model.Shift {
	byStaff := make(map[uuid.UUID][]*model.Shift)
	for _, a := range assignments {
		shift := sctx.GetShift(a.ShiftID)
		if shift == nil {
			continue
		}
		byStaff[a.StaffID] = append(byStaff[a.StaffID], shift)
	}
	for _, shifts := range byStaff {
		sort.Slice(shifts, func(i, j int) bool { return shifts[i].StartTime.Before(shifts[j].StartTime) })
	}
	return byStaff
}

func staffName(sctx *Context, id uuid.UUID) string {
	if st := sctx.GetStaff(id); st != nil {
		return st.Name
	}
	return id.String()
}

// validateMaxHoursPerWeek 按员工+周汇总工时
func validateMaxHoursPerWeek(assignments []*model.DraftAssignment, sctx *Context, con *model.Constraint, spec model.MaxHoursPerWeekSpec) []model.Violation {
	var violations []model.Violation
	byStaff := shiftsByStaff(assignments, sctx)

	for _, staffID := range staffOrder(byStaff) {
		hoursByWeek := make(map[string]float64)
		for _, shift := range byStaff[staffID] {
			hoursByWeek[model.WeekStart(shift.Date)] += shift.Hours()
		}

		weeks := make([]string, 0, len(hoursByWeek))
		for w := range hoursByWeek {
			weeks = append(weeks, w)
		}
		sort.Strings(weeks)

		for _, week := range weeks {
			hours := hoursByWeek[week]
			if hours > spec.Hours {
				violations = append(violations, model.Violation{
					ConstraintID:   con.ID,
					ConstraintType: con.Type(),
					Severity:       con.ViolationSeverity(),
					Message: fmt.Sprintf("员工 %s 在周 %s 的工时 %.1f 小时超过上限 %.1f 小时",
						staffName(sctx, staffID), week, hours, spec.Hours),
					StaffIDs:            []uuid.UUID{staffID},
					SuggestedResolution: fmt.Sprintf("将该员工本周的部分班次改派给其他员工，至少减少 %.1f 小时", hours-spec.Hours),
				})
			}
		}
	}
	return violations
}

// validateMinRest 检查每个员工相邻班次的休息间隔
func validateMinRest(assignments []*model.DraftAssignment, sctx *Context, con *model.Constraint, spec model.MinRestBetweenShiftsSpec) []model.Violation {
	var violations []model.Violation
	byStaff := shiftsByStaff(assignments, sctx)

	for _, staffID := range staffOrder(byStaff) {
		shifts := byStaff[staffID]
		for i := 0; i < len(shifts)-1; i++ {
			gap := shifts[i+1].StartTime.Sub(shifts[i].EndTime).Hours()
			if gap < spec.Hours {
				violations = append(violations, model.Violation{
					ConstraintID:   con.ID,
					ConstraintType: con.Type(),
					Severity:       con.ViolationSeverity(),
					Message: fmt.Sprintf("员工 %s 班次间休息仅 %.1f 小时，少于要求的 %.1f 小时",
						staffName(sctx, staffID), gap, spec.Hours),
					StaffIDs:            []uuid.UUID{staffID},
					ShiftIDs:            []uuid.UUID{shifts[i].ID, shifts[i+1].ID},
					SuggestedResolution: "调整其中一个班次的时间，或改派给其他员工",
				})
			}
		}
	}
	return violations
}

// validateMaxConsecutiveDays 检查连续工作天数
func validateMaxConsecutiveDays(assignments []*model.DraftAssignment, sctx *Context, con *model.Constraint, spec model.MaxConsecutiveDaysSpec) []model.Violation {
	var violations []model.Violation
	byStaff := shiftsByStaff(assignments, sctx)

	for _, staffID := range staffOrder(byStaff) {
		dateSet := make(map[string]bool)
		for _, shift := range byStaff[staffID] {
			dateSet[shift.Date] = true
		}
		dates := make([]string, 0, len(dateSet))
		for d := range dateSet {
			dates = append(dates, d)
		}
		sort.Strings(dates)

		streak := 1
		maxStreak := 1
		for i := 1; i < len(dates); i++ {
			if isNextDay(dates[i-1], dates[i]) {
				streak++
				if streak > maxStreak {
					maxStreak = streak
				}
			} else {
				streak = 1
			}
		}

		if maxStreak > spec.Days {
			violations = append(violations, model.Violation{
				ConstraintID:   con.ID,
				ConstraintType: con.Type(),
				Severity:       con.ViolationSeverity(),
				Message: fmt.Sprintf("员工 %s 连续工作 %d 天，超过上限 %d 天",
					staffName(sctx, staffID), maxStreak, spec.Days),
				StaffIDs:            []uuid.UUID{staffID},
				SuggestedResolution: "在连续工作日中插入休息日",
			})
		}
	}
	return violations
}

// validateSkillMatch 检查每条分配的技能匹配
func validateSkillMatch(assignments []*model.DraftAssignment, sctx *Context, con *model.Constraint) []model.Violation {
	var violations []model.Violation
	for _, a := range assignments {
		shift := sctx.GetShift(a.ShiftID)
		staff := sctx.GetStaff(a.StaffID)
		if shift == nil || staff == nil {
			continue
		}
		if !staff.HasSkill(shift.RequiredSkill) {
			violations = append(violations, model.Violation{
				ConstraintID:   con.ID,
				ConstraintType: con.Type(),
				Severity:       con.ViolationSeverity(),
				Message: fmt.Sprintf("员工 %s 缺少班次要求的技能: %s",
					staff.Name, shift.RequiredSkill),
				StaffIDs:            []uuid.UUID{a.StaffID},
				ShiftIDs:            []uuid.UUID{a.ShiftID},
				SuggestedResolution: fmt.Sprintf("改派具备 '%s' 技能的员工", shift.RequiredSkill),
			})
		}
	}
	return violations
}

// validateFairDistribution 检查分配数量的均衡性
func validateFairDistribution(assignments []*model.DraftAssignment, sctx *Context, con *model.Constraint) []model.Violation {
	var violations []model.Violation
	if len(sctx.Staff) == 0 {
		return nil
	}

	counts := make(map[uuid.UUID]int)
	for _, a := range assignments {
		counts[a.StaffID]++
	}

	avg := float64(len(assignments)) / float64(len(sctx.Staff))

	for _, st := range sctx.Staff {
		count := counts[st.ID]
		if float64(count) > avg+1 {
			violations = append(violations, model.Violation{
				ConstraintID:   con.ID,
				ConstraintType: con.Type(),
				Severity:       con.ViolationSeverity(),
				Message: fmt.Sprintf("员工 %s 获得 %d 个班次，明显高于平均 %.1f 个",
					st.Name, count, avg),
				StaffIDs:            []uuid.UUID{st.ID},
				SuggestedResolution: "将部分班次转移给分配较少的员工",
			})
		}
	}
	return violations
}

// validateMinStaffPerShift 检查每个班次的分配人数
func validateMinStaffPerShift(assignments []*model.DraftAssignment, sctx *Context, con *model.Constraint, spec model.MinStaffPerShiftSpec) []model.Violation {
	var violations []model.Violation

	counts := make(map[uuid.UUID]int)
	for _, a := range assignments {
		counts[a.ShiftID]++
	}

	for _, shift := range sctx.Shifts {
		if !shift.Assignable() {
			continue
		}
		required := spec.Count
		if shift.RequiredCount > required {
			required = shift.RequiredCount
		}
		assigned := counts[shift.ID]
		if assigned < required {
			violations = append(violations, model.Violation{
				ConstraintID:   con.ID,
				ConstraintType: con.Type(),
				Severity:       con.ViolationSeverity(),
				Message: fmt.Sprintf("班次 %s（%s）仅分配 %d 人，少于要求的 %d 人",
					shift.Date, shift.RequiredSkill, assigned, required),
				ShiftIDs:            []uuid.UUID{shift.ID},
				SuggestedResolution: fmt.Sprintf("为该班次补充 %d 名具备 '%s' 技能的员工", required-assigned, shift.RequiredSkill),
			})
		}
	}
	return violations
}

// validateMaxOvertime 检查每周加班时长（超出40小时标准工时的部分）
func validateMaxOvertime(assignments []*model.DraftAssignment, sctx *Context, con *model.Constraint, spec model.MaxOvertimeHoursSpec) []model.Violation {
	var violations []model.Violation
	byStaff := shiftsByStaff(assignments, sctx)

	for _, staffID := range staffOrder(byStaff) {
		hoursByWeek := make(map[string]float64)
		for _, shift := range byStaff[staffID] {
			hoursByWeek[model.WeekStart(shift.Date)] += shift.Hours()
		}

		weeks := make([]string, 0, len(hoursByWeek))
		for w := range hoursByWeek {
			weeks = append(weeks, w)
		}
		sort.Strings(weeks)

		for _, week := range weeks {
			overtime := hoursByWeek[week] - defaultMaxWeeklyHours
			if overtime > spec.Hours {
				violations = append(violations, model.Violation{
					ConstraintID:   con.ID,
					ConstraintType: con.Type(),
					Severity:       con.ViolationSeverity(),
					Message: fmt.Sprintf("员工 %s 在周 %s 加班 %.1f 小时，超过上限 %.1f 小时",
						staffName(sctx, staffID), week, overtime, spec.Hours),
					StaffIDs:            []uuid.UUID{staffID},
					SuggestedResolution: "减少该员工的班次数量或时长",
				})
			}
		}
	}
	return violations
}

// validateWeekendRotation 检查连续周末工作是否超出轮换周期
func validateWeekendRotation(assignments []*model.DraftAssignment, sctx *Context, con *model.Constraint, spec model.WeekendRotationSpec) []model.Violation {
	var violations []model.Violation
	byStaff := shiftsByStaff(assignments, sctx)

	for _, staffID := range staffOrder(byStaff) {
		weekendWeeks := make(map[string]bool)
		for _, shift := range byStaff[staffID] {
			if model.IsWeekend(shift.Date) {
				weekendWeeks[model.WeekStart(shift.Date)] = true
			}
		}
		if len(weekendWeeks) == 0 {
			continue
		}

		weeks := make([]string, 0, len(weekendWeeks))
		for w := range weekendWeeks {
			weeks = append(weeks, w)
		}
		sort.Strings(weeks)

		streak := 1
		maxStreak := 1
		for i := 1; i < len(weeks); i++ {
			if isNextWeek(weeks[i-1], weeks[i]) {
				streak++
				if streak > maxStreak {
					maxStreak = streak
				}
			} else {
				streak = 1
			}
		}

		if maxStreak > spec.Weeks {
			violations = append(violations, model.Violation{
				ConstraintID:   con.ID,
				ConstraintType: con.Type(),
				Severity:       con.ViolationSeverity(),
				Message: fmt.Sprintf("员工 %s 连续 %d 个周末排班，超过轮换周期 %d 周",
					staffName(sctx, staffID), maxStreak, spec.Weeks),
				StaffIDs:            []uuid.UUID{staffID},
				SuggestedResolution: "下一个周末安排其他员工轮换",
			})
		}
	}
	return violations
}

// isNextDay 检查 date2 是否为 date1 的次日
func isNextDay(date1, date2 string) bool {
	t1, err1 := parseDate(date1)
	t2, err2 := parseDate(date2)
	if err1 != nil || err2 != nil {
		return false
	}
	return t2.Sub(t1).Hours() == 24
}

func parseDate(date string) (time.Time, error) {
	return time.Parse("2006-01-02", date)
}

// isNextWeek 检查 week2 是否为 week1 的下一周
func isNextWeek(week1, week2 string) bool {
	t1, err1 := parseDate(week1)
	t2, err2 := parseDate(week2)
	if err1 != nil || err2 != nil {
		return false
	}
	return t2.Sub(t1).Hours() == 24*7
}
