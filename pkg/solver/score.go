package solver

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zhipai/zhipai/pkg/model"
)

// 六个评分维度的固定权重
const (
	weightSkillMatch       = 1.0
	weightAvailability     = 0.9
	weightFairDistribution = 0.85
	weightMaxHours         = 0.8
	weightMinRest          = 0.7
	weightLaborCost        = 0.5
)

const (
	defaultMaxWeeklyHours = 40.0
	defaultMinRestHours   = 8.0
	defaultHourlyRate     = 15.0
	targetHourlyRate      = 25.0
)

// 评分维度名称（Breakdown 的键）
const (
	DimSkillMatch       = "skill_match"
	DimAvailability     = "availability"
	DimFairDistribution = "fair_distribution"
	DimMaxHours         = "max_hours"
	DimMinRest          = "min_rest"
	DimLaborCost        = "labor_cost"
)

// dimensionScore 单个维度的评分结果
type dimensionScore struct {
	score     float64
	violation string // 为空表示无违反
}

// ValidateAssignment 对单个（班次, 员工）组合做六维加权评分
// is_valid 当且仅当没有产生任何违反说明
func ValidateAssignment(shift *model.Shift, staff *model.Staff, draft []*model.DraftAssignment, ctx *Context) model.ValidationResult {
	// 重评已有分配时草稿里可能包含这条组合本身，
	// 先剔除，否则候选班次的工时与分配数会被重复计入
	draft = withoutPair(draft, shift.ID, staff.ID)

	dims := map[string]dimensionScore{
		DimSkillMatch:       scoreSkillMatch(shift, staff),
		DimAvailability:     scoreAvailability(shift, staff, ctx),
		DimFairDistribution: scoreFairDistribution(shift, staff, draft, ctx),
		DimMaxHours:         scoreMaxHours(shift, staff, draft, ctx),
		DimMinRest:          scoreMinRest(shift, staff, draft, ctx),
		DimLaborCost:        scoreLaborCost(shift),
	}

	weights := map[string]float64{
		DimSkillMatch:       weightSkillMatch,
		DimAvailability:     weightAvailability,
		DimFairDistribution: weightFairDistribution,
		DimMaxHours:         weightMaxHours,
		DimMinRest:          weightMinRest,
		DimLaborCost:        weightLaborCost,
	}

	result := model.ValidationResult{
		Breakdown: make(map[string]float64, len(dims)),
	}

	var weightedSum, totalWeight float64
	for name, dim := range dims {
		result.Breakdown[name] = dim.score
		weightedSum += dim.score * weights[name]
		totalWeight += weights[name]
	}
	result.Score = weightedSum / totalWeight

	// 按固定顺序收集违反说明，保证结果可复现
	for _, name := range []string{DimSkillMatch, DimAvailability, DimFairDistribution, DimMaxHours, DimMinRest, DimLaborCost} {
		if v := dims[name].violation; v != "" {
			result.Violations = append(result.Violations, v)
		}
	}
	result.IsValid = len(result.Violations) == 0

	return result
}

// scoreSkillMatch 技能匹配：有技能 1.0，否则 0.0 并产生违反
func scoreSkillMatch(shift *model.Shift, staff *model.Staff) dimensionScore {
	if staff.HasSkill(shift.RequiredSkill) {
		return dimensionScore{score: 1.0}
	}
	return dimensionScore{
		score:     0.0,
		violation: fmt.Sprintf("员工 %s 缺少必需技能: %s", staff.Name, shift.RequiredSkill),
	}
}

// scoreAvailability 可用性评分瀑布：
// 1. 生效的 availability 偏好（按星期和时间窗口匹配）
// 2. time_off/day_off 偏好（按优先级扣分）
// 3. 员工的原始每周可用时间表
func scoreAvailability(shift *model.Shift, staff *model.Staff, ctx *Context) dimensionScore {
	weekday := shift.Weekday()

	// 第一层：availability 偏好
	availPrefs := ctx.StaffPreferences(staff.ID, model.PreferenceAvailability, shift.Date)
	if len(availPrefs) > 0 {
		var sameDay []*model.Preference
		for _, p := range availPrefs {
			if p.Params.DayOfWeek != nil && *p.Params.DayOfWeek == weekday {
				sameDay = append(sameDay, p)
			}
		}

		if len(sameDay) > 0 {
			best := dimensionScore{score: 0.3}
			matched := false
			for _, p := range sameDay {
				window, ok := windowOnDate(shift.Date, p.Params.StartTime, p.Params.EndTime)
				if !ok {
					continue
				}
				if window.Contains(shift.Range()) {
					// 完整包含：基础分加优先级加成，封顶 1.0
					score := 0.85 + 0.05*float64(p.Priority.Rank())
					if score > 1.0 {
						score = 1.0
					}
					if score > best.score {
						best = dimensionScore{score: score}
					}
					matched = true
				} else if window.Overlaps(shift.Range()) {
					if 0.5 > best.score {
						best = dimensionScore{score: 0.5}
					}
					matched = true
				}
			}
			if !matched {
				best.violation = fmt.Sprintf("班次时段与员工 %s 的可用偏好不符", staff.Name)
			}
			return best
		}

		// 有可用偏好但都不在这一天：可排但非偏好
		return dimensionScore{score: 0.7}
	}

	// 第二层：time_off / day_off 偏好
	if dim, hit := scoreTimeOffPreferences(shift, staff, ctx); hit {
		return dim
	}

	// 第三层：原始每周可用时间表
	return scoreRawAvailability(shift, staff)
}

// scoreTimeOffPreferences 按优先级对休假/固定休息日偏好扣分
func scoreTimeOffPreferences(shift *model.Shift, staff *model.Staff, ctx *Context) (dimensionScore, bool) {
	weekday := shift.Weekday()

	check := func(p *model.Preference) bool {
		switch p.Type {
		case model.PreferenceTimeOff:
			return p.Params.Date == shift.Date
		case model.PreferenceDayOff:
			return p.Params.DayOfWeek != nil && *p.Params.DayOfWeek == weekday
		}
		return false
	}

	prefs := append(
		ctx.StaffPreferences(staff.ID, model.PreferenceTimeOff, shift.Date),
		ctx.StaffPreferences(staff.ID, model.PreferenceDayOff, shift.Date)...,
	)

	for _, p := range prefs {
		if !check(p) {
			continue
		}
		switch p.Priority {
		case model.PriorityCritical, model.PriorityHigh:
			return dimensionScore{
				score:     0.05,
				violation: fmt.Sprintf("员工 %s 在 %s 申请了休息（优先级 %s）", staff.Name, shift.Date, p.Priority),
			}, true
		case model.PriorityMedium:
			return dimensionScore{score: 0.35}, true
		default:
			return dimensionScore{score: 0.65}, true
		}
	}

	return dimensionScore{}, false
}

// scoreRawAvailability 按员工的每周可用时间表评分
func scoreRawAvailability(shift *model.Shift, staff *model.Staff) dimensionScore {
	if staff.WeeklyAvailability == nil || len(staff.WeeklyAvailability) == 0 {
		// 无数据时给中性默认分
		return dimensionScore{score: 0.7}
	}

	windows := staff.WindowsOn(shift.Weekday())
	if len(windows) == 0 {
		return dimensionScore{score: 0.3}
	}

	best := 0.2
	for _, w := range windows {
		window, ok := windowOnDate(shift.Date, w.Start, w.End)
		if !ok {
			continue
		}
		if window.Contains(shift.Range()) {
			return dimensionScore{score: 1.0}
		}
		if window.Overlaps(shift.Range()) && best < 0.6 {
			best = 0.6
		}
	}
	return dimensionScore{score: best}
}

// scoreMaxHours 周工时评分
// 有效上限 = min(员工 max_hours 偏好, 业务 max_hours_per_week 约束, 默认40)
func scoreMaxHours(shift *model.Shift, staff *model.Staff, draft []*model.DraftAssignment, ctx *Context) dimensionScore {
	cap := effectiveWeeklyCap(shift, staff, ctx)

	weekStart := model.WeekStart(shift.Date)
	current := ctx.StaffWeekHours(staff.ID, weekStart, draft)
	total := current + shift.Hours()

	utilization := total / cap
	switch {
	case utilization <= 0.8:
		return dimensionScore{score: 1.0}
	case utilization <= 1.0:
		// 0.8 处 1.0 线性衰减到 1.0 处 0.5
		return dimensionScore{score: 1.0 - 2.5*(utilization-0.8)}
	default:
		return dimensionScore{
			score: 0.0,
			violation: fmt.Sprintf(
				"员工 %s 本周工时将达 %.1f 小时，超出上限 %.1f 小时 %.1f 小时",
				staff.Name, total, cap, total-cap,
			),
		}
	}
}

// effectiveWeeklyCap 计算员工的有效周工时上限
// 员工偏好比业务约束更严格时优先生效
func effectiveWeeklyCap(shift *model.Shift, staff *model.Staff, ctx *Context) float64 {
	cap := defaultMaxWeeklyHours

	if business, _ := ctx.MaxHoursConstraint(); business > 0 && business < cap {
		cap = business
	}

	for _, p := range ctx.StaffPreferences(staff.ID, model.PreferenceMaxHours, shift.Date) {
		if p.Params.Hours > 0 && p.Params.Hours < cap {
			cap = p.Params.Hours
		}
	}

	return cap
}

// scoreMinRest 班次间休息评分：候选班次 ±24 小时内的相邻班次间隔不足时扣分
func scoreMinRest(shift *model.Shift, staff *model.Staff, draft []*model.DraftAssignment, ctx *Context) dimensionScore {
	minRest := ctx.MinRestHours()
	nearby := ctx.StaffShiftsNear(staff.ID, shift.StartTime, 24*time.Hour, draft)

	for _, other := range nearby {
		if other.ID == shift.ID {
			continue
		}

		var gap float64
		if other.EndTime.Before(shift.StartTime) || other.EndTime.Equal(shift.StartTime) {
			gap = shift.StartTime.Sub(other.EndTime).Hours()
		} else if shift.EndTime.Before(other.StartTime) || shift.EndTime.Equal(other.StartTime) {
			gap = other.StartTime.Sub(shift.EndTime).Hours()
		} else {
			gap = 0 // 时间重叠
		}

		if gap < minRest {
			return dimensionScore{
				score: 0.3,
				violation: fmt.Sprintf(
					"员工 %s 相邻班次间休息仅 %.1f 小时，不足要求的 %.1f 小时",
					staff.Name, gap, minRest,
				),
			}
		}
	}

	return dimensionScore{score: 1.0}
}

// scoreFairDistribution 公平分配评分
// 与具备同技能员工的平均分配数比较，超出部分按 0.5 倍衰减
func scoreFairDistribution(shift *model.Shift, staff *model.Staff, draft []*model.DraftAssignment, ctx *Context) dimensionScore {
	qualified := 0
	for _, s := range ctx.Staff {
		if s.HasSkill(shift.RequiredSkill) {
			qualified++
		}
	}
	if qualified == 0 {
		return dimensionScore{score: 1.0}
	}

	runTotal := 0
	for _, a := range draft {
		sh := ctx.GetShift(a.ShiftID)
		if sh != nil && sh.RequiredSkill == shift.RequiredSkill {
			runTotal++
		}
	}

	avg := ctx.FairBaseline(shift.RequiredSkill) + float64(runTotal)/float64(qualified)
	count := float64(AssignmentCount(staff.ID, draft) + len(ctx.ExistingFor(staff.ID)))

	score := 1.0
	if count > avg {
		score = 1.0 - 0.5*(count-avg)
		if score < 0 {
			score = 0
		}
	}

	// 有未满足的 min_hours 偏好时提升优先度
	if hasUnmetMinHours(shift, staff, draft, ctx) {
		score += 0.2
		if score > 1.0 {
			score = 1.0
		}
	}

	return dimensionScore{score: score}
}

// hasUnmetMinHours 检查员工是否存在尚未满足的最小工时偏好
func hasUnmetMinHours(shift *model.Shift, staff *model.Staff, draft []*model.DraftAssignment, ctx *Context) bool {
	prefs := ctx.StaffPreferences(staff.ID, model.PreferenceMinHours, shift.Date)
	if len(prefs) == 0 {
		return false
	}

	weekStart := model.WeekStart(shift.Date)
	current := ctx.StaffWeekHours(staff.ID, weekStart, draft)

	for _, p := range prefs {
		if p.Params.Hours > 0 && current < p.Params.Hours {
			return true
		}
	}
	return false
}

// scoreLaborCost 用工成本评分：相对 $25/小时 基准衡量，下限 0.3
func scoreLaborCost(shift *model.Shift) dimensionScore {
	rate := shift.HourlyRate
	if rate <= 0 {
		rate = defaultHourlyRate
	}

	hours := shift.Hours()
	if hours <= 0 {
		return dimensionScore{score: 1.0}
	}

	cost := rate * hours
	score := 1.0 - cost/(hours*targetHourlyRate)
	if score < 0.3 {
		score = 0.3
	}
	return dimensionScore{score: score}
}

// withoutPair 剔除草稿中指定（班次, 员工）组合的分配
// (draft_id, shift_id, staff_id) 唯一，最多命中一条
func withoutPair(draft []*model.DraftAssignment, shiftID, staffID uuid.UUID) []*model.DraftAssignment {
	for i, a := range draft {
		if a.ShiftID == shiftID && a.StaffID == staffID {
			filtered := make([]*model.DraftAssignment, 0, len(draft)-1)
			filtered = append(filtered, draft[:i]...)
			filtered = append(filtered, draft[i+1:]...)
			return filtered
		}
	}
	return draft
}

// windowOnDate 把 HH:MM 时间窗口落到具体日期上
func windowOnDate(date, start, end string) (model.TimeRange, bool) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return model.TimeRange{}, false
	}

	startT, err1 := time.Parse("15:04", start)
	endT, err2 := time.Parse("15:04", end)
	if err1 != nil || err2 != nil {
		return model.TimeRange{}, false
	}

	s := time.Date(day.Year(), day.Month(), day.Day(), startT.Hour(), startT.Minute(), 0, 0, day.Location())
	e := time.Date(day.Year(), day.Month(), day.Day(), endT.Hour(), endT.Minute(), 0, 0, day.Location())
	if !e.After(s) {
		e = e.Add(24 * time.Hour) // 跨日窗口
	}

	return model.TimeRange{Start: s, End: e}, true
}
