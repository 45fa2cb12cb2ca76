// Package solver 提供带权约束评分与贪心排班求解
package solver

import (
	"time"

	"github.com/google/uuid"
	"github.com/zhipai/zhipai/pkg/model"
)

// Context 一次生成运行的不可变快照
// 包含业务约束、员工偏好、日期范围与既有分配，运行期间不再回读数据库
type Context struct {
	BusinessID  uuid.UUID                         `json:"business_id"`
	Range       model.DateRange                   `json:"date_range"`
	Staff       []*model.Staff                    `json:"staff"`
	Shifts      []*model.Shift                    `json:"shifts"`
	Constraints []*model.Constraint               `json:"constraints"`
	Preferences map[uuid.UUID][]*model.Preference `json:"preferences"`
	Existing    []*model.DraftAssignment          `json:"existing_assignments"`

	// 索引缓存
	staffMap      map[uuid.UUID]*model.Staff
	shiftMap      map[uuid.UUID]*model.Shift
	existingByStf map[uuid.UUID][]*model.DraftAssignment

	// 运行开始时快照的公平分配基线（按技能）
	// 避免循环中途重算造成并发运行下结果不一致
	fairBaseline map[string]float64
}

// NewContext 创建排班上下文
func NewContext(businessID uuid.UUID, dateRange model.DateRange) *Context {
	return &Context{
		BusinessID:    businessID,
		Range:         dateRange,
		Preferences:   make(map[uuid.UUID][]*model.Preference),
		staffMap:      make(map[uuid.UUID]*model.Staff),
		shiftMap:      make(map[uuid.UUID]*model.Shift),
		existingByStf: make(map[uuid.UUID][]*model.DraftAssignment),
		fairBaseline:  make(map[string]float64),
	}
}

// SetStaff 设置员工列表
func (c *Context) SetStaff(staff []*model.Staff) {
	c.Staff = staff
	c.staffMap = make(map[uuid.UUID]*model.Staff, len(staff))
	for _, s := range staff {
		c.staffMap[s.ID] = s
	}
}

// SetShifts 设置班次列表
func (c *Context) SetShifts(shifts []*model.Shift) {
	c.Shifts = shifts
	c.shiftMap = make(map[uuid.UUID]*model.Shift, len(shifts))
	for _, s := range shifts {
		c.shiftMap[s.ID] = s
	}
}

// SetExisting 设置既有分配（已发布或早前草稿）
func (c *Context) SetExisting(assignments []*model.DraftAssignment) {
	c.Existing = assignments
	c.existingByStf = make(map[uuid.UUID][]*model.DraftAssignment)
	for _, a := range assignments {
		c.existingByStf[a.StaffID] = append(c.existingByStf[a.StaffID], a)
	}
}

// SetPreferences 设置员工偏好
func (c *Context) SetPreferences(prefs []*model.Preference) {
	c.Preferences = make(map[uuid.UUID][]*model.Preference)
	for _, p := range prefs {
		c.Preferences[p.StaffID] = append(c.Preferences[p.StaffID], p)
	}
}

// SnapshotFairBaseline 在运行开始时快照公平分配基线
// 基线 = 每个技能下，既有分配数 / 具备该技能的员工数
func (c *Context) SnapshotFairBaseline() {
	c.fairBaseline = make(map[string]float64)

	countBySkill := make(map[string]int)
	for _, a := range c.Existing {
		shift := c.GetShift(a.ShiftID)
		if shift == nil {
			continue
		}
		countBySkill[shift.RequiredSkill]++
	}

	for skill, count := range countBySkill {
		qualified := 0
		for _, s := range c.Staff {
			if s.HasSkill(skill) {
				qualified++
			}
		}
		if qualified > 0 {
			c.fairBaseline[skill] = float64(count) / float64(qualified)
		}
	}
}

// FairBaseline 返回某技能的公平分配基线
func (c *Context) FairBaseline(skill string) float64 {
	return c.fairBaseline[skill]
}

// GetStaff 获取员工
func (c *Context) GetStaff(id uuid.UUID) *model.Staff {
	return c.staffMap[id]
}

// GetShift 获取班次
func (c *Context) GetShift(id uuid.UUID) *model.Shift {
	return c.shiftMap[id]
}

// StaffPreferences 获取员工的生效偏好
func (c *Context) StaffPreferences(staffID uuid.UUID, typ model.PreferenceType, date string) []*model.Preference {
	var result []*model.Preference
	for _, p := range c.Preferences[staffID] {
		if p.Type != typ {
			continue
		}
		if !p.EffectiveOn(date) {
			continue
		}
		result = append(result, p)
	}
	return result
}

// ExistingFor 获取员工的既有分配
func (c *Context) ExistingFor(staffID uuid.UUID) []*model.DraftAssignment {
	return c.existingByStf[staffID]
}

// StaffWeekHours 计算员工某周（按班次日期归属）的总工时
// 同时计入既有分配与本次运行已产生的草稿分配
func (c *Context) StaffWeekHours(staffID uuid.UUID, weekStart string, draft []*model.DraftAssignment) float64 {
	weekEnd := model.WeekEnd(weekStart)
	var hours float64

	sum := func(assignments []*model.DraftAssignment) {
		for _, a := range assignments {
			if a.StaffID != staffID {
				continue
			}
			shift := c.GetShift(a.ShiftID)
			if shift == nil {
				continue
			}
			if shift.Date >= weekStart && shift.Date <= weekEnd {
				hours += shift.Hours()
			}
		}
	}

	sum(c.existingByStf[staffID])
	sum(draft)
	return hours
}

// StaffShiftsNear 返回员工在指定时刻 ±window 范围内的班次
func (c *Context) StaffShiftsNear(staffID uuid.UUID, at time.Time, window time.Duration, draft []*model.DraftAssignment) []*model.Shift {
	var result []*model.Shift

	collect := func(assignments []*model.DraftAssignment) {
		for _, a := range assignments {
			if a.StaffID != staffID {
				continue
			}
			shift := c.GetShift(a.ShiftID)
			if shift == nil {
				continue
			}
			if shift.StartTime.After(at.Add(-window)) && shift.StartTime.Before(at.Add(window)) {
				result = append(result, shift)
			}
		}
	}

	collect(c.existingByStf[staffID])
	collect(draft)
	return result
}

// AssignmentCount 统计员工在本次运行中已获得的分配数
func AssignmentCount(staffID uuid.UUID, draft []*model.DraftAssignment) int {
	count := 0
	for _, a := range draft {
		if a.StaffID == staffID {
			count++
		}
	}
	return count
}

// findConstraint 查找首个生效的指定类型约束
func (c *Context) findConstraint(typ model.ConstraintType) *model.Constraint {
	for _, con := range c.Constraints {
		if !con.IsActive {
			continue
		}
		if con.Type() == typ {
			return con
		}
	}
	return nil
}

// MaxHoursConstraint 返回业务级每周最大工时（无约束时返回0）
func (c *Context) MaxHoursConstraint() (float64, *model.Constraint) {
	con := c.findConstraint(model.ConstraintMaxHoursPerWeek)
	if con == nil {
		return 0, nil
	}
	spec, ok := con.Spec.(model.MaxHoursPerWeekSpec)
	if !ok {
		return 0, nil
	}
	return spec.Hours, con
}

// MinRestHours 返回班次间最小休息时间（默认8小时）
func (c *Context) MinRestHours() float64 {
	con := c.findConstraint(model.ConstraintMinRestBetween)
	if con != nil {
		if spec, ok := con.Spec.(model.MinRestBetweenShiftsSpec); ok {
			return spec.Hours
		}
	}
	return defaultMinRestHours
}
