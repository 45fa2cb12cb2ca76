// Package model 定义排班引擎的核心数据模型
package model

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// ConstraintType 业务约束类型
type ConstraintType string

const (
	ConstraintMaxHoursPerWeek    ConstraintType = "max_hours_per_week"
	ConstraintMinRestBetween     ConstraintType = "min_rest_between_shifts"
	ConstraintMaxConsecutiveDays ConstraintType = "max_consecutive_days"
	ConstraintSkillMatchRequired ConstraintType = "skill_match_required"
	ConstraintFairDistribution   ConstraintType = "fair_distribution"
	ConstraintMinStaffPerShift   ConstraintType = "min_staff_per_shift"
	ConstraintMaxOvertimeHours   ConstraintType = "max_overtime_hours"
	ConstraintWeekendRotation    ConstraintType = "weekend_rotation"
)

// ConstraintSpec 类型化的约束参数
// 每种约束类型对应一个具体结构，替代自由格式的键值参数
type ConstraintSpec interface {
	Type() ConstraintType
	Validate() error
}

// MaxHoursPerWeekSpec 每周最大工时
type MaxHoursPerWeekSpec struct {
	Hours float64 `json:"hours"`
}

func (s MaxHoursPerWeekSpec) Type() ConstraintType { return ConstraintMaxHoursPerWeek }

func (s MaxHoursPerWeekSpec) Validate() error {
	if s.Hours <= 0 {
		return fmt.Errorf("每周最大工时必须为正数: %.1f", s.Hours)
	}
	return nil
}

// MinRestBetweenShiftsSpec 班次间最小休息时间
type MinRestBetweenShiftsSpec struct {
	Hours float64 `json:"hours"`
}

func (s MinRestBetweenShiftsSpec) Type() ConstraintType { return ConstraintMinRestBetween }

func (s MinRestBetweenShiftsSpec) Validate() error {
	if s.Hours <= 0 {
		return fmt.Errorf("最小休息时间必须为正数: %.1f", s.Hours)
	}
	return nil
}

// MaxConsecutiveDaysSpec 最大连续工作天数
type MaxConsecutiveDaysSpec struct {
	Days int `json:"days"`
}

func (s MaxConsecutiveDaysSpec) Type() ConstraintType { return ConstraintMaxConsecutiveDays }

func (s MaxConsecutiveDaysSpec) Validate() error {
	if s.Days <= 0 {
		return fmt.Errorf("最大连续天数必须为正数: %d", s.Days)
	}
	return nil
}

// SkillMatchRequiredSpec 技能匹配要求（无参数）
type SkillMatchRequiredSpec struct{}

func (s SkillMatchRequiredSpec) Type() ConstraintType { return ConstraintSkillMatchRequired }
func (s SkillMatchRequiredSpec) Validate() error      { return nil }

// FairDistributionSpec 公平分配（无参数）
type FairDistributionSpec struct{}

func (s FairDistributionSpec) Type() ConstraintType { return ConstraintFairDistribution }
func (s FairDistributionSpec) Validate() error      { return nil }

// MinStaffPerShiftSpec 单班次最少人数
type MinStaffPerShiftSpec struct {
	Count int `json:"count"`
}

func (s MinStaffPerShiftSpec) Type() ConstraintType { return ConstraintMinStaffPerShift }

func (s MinStaffPerShiftSpec) Validate() error {
	if s.Count <= 0 {
		return fmt.Errorf("单班次最少人数必须为正数: %d", s.Count)
	}
	return nil
}

// MaxOvertimeHoursSpec 每周最大加班时长
type MaxOvertimeHoursSpec struct {
	Hours float64 `json:"hours"`
}

func (s MaxOvertimeHoursSpec) Type() ConstraintType { return ConstraintMaxOvertimeHours }

func (s MaxOvertimeHoursSpec) Validate() error {
	if s.Hours < 0 {
		return fmt.Errorf("最大加班时长不能为负数: %.1f", s.Hours)
	}
	return nil
}

// WeekendRotationSpec 周末轮换周期
type WeekendRotationSpec struct {
	Weeks int `json:"weeks"`
}

func (s WeekendRotationSpec) Type() ConstraintType { return ConstraintWeekendRotation }

func (s WeekendRotationSpec) Validate() error {
	if s.Weeks <= 0 {
		return fmt.Errorf("周末轮换周期必须为正数: %d", s.Weeks)
	}
	return nil
}

// DecodeConstraintSpec 根据类型标签解码约束参数
func DecodeConstraintSpec(typ ConstraintType, params []byte) (ConstraintSpec, error) {
	if len(params) == 0 {
		params = []byte("{}")
	}

	var spec ConstraintSpec
	switch typ {
	case ConstraintMaxHoursPerWeek:
		var s MaxHoursPerWeekSpec
		if err := json.Unmarshal(params, &s); err != nil {
			return nil, err
		}
		spec = s
	case ConstraintMinRestBetween:
		var s MinRestBetweenShiftsSpec
		if err := json.Unmarshal(params, &s); err != nil {
			return nil, err
		}
		spec = s
	case ConstraintMaxConsecutiveDays:
		var s MaxConsecutiveDaysSpec
		if err := json.Unmarshal(params, &s); err != nil {
			return nil, err
		}
		spec = s
	case ConstraintSkillMatchRequired:
		spec = SkillMatchRequiredSpec{}
	case ConstraintFairDistribution:
		spec = FairDistributionSpec{}
	case ConstraintMinStaffPerShift:
		var s MinStaffPerShiftSpec
		if err := json.Unmarshal(params, &s); err != nil {
			return nil, err
		}
		spec = s
	case ConstraintMaxOvertimeHours:
		var s MaxOvertimeHoursSpec
		if err := json.Unmarshal(params, &s); err != nil {
			return nil, err
		}
		spec = s
	case ConstraintWeekendRotation:
		var s WeekendRotationSpec
		if err := json.Unmarshal(params, &s); err != nil {
			return nil, err
		}
		spec = s
	default:
		return nil, fmt.Errorf("未知约束类型: %s", typ)
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// Constraint 业务级约束
type Constraint struct {
	BaseModel
	BusinessID uuid.UUID      `json:"business_id" db:"business_id"`
	Spec       ConstraintSpec `json:"spec" db:"-"`
	Priority   Priority       `json:"priority" db:"priority"`
	IsActive   bool           `json:"is_active" db:"is_active"`
}

// Type 返回约束类型
func (c *Constraint) Type() ConstraintType {
	if c.Spec == nil {
		return ""
	}
	return c.Spec.Type()
}

// ViolationSeverity 根据约束优先级得出违反严重程度
func (c *Constraint) ViolationSeverity() Severity {
	if c.Priority == PriorityCritical || c.Priority == PriorityHigh {
		return SeverityError
	}
	return SeverityWarning
}

// Violation 约束违反详情
type Violation struct {
	ConstraintID        uuid.UUID      `json:"constraint_id,omitempty"`
	ConstraintType      ConstraintType `json:"constraint_type"`
	Severity            Severity       `json:"severity"`
	Message             string         `json:"message"`
	StaffIDs            []uuid.UUID    `json:"staff_ids,omitempty"`
	ShiftIDs            []uuid.UUID    `json:"shift_ids,omitempty"`
	SuggestedResolution string         `json:"suggested_resolution,omitempty"`
}

// ValidationResult 单个分配的验证结果
type ValidationResult struct {
	IsValid    bool               `json:"is_valid"`
	Violations []string           `json:"violations"` // 有序的违反说明
	Score      float64            `json:"score"`      // 0-1 归一化得分
	Breakdown  map[string]float64 `json:"breakdown"`  // 各维度得分
}
