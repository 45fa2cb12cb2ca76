// Package model 定义排班引擎的核心数据模型
package model

import (
	"time"

	"github.com/google/uuid"
)

// Staff 员工
type Staff struct {
	BaseModel
	BusinessID uuid.UUID `json:"business_id" db:"business_id"`
	Name       string    `json:"name" db:"name"`
	Phone      string    `json:"phone,omitempty" db:"phone"`
	Email      string    `json:"email,omitempty" db:"email"`
	IsActive   bool      `json:"is_active" db:"is_active"`

	// 排班相关
	Skills      []string `json:"skills" db:"skills"`
	HourlyRate  float64  `json:"hourly_rate" db:"hourly_rate"`
	Reliability float64  `json:"reliability_score" db:"reliability_score"` // 1-10

	// 每周可用时间（周几 -> 当天可用时间窗口）
	WeeklyAvailability map[time.Weekday][]DayWindow `json:"weekly_availability,omitempty" db:"availability"`
}

// DayWindow 一天内的可用时间窗口
type DayWindow struct {
	Start string `json:"start"` // HH:MM
	End   string `json:"end"`   // HH:MM
}

// HasSkill 检查员工是否具备某技能
func (s *Staff) HasSkill(skill string) bool {
	for _, sk := range s.Skills {
		if sk == skill {
			return true
		}
	}
	return false
}

// WindowsOn 返回员工某天的可用时间窗口
func (s *Staff) WindowsOn(day time.Weekday) []DayWindow {
	if s.WeeklyAvailability == nil {
		return nil
	}
	return s.WeeklyAvailability[day]
}

// PreferenceType 员工偏好类型
type PreferenceType string

const (
	PreferenceAvailability PreferenceType = "availability"
	PreferenceTimeOff      PreferenceType = "time_off"
	PreferenceDayOff       PreferenceType = "day_off"
	PreferenceMaxHours     PreferenceType = "max_hours"
	PreferenceMinHours     PreferenceType = "min_hours"
)

// Preference 员工级排班偏好
// 当比业务约束更严格时优先生效（如 max_hours）
type Preference struct {
	BaseModel
	StaffID       uuid.UUID        `json:"staff_id" db:"staff_id"`
	Type          PreferenceType   `json:"type" db:"type"`
	Priority      Priority         `json:"priority" db:"priority"`
	IsActive      bool             `json:"is_active" db:"is_active"`
	EffectiveFrom string           `json:"effective_from,omitempty" db:"effective_from"` // YYYY-MM-DD
	ExpiresOn     string           `json:"expires_on,omitempty" db:"expires_on"`
	Params        PreferenceParams `json:"params" db:"params"`
}

// PreferenceParams 偏好参数（按类型取用相应字段）
type PreferenceParams struct {
	DayOfWeek *time.Weekday `json:"day_of_week,omitempty"` // availability/day_off
	StartTime string        `json:"start_time,omitempty"`  // HH:MM
	EndTime   string        `json:"end_time,omitempty"`    // HH:MM
	Date      string        `json:"date,omitempty"`        // time_off 的具体日期
	Hours     float64       `json:"hours,omitempty"`       // max_hours/min_hours
}

// EffectiveOn 检查偏好在指定日期是否生效
func (p *Preference) EffectiveOn(date string) bool {
	if !p.IsActive {
		return false
	}
	if p.EffectiveFrom != "" && date < p.EffectiveFrom {
		return false
	}
	if p.ExpiresOn != "" && date > p.ExpiresOn {
		return false
	}
	return true
}
