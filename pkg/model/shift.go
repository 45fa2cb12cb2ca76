// Package model 定义排班引擎的核心数据模型
package model

import (
	"time"

	"github.com/google/uuid"
)

// ShiftStatus 班次状态
type ShiftStatus string

const (
	ShiftScheduled    ShiftStatus = "scheduled"
	ShiftUnderstaffed ShiftStatus = "understaffed"
	ShiftFilled       ShiftStatus = "filled"
	ShiftCancelled    ShiftStatus = "cancelled"
)

// Shift 班次
type Shift struct {
	BaseModel
	BusinessID    uuid.UUID   `json:"business_id" db:"business_id"`
	Date          string      `json:"date" db:"date"`             // YYYY-MM-DD
	StartTime     time.Time   `json:"start_time" db:"start_time"` // 含日期的完整时间
	EndTime       time.Time   `json:"end_time" db:"end_time"`
	RequiredSkill string      `json:"required_skill" db:"required_skill"`
	RequiredCount int         `json:"required_count" db:"required_count"`
	HourlyRate    float64     `json:"hourly_rate" db:"hourly_rate"`
	Status        ShiftStatus `json:"status" db:"status"`
}

// Hours 返回班次时长（小时）
func (s *Shift) Hours() float64 {
	return s.EndTime.Sub(s.StartTime).Hours()
}

// Weekday 返回班次所在星期
func (s *Shift) Weekday() time.Weekday {
	t, err := time.Parse("2006-01-02", s.Date)
	if err != nil {
		return s.StartTime.Weekday()
	}
	return t.Weekday()
}

// Range 返回班次的时间范围
func (s *Shift) Range() TimeRange {
	return TimeRange{Start: s.StartTime, End: s.EndTime}
}

// Assignable 检查班次是否可参与排班
func (s *Shift) Assignable() bool {
	return s.Status == ShiftScheduled || s.Status == ShiftUnderstaffed
}

// DraftStatus 排班草稿状态
type DraftStatus string

const (
	DraftPending   DraftStatus = "draft"
	DraftCompleted DraftStatus = "completed"
	DraftFailed    DraftStatus = "failed"
	DraftPublished DraftStatus = "published"
)

// ScheduleDraft 排班草稿（一次生成运行的结果容器）
type ScheduleDraft struct {
	BaseModel
	BusinessID uuid.UUID   `json:"business_id" db:"business_id"`
	DateRange  DateRange   `json:"date_range" db:"-"`
	Status     DraftStatus `json:"status" db:"status"`
	Confidence float64     `json:"confidence" db:"confidence"`
	CreatedBy  *uuid.UUID  `json:"created_by,omitempty" db:"created_by"`
}

// DraftAssignment 草稿中的一条排班分配
// 同一草稿内 (shift_id, staff_id) 必须唯一
type DraftAssignment struct {
	BaseModel
	DraftID        uuid.UUID `json:"draft_id" db:"draft_id"`
	ShiftID        uuid.UUID `json:"shift_id" db:"shift_id"`
	StaffID        uuid.UUID `json:"staff_id" db:"staff_id"`
	Confidence     float64   `json:"confidence" db:"confidence"` // 0-1
	Reasoning      string    `json:"reasoning" db:"reasoning"`
	IsAIGenerated  bool      `json:"is_ai_generated" db:"is_ai_generated"`
	ManualOverride bool      `json:"manual_override" db:"manual_override"`
}

// Key 返回分配的唯一键
func (a *DraftAssignment) Key() string {
	return a.ShiftID.String() + "/" + a.StaffID.String()
}
