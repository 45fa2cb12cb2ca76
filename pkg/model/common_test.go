package model

import (
	"testing"
	"time"
)

func TestDateRange_Days(t *testing.T) {
	tests := []struct {
		name     string
		dr       DateRange
		expected int
	}{
		{
			name:     "单日",
			dr:       DateRange{StartDate: "2026-03-01", EndDate: "2026-03-01"},
			expected: 1,
		},
		{
			name:     "一周",
			dr:       DateRange{StartDate: "2026-03-01", EndDate: "2026-03-07"},
			expected: 7,
		},
		{
			name:     "跨月",
			dr:       DateRange{StartDate: "2026-02-27", EndDate: "2026-03-02"},
			expected: 4,
		},
		{
			name:     "无效日期",
			dr:       DateRange{StartDate: "invalid", EndDate: "2026-03-01"},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dr.Days(); got != tt.expected {
				t.Errorf("Days() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestDateRange_ContainsDate(t *testing.T) {
	dr := DateRange{StartDate: "2026-03-01", EndDate: "2026-03-07"}

	if !dr.ContainsDate("2026-03-01") {
		t.Error("开始日期应包含在范围内")
	}
	if !dr.ContainsDate("2026-03-07") {
		t.Error("结束日期应包含在范围内")
	}
	if dr.ContainsDate("2026-03-08") {
		t.Error("范围外日期不应包含")
	}
}

func TestWeekStart(t *testing.T) {
	tests := []struct {
		name     string
		date     string
		expected string
	}{
		{"周日即周开始", "2026-03-01", "2026-03-01"},
		{"周一", "2026-03-02", "2026-03-01"},
		{"周六", "2026-03-07", "2026-03-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WeekStart(tt.date); got != tt.expected {
				t.Errorf("WeekStart(%s) = %v, expected %v", tt.date, got, tt.expected)
			}
		})
	}
}

func TestWeekEnd(t *testing.T) {
	if got := WeekEnd("2026-03-01"); got != "2026-03-07" {
		t.Errorf("WeekEnd() = %v, expected 2026-03-07", got)
	}
}

func TestIsWeekend(t *testing.T) {
	if !IsWeekend("2026-03-01") {
		t.Error("2026-03-01 是周日")
	}
	if !IsWeekend("2026-03-07") {
		t.Error("2026-03-07 是周六")
	}
	if IsWeekend("2026-03-04") {
		t.Error("2026-03-04 是周三")
	}
}

func TestTimeRange_Overlaps(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tr := TimeRange{Start: base, End: base.Add(8 * time.Hour)}

	tests := []struct {
		name     string
		other    TimeRange
		expected bool
	}{
		{
			name:     "部分重叠",
			other:    TimeRange{Start: base.Add(6 * time.Hour), End: base.Add(12 * time.Hour)},
			expected: true,
		},
		{
			name:     "完全包含",
			other:    TimeRange{Start: base.Add(2 * time.Hour), End: base.Add(4 * time.Hour)},
			expected: true,
		},
		{
			name:     "首尾相接不算重叠",
			other:    TimeRange{Start: base.Add(8 * time.Hour), End: base.Add(16 * time.Hour)},
			expected: false,
		},
		{
			name:     "完全分离",
			other:    TimeRange{Start: base.Add(10 * time.Hour), End: base.Add(12 * time.Hour)},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tr.Overlaps(tt.other); got != tt.expected {
				t.Errorf("Overlaps() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestPriority_Rank(t *testing.T) {
	order := []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}
	for i := 1; i < len(order); i++ {
		if order[i].Rank() <= order[i-1].Rank() {
			t.Errorf("%s 的权重应高于 %s", order[i], order[i-1])
		}
	}
	if Priority("unknown").Rank() != 0 {
		t.Error("未知优先级权重应为0")
	}
}

func TestNewBaseModel(t *testing.T) {
	base := NewBaseModel()

	if base.ID.String() == "" {
		t.Error("ID should not be empty")
	}
	if base.CreatedAt.IsZero() {
		t.Error("CreatedAt should not be zero")
	}
	if base.UpdatedAt.IsZero() {
		t.Error("UpdatedAt should not be zero")
	}
}
