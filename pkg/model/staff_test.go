package model

import (
	"testing"
	"time"
)

func TestStaff_HasSkill(t *testing.T) {
	staff := &Staff{Skills: []string{"chef", "kitchen"}}

	if !staff.HasSkill("chef") {
		t.Error("应具备 chef 技能")
	}
	if staff.HasSkill("bartender") {
		t.Error("不应具备 bartender 技能")
	}
}

func TestStaff_WindowsOn(t *testing.T) {
	staff := &Staff{
		WeeklyAvailability: map[time.Weekday][]DayWindow{
			time.Monday: {{Start: "09:00", End: "17:00"}},
		},
	}

	windows := staff.WindowsOn(time.Monday)
	if len(windows) != 1 || windows[0].Start != "09:00" {
		t.Errorf("周一窗口不正确: %+v", windows)
	}
	if staff.WindowsOn(time.Tuesday) != nil {
		t.Error("周二无窗口应返回 nil")
	}

	empty := &Staff{}
	if empty.WindowsOn(time.Monday) != nil {
		t.Error("未配置可用时间应返回 nil")
	}
}

func TestPreference_EffectiveOn(t *testing.T) {
	tests := []struct {
		name     string
		pref     Preference
		date     string
		expected bool
	}{
		{
			name:     "无期限长期生效",
			pref:     Preference{IsActive: true},
			date:     "2026-03-02",
			expected: true,
		},
		{
			name:     "未激活不生效",
			pref:     Preference{IsActive: false},
			date:     "2026-03-02",
			expected: false,
		},
		{
			name:     "生效日之前不生效",
			pref:     Preference{IsActive: true, EffectiveFrom: "2026-03-05"},
			date:     "2026-03-02",
			expected: false,
		},
		{
			name:     "过期后不生效",
			pref:     Preference{IsActive: true, ExpiresOn: "2026-03-01"},
			date:     "2026-03-02",
			expected: false,
		},
		{
			name:     "期限内生效",
			pref:     Preference{IsActive: true, EffectiveFrom: "2026-03-01", ExpiresOn: "2026-03-07"},
			date:     "2026-03-02",
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pref.EffectiveOn(tt.date); got != tt.expected {
				t.Errorf("EffectiveOn(%s) = %v, expected %v", tt.date, got, tt.expected)
			}
		})
	}
}
