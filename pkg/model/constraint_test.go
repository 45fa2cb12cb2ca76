package model

import (
	"testing"
)

func TestDecodeConstraintSpec(t *testing.T) {
	tests := []struct {
		name    string
		typ     ConstraintType
		params  string
		wantErr bool
	}{
		{
			name:   "每周最大工时",
			typ:    ConstraintMaxHoursPerWeek,
			params: `{"hours": 40}`,
		},
		{
			name:    "每周最大工时为零非法",
			typ:     ConstraintMaxHoursPerWeek,
			params:  `{"hours": 0}`,
			wantErr: true,
		},
		{
			name:   "最小休息时间",
			typ:    ConstraintMinRestBetween,
			params: `{"hours": 11}`,
		},
		{
			name:   "最大连续天数",
			typ:    ConstraintMaxConsecutiveDays,
			params: `{"days": 6}`,
		},
		{
			name:   "技能匹配无参数",
			typ:    ConstraintSkillMatchRequired,
			params: "",
		},
		{
			name:   "加班时长允许为零",
			typ:    ConstraintMaxOvertimeHours,
			params: `{"hours": 0}`,
		},
		{
			name:    "加班时长为负非法",
			typ:     ConstraintMaxOvertimeHours,
			params:  `{"hours": -1}`,
			wantErr: true,
		},
		{
			name:    "未知类型",
			typ:     ConstraintType("unknown_rule"),
			params:  `{}`,
			wantErr: true,
		},
		{
			name:    "非法JSON",
			typ:     ConstraintMaxHoursPerWeek,
			params:  `{hours`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := DecodeConstraintSpec(tt.typ, []byte(tt.params))
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if spec.Type() != tt.typ {
				t.Errorf("Type() = %v, expected %v", spec.Type(), tt.typ)
			}
		})
	}
}

func TestConstraint_ViolationSeverity(t *testing.T) {
	tests := []struct {
		priority Priority
		expected Severity
	}{
		{PriorityCritical, SeverityError},
		{PriorityHigh, SeverityError},
		{PriorityMedium, SeverityWarning},
		{PriorityLow, SeverityWarning},
	}

	for _, tt := range tests {
		t.Run(string(tt.priority), func(t *testing.T) {
			c := &Constraint{Priority: tt.priority}
			if got := c.ViolationSeverity(); got != tt.expected {
				t.Errorf("ViolationSeverity() = %v, expected %v", got, tt.expected)
			}
		})
	}
}
