package recovery

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/zhipai/zhipai/pkg/errors"
)

func TestHandleError_分类(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		category    Category
		severity    Severity
		recoverable bool
	}{
		{"AI服务错误", apperrors.AIService("超时"), CategoryAIService, SeverityHigh, true},
		{"人手不足", apperrors.InsufficientStaff("chef", 0, 1), CategoryInsufficientStaff, SeverityHigh, false},
		{"约束违反", apperrors.ConstraintViolation("无法满足"), CategoryConstraintViolation, SeverityMedium, true},
		{"无班次", apperrors.NoShifts("2026-03-01", "2026-03-07"), CategoryScheduleGeneration, SeverityHigh, false},
		{"数据库错误", apperrors.New(apperrors.CodeDatabase, "连接失败"), CategoryDatabase, SeverityCritical, false},
		{"未知错误", errors.New("未预期的问题"), CategorySystem, SeverityMedium, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHandler()
			resp := handler.HandleError(context.Background(), tt.err, nil, false)

			if resp.Category != tt.category {
				t.Errorf("类别 = %s，期望 %s", resp.Category, tt.category)
			}
			if resp.Severity != tt.severity {
				t.Errorf("严重程度 = %s，期望 %s", resp.Severity, tt.severity)
			}
			if resp.Recoverable != tt.recoverable {
				t.Errorf("可恢复 = %v，期望 %v", resp.Recoverable, tt.recoverable)
			}
			if resp.ErrorID.String() == "" || resp.Timestamp.IsZero() {
				t.Error("响应缺少错误ID或时间戳")
			}
			if len(resp.Suggestions) == 0 {
				t.Error("响应缺少处理建议")
			}
		})
	}
}

func TestHandleError_恢复策略顺序(t *testing.T) {
	handler := NewHandler()

	var attempted []string
	handler.RegisterStrategy("rule_based_fallback", func(ctx context.Context, r *ErrorRecord) bool {
		attempted = append(attempted, "rule_based_fallback")
		return false
	})
	handler.RegisterStrategy("retry_with_delay", func(ctx context.Context, r *ErrorRecord) bool {
		attempted = append(attempted, "retry_with_delay")
		return true
	})

	resp := handler.HandleError(context.Background(), apperrors.AIService("超时"), nil, true)

	if resp.Recovery == nil {
		t.Fatal("启用降级时应包含恢复结果")
	}
	if !resp.Recovery.Recovered {
		t.Error("第二个策略成功时应标记已恢复")
	}
	if resp.Recovery.Succeeded != "retry_with_delay" {
		t.Errorf("成功策略 = %s，期望 retry_with_delay", resp.Recovery.Succeeded)
	}
	if len(attempted) != 2 || attempted[0] != "rule_based_fallback" {
		t.Errorf("策略尝试顺序错误: %v", attempted)
	}
}

func TestHandleError_首个成功即停止(t *testing.T) {
	handler := NewHandler()

	secondCalled := false
	handler.RegisterStrategy("rule_based_fallback", func(ctx context.Context, r *ErrorRecord) bool {
		return true
	})
	handler.RegisterStrategy("retry_with_delay", func(ctx context.Context, r *ErrorRecord) bool {
		secondCalled = true
		return true
	})

	resp := handler.HandleError(context.Background(), apperrors.AIService("超时"), nil, true)

	if resp.Recovery.Succeeded != "rule_based_fallback" {
		t.Errorf("成功策略 = %s，期望 rule_based_fallback", resp.Recovery.Succeeded)
	}
	if secondCalled {
		t.Error("首个策略成功后不应继续尝试")
	}
}

func TestHandleError_不可恢复错误跳过降级(t *testing.T) {
	handler := NewHandler()

	called := false
	handler.RegisterStrategy("generic_retry", func(ctx context.Context, r *ErrorRecord) bool {
		called = true
		return true
	})

	resp := handler.HandleError(context.Background(), apperrors.InsufficientStaff("chef", 0, 1), nil, true)

	if resp.Recovery != nil {
		t.Error("不可恢复错误不应尝试恢复")
	}
	if called {
		t.Error("不可恢复错误不应调用任何策略")
	}
}

func TestHandleError_默认策略走备用渠道(t *testing.T) {
	handler := NewHandler()

	delivered := false
	errCtx := map[string]interface{}{
		"alternative_channel": func(ctx context.Context) error {
			delivered = true
			return nil
		},
	}

	resp := handler.HandleError(context.Background(),
		apperrors.New(apperrors.CodeNotification, "短信通道发送失败"), errCtx, true)

	if resp.Recovery == nil {
		t.Fatal("启用降级时应包含恢复结果")
	}
	if !delivered {
		t.Error("应调用备用渠道回调")
	}
	if resp.Recovery.Succeeded != "alternative_channel" {
		t.Errorf("成功策略 = %s，期望 alternative_channel", resp.Recovery.Succeeded)
	}
}

func TestHandleError_通用重试回调(t *testing.T) {
	handler := NewHandler()

	calls := 0
	errCtx := map[string]interface{}{
		ContextKeyRetry: func(ctx context.Context) error {
			calls++
			return nil
		},
	}

	resp := handler.HandleError(context.Background(), errors.New("未预期的问题"), errCtx, true)

	if calls != 1 {
		t.Errorf("重试回调调用次数 = %d，期望 1", calls)
	}
	if resp.Recovery == nil || resp.Recovery.Succeeded != "generic_retry" {
		t.Fatalf("期望 generic_retry 恢复成功，实际 %+v", resp.Recovery)
	}
	if record := handler.RecentRecords(1)[0]; !record.Resolved || record.Strategy != "generic_retry" {
		t.Error("恢复成功后记录应标记已恢复与成功策略")
	}
}

func TestHandleError_无回调时默认策略不虚报成功(t *testing.T) {
	handler := NewHandler()

	resp := handler.HandleError(context.Background(),
		apperrors.New(apperrors.CodeNotification, "发送失败"), nil, true)

	if resp.Recovery == nil {
		t.Fatal("启用降级时应包含恢复结果")
	}
	if len(resp.Recovery.Attempted) != 2 {
		t.Errorf("应尝试 2 个策略，实际 %v", resp.Recovery.Attempted)
	}
	if resp.Recovery.Recovered {
		t.Error("没有可用回调时不应声称恢复成功")
	}
}

func TestGetErrorStatistics(t *testing.T) {
	handler := NewHandler()
	handler.RegisterStrategy("rule_based_fallback", func(ctx context.Context, r *ErrorRecord) bool {
		return true
	})

	handler.HandleError(context.Background(), apperrors.AIService("超时"), nil, true)
	handler.HandleError(context.Background(), apperrors.AIService("限流"), nil, false)
	handler.HandleError(context.Background(), apperrors.InsufficientStaff("chef", 0, 1), nil, true)

	stats := handler.GetErrorStatistics(1)

	if stats.Total != 3 {
		t.Errorf("错误总数 = %d，期望 3", stats.Total)
	}
	if stats.ByCategory[CategoryAIService] != 2 {
		t.Errorf("AI服务错误数 = %d，期望 2", stats.ByCategory[CategoryAIService])
	}
	if stats.Resolved != 1 {
		t.Errorf("已恢复数 = %d，期望 1", stats.Resolved)
	}
	if stats.ResolutionRate < 0.33 || stats.ResolutionRate > 0.34 {
		t.Errorf("恢复率 = %.2f，期望约 0.33", stats.ResolutionRate)
	}
}

func TestHandler_记录上限(t *testing.T) {
	handler := NewHandler()
	handler.SetMaxRecords(5)

	for i := 0; i < 10; i++ {
		handler.HandleError(context.Background(), errors.New("错误"), nil, false)
	}

	records := handler.RecentRecords(0)
	if len(records) != 5 {
		t.Errorf("记录数 = %d，期望保留上限 5", len(records))
	}
}
