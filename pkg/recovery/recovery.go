// Package recovery 提供运行级错误的分类、记录与恢复编排
package recovery

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	apperrors "github.com/zhipai/zhipai/pkg/errors"
	"github.com/zhipai/zhipai/pkg/logger"
)

// Category 错误类别
type Category string

const (
	CategoryAIService           Category = "ai_service"
	CategoryInsufficientStaff   Category = "insufficient_staff"
	CategoryConstraintViolation Category = "constraint_violation"
	CategoryScheduleGeneration  Category = "schedule_generation"
	CategoryNotification        Category = "notification"
	CategoryExternalAPI         Category = "external_api"
	CategoryDatabase            Category = "database"
	CategorySystem              Category = "system"
)

// Severity 错误严重程度
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ErrorRecord 一次错误的完整记录
type ErrorRecord struct {
	ID          uuid.UUID              `json:"id"`
	Timestamp   time.Time              `json:"timestamp"`
	Code        apperrors.Code         `json:"code"`
	Message     string                 `json:"message"`
	Category    Category               `json:"category"`
	Severity    Severity               `json:"severity"`
	Recoverable bool                   `json:"recoverable"`
	Resolved    bool                   `json:"resolved"`
	Strategy    string                 `json:"strategy,omitempty"` // 成功的恢复策略
	Context     map[string]interface{} `json:"context,omitempty"`
}

// RecoveryOutcome 恢复尝试的结果
type RecoveryOutcome struct {
	Attempted []string `json:"attempted"`
	Succeeded string   `json:"succeeded,omitempty"`
	Recovered bool     `json:"recovered"`
}

// Response 对调用方的错误响应封套
type Response struct {
	ErrorID     uuid.UUID        `json:"error_id"`
	Timestamp   time.Time        `json:"timestamp"`
	Code        apperrors.Code   `json:"code"`
	Message     string           `json:"message"`
	Severity    Severity         `json:"severity"`
	Category    Category         `json:"category"`
	Recoverable bool             `json:"recoverable"`
	Suggestions []string         `json:"suggestions,omitempty"`
	Recovery    *RecoveryOutcome `json:"recovery,omitempty"`
}

// StrategyFunc 恢复策略实现：返回 true 表示恢复成功
type StrategyFunc func(ctx context.Context, record *ErrorRecord) bool

// ContextKeyRetry 记录上下文中重试回调的键
// 值类型为 func(context.Context) error，由上报错误的调用方提供；
// 替代路径类策略只认与策略同名的键
const ContextKeyRetry = "retry"

// 各类别的恢复策略尝试顺序
var strategyOrder = map[Category][]string{
	CategoryAIService:           {"rule_based_fallback", "retry_with_delay"},
	CategoryNotification:        {"alternative_channel", "retry_notification"},
	CategoryExternalAPI:         {"retry_with_backoff", "alternative_service"},
	CategoryConstraintViolation: {"relaxed_constraints", "partial_schedule"},
}

// 无专属策略的类别使用默认顺序
var defaultStrategyOrder = []string{"generic_retry", "manual_intervention"}

const defaultMaxRecords = 1000

// Handler 错误处理器
// 记录存储与计数为进程级共享状态，所有访问都在锁内完成
type Handler struct {
	mu         sync.Mutex
	records    []*ErrorRecord
	maxRecords int
	strategies map[string]StrategyFunc
	base       *zerolog.Logger
}

// NewHandler 创建错误处理器
func NewHandler() *Handler {
	l := logger.Get().With().Str("component", "recovery").Logger()
	h := &Handler{
		maxRecords: defaultMaxRecords,
		strategies: make(map[string]StrategyFunc),
		base:       &l,
	}
	h.registerDefaults()
	return h
}

// registerDefaults 为策略表中的每个策略名注册基础实现
// 重试类策略通过记录上下文里的回调重新执行原操作，没有回调时直接放弃，
// 交给顺序中的下一个策略；rule_based_fallback 由排班引擎在接入时覆盖注册
func (h *Handler) registerDefaults() {
	h.strategies["retry_with_delay"] = h.retryStrategy("retry_with_delay", 1, 500*time.Millisecond)
	h.strategies["retry_with_backoff"] = h.retryStrategy("retry_with_backoff", 3, 200*time.Millisecond)
	h.strategies["retry_notification"] = h.retryStrategy("retry_notification", 2, 300*time.Millisecond)
	h.strategies["generic_retry"] = h.retryStrategy("generic_retry", 1, 0)
	h.strategies["alternative_channel"] = h.alternativeStrategy("alternative_channel")
	h.strategies["alternative_service"] = h.alternativeStrategy("alternative_service")
	h.strategies["relaxed_constraints"] = h.alternativeStrategy("relaxed_constraints")
	h.strategies["partial_schedule"] = h.alternativeStrategy("partial_schedule")
	h.strategies["manual_intervention"] = func(ctx context.Context, record *ErrorRecord) bool {
		h.base.Warn().
			Str("error_id", record.ID.String()).
			Str("category", string(record.Category)).
			Msg("自动恢复未成功，需要人工介入")
		return false
	}
}

// recoveryCallback 按键顺序从记录上下文提取恢复回调
func recoveryCallback(record *ErrorRecord, keys ...string) func(context.Context) error {
	for _, key := range keys {
		if fn, ok := record.Context[key].(func(context.Context) error); ok {
			return fn
		}
	}
	return nil
}

// retryStrategy 构造重试策略：最多 attempts 次，间隔从 delay 起逐次翻倍
// 回调取策略同名键，其次取通用的 retry 键
func (h *Handler) retryStrategy(name string, attempts int, delay time.Duration) StrategyFunc {
	return func(ctx context.Context, record *ErrorRecord) bool {
		fn := recoveryCallback(record, name, ContextKeyRetry)
		if fn == nil {
			return false
		}

		wait := delay
		for i := 0; i < attempts; i++ {
			if wait > 0 {
				timer := time.NewTimer(wait)
				select {
				case <-ctx.Done():
					timer.Stop()
					return false
				case <-timer.C:
				}
				wait *= 2
			}
			if fn(ctx) == nil {
				return true
			}
		}
		return false
	}
}

// alternativeStrategy 构造替代路径策略（备用渠道/服务、放宽约束、部分排班）
// 换路径必须由调用方显式提供，因此只认与策略同名的回调
func (h *Handler) alternativeStrategy(name string) StrategyFunc {
	return func(ctx context.Context, record *ErrorRecord) bool {
		fn := recoveryCallback(record, name)
		if fn == nil {
			return false
		}
		return fn(ctx) == nil
	}
}

// SetMaxRecords 设置记录保留上限
func (h *Handler) SetMaxRecords(n int) {
	if n <= 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.maxRecords = n
	h.trimLocked()
}

// RegisterStrategy 注册恢复策略实现
// 未注册的策略名在恢复时视为不可用并跳过
func (h *Handler) RegisterStrategy(name string, fn StrategyFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.strategies[name] = fn
}

// HandleError 处理一个运行级错误
// 分类、记录、打日志；enableFallback 且错误可恢复时按序尝试恢复策略
func (h *Handler) HandleError(ctx context.Context, err error, errCtx map[string]interface{}, enableFallback bool) *Response {
	record := h.classify(err, errCtx)
	h.store(record)
	h.logRecord(record, err)

	resp := &Response{
		ErrorID:     record.ID,
		Timestamp:   record.Timestamp,
		Code:        record.Code,
		Message:     record.Message,
		Severity:    record.Severity,
		Category:    record.Category,
		Recoverable: record.Recoverable,
		Suggestions: suggestions(record.Category),
	}

	if enableFallback && record.Recoverable {
		resp.Recovery = h.attemptRecovery(ctx, record)
	}

	return resp
}

// classify 把错误映射到已知分类体系
func (h *Handler) classify(err error, errCtx map[string]interface{}) *ErrorRecord {
	record := &ErrorRecord{
		ID:        uuid.New(),
		Timestamp: time.Now(),
		Code:      apperrors.GetCode(err),
		Message:   err.Error(),
		Context:   errCtx,
	}

	switch record.Code {
	case apperrors.CodeAIService:
		record.Category = CategoryAIService
		record.Severity = SeverityHigh
		record.Recoverable = true
	case apperrors.CodeInsufficientStaff:
		record.Category = CategoryInsufficientStaff
		record.Severity = SeverityHigh
		record.Recoverable = false
	case apperrors.CodeConstraintViolation:
		record.Category = CategoryConstraintViolation
		record.Severity = SeverityMedium
		record.Recoverable = true
	case apperrors.CodeScheduleGeneration, apperrors.CodeNoShifts:
		record.Category = CategoryScheduleGeneration
		record.Severity = SeverityHigh
		record.Recoverable = false
	case apperrors.CodeNotification:
		record.Category = CategoryNotification
		record.Severity = SeverityLow
		record.Recoverable = true
	case apperrors.CodeExternalAPI, apperrors.CodeTimeout:
		record.Category = CategoryExternalAPI
		record.Severity = SeverityMedium
		record.Recoverable = true
	case apperrors.CodeDatabase:
		record.Category = CategoryDatabase
		record.Severity = SeverityCritical
		record.Recoverable = false
	default:
		record.Category = CategorySystem
		record.Severity = SeverityMedium
		record.Recoverable = true
	}

	return record
}

// store 保存记录，超出上限时淘汰最旧的
func (h *Handler) store(record *ErrorRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, record)
	h.trimLocked()
}

func (h *Handler) trimLocked() {
	if len(h.records) > h.maxRecords {
		h.records = h.records[len(h.records)-h.maxRecords:]
	}
}

// logRecord 按严重程度输出结构化日志
func (h *Handler) logRecord(record *ErrorRecord, err error) {
	var event *zerolog.Event
	switch record.Severity {
	case SeverityCritical, SeverityHigh:
		event = h.base.Error()
	case SeverityMedium:
		event = h.base.Warn()
	default:
		event = h.base.Info()
	}

	event.
		Err(err).
		Str("error_id", record.ID.String()).
		Str("code", string(record.Code)).
		Str("category", string(record.Category)).
		Str("severity", string(record.Severity)).
		Bool("recoverable", record.Recoverable).
		Msg("处理运行级错误")
}

// attemptRecovery 按顺序尝试该类别的恢复策略，首个成功即停止
func (h *Handler) attemptRecovery(ctx context.Context, record *ErrorRecord) *RecoveryOutcome {
	order, ok := strategyOrder[record.Category]
	if !ok {
		order = defaultStrategyOrder
	}

	outcome := &RecoveryOutcome{}
	for _, name := range order {
		h.mu.Lock()
		fn := h.strategies[name]
		h.mu.Unlock()
		if fn == nil {
			continue
		}

		outcome.Attempted = append(outcome.Attempted, name)
		if fn(ctx, record) {
			outcome.Succeeded = name
			outcome.Recovered = true

			h.mu.Lock()
			record.Resolved = true
			record.Strategy = name
			h.mu.Unlock()

			h.base.Info().
				Str("error_id", record.ID.String()).
				Str("strategy", name).
				Msg("错误恢复成功")
			break
		}
	}

	return outcome
}

// suggestions 返回类别对应的处理建议
func suggestions(category Category) []string {
	switch category {
	case CategoryAIService:
		return []string{"系统已自动降级到规则排班", "检查AI推荐服务的可用性与配额"}
	case CategoryInsufficientStaff:
		return []string{"为缺口技能补充员工或临时工", "调整班次的技能要求或人数"}
	case CategoryConstraintViolation:
		return []string{"放宽低优先级约束后重试", "接受部分排班并人工补齐"}
	case CategoryScheduleGeneration:
		return []string{"检查日期范围内是否存在待排班次", "查看草稿失败原因后重新发起生成"}
	case CategoryNotification:
		return []string{"通过备用渠道重发通知"}
	case CategoryExternalAPI:
		return []string{"稍后重试", "检查外部服务状态"}
	case CategoryDatabase:
		return []string{"检查数据库连接与磁盘状态", "联系运维处理"}
	default:
		return []string{"重试当前操作", "若持续失败请联系管理员"}
	}
}
