// Package logger 提供统一的日志框架
package logger

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Config 日志配置
type Config struct {
	Level      string `json:"level"`
	Format     string `json:"format"` // json/console
	Output     string `json:"output"` // stdout/stderr/file
	FilePath   string `json:"file_path,omitempty"`
	TimeFormat string `json:"time_format,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}
}

// Init 初始化日志器
func Init(cfg Config) {
	once.Do(func() {
		zerolog.SetGlobalLevel(parseLevel(cfg.Level))

		var output io.Writer
		switch cfg.Output {
		case "stderr":
			output = os.Stderr
		case "file":
			if cfg.FilePath != "" {
				f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
				if err == nil {
					output = f
				} else {
					output = os.Stdout
				}
			} else {
				output = os.Stdout
			}
		default:
			output = os.Stdout
		}

		if cfg.Format == "console" {
			output = zerolog.ConsoleWriter{
				Out:        output,
				TimeFormat: cfg.TimeFormat,
			}
		}

		logger = zerolog.New(output).With().Timestamp().Logger()
	})
}

// parseLevel 解析日志级别
func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Get 获取日志器
func Get() *zerolog.Logger {
	if logger.GetLevel() == zerolog.Disabled {
		Init(DefaultConfig())
	}
	return &logger
}

// Debug 记录调试日志
func Debug() *zerolog.Event {
	return Get().Debug()
}

// Info 记录信息日志
func Info() *zerolog.Event {
	return Get().Info()
}

// Warn 记录警告日志
func Warn() *zerolog.Event {
	return Get().Warn()
}

// Error 记录错误日志
func Error() *zerolog.Event {
	return Get().Error()
}

// Fatal 记录致命错误日志
func Fatal() *zerolog.Event {
	return Get().Fatal()
}

// WithError 添加错误信息
func WithError(err error) *zerolog.Event {
	return Get().Error().Err(err)
}

// EngineLogger 排班生成引擎专用日志器
type EngineLogger struct {
	base *zerolog.Logger
}

// NewEngineLogger 创建排班生成引擎日志器
func NewEngineLogger() *EngineLogger {
	l := Get().With().Str("component", "engine").Logger()
	return &EngineLogger{base: &l}
}

// StartRun 记录生成运行开始
func (l *EngineLogger) StartRun(draftID string, shifts, staff int) {
	l.base.Info().
		Str("draft_id", draftID).
		Int("shifts", shifts).
		Int("staff", staff).
		Msg("开始生成排班")
}

// TierFallback 记录生成策略降级
func (l *EngineLogger) TierFallback(draftID, from, to, reason string) {
	l.base.Warn().
		Str("draft_id", draftID).
		Str("from", from).
		Str("to", to).
		Str("reason", reason).
		Msg("生成策略降级")
}

// RunComplete 记录生成运行完成
func (l *EngineLogger) RunComplete(draftID, tier string, assignments int, confidence float64, duration time.Duration) {
	l.base.Info().
		Str("draft_id", draftID).
		Str("tier", tier).
		Int("assignments", assignments).
		Float64("confidence", confidence).
		Dur("duration", duration).
		Msg("排班生成完成")
}

// SolverLogger 约束求解器专用日志器
type SolverLogger struct {
	base *zerolog.Logger
}

// NewSolverLogger 创建约束求解器日志器
func NewSolverLogger() *SolverLogger {
	l := Get().With().Str("component", "solver").Logger()
	return &SolverLogger{base: &l}
}

// ConstraintViolation 记录约束违反
func (l *SolverLogger) ConstraintViolation(constraintType, details string) {
	l.base.Warn().
		Str("constraint", constraintType).
		Str("details", details).
		Msg("约束违反")
}

// ShiftUnfilled 记录无法分配的班次
func (l *SolverLogger) ShiftUnfilled(shiftID, skill string, candidates int) {
	l.base.Warn().
		Str("shift_id", shiftID).
		Str("skill", skill).
		Int("candidates", candidates).
		Msg("班次无可用候选人")
}
