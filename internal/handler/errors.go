package handler

import (
	"net/http"
	"strconv"

	apperrors "github.com/zhipai/zhipai/pkg/errors"
	"github.com/zhipai/zhipai/pkg/recovery"
)

// ErrorStatsHandler 错误统计处理器
type ErrorStatsHandler struct {
	recovery *recovery.Handler
}

// NewErrorStatsHandler 创建错误统计处理器
func NewErrorStatsHandler(h *recovery.Handler) *ErrorStatsHandler {
	return &ErrorStatsHandler{recovery: h}
}

// Statistics 按时间窗口返回错误统计
// GET /api/v1/errors/statistics?hours=24
func (h *ErrorStatsHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, apperrors.New(apperrors.CodeInvalidInput, "仅支持GET方法"))
		return
	}

	hours := 24
	if raw := r.URL.Query().Get("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondError(w, apperrors.New(apperrors.CodeInvalidInput, "hours必须是正整数"))
			return
		}
		hours = parsed
	}

	respondJSON(w, http.StatusOK, h.recovery.GetErrorStatistics(hours))
}

// Recent 返回最近的错误记录
// GET /api/v1/errors/recent?limit=20
func (h *ErrorStatsHandler) Recent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, apperrors.New(apperrors.CodeInvalidInput, "仅支持GET方法"))
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondError(w, apperrors.New(apperrors.CodeInvalidInput, "limit必须是正整数"))
			return
		}
		limit = parsed
	}

	respondJSON(w, http.StatusOK, h.recovery.RecentRecords(limit))
}
