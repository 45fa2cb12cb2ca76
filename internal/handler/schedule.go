// Package handler 提供HTTP请求处理器
package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/zhipai/zhipai/internal/metrics"
	"github.com/zhipai/zhipai/pkg/engine"
	apperrors "github.com/zhipai/zhipai/pkg/errors"
	"github.com/zhipai/zhipai/pkg/model"
)

// ScheduleHandler 排班处理器
type ScheduleHandler struct {
	engine    *engine.Engine
	aiEnabled bool
}

// NewScheduleHandler 创建排班处理器
// aiEnabled 为全局开关：关闭时忽略请求中的 ai_enabled
func NewScheduleHandler(eng *engine.Engine, aiEnabled bool) *ScheduleHandler {
	return &ScheduleHandler{engine: eng, aiEnabled: aiEnabled}
}

// GenerateRequest 排班生成请求
type GenerateRequest struct {
	BusinessID string `json:"business_id"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	Strategy   string `json:"strategy,omitempty"` // balanced/preference_weighted/constraint_priority_ordered/workload_balancing
	CreatedBy  string `json:"created_by,omitempty"`
	AIEnabled  bool   `json:"ai_enabled,omitempty"`
}

// GenerateResponse 排班生成响应
type GenerateResponse struct {
	Success  bool           `json:"success"`
	Result   *engine.Result `json:"result"`
	Duration string         `json:"duration"`
}

// Generate 生成排班
func (h *ScheduleHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, apperrors.New(apperrors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperrors.Wrap(err, apperrors.CodeInvalidInput, "解析请求失败"))
		return
	}

	params, err := buildGenerateParams(&req)
	if err != nil {
		respondError(w, err)
		return
	}
	params.AIEnabled = req.AIEnabled && h.aiEnabled

	strategy := req.Strategy
	if strategy == "" {
		strategy = "balanced"
	}

	start := time.Now()
	result, genErr := h.engine.GenerateSchedule(r.Context(), *params, strategy)
	if genErr != nil {
		metrics.GenerationRuns.Inc("none", "failed")
		respondError(w, genErr)
		return
	}

	metrics.GenerationRuns.Inc(result.Tier, "completed")
	metrics.GenerationDuration.Observe(time.Since(start).Seconds(), result.Tier)
	metrics.DraftConfidence.Set(result.OverallConfidence, req.BusinessID)
	metrics.ScheduleCoverage.Set(result.Summary.OverallCoverage, req.BusinessID)
	if params.AIEnabled {
		if result.Tier == engine.TierAIAssisted {
			metrics.AIRequests.Inc("success")
		} else {
			metrics.AIRequests.Inc("fallback")
		}
	}
	if result.Tier != engine.TierAIAssisted && (params.AIEnabled || result.Tier == engine.TierMinimal) {
		metrics.TierFallbacks.Inc(result.Tier)
	}

	respondJSON(w, http.StatusOK, GenerateResponse{
		Success:  true,
		Result:   result,
		Duration: time.Since(start).String(),
	})
}

// buildGenerateParams 验证请求并转换为引擎入参
func buildGenerateParams(req *GenerateRequest) (*engine.GenerateParams, error) {
	if req.BusinessID == "" {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "业务ID不能为空")
	}
	businessID, err := uuid.Parse(req.BusinessID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidInput, "无效的业务ID格式")
	}

	for _, d := range []struct{ name, value string }{
		{"start_date", req.StartDate},
		{"end_date", req.EndDate},
	} {
		if d.value == "" {
			return nil, apperrors.New(apperrors.CodeInvalidInput, d.name+"不能为空")
		}
		if _, err := time.Parse("2006-01-02", d.value); err != nil {
			return nil, apperrors.New(apperrors.CodeInvalidInput,
				fmt.Sprintf("%s格式无效，应为YYYY-MM-DD: %s", d.name, d.value))
		}
	}
	if req.EndDate < req.StartDate {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "结束日期不能早于开始日期")
	}

	params := &engine.GenerateParams{
		BusinessID: businessID,
		DateRange:  model.DateRange{StartDate: req.StartDate, EndDate: req.EndDate},
	}

	if req.CreatedBy != "" {
		createdBy, err := uuid.Parse(req.CreatedBy)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInvalidInput, "无效的创建人ID格式")
		}
		params.CreatedBy = &createdBy
	}
	return params, nil
}

// ValidateRequest 批量验证请求
type ValidateRequest struct {
	DraftID string `json:"draft_id"`
}

// Validate 验证草稿下的全部分配
func (h *ScheduleHandler) Validate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, apperrors.New(apperrors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperrors.Wrap(err, apperrors.CodeInvalidInput, "解析请求失败"))
		return
	}
	draftID, err := uuid.Parse(req.DraftID)
	if err != nil {
		respondError(w, apperrors.Wrap(err, apperrors.CodeInvalidInput, "无效的草稿ID格式"))
		return
	}

	report, valErr := h.engine.ValidateDraft(r.Context(), draftID)
	if valErr != nil {
		respondError(w, valErr)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// OptimizeRequest 优化请求
type OptimizeRequest struct {
	DraftID string   `json:"draft_id"`
	Goals   []string `json:"goals,omitempty"` // fairness/cost/coverage
}

// Optimize 对已有草稿做目标导向优化
func (h *ScheduleHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, apperrors.New(apperrors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperrors.Wrap(err, apperrors.CodeInvalidInput, "解析请求失败"))
		return
	}
	draftID, err := uuid.Parse(req.DraftID)
	if err != nil {
		respondError(w, apperrors.Wrap(err, apperrors.CodeInvalidInput, "无效的草稿ID格式"))
		return
	}
	for _, goal := range req.Goals {
		switch goal {
		case engine.GoalFairness, engine.GoalCost, engine.GoalCoverage:
		default:
			respondError(w, apperrors.New(apperrors.CodeInvalidInput, "未知的优化目标: "+goal))
			return
		}
	}

	start := time.Now()
	result, optErr := h.engine.OptimizeExistingSchedule(r.Context(), draftID, req.Goals)
	if optErr != nil {
		respondError(w, optErr)
		return
	}

	respondJSON(w, http.StatusOK, GenerateResponse{
		Success:  true,
		Result:   result,
		Duration: time.Since(start).String(),
	})
}

// ExplainRequest 分配解释请求
type ExplainRequest struct {
	DraftID      string `json:"draft_id"`
	AssignmentID string `json:"assignment_id"`
}

// Explain 生成单条分配的解释
func (h *ScheduleHandler) Explain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, apperrors.New(apperrors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req ExplainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperrors.Wrap(err, apperrors.CodeInvalidInput, "解析请求失败"))
		return
	}
	draftID, err := uuid.Parse(req.DraftID)
	if err != nil {
		respondError(w, apperrors.Wrap(err, apperrors.CodeInvalidInput, "无效的草稿ID格式"))
		return
	}
	assignmentID, err := uuid.Parse(req.AssignmentID)
	if err != nil {
		respondError(w, apperrors.Wrap(err, apperrors.CodeInvalidInput, "无效的分配ID格式"))
		return
	}

	reasoning, expErr := h.engine.ExplainAssignment(r.Context(), draftID, assignmentID, h.aiEnabled)
	if expErr != nil {
		respondError(w, expErr)
		return
	}
	respondJSON(w, http.StatusOK, reasoning)
}

// respondJSON 返回JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError 返回错误响应
func respondError(w http.ResponseWriter, err error) {
	status := apperrors.GetHTTPStatus(err)

	body := map[string]interface{}{
		"success": false,
		"error": map[string]interface{}{
			"code":    apperrors.GetCode(err),
			"message": err.Error(),
		},
	}
	if appErr, ok := err.(*apperrors.AppError); ok {
		body["error"].(map[string]interface{})["message"] = appErr.Message
		if appErr.Details != "" {
			body["error"].(map[string]interface{})["details"] = appErr.Details
		}
	}
	respondJSON(w, status, body)
}
