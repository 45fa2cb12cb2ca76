// Package aiprovider 封装外部 AI 排班推荐服务的访问
// 服务不可用、超时或返回异常时调用方必须能够降级
package aiprovider

import (
	"context"

	"github.com/google/uuid"
	"github.com/zhipai/zhipai/pkg/model"
)

// Recommendation 单个班次的 AI 推荐结果
type Recommendation struct {
	StaffID      uuid.UUID   `json:"staff_id"`
	Confidence   float64     `json:"confidence"`
	Reasoning    string      `json:"reasoning"`
	Alternatives []uuid.UUID `json:"alternatives,omitempty"`
	RiskFactors  []string    `json:"risk_factors,omitempty"`
}

// HistoricalSummary 发送给推荐服务的历史排班摘要
type HistoricalSummary struct {
	TotalAssignments int                `json:"total_assignments"`
	CountByStaff     map[string]int     `json:"count_by_staff,omitempty"`
	HoursByStaff     map[string]float64 `json:"hours_by_staff,omitempty"`
}

// Provider AI 推荐服务接口
type Provider interface {
	GetRecommendations(
		ctx context.Context,
		shifts []*model.Shift,
		staff []*model.Staff,
		history *HistoricalSummary,
		strategy string,
	) (map[uuid.UUID]Recommendation, error)
}
