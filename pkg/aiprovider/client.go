package aiprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	apperrors "github.com/zhipai/zhipai/pkg/errors"
	"github.com/zhipai/zhipai/pkg/logger"
	"github.com/zhipai/zhipai/pkg/model"
	"github.com/zhipai/zhipai/pkg/reasoning"
)

// Config AI 推荐服务客户端配置
type Config struct {
	BaseURL string        `json:"base_url"`
	APIKey  string        `json:"-"`
	Timeout time.Duration `json:"timeout"`

	// 熔断参数
	MaxRequests      uint32        `json:"max_requests"`      // 半开状态允许的请求数
	Interval         time.Duration `json:"interval"`          // 关闭状态的计数周期
	BreakDuration    time.Duration `json:"break_duration"`    // 开启状态的持续时间
	FailureThreshold uint32        `json:"failure_threshold"` // 连续失败多少次后熔断
}

// DefaultConfig 返回默认客户端配置
func DefaultConfig() Config {
	return Config{
		Timeout:          15 * time.Second,
		MaxRequests:      3,
		Interval:         10 * time.Second,
		BreakDuration:    30 * time.Second,
		FailureThreshold: 5,
	}
}

// Client 带熔断保护的 HTTP 推荐服务客户端
type Client struct {
	cfg     Config
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[map[uuid.UUID]Recommendation]
}

// NewClient 创建推荐服务客户端
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultConfig().FailureThreshold
	}

	settings := gobreaker.Settings{
		Name:        "ai-recommender",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.BreakDuration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("AI服务熔断器状态变化")
		},
	}

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: gobreaker.NewCircuitBreaker[map[uuid.UUID]Recommendation](settings),
	}
}

type recommendRequest struct {
	Shifts   []*model.Shift     `json:"shifts"`
	Staff    []*model.Staff     `json:"staff"`
	History  *HistoricalSummary `json:"history,omitempty"`
	Strategy string             `json:"strategy"`
}

type recommendResponse struct {
	Recommendations map[string]Recommendation `json:"recommendations"`
}

// GetRecommendations 请求外部推荐服务
// 熔断开启时立即返回 AI_SERVICE_ERROR，不发起网络请求
func (c *Client) GetRecommendations(
	ctx context.Context,
	shifts []*model.Shift,
	staff []*model.Staff,
	history *HistoricalSummary,
	strategy string,
) (map[uuid.UUID]Recommendation, error) {
	if c.cfg.BaseURL == "" {
		return nil, apperrors.AIService("未配置推荐服务地址")
	}

	result, err := c.breaker.Execute(func() (map[uuid.UUID]Recommendation, error) {
		return c.doRecommend(ctx, &recommendRequest{
			Shifts:   shifts,
			Staff:    staff,
			History:  history,
			Strategy: strategy,
		})
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return nil, apperrors.AIService("熔断器开启，推荐服务暂不可用").WithCause(err)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) doRecommend(ctx context.Context, req *recommendRequest) (map[uuid.UUID]Recommendation, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, apperrors.AIService("推荐请求序列化失败").WithCause(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/recommendations", bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.AIService("构造推荐请求失败").WithCause(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, apperrors.AIService("推荐服务请求失败").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, apperrors.AIService(fmt.Sprintf("推荐服务返回 %d: %s", resp.StatusCode, payload))
	}

	var decoded recommendResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, apperrors.AIService("推荐结果解析失败").WithCause(err)
	}

	result := make(map[uuid.UUID]Recommendation, len(decoded.Recommendations))
	for key, rec := range decoded.Recommendations {
		shiftID, err := uuid.Parse(key)
		if err != nil {
			continue // 跳过无法识别的键
		}
		if rec.Confidence < 0 || rec.Confidence > 1 {
			return nil, apperrors.AIService(fmt.Sprintf("推荐置信度越界: %.4f", rec.Confidence))
		}
		result[shiftID] = rec
	}
	return result, nil
}

type enrichRequest struct {
	Shift *model.Shift `json:"shift"`
	Staff *model.Staff `json:"staff"`
}

// EnrichReasoning 请求 AI 对解释内容做补充
func (c *Client) EnrichReasoning(ctx context.Context, shift *model.Shift, staff *model.Staff) (*reasoning.Enrichment, error) {
	if c.cfg.BaseURL == "" {
		return nil, apperrors.AIService("未配置推荐服务地址")
	}

	body, err := json.Marshal(&enrichRequest{Shift: shift, Staff: staff})
	if err != nil {
		return nil, apperrors.AIService("解释增强请求序列化失败").WithCause(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/reasoning", bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.AIService("构造解释增强请求失败").WithCause(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, apperrors.AIService("解释增强请求失败").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.AIService(fmt.Sprintf("解释增强服务返回 %d", resp.StatusCode))
	}

	var enrichment reasoning.Enrichment
	if err := json.NewDecoder(resp.Body).Decode(&enrichment); err != nil {
		return nil, apperrors.AIService("解释增强结果解析失败").WithCause(err)
	}
	return &enrichment, nil
}
