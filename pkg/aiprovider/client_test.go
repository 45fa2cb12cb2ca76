package aiprovider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/zhipai/zhipai/pkg/errors"
	"github.com/zhipai/zhipai/pkg/model"
)

func testShift() *model.Shift {
	day, _ := time.Parse("2006-01-02", "2026-03-02")
	return &model.Shift{
		BaseModel:     model.NewBaseModel(),
		Date:          "2026-03-02",
		StartTime:     time.Date(day.Year(), day.Month(), day.Day(), 9, 0, 0, 0, time.UTC),
		EndTime:       time.Date(day.Year(), day.Month(), day.Day(), 17, 0, 0, 0, time.UTC),
		RequiredSkill: "server",
		RequiredCount: 1,
		Status:        model.ShiftScheduled,
	}
}

func testStaff() *model.Staff {
	return &model.Staff{
		BaseModel: model.NewBaseModel(),
		Name:      "小李",
		IsActive:  true,
		Skills:    []string{"server"},
	}
}

func TestClient_GetRecommendations_成功(t *testing.T) {
	shift := testShift()
	staff := testStaff()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/recommendations" {
			t.Errorf("请求路径错误: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"recommendations":{"` + shift.ID.String() + `":{"staff_id":"` + staff.ID.String() + `","confidence":0.85,"reasoning":"AI推荐"}}}`))
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	client := NewClient(cfg)

	result, err := client.GetRecommendations(context.Background(),
		[]*model.Shift{shift}, []*model.Staff{staff}, nil, "balanced")
	if err != nil {
		t.Fatalf("GetRecommendations() 返回错误: %v", err)
	}

	rec, ok := result[shift.ID]
	if !ok {
		t.Fatal("结果中缺少班次推荐")
	}
	if rec.StaffID != staff.ID {
		t.Errorf("推荐员工错误: %s", rec.StaffID)
	}
	if rec.Confidence != 0.85 {
		t.Errorf("置信度错误: %.2f", rec.Confidence)
	}
}

func TestClient_GetRecommendations_置信度越界(t *testing.T) {
	shift := testShift()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"recommendations":{"` + shift.ID.String() + `":{"staff_id":"` + uuid.NewString() + `","confidence":1.5}}}`))
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	client := NewClient(cfg)

	_, err := client.GetRecommendations(context.Background(), []*model.Shift{shift}, nil, nil, "balanced")
	if err == nil {
		t.Fatal("越界置信度应返回错误")
	}
	if apperrors.GetCode(err) != apperrors.CodeAIService {
		t.Errorf("错误码应为 %s，实际 %s", apperrors.CodeAIService, apperrors.GetCode(err))
	}
}

func TestClient_GetRecommendations_服务端错误(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	client := NewClient(cfg)

	_, err := client.GetRecommendations(context.Background(), []*model.Shift{testShift()}, nil, nil, "balanced")
	if err == nil {
		t.Fatal("服务端 500 应返回错误")
	}
	if apperrors.GetCode(err) != apperrors.CodeAIService {
		t.Errorf("错误码应为 %s，实际 %s", apperrors.CodeAIService, apperrors.GetCode(err))
	}
}

func TestClient_GetRecommendations_熔断开启(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.FailureThreshold = 2
	client := NewClient(cfg)

	shifts := []*model.Shift{testShift()}

	// 连续失败触发熔断
	for i := 0; i < 3; i++ {
		client.GetRecommendations(context.Background(), shifts, nil, nil, "balanced")
	}

	_, err := client.GetRecommendations(context.Background(), shifts, nil, nil, "balanced")
	if err == nil {
		t.Fatal("熔断开启后应返回错误")
	}
	if apperrors.GetCode(err) != apperrors.CodeAIService {
		t.Errorf("错误码应为 %s，实际 %s", apperrors.CodeAIService, apperrors.GetCode(err))
	}
}

func TestClient_未配置地址(t *testing.T) {
	client := NewClient(DefaultConfig())

	if _, err := client.GetRecommendations(context.Background(), nil, nil, nil, "balanced"); err == nil {
		t.Error("未配置服务地址时应返回错误")
	}
	if _, err := client.EnrichReasoning(context.Background(), testShift(), testStaff()); err == nil {
		t.Error("未配置服务地址时解释增强应返回错误")
	}
}

type stubProvider struct {
	calls  int
	result map[uuid.UUID]Recommendation
}

func (s *stubProvider) GetRecommendations(ctx context.Context, shifts []*model.Shift, staff []*model.Staff, history *HistoricalSummary, strategy string) (map[uuid.UUID]Recommendation, error) {
	s.calls++
	return s.result, nil
}

func TestCache_无Redis时透传(t *testing.T) {
	shift := testShift()
	stub := &stubProvider{result: map[uuid.UUID]Recommendation{
		shift.ID: {StaffID: uuid.New(), Confidence: 0.8},
	}}

	cache := NewCache(stub, nil, time.Minute)

	result, err := cache.GetRecommendations(context.Background(), []*model.Shift{shift}, nil, nil, "balanced")
	if err != nil {
		t.Fatalf("GetRecommendations() 返回错误: %v", err)
	}
	if len(result) != 1 {
		t.Errorf("期望 1 条推荐，实际 %d 条", len(result))
	}
	if stub.calls != 1 {
		t.Errorf("内层 Provider 应被调用 1 次，实际 %d 次", stub.calls)
	}
}

func TestCache_缓存键稳定(t *testing.T) {
	cache := NewCache(&stubProvider{}, nil, time.Minute)

	shiftA := testShift()
	shiftB := testShift()

	key1 := cache.cacheKey([]*model.Shift{shiftA, shiftB}, nil, "balanced")
	key2 := cache.cacheKey([]*model.Shift{shiftB, shiftA}, nil, "balanced")
	if key1 != key2 {
		t.Error("班次顺序不同时缓存键应一致")
	}

	key3 := cache.cacheKey([]*model.Shift{shiftA, shiftB}, nil, "cost_first")
	if key1 == key3 {
		t.Error("不同策略的缓存键应不同")
	}
}
