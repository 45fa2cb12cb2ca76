package engine

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/zhipai/zhipai/pkg/aiprovider"
	apperrors "github.com/zhipai/zhipai/pkg/errors"
	"github.com/zhipai/zhipai/pkg/model"
	"github.com/zhipai/zhipai/pkg/recovery"
	"github.com/zhipai/zhipai/pkg/solver"
)

func newTestContext(t *testing.T, staff []*model.Staff, shifts []*model.Shift) *solver.Context {
	t.Helper()
	sctx := solver.NewContext(uuid.New(), model.DateRange{StartDate: "2026-03-01", EndDate: "2026-03-07"})
	sctx.SetStaff(staff)
	sctx.SetShifts(shifts)
	sctx.SnapshotFairBaseline()
	return sctx
}

// fakeRepo 内存版数据访问实现
type fakeRepo struct {
	shifts      []*model.Shift
	staff       []*model.Staff
	constraints []*model.Constraint
	prefs       []*model.Preference
	existing    []*model.DraftAssignment

	drafts     map[uuid.UUID]*model.ScheduleDraft
	saved      map[uuid.UUID][]*model.DraftAssignment
	lastStatus model.DraftStatus
	lastScore  float64
	failSave   bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		drafts: make(map[uuid.UUID]*model.ScheduleDraft),
		saved:  make(map[uuid.UUID][]*model.DraftAssignment),
	}
}

func (f *fakeRepo) CreateDraft(ctx context.Context, draft *model.ScheduleDraft) error {
	f.drafts[draft.ID] = draft
	return nil
}

func (f *fakeRepo) GetDraft(ctx context.Context, draftID uuid.UUID) (*model.ScheduleDraft, error) {
	return f.drafts[draftID], nil
}

func (f *fakeRepo) ListShifts(ctx context.Context, businessID uuid.UUID, dateRange model.DateRange, statusIn []model.ShiftStatus) ([]*model.Shift, error) {
	return f.shifts, nil
}

func (f *fakeRepo) ListActiveStaff(ctx context.Context, businessID uuid.UUID) ([]*model.Staff, error) {
	return f.staff, nil
}

func (f *fakeRepo) ListConstraints(ctx context.Context, businessID uuid.UUID) ([]*model.Constraint, error) {
	return f.constraints, nil
}

func (f *fakeRepo) ListPreferences(ctx context.Context, staffIDs []uuid.UUID, asOf string) ([]*model.Preference, error) {
	return f.prefs, nil
}

func (f *fakeRepo) ListExistingAssignments(ctx context.Context, businessID uuid.UUID, dateRange model.DateRange) ([]*model.DraftAssignment, error) {
	return f.existing, nil
}

func (f *fakeRepo) ListDraftAssignments(ctx context.Context, draftID uuid.UUID) ([]*model.DraftAssignment, error) {
	return f.saved[draftID], nil
}

func (f *fakeRepo) SaveAssignments(ctx context.Context, assignments []*model.DraftAssignment) error {
	if f.failSave {
		return errors.New("存储不可用")
	}
	for _, a := range assignments {
		f.saved[a.DraftID] = append(f.saved[a.DraftID], a)
	}
	return nil
}

func (f *fakeRepo) UpdateDraftConfidence(ctx context.Context, draftID uuid.UUID, confidence float64, status model.DraftStatus) error {
	f.lastScore = confidence
	f.lastStatus = status
	if d, ok := f.drafts[draftID]; ok {
		d.Confidence = confidence
		d.Status = status
	}
	return nil
}

type fakeProvider struct {
	recommendations map[uuid.UUID]aiprovider.Recommendation
	err             error
}

func (f *fakeProvider) GetRecommendations(ctx context.Context, shifts []*model.Shift, staff []*model.Staff, history *aiprovider.HistoricalSummary, strategy string) (map[uuid.UUID]aiprovider.Recommendation, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.recommendations, nil
}

func testShift(date string, skill string, count int) *model.Shift {
	day, _ := time.Parse("2006-01-02", date)
	return &model.Shift{
		BaseModel:     model.NewBaseModel(),
		Date:          date,
		StartTime:     time.Date(day.Year(), day.Month(), day.Day(), 9, 0, 0, 0, time.UTC),
		EndTime:       time.Date(day.Year(), day.Month(), day.Day(), 17, 0, 0, 0, time.UTC),
		RequiredSkill: skill,
		RequiredCount: count,
		HourlyRate:    15,
		Status:        model.ShiftScheduled,
	}
}

func testStaff(name string, skills ...string) *model.Staff {
	return &model.Staff{
		BaseModel:   model.NewBaseModel(),
		Name:        name,
		IsActive:    true,
		Skills:      skills,
		HourlyRate:  15,
		Reliability: 8,
	}
}

func testParams() GenerateParams {
	return GenerateParams{
		BusinessID: uuid.New(),
		DateRange:  model.DateRange{StartDate: "2026-03-01", EndDate: "2026-03-07"},
	}
}

func TestGenerateSchedule_规则排班(t *testing.T) {
	repo := newFakeRepo()
	repo.shifts = []*model.Shift{
		testShift("2026-03-02", "chef", 1),
		testShift("2026-03-02", "server", 1),
	}
	repo.staff = []*model.Staff{testStaff("老王", "chef"), testStaff("小李", "server")}

	e := New(repo, recovery.NewHandler())
	result, err := e.GenerateSchedule(context.Background(), testParams(), "balanced")
	if err != nil {
		t.Fatalf("GenerateSchedule() 返回错误: %v", err)
	}

	if result.Tier != TierRuleBased {
		t.Errorf("层级 = %s，期望 %s", result.Tier, TierRuleBased)
	}
	if len(result.Assignments) != 2 {
		t.Errorf("分配数 = %d，期望 2", len(result.Assignments))
	}
	if result.OverallConfidence <= 0 || result.OverallConfidence > 1 {
		t.Errorf("整体置信度越界: %.4f", result.OverallConfidence)
	}
	if repo.lastStatus != model.DraftCompleted {
		t.Errorf("草稿状态 = %s，期望 %s", repo.lastStatus, model.DraftCompleted)
	}
	if result.Summary == nil || result.Summary.AssignmentCount != 2 {
		t.Error("摘要缺失或分配计数错误")
	}
	if len(result.Recommendations) == 0 {
		t.Error("结果应包含改进建议")
	}
}

func TestGenerateSchedule_无班次(t *testing.T) {
	repo := newFakeRepo()
	repo.staff = []*model.Staff{testStaff("老王", "chef")}

	e := New(repo, recovery.NewHandler())
	_, err := e.GenerateSchedule(context.Background(), testParams(), "balanced")
	if err == nil {
		t.Fatal("无待排班次时应返回错误")
	}
	if apperrors.GetCode(err) != apperrors.CodeNoShifts {
		t.Errorf("错误码 = %s，期望 %s", apperrors.GetCode(err), apperrors.CodeNoShifts)
	}
	if repo.lastStatus != model.DraftFailed {
		t.Errorf("失败时草稿状态应为 %s，实际 %s", model.DraftFailed, repo.lastStatus)
	}
}

func TestGenerateSchedule_无可用员工(t *testing.T) {
	repo := newFakeRepo()
	repo.shifts = []*model.Shift{testShift("2026-03-02", "chef", 1)}

	e := New(repo, recovery.NewHandler())
	_, err := e.GenerateSchedule(context.Background(), testParams(), "balanced")
	if err == nil {
		t.Fatal("无可用员工时应返回错误")
	}
	if apperrors.GetCode(err) != apperrors.CodeInsufficientStaff {
		t.Errorf("错误码 = %s，期望 %s", apperrors.GetCode(err), apperrors.CodeInsufficientStaff)
	}
}

func TestGenerateSchedule_AI融合(t *testing.T) {
	shift := testShift("2026-03-02", "server", 1)
	staff := testStaff("小李", "server")

	repo := newFakeRepo()
	repo.shifts = []*model.Shift{shift}
	repo.staff = []*model.Staff{staff}

	e := New(repo, recovery.NewHandler())
	e.SetProvider(&fakeProvider{recommendations: map[uuid.UUID]aiprovider.Recommendation{
		shift.ID: {StaffID: staff.ID, Confidence: 0.95, Reasoning: "历史表现优秀"},
	}})

	params := testParams()
	params.AIEnabled = true
	result, err := e.GenerateSchedule(context.Background(), params, "balanced")
	if err != nil {
		t.Fatalf("GenerateSchedule() 返回错误: %v", err)
	}

	if result.Tier != TierAIAssisted {
		t.Errorf("层级 = %s，期望 %s", result.Tier, TierAIAssisted)
	}
	a := result.Assignments[0]
	if !a.IsAIGenerated {
		t.Error("融合后的分配应标记为 AI 生成")
	}
	if a.Confidence <= 0 || a.Confidence > 1 {
		t.Errorf("融合置信度越界: %.4f", a.Confidence)
	}
}

func TestGenerateSchedule_AI失败降级(t *testing.T) {
	repo := newFakeRepo()
	repo.shifts = []*model.Shift{testShift("2026-03-02", "server", 1)}
	repo.staff = []*model.Staff{testStaff("小李", "server")}

	e := New(repo, recovery.NewHandler())
	e.SetProvider(&fakeProvider{err: apperrors.AIService("超时")})

	params := testParams()
	params.AIEnabled = true
	result, err := e.GenerateSchedule(context.Background(), params, "balanced")
	if err != nil {
		t.Fatalf("AI失败时应降级而非报错: %v", err)
	}

	if result.Tier != TierRuleBased {
		t.Errorf("层级 = %s，期望 %s", result.Tier, TierRuleBased)
	}
	a := result.Assignments[0]
	if a.Confidence != 0.6 {
		t.Errorf("降级置信度 = %.2f，期望 0.6", a.Confidence)
	}
	if a.IsAIGenerated {
		t.Error("降级分配不应标记为 AI 生成")
	}
	if a.Reasoning != "规则排班（AI 降级）" {
		t.Errorf("降级理由错误: %s", a.Reasoning)
	}
}

func TestGenerateSchedule_保存失败(t *testing.T) {
	repo := newFakeRepo()
	repo.shifts = []*model.Shift{testShift("2026-03-02", "server", 1)}
	repo.staff = []*model.Staff{testStaff("小李", "server")}
	repo.failSave = true

	e := New(repo, recovery.NewHandler())
	_, err := e.GenerateSchedule(context.Background(), testParams(), "balanced")
	if err == nil {
		t.Fatal("保存失败时应返回错误")
	}
	if apperrors.GetCode(err) != apperrors.CodeDatabase {
		t.Errorf("错误码 = %s，期望 %s", apperrors.GetCode(err), apperrors.CodeDatabase)
	}
	if repo.lastStatus != model.DraftFailed {
		t.Errorf("保存失败后草稿状态应为 %s，实际 %s", model.DraftFailed, repo.lastStatus)
	}
}

func TestMinimalAssignment_不重复占用(t *testing.T) {
	shiftA := testShift("2026-03-02", "server", 1)
	shiftB := testShift("2026-03-02", "server", 1)
	staff := testStaff("小李", "server")

	repo := newFakeRepo()
	e := New(repo, recovery.NewHandler())

	sctx := newTestContext(t, []*model.Staff{staff}, []*model.Shift{shiftA, shiftB})
	assignments := e.minimalAssignment(sctx, uuid.New())

	if len(assignments) != 1 {
		t.Fatalf("单个员工只能占用一个班次，实际 %d 条分配", len(assignments))
	}
	if assignments[0].Confidence != minimalConfidence {
		t.Errorf("兜底置信度 = %.2f，期望 %.2f", assignments[0].Confidence, minimalConfidence)
	}
}

func TestOptimizeExistingSchedule(t *testing.T) {
	shift := testShift("2026-03-02", "server", 1)
	staff := testStaff("小李", "server")

	repo := newFakeRepo()
	repo.shifts = []*model.Shift{shift}
	repo.staff = []*model.Staff{staff}

	e := New(repo, recovery.NewHandler())

	generated, err := e.GenerateSchedule(context.Background(), testParams(), "balanced")
	if err != nil {
		t.Fatalf("GenerateSchedule() 返回错误: %v", err)
	}

	result, err := e.OptimizeExistingSchedule(context.Background(), generated.DraftID, []string{GoalFairness})
	if err != nil {
		t.Fatalf("OptimizeExistingSchedule() 返回错误: %v", err)
	}

	if result.DraftID != generated.DraftID {
		t.Error("优化结果的草稿ID不一致")
	}
	if result.OverallConfidence <= 0 || result.OverallConfidence > 1 {
		t.Errorf("优化后置信度越界: %.4f", result.OverallConfidence)
	}
}

func TestOptimizeExistingSchedule_满载班表不误判超限(t *testing.T) {
	shift := testShift("2026-03-02", "server", 1) // 8 小时班次
	staff := testStaff("小李", "server")

	repo := newFakeRepo()
	repo.shifts = []*model.Shift{shift}
	repo.staff = []*model.Staff{staff}
	// 周工时上限恰好等于班次时长：草稿满载但未超限
	repo.constraints = []*model.Constraint{{
		BaseModel: model.NewBaseModel(),
		Spec:      model.MaxHoursPerWeekSpec{Hours: 8},
		Priority:  model.PriorityHigh,
		IsActive:  true,
	}}

	e := New(repo, recovery.NewHandler())
	generated, err := e.GenerateSchedule(context.Background(), testParams(), "balanced")
	if err != nil {
		t.Fatalf("GenerateSchedule() 返回错误: %v", err)
	}
	before := generated.Assignments[0].Confidence

	result, err := e.OptimizeExistingSchedule(context.Background(), generated.DraftID, nil)
	if err != nil {
		t.Fatalf("OptimizeExistingSchedule() 返回错误: %v", err)
	}

	if len(result.Assignments) != 1 {
		t.Fatalf("满载但合法的分配不应被移除，实际 %d 条", len(result.Assignments))
	}
	// 重评分的输入与生成时一致，置信度应保持不变
	if math.Abs(result.Assignments[0].Confidence-before) > 1e-9 {
		t.Errorf("重评后置信度 %.4f，期望与生成时的 %.4f 一致",
			result.Assignments[0].Confidence, before)
	}
	for _, w := range result.Warnings {
		t.Errorf("不应产生违反警告: %s", w)
	}
}

func TestGenerateSchedule_关闭恢复策略(t *testing.T) {
	repo := newFakeRepo()
	repo.shifts = []*model.Shift{testShift("2026-03-02", "server", 1)}
	repo.staff = []*model.Staff{testStaff("小李", "server")}

	rh := recovery.NewHandler()
	e := New(repo, rh)
	e.SetEnableFallback(false)
	e.SetProvider(&fakeProvider{err: apperrors.AIService("超时")})

	params := testParams()
	params.AIEnabled = true
	result, err := e.GenerateSchedule(context.Background(), params, "balanced")
	if err != nil {
		t.Fatalf("AI失败时应降级而非报错: %v", err)
	}
	if result.Tier != TierRuleBased {
		t.Errorf("层级 = %s，期望 %s", result.Tier, TierRuleBased)
	}

	records := rh.RecentRecords(1)
	if len(records) != 1 {
		t.Fatalf("应记录 1 条错误，实际 %d 条", len(records))
	}
	if records[0].Resolved {
		t.Error("关闭恢复策略后错误记录不应标记为已恢复")
	}
}

func TestGenerateSchedule_残留约束违反上报(t *testing.T) {
	repo := newFakeRepo()
	repo.shifts = []*model.Shift{testShift("2026-03-02", "server", 1)}
	repo.staff = []*model.Staff{testStaff("小李", "server")}
	// 关键优先级的最少人数约束无法满足：每班至少 2 人但只有 1 名员工
	repo.constraints = []*model.Constraint{{
		BaseModel: model.NewBaseModel(),
		Spec:      model.MinStaffPerShiftSpec{Count: 2},
		Priority:  model.PriorityCritical,
		IsActive:  true,
	}}

	rh := recovery.NewHandler()
	e := New(repo, rh)
	result, err := e.GenerateSchedule(context.Background(), testParams(), "balanced")
	if err != nil {
		t.Fatalf("GenerateSchedule() 返回错误: %v", err)
	}
	if len(result.Warnings) == 0 {
		t.Error("残留违反应出现在结果警告中")
	}

	records := rh.RecentRecords(1)
	if len(records) != 1 {
		t.Fatalf("应记录 1 条错误，实际 %d 条", len(records))
	}
	if records[0].Category != recovery.CategoryConstraintViolation {
		t.Errorf("错误类别 = %s，期望 %s", records[0].Category, recovery.CategoryConstraintViolation)
	}
}

func TestOptimizeExistingSchedule_草稿不存在(t *testing.T) {
	e := New(newFakeRepo(), recovery.NewHandler())

	_, err := e.OptimizeExistingSchedule(context.Background(), uuid.New(), nil)
	if err == nil {
		t.Fatal("草稿不存在时应返回错误")
	}
	if apperrors.GetCode(err) != apperrors.CodeNotFound {
		t.Errorf("错误码 = %s，期望 %s", apperrors.GetCode(err), apperrors.CodeNotFound)
	}
}
