package engine

import (
	"context"

	"github.com/google/uuid"
	"github.com/zhipai/zhipai/pkg/model"
)

// Repository 排班引擎需要的数据访问接口
// 实现方负责持久化细节；SaveAssignments 必须按 (draft_id, shift_id, staff_id) 幂等
type Repository interface {
	CreateDraft(ctx context.Context, draft *model.ScheduleDraft) error
	GetDraft(ctx context.Context, draftID uuid.UUID) (*model.ScheduleDraft, error)

	ListShifts(ctx context.Context, businessID uuid.UUID, dateRange model.DateRange, statusIn []model.ShiftStatus) ([]*model.Shift, error)
	ListActiveStaff(ctx context.Context, businessID uuid.UUID) ([]*model.Staff, error)
	ListConstraints(ctx context.Context, businessID uuid.UUID) ([]*model.Constraint, error)
	ListPreferences(ctx context.Context, staffIDs []uuid.UUID, asOf string) ([]*model.Preference, error)
	ListExistingAssignments(ctx context.Context, businessID uuid.UUID, dateRange model.DateRange) ([]*model.DraftAssignment, error)
	ListDraftAssignments(ctx context.Context, draftID uuid.UUID) ([]*model.DraftAssignment, error)

	SaveAssignments(ctx context.Context, assignments []*model.DraftAssignment) error
	UpdateDraftConfidence(ctx context.Context, draftID uuid.UUID, confidence float64, status model.DraftStatus) error
}
