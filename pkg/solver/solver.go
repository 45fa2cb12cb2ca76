package solver

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/zhipai/zhipai/pkg/logger"
	"github.com/zhipai/zhipai/pkg/model"
)

// 技能难度：越难招的技能越早排
var skillDifficulty = map[string]int{
	"management": 5,
	"chef":       4,
	"bartender":  3,
	"kitchen":    2,
	"server":     1,
	"host":       1,
}

// 候选人保留阈值：无效但得分高于该值的候选人仍可参与
const candidateScoreFloor = 0.6

// Solver 约束求解器
type Solver struct {
	logger  *logger.SolverLogger
	workers int
}

// New 创建约束求解器
func New() *Solver {
	return &Solver{
		logger:  logger.NewSolverLogger(),
		workers: 4,
	}
}

// SetWorkers 设置候选人评分并行度
func (s *Solver) SetWorkers(n int) {
	if n > 0 {
		s.workers = n
	}
}

// candidate 单个候选人的评分结果
type candidate struct {
	staff  *model.Staff
	result model.ValidationResult
}

// Solve 贪心生成排班分配
// 班次按（日期升序, 技能难度降序, 所需人数降序）排序后逐个分配；
// 分配循环严格串行——后续班次的公平性和工时输入依赖之前的分配结果
func (s *Solver) Solve(ctx context.Context, sctx *Context, draftID uuid.UUID) ([]*model.DraftAssignment, error) {
	if len(sctx.Staff) == 0 {
		return nil, fmt.Errorf("没有可用员工")
	}

	shifts := make([]*model.Shift, 0, len(sctx.Shifts))
	for _, sh := range sctx.Shifts {
		if sh.Assignable() {
			shifts = append(shifts, sh)
		}
	}

	sort.SliceStable(shifts, func(i, j int) bool {
		if shifts[i].Date != shifts[j].Date {
			return shifts[i].Date < shifts[j].Date
		}
		di, dj := skillDifficulty[shifts[i].RequiredSkill], skillDifficulty[shifts[j].RequiredSkill]
		if di != dj {
			return di > dj
		}
		return shifts[i].RequiredCount > shifts[j].RequiredCount
	})

	var assignments []*model.DraftAssignment

	for _, shift := range shifts {
		if err := ctx.Err(); err != nil {
			return assignments, err
		}

		required := shift.RequiredCount
		if required < 1 {
			required = 1
		}

		for slot := 0; slot < required; slot++ {
			best := s.pickBestCandidate(ctx, sctx, shift, assignments)
			if best == nil {
				s.logger.ShiftUnfilled(shift.ID.String(), shift.RequiredSkill, 0)
				break
			}

			assignments = append(assignments, &model.DraftAssignment{
				BaseModel:  model.NewBaseModel(),
				DraftID:    draftID,
				ShiftID:    shift.ID,
				StaffID:    best.staff.ID,
				Confidence: best.result.Score,
				Reasoning:  buildReasoning(best.staff, best.result),
			})
		}
	}

	return assignments, nil
}

// pickBestCandidate 为班次挑选得分最高的候选人
// 候选人评分在有界工作池中并行执行；输入快照不可变，结果按员工顺序归并保证确定性
func (s *Solver) pickBestCandidate(ctx context.Context, sctx *Context, shift *model.Shift, assignments []*model.DraftAssignment) *candidate {
	assigned := make(map[uuid.UUID]bool)
	for _, a := range assignments {
		if a.ShiftID == shift.ID {
			assigned[a.StaffID] = true
		}
	}

	var pool []*model.Staff
	for _, st := range sctx.Staff {
		if !st.IsActive || assigned[st.ID] {
			continue
		}
		pool = append(pool, st)
	}
	if len(pool) == 0 {
		return nil
	}

	results := make([]model.ValidationResult, len(pool))

	jobs := make(chan int, len(pool))
	var wg sync.WaitGroup
	workers := s.workers
	if workers > len(pool) {
		workers = len(pool)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				results[i] = ValidateAssignment(shift, pool[i], assignments, sctx)
			}
		}()
	}
	for i := range pool {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	var best *candidate
	for i, st := range pool {
		r := results[i]

		// 技能不匹配的候选人直接排除；其余要求有效或得分过阈值
		if r.Breakdown[DimSkillMatch] <= 0 {
			continue
		}
		if !r.IsValid && r.Score <= candidateScoreFloor {
			continue
		}

		if best == nil || r.Score > best.result.Score {
			best = &candidate{staff: st, result: r}
		}
	}

	return best
}

// buildReasoning 生成分配理由：列出最强的评分因素与首要违反
func buildReasoning(staff *model.Staff, result model.ValidationResult) string {
	type factor struct {
		name  string
		score float64
	}

	labels := map[string]string{
		DimSkillMatch:       "技能匹配",
		DimAvailability:     "时间可用",
		DimFairDistribution: "分配公平",
		DimMaxHours:         "工时余量",
		DimMinRest:          "休息充足",
		DimLaborCost:        "成本合理",
	}

	weights := map[string]float64{
		DimSkillMatch:       weightSkillMatch,
		DimAvailability:     weightAvailability,
		DimFairDistribution: weightFairDistribution,
		DimMaxHours:         weightMaxHours,
		DimMinRest:          weightMinRest,
		DimLaborCost:        weightLaborCost,
	}

	factors := make([]factor, 0, len(result.Breakdown))
	for name, score := range result.Breakdown {
		factors = append(factors, factor{name: name, score: score})
	}
	// 得分相同时权重高的维度更有说服力，优先出现在理由里
	sort.Slice(factors, func(i, j int) bool {
		if factors[i].score != factors[j].score {
			return factors[i].score > factors[j].score
		}
		if weights[factors[i].name] != weights[factors[j].name] {
			return weights[factors[i].name] > weights[factors[j].name]
		}
		return factors[i].name < factors[j].name
	})

	var parts []string
	for i, f := range factors {
		if i >= 3 || f.score < 0.7 {
			break
		}
		parts = append(parts, fmt.Sprintf("%s %.2f", labels[f.name], f.score))
	}

	reasoning := fmt.Sprintf("为 %s 分配（综合得分 %.2f）", staff.Name, result.Score)
	if len(parts) > 0 {
		reasoning += "：" + strings.Join(parts, "、")
	}
	if len(result.Violations) > 0 {
		reasoning += "；注意: " + result.Violations[0]
	}
	return reasoning
}
