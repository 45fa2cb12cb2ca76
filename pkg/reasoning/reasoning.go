// Package reasoning 为排班分配生成人类可读的解释
package reasoning

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/zhipai/zhipai/pkg/logger"
	"github.com/zhipai/zhipai/pkg/model"
	"github.com/zhipai/zhipai/pkg/solver"
)

// relatedSkills 相关技能查找表：缺少直接技能时可参考的相近技能
var relatedSkills = map[string][]string{
	"chef":       {"kitchen"},
	"kitchen":    {"chef"},
	"bartender":  {"server"},
	"server":     {"host", "bartender"},
	"host":       {"server"},
	"management": {"chef", "server"},
}

// Enrichment AI 补充的解释内容
type Enrichment struct {
	Considerations []string `json:"considerations"`
	RiskFactors    []string `json:"risk_factors"`
}

// Enricher 可选的 AI 解释增强器
type Enricher interface {
	EnrichReasoning(ctx context.Context, shift *model.Shift, staff *model.Staff) (*Enrichment, error)
}

// Alternative 备选候选人（用于提升排班透明度）
type Alternative struct {
	StaffID uuid.UUID `json:"staff_id"`
	Name    string    `json:"name"`
	Note    string    `json:"note"`
}

// AssignmentReasoning 一条分配的完整解释
type AssignmentReasoning struct {
	PrimaryReasons []string      `json:"primary_reasons"`
	Considerations []string      `json:"considerations"`
	RiskFactors    []string      `json:"risk_factors"`
	Alternatives   []Alternative `json:"alternatives"`
	Confidence     float64       `json:"confidence"`
	Explanation    string        `json:"confidence_explanation"`
}

// Engine 解释生成引擎
type Engine struct {
	enricher Enricher
}

// New 创建解释生成引擎
func New() *Engine {
	return &Engine{}
}

// SetEnricher 注入 AI 解释增强器（可选）
func (e *Engine) SetEnricher(enricher Enricher) {
	e.enricher = enricher
}

// GenerateAssignmentReasoning 生成分配解释
// 规则判定完全确定；aiEnabled 时追加一次外部增强调用，失败静默忽略
func (e *Engine) GenerateAssignmentReasoning(
	ctx context.Context,
	shift *model.Shift,
	staff *model.Staff,
	assignment *model.DraftAssignment,
	sctx *solver.Context,
	aiEnabled bool,
) *AssignmentReasoning {
	r := &AssignmentReasoning{}

	e.explainSkill(r, shift, staff)

	result := solver.ValidateAssignment(shift, staff, nil, sctx)
	e.explainAvailability(r, result.Breakdown[solver.DimAvailability])
	e.explainReliability(r, staff)
	e.explainWorkload(r, staff, sctx)
	e.explainCost(r, shift, staff)
	e.explainHistoricalSuccess(r, staff)

	r.Alternatives = e.findAlternatives(shift, staff, sctx)

	if assignment != nil && assignment.Confidence > 0 {
		r.Confidence = assignment.Confidence
	} else {
		r.Confidence = result.Score
	}
	r.Explanation = GenerateConfidenceExplanation(r.Confidence)

	if aiEnabled && e.enricher != nil {
		if enrichment, err := e.enricher.EnrichReasoning(ctx, shift, staff); err == nil && enrichment != nil {
			r.Considerations = append(r.Considerations, enrichment.Considerations...)
			r.RiskFactors = append(r.RiskFactors, enrichment.RiskFactors...)
		} else if err != nil {
			logger.Debug().Err(err).Str("staff_id", staff.ID.String()).Msg("AI解释增强失败，使用规则解释")
		}
	}

	return r
}

// explainSkill 技能匹配解释：直接匹配、相关技能或缺失
func (e *Engine) explainSkill(r *AssignmentReasoning, shift *model.Shift, staff *model.Staff) {
	if staff.HasSkill(shift.RequiredSkill) {
		r.PrimaryReasons = append(r.PrimaryReasons,
			fmt.Sprintf("具备班次所需技能 '%s'", shift.RequiredSkill))
		return
	}

	for _, related := range relatedSkills[shift.RequiredSkill] {
		if staff.HasSkill(related) {
			r.Considerations = append(r.Considerations,
				fmt.Sprintf("具备相关技能 '%s'，可在指导下承担 '%s' 工作", related, shift.RequiredSkill))
			return
		}
	}

	r.RiskFactors = append(r.RiskFactors,
		fmt.Sprintf("缺少班次所需技能 '%s'", shift.RequiredSkill))
}

// explainAvailability 可用性分档解释
func (e *Engine) explainAvailability(r *AssignmentReasoning, score float64) {
	switch {
	case score >= 0.8:
		r.PrimaryReasons = append(r.PrimaryReasons, "班次时段与员工可用时间高度吻合")
	case score >= 0.6:
		r.Considerations = append(r.Considerations, "班次时段基本在员工可用时间内")
	default:
		r.RiskFactors = append(r.RiskFactors, "班次时段与员工可用时间存在冲突风险")
	}
}

// explainReliability 可靠性分档解释
func (e *Engine) explainReliability(r *AssignmentReasoning, staff *model.Staff) {
	switch {
	case staff.Reliability >= 8:
		r.PrimaryReasons = append(r.PrimaryReasons,
			fmt.Sprintf("可靠性评分优秀 (%.1f/10)", staff.Reliability))
	case staff.Reliability >= 6:
		r.Considerations = append(r.Considerations,
			fmt.Sprintf("可靠性评分良好 (%.1f/10)", staff.Reliability))
	default:
		r.RiskFactors = append(r.RiskFactors,
			fmt.Sprintf("可靠性评分偏低 (%.1f/10)，需关注出勤情况", staff.Reliability))
	}
}

// explainWorkload 工作量解释：按每班约8小时估算周工时
func (e *Engine) explainWorkload(r *AssignmentReasoning, staff *model.Staff, sctx *solver.Context) {
	count := len(sctx.ExistingFor(staff.ID))
	estimated := float64(count+1) * 8.0

	switch {
	case estimated <= 24:
		r.PrimaryReasons = append(r.PrimaryReasons, "当前工作量较轻，有充足排班余量")
	case estimated <= 40:
		r.Considerations = append(r.Considerations,
			fmt.Sprintf("预计周工时约 %.0f 小时，接近常规上限", estimated))
	default:
		r.RiskFactors = append(r.RiskFactors,
			fmt.Sprintf("预计周工时约 %.0f 小时，可能超出 40 小时上限", estimated))
	}
}

// explainCost 成本效率解释
func (e *Engine) explainCost(r *AssignmentReasoning, shift *model.Shift, staff *model.Staff) {
	rate := staff.HourlyRate
	if rate <= 0 {
		rate = shift.HourlyRate
	}
	if rate <= 0 {
		return
	}

	switch {
	case rate <= 15:
		r.PrimaryReasons = append(r.PrimaryReasons,
			fmt.Sprintf("时薪 $%.0f 成本效率高", rate))
	case rate <= 20:
		r.Considerations = append(r.Considerations,
			fmt.Sprintf("时薪 $%.0f 处于中等水平", rate))
	default:
		r.Considerations = append(r.Considerations,
			fmt.Sprintf("时薪 $%.0f 偏高，适合关键班次", rate))
	}
}

// explainHistoricalSuccess 历史成功率解释（以可靠性评分为代理指标）
func (e *Engine) explainHistoricalSuccess(r *AssignmentReasoning, staff *model.Staff) {
	var rate int
	switch {
	case staff.Reliability >= 7:
		rate = 95
	case staff.Reliability >= 5:
		rate = 80
	default:
		rate = 65
	}

	if rate >= 90 {
		r.PrimaryReasons = append(r.PrimaryReasons,
			fmt.Sprintf("历史排班完成率约 %d%%", rate))
	} else {
		r.Considerations = append(r.Considerations,
			fmt.Sprintf("历史排班完成率约 %d%%", rate))
	}
}

// findAlternatives 找出最多2名其他合格候选人
func (e *Engine) findAlternatives(shift *model.Shift, chosen *model.Staff, sctx *solver.Context) []Alternative {
	var alternatives []Alternative
	for _, st := range sctx.Staff {
		if len(alternatives) >= 2 {
			break
		}
		if st.ID == chosen.ID || !st.IsActive || !st.HasSkill(shift.RequiredSkill) {
			continue
		}
		alternatives = append(alternatives, Alternative{
			StaffID: st.ID,
			Name:    st.Name,
			Note:    fmt.Sprintf("同样具备 '%s' 技能，可靠性 %.1f/10", shift.RequiredSkill, st.Reliability),
		})
	}
	return alternatives
}

// GenerateConfidenceExplanation 把置信度映射为一句话结论
func GenerateConfidenceExplanation(score float64) string {
	switch {
	case score >= 0.9:
		return "极佳匹配：各项评分全面满足，可直接采用"
	case score >= 0.8:
		return "优秀匹配：主要条件均满足，建议采用"
	case score >= 0.7:
		return "良好匹配：整体合适，个别维度略有折衷"
	case score >= 0.6:
		return "可接受匹配：满足基本要求，建议复核细节"
	case score >= 0.5:
		return "边缘匹配：存在明显折衷，建议寻找替代方案"
	default:
		return "匹配度低：存在严重冲突，建议人工重新安排"
	}
}
