package stats

import (
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/zhipai/zhipai/pkg/model"
)

// 分配数超过平均值该倍数的员工被标记为离群
const outlierFactor = 1.5

// StaffLoad 单个员工的负载统计
type StaffLoad struct {
	StaffID   uuid.UUID `json:"staff_id"`
	Name      string    `json:"name"`
	Count     int       `json:"count"`
	Hours     float64   `json:"hours"`
	Deviation float64   `json:"deviation"` // 与平均分配数的偏差百分比
	IsOutlier bool      `json:"is_outlier"`
}

// FairnessMetrics 公平性指标
type FairnessMetrics struct {
	AvgCount     float64     `json:"avg_count"`
	AvgHours     float64     `json:"avg_hours"`
	WorkloadGini float64     `json:"workload_gini"` // 0=完全公平
	StaffLoads   []StaffLoad `json:"staff_loads"`
	Outliers     []uuid.UUID `json:"outliers,omitempty"`
}

// AnalyzeFairness 分析分配集在员工间的均衡性
// 分配数 > 1.5×平均值的员工被标记为离群
func AnalyzeFairness(staff []*model.Staff, shifts []*model.Shift, assignments []*model.DraftAssignment) *FairnessMetrics {
	metrics := &FairnessMetrics{}
	if len(staff) == 0 {
		return metrics
	}

	shiftMap := make(map[uuid.UUID]*model.Shift, len(shifts))
	for _, sh := range shifts {
		shiftMap[sh.ID] = sh
	}

	counts := make(map[uuid.UUID]int)
	hours := make(map[uuid.UUID]float64)
	for _, a := range assignments {
		counts[a.StaffID]++
		if sh := shiftMap[a.ShiftID]; sh != nil {
			hours[a.StaffID] += sh.Hours()
		}
	}

	metrics.AvgCount = float64(len(assignments)) / float64(len(staff))

	var totalHours float64
	hourValues := make([]float64, 0, len(staff))
	for _, st := range staff {
		totalHours += hours[st.ID]
		hourValues = append(hourValues, hours[st.ID])
	}
	metrics.AvgHours = totalHours / float64(len(staff))
	metrics.WorkloadGini = gini(hourValues)

	for _, st := range staff {
		load := StaffLoad{
			StaffID: st.ID,
			Name:    st.Name,
			Count:   counts[st.ID],
			Hours:   hours[st.ID],
		}
		if metrics.AvgCount > 0 {
			load.Deviation = (float64(load.Count) - metrics.AvgCount) / metrics.AvgCount * 100
		}
		if float64(load.Count) > outlierFactor*metrics.AvgCount && load.Count > 1 {
			load.IsOutlier = true
			metrics.Outliers = append(metrics.Outliers, st.ID)
		}
		metrics.StaffLoads = append(metrics.StaffLoads, load)
	}

	sort.Slice(metrics.StaffLoads, func(i, j int) bool {
		return metrics.StaffLoads[i].Count > metrics.StaffLoads[j].Count
	})

	return metrics
}

// gini 计算基尼系数（0=完全公平，1=完全不公平）
func gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum, weighted float64
	for i, v := range sorted {
		sum += v
		weighted += float64(i+1) * v
	}
	if sum == 0 {
		return 0
	}

	return math.Abs((2*weighted)/(float64(n)*sum) - float64(n+1)/float64(n))
}
