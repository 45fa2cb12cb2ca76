package recovery

import "time"

// Statistics 错误统计汇总
type Statistics struct {
	WindowHours    int              `json:"window_hours"`
	Total          int              `json:"total"`
	ByCategory     map[Category]int `json:"by_category"`
	BySeverity     map[Severity]int `json:"by_severity"`
	Resolved       int              `json:"resolved"`
	ResolutionRate float64          `json:"resolution_rate"`
}

// GetErrorStatistics 统计最近 hours 小时内的错误记录
func (h *Handler) GetErrorStatistics(hours int) *Statistics {
	if hours <= 0 {
		hours = 24
	}
	cutoff := time.Now().Add(-time.Duration(hours) * time.Hour)

	stats := &Statistics{
		WindowHours: hours,
		ByCategory:  make(map[Category]int),
		BySeverity:  make(map[Severity]int),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, record := range h.records {
		if record.Timestamp.Before(cutoff) {
			continue
		}
		stats.Total++
		stats.ByCategory[record.Category]++
		stats.BySeverity[record.Severity]++
		if record.Resolved {
			stats.Resolved++
		}
	}

	if stats.Total > 0 {
		stats.ResolutionRate = float64(stats.Resolved) / float64(stats.Total)
	}
	return stats
}

// RecentRecords 返回最近的 n 条错误记录（新到旧）
func (h *Handler) RecentRecords(n int) []*ErrorRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n <= 0 || n > len(h.records) {
		n = len(h.records)
	}

	result := make([]*ErrorRecord, 0, n)
	for i := len(h.records) - 1; i >= len(h.records)-n; i-- {
		result = append(result, h.records[i])
	}
	return result
}
