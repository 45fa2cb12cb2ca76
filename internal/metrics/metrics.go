// Package metrics 以 Prometheus 文本格式暴露运行指标
package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
)

// Registry 指标注册表
type Registry struct {
	mu         sync.RWMutex
	counters   map[string]*Counter
	gauges     map[string]*Gauge
	histograms map[string]*Histogram
}

// Counter 只增计数器
type Counter struct {
	name   string
	help   string
	labels []string

	mu     sync.Mutex
	values map[string]float64
}

// Gauge 可增减仪表
type Gauge struct {
	name   string
	help   string
	labels []string

	mu     sync.Mutex
	values map[string]float64
}

// Histogram 直方图
type Histogram struct {
	name    string
	help    string
	labels  []string
	buckets []float64

	mu     sync.Mutex
	counts map[string][]uint64
	sums   map[string]float64
	totals map[string]uint64
}

var registry = &Registry{
	counters:   make(map[string]*Counter),
	gauges:     make(map[string]*Gauge),
	histograms: make(map[string]*Histogram),
}

// 引擎核心指标
var (
	GenerationRuns = registry.NewCounter("zhipai_generation_runs_total", "排班生成运行次数", []string{"tier", "status"})
	AIRequests     = registry.NewCounter("zhipai_ai_requests_total", "AI推荐请求次数", []string{"result"})
	TierFallbacks  = registry.NewCounter("zhipai_tier_fallbacks_total", "生成层级降级次数", []string{"to"})
	HTTPRequests   = registry.NewCounter("zhipai_http_requests_total", "HTTP请求总数", []string{"method", "path", "status"})

	DraftConfidence  = registry.NewGauge("zhipai_draft_confidence", "最近生成草稿的整体置信度", []string{"business_id"})
	ScheduleCoverage = registry.NewGauge("zhipai_schedule_coverage", "最近生成草稿的班次覆盖率", []string{"business_id"})

	GenerationDuration = registry.NewHistogram("zhipai_generation_duration_seconds", "排班生成耗时分布", []string{"tier"},
		[]float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60})
)

// Get 获取全局注册表
func Get() *Registry {
	return registry
}

// NewCounter 注册计数器
func (r *Registry) NewCounter(name, help string, labels []string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := &Counter{name: name, help: help, labels: labels, values: make(map[string]float64)}
	r.counters[name] = c
	return c
}

// NewGauge 注册仪表
func (r *Registry) NewGauge(name, help string, labels []string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()
	g := &Gauge{name: name, help: help, labels: labels, values: make(map[string]float64)}
	r.gauges[name] = g
	return g
}

// NewHistogram 注册直方图
func (r *Registry) NewHistogram(name, help string, labels []string, buckets []float64) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := &Histogram{
		name:    name,
		help:    help,
		labels:  labels,
		buckets: buckets,
		counts:  make(map[string][]uint64),
		sums:    make(map[string]float64),
		totals:  make(map[string]uint64),
	}
	r.histograms[name] = h
	return h
}

// Inc 计数加一
func (c *Counter) Inc(labelValues ...string) {
	c.Add(1, labelValues...)
}

// Add 计数增加指定值
func (c *Counter) Add(value float64, labelValues ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[strings.Join(labelValues, ",")] += value
}

// Set 设置仪表值
func (g *Gauge) Set(value float64, labelValues ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values[strings.Join(labelValues, ",")] = value
}

// Observe 记录一次观测值
func (h *Histogram) Observe(value float64, labelValues ...string) {
	key := strings.Join(labelValues, ",")

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.counts[key]; !ok {
		h.counts[key] = make([]uint64, len(h.buckets))
	}
	for i, upper := range h.buckets {
		if value <= upper {
			h.counts[key][i]++
		}
	}
	h.sums[key] += value
	h.totals[key]++
}

// Handler 返回指标暴露端点
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		Get().write(w)
	})
}

// write 按名称排序输出全部指标
func (r *Registry) write(w http.ResponseWriter) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.counters))
	for name := range r.counters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := r.counters[name]
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n", c.name, c.help, c.name)
		c.mu.Lock()
		writeSamples(w, c.name, c.labels, c.values)
		c.mu.Unlock()
	}

	names = names[:0]
	for name := range r.gauges {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		g := r.gauges[name]
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n", g.name, g.help, g.name)
		g.mu.Lock()
		writeSamples(w, g.name, g.labels, g.values)
		g.mu.Unlock()
	}

	names = names[:0]
	for name := range r.histograms {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		r.histograms[name].write(w)
	}
}

// write 输出直方图的桶计数、总和与总数
func (h *Histogram) write(w http.ResponseWriter) {
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s histogram\n", h.name, h.help, h.name)

	h.mu.Lock()
	defer h.mu.Unlock()

	keys := make([]string, 0, len(h.counts))
	for key := range h.counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		labelPrefix := h.labelPairs(key)
		for i, upper := range h.buckets {
			fmt.Fprintf(w, "%s_bucket{%sle=%q} %d\n", h.name, labelPrefix, fmt.Sprintf("%g", upper), h.counts[key][i])
		}
		fmt.Fprintf(w, "%s_bucket{%sle=\"+Inf\"} %d\n", h.name, labelPrefix, h.totals[key])
		if labelPrefix == "" {
			fmt.Fprintf(w, "%s_sum %g\n%s_count %d\n", h.name, h.sums[key], h.name, h.totals[key])
		} else {
			fmt.Fprintf(w, "%s_sum{%s} %g\n%s_count{%s} %d\n",
				h.name, strings.TrimSuffix(labelPrefix, ","), h.sums[key],
				h.name, strings.TrimSuffix(labelPrefix, ","), h.totals[key])
		}
	}
}

// labelPairs 返回 `k="v",` 形式的标签前缀，无标签时为空串
func (h *Histogram) labelPairs(key string) string {
	if key == "" || len(h.labels) == 0 {
		return ""
	}
	parts := strings.Split(key, ",")
	var b strings.Builder
	for i, label := range h.labels {
		if i < len(parts) {
			fmt.Fprintf(&b, "%s=%q,", label, parts[i])
		}
	}
	return b.String()
}

func writeSamples(w http.ResponseWriter, name string, labels []string, values map[string]float64) {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if key == "" || len(labels) == 0 {
			fmt.Fprintf(w, "%s %g\n", name, values[key])
			continue
		}

		parts := strings.Split(key, ",")
		pairs := make([]string, 0, len(labels))
		for i, label := range labels {
			if i < len(parts) {
				pairs = append(pairs, fmt.Sprintf("%s=%q", label, parts[i]))
			}
		}
		fmt.Fprintf(w, "%s{%s} %g\n", name, strings.Join(pairs, ","), values[key])
	}
}
