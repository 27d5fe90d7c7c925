// ============================================================================
// widgetsync Metrics - Prometheus 監控指標
// ============================================================================
//
// Package: internal/metrics
// 文件: metrics.go
// 功能: 收集並暴露同步核心的運行指標
//
// 指標分類:
//
//   1. 計數器 (Counter):
//      - widgets_actions_total{action}: 處理的 action 數（create/synchronize/kill）
//      - widgets_clients_created_total / killed_total / expired_total
//      - widgets_events_handled_total: 派送成功的事件
//      - widgets_events_dropped_total: 重複、格式錯誤或找不到 widget 的事件
//      - widgets_updates_sent_total: 回應中送出的 Update 數
//
//   2. 狀態指標 (Gauge):
//      - widgets_clients_active: 目前在 registry 中的 client 數
//
//   3. 分佈 (Histogram):
//      - widgets_sync_duration_seconds: 單次 synchronize 耗時
//      - widgets_actions_per_report: watchdog 每個報告週期的 action 數
//
// Prometheus 查詢示例:
//
//   # 每秒 synchronize 次數
//   rate(widgets_actions_total{action="synchronize"}[1m])
//
//   # 因逾時被回收的 client 比例
//   rate(widgets_clients_expired_total[5m]) / rate(widgets_clients_created_total[5m])
//
// 所有方法對 nil *Collector 都是 no-op，核心可以在沒有監控時直接使用。
//
// ============================================================================

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "widgets"

// Collector Prometheus 指標收集器
type Collector struct {
	// action 指標
	actions *prometheus.CounterVec

	// client 生命週期
	clientsActive  prometheus.Gauge
	clientsCreated prometheus.Counter
	clientsKilled  prometheus.Counter
	clientsExpired prometheus.Counter

	// 同步指標
	eventsHandled prometheus.Counter
	eventsDropped prometheus.Counter
	updatesSent   prometheus.Counter
	syncDuration  prometheus.Histogram

	// watchdog 報告
	actionsPerReport prometheus.Histogram

	gatherer prometheus.Gatherer
}

// NewCollector 創建指標收集器並註冊到 reg
//
// 參數：
//   - reg: 註冊目標；若同時實作 prometheus.Gatherer，Handler 會使用它
//
// 返回值：
//   - *Collector: 收集器
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Total number of client actions processed",
		}, []string{"action"}),
		clientsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "clients_active",
			Help:      "Current number of registered clients",
		}),
		clientsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clients_created_total",
			Help:      "Total number of clients created",
		}),
		clientsKilled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clients_killed_total",
			Help:      "Total number of clients killed on request",
		}),
		clientsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clients_expired_total",
			Help:      "Total number of clients removed by the watchdog",
		}),
		eventsHandled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_handled_total",
			Help:      "Total number of events dispatched to widgets",
		}),
		eventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Total number of events skipped as duplicate, malformed or orphaned",
		}),
		updatesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_sent_total",
			Help:      "Total number of updates serialized into responses",
		}),
		syncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Time spent in a single synchronize call",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		actionsPerReport: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "actions_per_report",
			Help:      "Number of actions processed during one watchdog report interval",
			Buckets:   prometheus.ExponentialBuckets(1, 10, 7),
		}),
	}

	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		c.actions,
		c.clientsActive,
		c.clientsCreated,
		c.clientsKilled,
		c.clientsExpired,
		c.eventsHandled,
		c.eventsDropped,
		c.updatesSent,
		c.syncDuration,
		c.actionsPerReport,
	)

	if g, ok := reg.(prometheus.Gatherer); ok {
		c.gatherer = g
	} else {
		c.gatherer = prometheus.DefaultGatherer
	}
	return c
}

// RecordAction 記錄一次 action
func (c *Collector) RecordAction(action string) {
	if c == nil {
		return
	}
	c.actions.WithLabelValues(action).Inc()
}

// RecordCreated 記錄 client 建立
func (c *Collector) RecordCreated() {
	if c == nil {
		return
	}
	c.clientsCreated.Inc()
	c.clientsActive.Inc()
}

// RecordKilled 記錄 client 被主動移除
func (c *Collector) RecordKilled() {
	if c == nil {
		return
	}
	c.clientsKilled.Inc()
	c.clientsActive.Dec()
}

// RecordExpired 記錄 client 被 watchdog 回收
func (c *Collector) RecordExpired() {
	if c == nil {
		return
	}
	c.clientsExpired.Inc()
	c.clientsActive.Dec()
}

// RecordSync 記錄一次 synchronize 的結果
func (c *Collector) RecordSync(seconds float64, handled, dropped, updates int) {
	if c == nil {
		return
	}
	c.syncDuration.Observe(seconds)
	c.eventsHandled.Add(float64(handled))
	c.eventsDropped.Add(float64(dropped))
	c.updatesSent.Add(float64(updates))
}

// RecordReport 記錄 watchdog 的週期摘要
func (c *Collector) RecordReport(actions int64) {
	if c == nil {
		return
	}
	c.actionsPerReport.Observe(float64(actions))
}

// SetActive 以 registry 的實際大小校正 clients_active
func (c *Collector) SetActive(n int) {
	if c == nil {
		return
	}
	c.clientsActive.Set(float64(n))
}

// Handler 回傳 /metrics 的 HTTP handler
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
