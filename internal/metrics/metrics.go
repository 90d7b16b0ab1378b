// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はメトリクス収集のインターフェース。
// ドキュメントストアのデコレータとリソースストアから利用する。
type Collector interface {
	RecordRemoteOp(collection, op string, err error, duration time.Duration)
	RecordStaleListDiscard(store string)
	RecordPhotoUpload(count int)
	RecordPhotoUploadFailure()
}

// PrometheusCollector はPrometheusメトリクスを収集する実装。
type PrometheusCollector struct {
	registry      *prometheus.Registry
	remoteOps     *prometheus.CounterVec
	remoteLatency prometheus.Histogram
	staleDiscards *prometheus.CounterVec
	photoUploads  prometheus.Counter
	photoFailures prometheus.Counter
}

// NewPrometheusCollector は新しいPrometheusCollectorを生成し、
// 専用レジストリにメトリクスを登録する。
func NewPrometheusCollector() *PrometheusCollector {
	c := &PrometheusCollector{
		registry: prometheus.NewRegistry(),
		remoteOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "courtspot_remote_ops_total",
			Help: "リモートドキュメントストア操作の合計数",
		}, []string{"collection", "op", "result"}),
		remoteLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "courtspot_remote_op_latency_seconds",
			Help:    "リモートドキュメントストア操作のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		staleDiscards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "courtspot_stale_list_discard_total",
			Help: "破棄された古いlist応答の合計数",
		}, []string{"store"}),
		photoUploads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "courtspot_photo_uploads_total",
			Help: "アップロードされた写真の合計数",
		}),
		photoFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "courtspot_photo_upload_fail_total",
			Help: "写真アップロード失敗の合計数",
		}),
	}

	c.registry.MustRegister(
		c.remoteOps,
		c.remoteLatency,
		c.staleDiscards,
		c.photoUploads,
		c.photoFailures,
	)

	return c
}

// RecordRemoteOp はリモート操作の結果とレイテンシを記録する。
func (c *PrometheusCollector) RecordRemoteOp(collection, op string, err error, duration time.Duration) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	c.remoteOps.WithLabelValues(collection, op, result).Inc()
	c.remoteLatency.Observe(duration.Seconds())
}

// RecordStaleListDiscard は古いlist応答の破棄を記録する。
func (c *PrometheusCollector) RecordStaleListDiscard(store string) {
	c.staleDiscards.WithLabelValues(store).Inc()
}

// RecordPhotoUpload はアップロード成功した写真数を記録する。
func (c *PrometheusCollector) RecordPhotoUpload(count int) {
	c.photoUploads.Add(float64(count))
}

// RecordPhotoUploadFailure は写真アップロードの失敗を記録する。
func (c *PrometheusCollector) RecordPhotoUploadFailure() {
	c.photoFailures.Inc()
}

// Handler は/metricsエンドポイント用のHTTPハンドラーを返す。
func (c *PrometheusCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// NopCollector は何も記録しないCollector実装。テストで使用する。
type NopCollector struct{}

// RecordRemoteOp は何もしない。
func (NopCollector) RecordRemoteOp(collection, op string, err error, duration time.Duration) {}

// RecordStaleListDiscard は何もしない。
func (NopCollector) RecordStaleListDiscard(store string) {}

// RecordPhotoUpload は何もしない。
func (NopCollector) RecordPhotoUpload(count int) {}

// RecordPhotoUploadFailure は何もしない。
func (NopCollector) RecordPhotoUploadFailure() {}

// compile-time interface checks
var (
	_ Collector = (*PrometheusCollector)(nil)
	_ Collector = NopCollector{}
)
