// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ログイン・登録結果のラベル
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultError   = "error"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラー、サービス層、ワーカーから利用する。
type MetricsCollector interface {
	RecordLogin(result string)
	RecordRegistration(result string)
	ObserveProfileFetch(outcome string, duration time.Duration)
	IncProfileFetchRetry()
	RecordPageRender(page string)
	RecordHTTPStatus(statusCode int)
	RecordExpiredSessionsDeleted(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	logins          *prometheus.CounterVec
	registrations   *prometheus.CounterVec
	profileFetch    *prometheus.CounterVec
	profileLatency  prometheus.Histogram
	profileRetries  prometheus.Counter
	pageRenders     *prometheus.CounterVec
	httpStatus      *prometheus.CounterVec
	sessionsDeleted prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "salonhub_login_total",
			Help: "ログイン試行の結果別合計数",
		}, []string{"result"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "salonhub_registration_total",
			Help: "アカウント登録の結果別合計数",
		}, []string{"result"}),
		profileFetch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "salonhub_profile_fetch_total",
			Help: "プロフィール取得の結果別合計数",
		}, []string{"outcome"}),
		profileLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "salonhub_profile_fetch_latency_seconds",
			Help:    "プロフィール取得のレイテンシ（再試行を含む、秒）",
			Buckets: prometheus.DefBuckets,
		}),
		profileRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "salonhub_profile_fetch_retries_total",
			Help: "プロフィール取得の再試行回数",
		}),
		pageRenders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "salonhub_page_render_total",
			Help: "ページ別のレンダリング回数",
		}, []string{"page"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "salonhub_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		sessionsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "salonhub_expired_sessions_deleted_total",
			Help: "クリーンアップで削除された期限切れセッション数",
		}),
	}

	reg.MustRegister(
		c.logins,
		c.registrations,
		c.profileFetch,
		c.profileLatency,
		c.profileRetries,
		c.pageRenders,
		c.httpStatus,
		c.sessionsDeleted,
	)

	return c
}

// RecordLogin はログイン試行の結果を記録する。
func (c *Collector) RecordLogin(result string) {
	c.logins.WithLabelValues(result).Inc()
}

// RecordRegistration はアカウント登録の結果を記録する。
func (c *Collector) RecordRegistration(result string) {
	c.registrations.WithLabelValues(result).Inc()
}

// ObserveProfileFetch はプロフィール取得の結果とレイテンシを記録する。
func (c *Collector) ObserveProfileFetch(outcome string, duration time.Duration) {
	c.profileFetch.WithLabelValues(outcome).Inc()
	c.profileLatency.Observe(duration.Seconds())
}

// IncProfileFetchRetry はプロフィール取得の再試行を記録する。
func (c *Collector) IncProfileFetchRetry() {
	c.profileRetries.Inc()
}

// RecordPageRender はページのレンダリングを記録する。
func (c *Collector) RecordPageRender(page string) {
	c.pageRenders.WithLabelValues(page).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordExpiredSessionsDeleted は削除された期限切れセッション数を記録する。
func (c *Collector) RecordExpiredSessionsDeleted(count int64) {
	c.sessionsDeleted.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
