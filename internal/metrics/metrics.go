// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェアやサービス層から利用する。
type MetricsCollector interface {
	RecordLoginSuccess(method string)
	RecordLoginFailure(method string)
	RecordVerificationStarted()
	RecordVerificationPoll()
	RecordVerificationOutcome(status string)
	RecordPermissionFailOpen(path string)
	RecordAccessDenied(path string)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordPaymentMarkedPaid()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	loginSuccess       *prometheus.CounterVec
	loginFailure       *prometheus.CounterVec
	verifyStarted      prometheus.Counter
	verifyPolls        prometheus.Counter
	verifyOutcome      *prometheus.CounterVec
	permissionFailOpen prometheus.Counter
	accessDenied       prometheus.Counter
	httpStatus         *prometheus.CounterVec
	requestLatency     prometheus.Histogram
	paymentsPaid       prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "konsfekt_login_success_total",
			Help: "ログイン成功の合計数（認証方式別）",
		}, []string{"method"}),
		loginFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "konsfekt_login_failure_total",
			Help: "ログイン失敗の合計数（認証方式別）",
		}, []string{"method"}),
		verifyStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "konsfekt_verification_started_total",
			Help: "開始されたBankID本人確認オーダーの合計数",
		}),
		verifyPolls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "konsfekt_verification_polls_total",
			Help: "BankID状態ポーリングの合計数",
		}),
		verifyOutcome: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "konsfekt_verification_outcome_total",
			Help: "終端状態に達した本人確認オーダーの合計数（状態別）",
		}, []string{"status"}),
		permissionFailOpen: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "konsfekt_permission_fail_open_total",
			Help: "権限テーブル未登録パスへのフェイルオープン許可の合計数",
		}),
		accessDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "konsfekt_access_denied_total",
			Help: "ロール不足によるアクセス拒否の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "konsfekt_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "konsfekt_request_duration_seconds",
			Help:    "HTTPリクエスト処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		paymentsPaid: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "konsfekt_payments_paid_total",
			Help: "支払い完了になったSwishリクエストの合計数",
		}),
	}

	reg.MustRegister(
		c.loginSuccess,
		c.loginFailure,
		c.verifyStarted,
		c.verifyPolls,
		c.verifyOutcome,
		c.permissionFailOpen,
		c.accessDenied,
		c.httpStatus,
		c.requestLatency,
		c.paymentsPaid,
	)

	return c
}

// RecordLoginSuccess はログイン成功を記録する。methodはgoogleまたはbankid。
func (c *Collector) RecordLoginSuccess(method string) {
	c.loginSuccess.WithLabelValues(method).Inc()
}

// RecordLoginFailure はログイン失敗を記録する。
func (c *Collector) RecordLoginFailure(method string) {
	c.loginFailure.WithLabelValues(method).Inc()
}

// RecordVerificationStarted は本人確認オーダーの開始を記録する。
func (c *Collector) RecordVerificationStarted() {
	c.verifyStarted.Inc()
}

// RecordVerificationPoll は状態ポーリング1回を記録する。
func (c *Collector) RecordVerificationPoll() {
	c.verifyPolls.Inc()
}

// RecordVerificationOutcome はオーダーの終端状態を記録する。
func (c *Collector) RecordVerificationOutcome(status string) {
	c.verifyOutcome.WithLabelValues(status).Inc()
}

// RecordPermissionFailOpen はフェイルオープン許可を記録する。
func (c *Collector) RecordPermissionFailOpen(path string) {
	c.permissionFailOpen.Inc()
}

// RecordAccessDenied はロール不足によるアクセス拒否を記録する。
func (c *Collector) RecordAccessDenied(path string) {
	c.accessDenied.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエスト処理のレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordPaymentMarkedPaid は支払い完了を記録する。
func (c *Collector) RecordPaymentMarkedPaid() {
	c.paymentsPaid.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
