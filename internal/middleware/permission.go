package middleware

import (
	"net/http"

	"github.com/hitoshi/konsfekt/internal/metrics"
	"github.com/hitoshi/konsfekt/internal/model"
	"github.com/hitoshi/konsfekt/internal/permission"
)

// NewPermissionMiddleware はパスごとの最小ロール要件を強制するミドルウェアを返す。
// セッションミドルウェアの後に配置すること。
//
// 権限テーブルに登録されていないパスはフェイルオープンで許可し、
// 監査ログとメトリクスに記録する。ロール不足は403のJSONエラーになる。
func NewPermissionMiddleware(engine *permission.Engine, collector metrics.MetricsCollector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := UserFromContext(r.Context())
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			if !engine.Contains(r.URL.Path) {
				collector.RecordPermissionFailOpen(r.URL.Path)
			}

			if !engine.CheckAccess(r.URL.Path, user.Role) {
				collector.RecordAccessDenied(r.URL.Path)
				WriteErrorResponse(w, http.StatusForbidden, model.NewAccessDeniedError(r.URL.Path))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
