package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/konsfekt/internal/metrics"
	"github.com/hitoshi/konsfekt/internal/middleware"
	"github.com/hitoshi/konsfekt/internal/permission"
)

// HealthChecker はヘルスチェックエンドポイントが使う死活確認のインターフェース。
// *sql.DBがそのまま満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	SessionValidator  middleware.SessionValidator
	UserFinder        middleware.UserFinder
	PermissionEngine  *permission.Engine
	RateLimiter       *middleware.RateLimiter
	Metrics           metrics.MetricsCollector
	Logger            *slog.Logger
	CORSAllowedOrigin string
	CookieSecure      bool

	// 認証・本人確認
	AuthService         AuthServiceInterface
	AuthConfig          AuthHandlerConfig
	VerificationService VerificationServiceInterface

	// 商品・取引・支払い
	ProductService     ProductServiceInterface
	TransactionService TransactionServiceInterface
	PaymentService     PaymentServiceInterface

	// ユーザー・集計
	UserService  UserServiceInterface
	EmailSwitch  EmailSwitchInitiator
	StatsService StatsServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Session → Permission → RateLimit(General)
//
// 認証ルート（/auth/*）と支払いコールバック（/api/payments/callback）は
// セッション検証の対象外とし、認証系エンドポイントにはIPごとのレート制限を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Metrics))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	verificationHandler := NewVerificationHandler(deps.VerificationService, deps.AuthConfig)
	productHandler := NewProductHandler(deps.ProductService)
	transactionHandler := NewTransactionHandler(deps.TransactionService)
	paymentHandler := NewPaymentHandler(deps.PaymentService)
	userHandler := NewUserHandler(deps.UserService, deps.EmailSwitch)
	statsHandler := NewStatsHandler(deps.StatsService)

	// --- 認証不要のルート ---

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if deps.HealthChecker != nil {
			if err := deps.HealthChecker.PingContext(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/auth", func(r chi.Router) {
		// OAuthフロー（ログイン開始のみIPごとのレート制限）
		r.With(deps.RateLimiter.AuthMiddleware()).Get("/google/login", authHandler.Login)
		r.Get("/google/callback", authHandler.Callback)

		// BankID本人確認フロー
		r.With(deps.RateLimiter.AuthMiddleware()).Post("/bankid/start", verificationHandler.Start)
		r.Get("/bankid/finalize", verificationHandler.Finalize)

		// セッション管理
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// Swishからのコールバックは認証なしで受ける
	r.Post("/api/payments/callback", paymentHandler.Callback)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → Permission → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionValidator, deps.UserFinder, middleware.SessionMiddlewareConfig{
			CookieSecure: deps.CookieSecure,
		}))
		r.Use(middleware.NewPermissionMiddleware(deps.PermissionEngine, deps.Metrics))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 商品カタログ
		r.Route("/api/products", func(r chi.Router) {
			r.Get("/", productHandler.List)
			r.Post("/", productHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", productHandler.Get)
				r.Patch("/", productHandler.Update)
				r.Delete("/", productHandler.Delete)
			})
		})

		// 購入・取引履歴
		r.Route("/api/transactions", func(r chi.Router) {
			r.Post("/", transactionHandler.Purchase)
			r.Get("/", transactionHandler.History)
			r.Get("/all", transactionHandler.ListAll)
		})

		// 残高チャージ
		r.Route("/api/payments", func(r chi.Router) {
			r.Post("/topup", paymentHandler.CreateTopUp)
			r.Get("/{token}", paymentHandler.Status)
		})

		// メール切替のブラウザ遷移用エントリポイント
		r.Get("/api/auth/change_email", userHandler.ChangeEmail)

		// ユーザー管理
		r.Route("/api/users", func(r chi.Router) {
			r.Get("/", userHandler.ListByRole)
			r.Delete("/me", userHandler.Withdraw)
			r.Put("/me/name", userHandler.ChangeName)
			r.Put("/me/hidden", userHandler.SetHidden)
			r.Post("/me/email-switch", userHandler.InitiateEmailSwitch)

			r.Route("/{id}", func(r chi.Router) {
				r.Put("/role", userHandler.SetRole)
				r.Put("/balance", userHandler.SetBalance)
				r.Delete("/", userHandler.Delete)
			})
		})

		// 集計
		r.Route("/api/stats", func(r chi.Router) {
			r.Get("/products", statsHandler.ProductTotals)
			r.Get("/users", statsHandler.UserTotals)
		})
	})

	return r
}
