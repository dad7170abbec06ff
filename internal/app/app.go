// Package app はアプリケーションの起動とワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/konsfekt/internal/auth"
	"github.com/hitoshi/konsfekt/internal/bankid"
	"github.com/hitoshi/konsfekt/internal/config"
	"github.com/hitoshi/konsfekt/internal/database"
	"github.com/hitoshi/konsfekt/internal/emailswitch"
	"github.com/hitoshi/konsfekt/internal/handler"
	"github.com/hitoshi/konsfekt/internal/logger"
	"github.com/hitoshi/konsfekt/internal/metrics"
	"github.com/hitoshi/konsfekt/internal/middleware"
	"github.com/hitoshi/konsfekt/internal/payment"
	"github.com/hitoshi/konsfekt/internal/permission"
	"github.com/hitoshi/konsfekt/internal/product"
	"github.com/hitoshi/konsfekt/internal/repository"
	"github.com/hitoshi/konsfekt/internal/security"
	"github.com/hitoshi/konsfekt/internal/stats"
	"github.com/hitoshi/konsfekt/internal/transaction"
	"github.com/hitoshi/konsfekt/internal/user"
	"github.com/hitoshi/konsfekt/internal/verification"
)

// outboundTimeout は外部API（BankID、Swish）呼び出しのタイムアウト。
const outboundTimeout = 10 * time.Second

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. 権限テーブルの読み込み
	engine, err := permission.Load(cfg.PermissionTablePath)
	if err != nil {
		return fmt.Errorf("failed to load permission table: %w", err)
	}
	slog.Info("permission table loaded",
		slog.String("path", cfg.PermissionTablePath),
		slog.Int("entries", len(engine.Paths())),
	)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. セキュリティサービスの初期化
	guard := security.NewOutboundGuard()
	sanitizer := security.NewInputSanitizer()

	if err := guard.ValidateEndpoint(cfg.BankIDURL); err != nil {
		return fmt.Errorf("invalid BankID endpoint: %w", err)
	}
	if cfg.SwishURL != "" {
		if err := guard.ValidateEndpoint(cfg.SwishURL); err != nil {
			return fmt.Errorf("invalid Swish endpoint: %w", err)
		}
	}

	// 5. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	orderRepo := repository.NewPostgresOrderRepo(db)
	emailSwitchRepo := repository.NewPostgresEmailSwitchRepo(db)
	productRepo := repository.NewPostgresProductRepo(db)
	transactionRepo := repository.NewPostgresTransactionRepo(db)
	paymentRepo := repository.NewPostgresPaymentRepo(db)

	// 6. ドメインサービスの初期化
	sessionManager := auth.NewSessionManager(sessionRepo, cfg.SessionMaxAge)
	resolver := auth.NewResolver(userRepo)
	emailSwitchService := emailswitch.NewService(emailSwitchRepo, cfg.EmailSwitchTTL)

	oauthProvider := auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	})
	authService := auth.NewService(oauthProvider, userRepo, resolver, sessionManager, emailSwitchService)

	bankidClient := bankid.NewClient(guard.NewSafeClient(outboundTimeout), cfg.BankIDURL+"/rp/v6.0")
	verificationService := verification.NewService(
		orderRepo, bankidClient, resolver, sessionManager,
		collector, slog.Default(),
		cfg.BaseURL, cfg.PollInterval, cfg.PollMaxDuration,
	)

	productService := product.NewService(productRepo, sanitizer)
	transactionService := transaction.NewService(transactionRepo, productRepo, userRepo)

	swishClient := payment.NewSwishClient(guard.NewSafeClient(outboundTimeout), cfg.SwishURL)
	paymentService := payment.NewService(
		paymentRepo, userRepo, swishClient, collector,
		cfg.SwishPayeeAlias, cfg.BaseURL+"/api/payments/callback", cfg.MinTopUpAmount,
	)

	statsService := stats.NewService(transactionRepo)
	userService := user.NewService(userRepo, sessionManager, sanitizer)

	// 7. ルーターの構築
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	// configのRateLimitGeneralはreq/min単位なのでreq/secに変換する
	if cfg.RateLimitGeneral > 0 {
		rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
		rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	}
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		HealthChecker:     db,
		SessionValidator:  sessionManager,
		UserFinder:        userRepo,
		PermissionEngine:  engine,
		RateLimiter:       rateLimiter,
		Metrics:           collector,
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CookieSecure:      cfg.CookieSecure,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:       cfg.BaseURL,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: int(cfg.SessionMaxAge.Seconds()),
		},
		VerificationService: verificationService,

		ProductService:     productService,
		TransactionService: transactionService,
		PaymentService:     paymentService,

		UserService:  userService,
		EmailSwitch:  emailSwitchService,
		StatsService: statsService,
	}

	router := handler.NewRouter(deps)

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// メトリクスサーバーは内部ネットワーク向けに別ポートで起動する
	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: metrics.SetupMetricsRoute(registry),
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("metrics server starting",
			slog.String("addr", metricsServer.Addr),
		)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server listen error", slog.String("error", err.Error()))
		}
	}()

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	if err := metricsServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("metrics server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
