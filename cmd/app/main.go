package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"iptv-subscription-backend/internal/config"
	"iptv-subscription-backend/internal/domain/ports/adapter"
	aiAdapters "iptv-subscription-backend/internal/infra/adapters/ai"
	"iptv-subscription-backend/internal/infra/adapters/notify"
	payAdapters "iptv-subscription-backend/internal/infra/adapters/payment"
	tele "iptv-subscription-backend/internal/infra/adapters/telegram"
	"iptv-subscription-backend/internal/infra/alert"
	"iptv-subscription-backend/internal/infra/api"
	pg "iptv-subscription-backend/internal/infra/db/postgres"
	"iptv-subscription-backend/internal/infra/jobs"
	"iptv-subscription-backend/internal/infra/logging"
	"iptv-subscription-backend/internal/infra/metrics"
	red "iptv-subscription-backend/internal/infra/redis"
	"iptv-subscription-backend/internal/infra/sched"
	"iptv-subscription-backend/internal/infra/web"
	"iptv-subscription-backend/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_ = godotenv.Load()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop fallbacks, console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("dev mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool := pg.MustConnectPostgres(cfg.Database.URL)
	defer pool.Close()
	txManager := pg.NewTxManager(pool)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Repositories ----
	ledgerRepo := pg.NewTransactionRepo(pool)
	planRepo := pg.NewPlanRepoCacheDecorator(pg.NewPlanRepo(pool), redisClient)
	subRepo := pg.NewSubscriptionRepo(pool)
	promoRepo := pg.NewPromoCodeRepo(pool)
	affiliateRepo := pg.NewAffiliateRepo(pool)
	referralRepo := pg.NewReferralRepo(pool)
	reminderRepo := pg.NewReminderRepo(pool)
	notifLogRepo := pg.NewNotificationLogRepo(pool)

	// ---- Payment gateways ----
	var crypto adapter.CryptoGateway
	if cfg.Payment.CryptoPay.WalletAddress != "" {
		crypto, err = payAdapters.NewCryptoPayGateway(
			cfg.Payment.CryptoPay.BaseURL,
			cfg.Payment.CryptoPay.WalletAddress,
			cfg.Payment.CryptoPay.CallbackSecret,
		)
		if err != nil {
			logger.Fatal().Err(err).Msg("cryptopay gateway")
		}
	} else if cfg.Runtime.Dev {
		logger.Warn().Msg("cryptopay not configured, using noop gateway")
		crypto = payAdapters.NewNoopCryptoGateway()
	} else {
		logger.Fatal().Msg("payment.cryptopay.wallet_address is required")
	}

	var card adapter.CardGateway
	if cfg.Payment.Stripe.SecretKey != "" {
		card, err = payAdapters.NewStripeGateway(
			cfg.Payment.Stripe.SecretKey,
			cfg.Payment.Stripe.WebhookSecret,
			cfg.Payment.Stripe.SuccessURL,
			cfg.Payment.Stripe.CancelURL,
		)
		if err != nil {
			logger.Fatal().Err(err).Msg("stripe gateway")
		}
	} else if cfg.Runtime.Dev {
		logger.Warn().Msg("stripe not configured, using noop gateway")
		card = payAdapters.NewNoopCardGateway()
	} else {
		logger.Fatal().Msg("payment.stripe.secret_key is required")
	}

	// ---- Notification channels ----
	var email adapter.EmailSender
	if cfg.Notify.Email.APIKey != "" {
		email, err = notify.NewRestEmailSender(&cfg.Notify.Email)
		if err != nil {
			logger.Fatal().Err(err).Msg("email sender")
		}
	} else {
		logger.Warn().Msg("email not configured, using noop sender")
		email = notify.NewNoopEmailSender(logger)
	}

	var whatsapp adapter.WhatsAppSender
	if cfg.Notify.WhatsApp.Token != "" {
		whatsapp, err = notify.NewWhatsAppCloudSender(&cfg.Notify.WhatsApp)
		if err != nil {
			logger.Fatal().Err(err).Msg("whatsapp sender")
		}
	} else {
		logger.Warn().Msg("whatsapp not configured, using noop sender")
		whatsapp = notify.NewNoopWhatsAppSender(logger)
	}

	var composer adapter.ReminderComposer
	if cfg.AI.OpenAIKey != "" {
		composer = aiAdapters.NewOpenAIComposer(cfg.AI.OpenAIKey, cfg.AI.DefaultModel, logger)
	} else {
		logger.Warn().Msg("openai not configured, reminders use template copy")
		composer = aiAdapters.NewTemplateComposer()
	}

	// ---- Operator alerting ----
	var alerts adapter.AlertSender
	if cfg.Alert.TelegramToken != "" {
		alerts, err = tele.NewAlertBot(cfg.Alert.TelegramToken, cfg.Alert.TelegramChatID, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram alert bot")
		}
	} else {
		alerts = tele.NewNoopAlertSender()
	}
	failureMonitor := alert.NewMonitor(alerts, cfg.Alert.Threshold, cfg.Alert.Window, logger)

	// ---- Notification queue ----
	asynqClient := jobs.NewClient(cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB)
	defer asynqClient.Close()
	dispatcher := jobs.NewEnqueuer(asynqClient, logger)

	// ---- Use cases ----
	checkoutUC := usecase.NewCheckoutUseCase(planRepo, promoRepo, affiliateRepo, ledgerRepo, crypto, card, logger)
	paymentUC := usecase.NewPaymentUseCase(ledgerRepo, planRepo, subRepo, promoRepo, affiliateRepo, referralRepo,
		crypto, card, txManager, dispatcher, failureMonitor, logger)
	refundUC := usecase.NewRefundUseCase(ledgerRepo, card, failureMonitor, logger)
	recoveryUC := usecase.NewRecoveryUseCase(ledgerRepo, planRepo, reminderRepo, checkoutUC, dispatcher,
		cfg.Scheduler.AbandonedThreshold, logger)
	notificationUC := usecase.NewNotificationUseCase(ledgerRepo, planRepo, subRepo, reminderRepo, notifLogRepo,
		email, whatsapp, composer, logger)
	statsUC := usecase.NewStatsUseCase(ledgerRepo, subRepo, logger)
	catalogUC := usecase.NewCatalogUseCase(planRepo, promoRepo, logger)

	// ---- Queue worker ----
	queueSrv := jobs.NewServer(cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB)
	queueMux := asynq.NewServeMux()
	jobs.NewProcessor(notificationUC, logger).Register(queueMux)
	go func() {
		if err := queueSrv.Run(queueMux); err != nil {
			logger.Error().Err(err).Msg("queue worker stopped")
		}
	}()

	// ---- Background workers ----
	abandonedWorker := sched.NewAbandonedWorker(cfg.Scheduler.AbandonedInterval, recoveryUC, logger)
	go func() { _ = abandonedWorker.Run(ctx) }()
	expiryWorker := sched.NewExpiryWorker(cfg.Scheduler.ExpiryInterval, subRepo, logger)
	go func() { _ = expiryWorker.Run(ctx) }()

	// ---- Public API ----
	publicSrv := api.NewServer(checkoutUC, paymentUC, recoveryUC, planRepo, subRepo, rateLimiter,
		cfg.Server.CORSOrigins, cfg.Server.CronSecret, logger)
	public := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           publicSrv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", public.Addr).Msg("public api listening")
		if err := public.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("public api server")
		}
	}()

	// ---- Admin API ----
	batchSender := notify.NewBatchSender(cfg.Notify.BatchSize, cfg.Notify.BatchPause, logger)
	authManager := web.NewAuthManager(cfg.Admin.JWTSecret, cfg.Admin.PasswordHash, !cfg.Runtime.Dev, cfg.Admin.SessionTTL)
	adminSrv := web.NewServer(authManager, statsUC, refundUC, recoveryUC, catalogUC, paymentUC,
		reminderRepo, batchSender, logger)
	admin := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.AdminPort),
		Handler:           adminSrv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", admin.Addr).Msg("admin api listening")
		if err := admin.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("admin api server")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := public.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("public api shutdown")
	}
	if err := admin.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("admin api shutdown")
	}
	queueSrv.Shutdown()
	cancel()
}
