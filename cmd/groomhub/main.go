package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/velvetpaws/groomhub/internal/booking"
	"github.com/velvetpaws/groomhub/internal/handlers"
	"github.com/velvetpaws/groomhub/internal/notify"
	"github.com/velvetpaws/groomhub/internal/notify/email"
	"github.com/velvetpaws/groomhub/internal/notify/sms"
	"github.com/velvetpaws/groomhub/internal/outbox"
	"github.com/velvetpaws/groomhub/internal/storage"
	"github.com/velvetpaws/groomhub/internal/waitlist"
	"github.com/velvetpaws/groomhub/libs/config"
	"github.com/velvetpaws/groomhub/libs/db"
	"github.com/velvetpaws/groomhub/libs/httpx"
	"github.com/velvetpaws/groomhub/libs/kafkax"
	otelx "github.com/velvetpaws/groomhub/libs/otel"
	"github.com/velvetpaws/groomhub/libs/runtime"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	_ = godotenv.Load()

	service := config.String("SERVICE_NAME", "groomhub")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL, db.DefaultOptions())
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	loc, err := time.LoadLocation(config.String("SALON_TZ", "UTC"))
	if err != nil {
		logger.Error("invalid SALON_TZ, falling back to UTC", "err", err)
		loc = time.UTC
	}

	var rdb *redis.Client
	if redisAddr := config.String("REDIS_ADDR", ""); redisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: redisAddr})
		defer rdb.Close()
	}

	apptRepo := storage.NewAppointmentRepository(pool)
	waitlistRepo := storage.NewWaitlistRepository(pool)
	notificationRepo := storage.NewNotificationRepository(pool)
	settingsRepo := storage.NewSettingsRepository(pool)
	serviceRepo := storage.NewServiceRepository(pool)
	outboxRepo := outbox.NewRepository(pool)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: config.Duration("OUTBOX_POLL_EVERY", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go outboxPublisher.Run(ctx)

	emailSender := email.NewSMTPSender(
		config.String("SMTP_HOST", "mailpit"),
		config.String("SMTP_PORT", "1025"),
		config.String("SMTP_FROM", "no-reply@groomhub.local"),
	)

	twilioSID := config.String("TWILIO_ACCOUNT_SID", "")
	twilioToken := config.String("TWILIO_AUTH_TOKEN", "")
	twilioFrom := config.String("TWILIO_FROM_NUMBER", "")
	var smsSender notify.SMSSender
	if strings.ToLower(config.String("SMS_PROVIDER", "noop")) == "twilio" {
		smsSender = sms.NewTwilioSender(twilioSID, twilioToken, twilioFrom)
	} else {
		smsSender = sms.NewNoopSender()
	}

	backoff := notify.Backoff{
		Base:       config.Duration("RETRY_BASE_DELAY", 30*time.Second),
		Max:        config.Duration("RETRY_MAX_DELAY", 5*time.Minute),
		Jitter:     0.3,
		MaxRetries: config.Int("RETRY_MAX_ATTEMPTS", 2),
	}

	dispatcher := notify.NewDispatcher(notificationRepo, emailSender, smsSender, logger, backoff)
	dispatcher.SetEvents(outboxRepo)
	reminders := notify.NewReminders(apptRepo, dispatcher, logger, loc)

	var sweepLock notify.Locker = notify.NoopLock{}
	if rdb != nil {
		sweepLock = notify.NewRedisLock(rdb, "groomhub:retry-sweep", 2*time.Minute, logger)
	}
	sweeper := notify.NewSweeper(notificationRepo, emailSender, smsSender, sweepLock, logger, backoff,
		config.Int("RETRY_BATCH_SIZE", 50))
	sweeper.SetEvents(outboxRepo)

	bookingSvc := booking.NewService(apptRepo, serviceRepo, settingsRepo, outboxRepo, dispatcher, logger, loc)
	waitlistSvc := waitlist.NewService(waitlistRepo, bookingSvc, dispatcher, logger, waitlist.Config{
		OfferWindow: config.Duration("WAITLIST_OFFER_WINDOW", 2*time.Hour),
		OfferLimit:  config.Int("WAITLIST_OFFER_LIMIT", 3),
	})
	waitlistSvc.SetEvents(outboxRepo)

	availabilityHandler := handlers.NewAvailabilityHandler(bookingSvc, logger)
	bookingHandler := handlers.NewBookingHandler(bookingSvc, waitlistSvc, logger, loc)
	waitlistHandler := handlers.NewWaitlistHandler(waitlistSvc, waitlistRepo, logger)
	settingsHandler := handlers.NewSettingsHandler(settingsRepo, logger)
	appointmentsHandler := handlers.NewAppointmentsHandler(apptRepo, logger, loc)
	notificationsHandler := handlers.NewNotificationsHandler(notificationRepo, logger)
	servicesHandler := handlers.NewServicesHandler(serviceRepo, logger)
	cronHandler := handlers.NewCronHandler(reminders, sweeper, waitlistSvc, logger)
	twilioHandler := handlers.NewTwilioHandler(waitlistSvc, logger, twilioToken,
		config.String("TWILIO_WEBHOOK_URL", ""))

	readyChecks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}
	if rdb != nil {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	if brokers := config.String("KAFKA_BROKERS", ""); brokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}
	mux := runtime.NewBaseMuxWithReady(readyChecks...)

	mux.HandleFunc("GET /availability", availabilityHandler.Get)
	mux.HandleFunc("GET /services", servicesHandler.List)
	mux.HandleFunc("POST /bookings", bookingHandler.Create)
	mux.HandleFunc("POST /bookings/{id}/cancel", bookingHandler.Cancel)
	mux.HandleFunc("POST /waitlist", waitlistHandler.Join)
	mux.HandleFunc("POST /webhooks/twilio/incoming", twilioHandler.Inbound)

	adminToken := config.String("ADMIN_TOKEN", "")
	admin := http.NewServeMux()
	admin.HandleFunc("POST /admin/services", servicesHandler.Create)
	admin.HandleFunc("GET /admin/appointments", appointmentsHandler.List)
	admin.HandleFunc("PUT /admin/appointments/{id}/status", appointmentsHandler.UpdateStatus)
	admin.HandleFunc("GET /admin/waitlist", waitlistHandler.List)
	admin.HandleFunc("POST /admin/waitlist/match", waitlistHandler.Match)
	admin.HandleFunc("POST /admin/waitlist/fill-slot", waitlistHandler.FillSlot)
	admin.HandleFunc("POST /admin/waitlist/{id}/book", waitlistHandler.Book)
	admin.HandleFunc("/admin/settings/hours", settingsHandler.Hours)
	admin.HandleFunc("/admin/settings/blocked-dates", settingsHandler.BlockedDates)
	admin.HandleFunc("/admin/settings/booking", settingsHandler.Booking)
	admin.HandleFunc("GET /admin/notifications", notificationsHandler.List)
	mux.Handle("/admin/", httpx.Chain(admin, httpx.WithBearerToken(adminToken)))

	cronSecret := config.String("CRON_SECRET", "")
	cron := http.NewServeMux()
	cron.HandleFunc("GET /cron/notifications/reminders", cronHandler.Reminders)
	cron.HandleFunc("GET /cron/notifications/retention", cronHandler.Retention)
	cron.HandleFunc("GET /cron/notifications/retry", cronHandler.Retry)
	cron.HandleFunc("GET /cron/waitlist-expiration", cronHandler.WaitlistExpiration)
	mux.Handle("/cron/", httpx.Chain(cron, httpx.WithBearerToken(cronSecret)))

	middlewares := []httpx.Middleware{
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1 << 20),
		httpx.WithTimeout(30 * time.Second),
	}
	if origins := config.String("CORS_ORIGINS", ""); origins != "" {
		middlewares = append(middlewares, httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: strings.Split(origins, ","),
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization", "Idempotency-Key"},
		}))
	}
	if rdb != nil {
		limiter := httpx.NewRedisRateLimiter(rdb,
			config.Int("RATE_LIMIT_PER_MINUTE", 120), time.Minute, "groomhub:rl")
		middlewares = append(middlewares, limiter.Middleware(logger, true))
	}

	handler := httpx.Chain(mux, middlewares...)
	handler = otelhttp.NewHandler(handler, service)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
