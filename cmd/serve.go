package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/meinhoongagan/tutor-sessions/config"
	"github.com/meinhoongagan/tutor-sessions/controllers"
	"github.com/meinhoongagan/tutor-sessions/cron"
	"github.com/meinhoongagan/tutor-sessions/db"
	"github.com/meinhoongagan/tutor-sessions/feed"
	"github.com/meinhoongagan/tutor-sessions/notify"
	"github.com/meinhoongagan/tutor-sessions/otp"
	"github.com/meinhoongagan/tutor-sessions/redis"
	"github.com/meinhoongagan/tutor-sessions/routes"
	"github.com/meinhoongagan/tutor-sessions/services/billing"
	"github.com/meinhoongagan/tutor-sessions/services/handshake"
	"github.com/meinhoongagan/tutor-sessions/services/negotiation"
	"github.com/meinhoongagan/tutor-sessions/store"
	"github.com/meinhoongagan/tutor-sessions/store/gormstore"
	"github.com/meinhoongagan/tutor-sessions/store/memstore"
)

func newServeCmd(conf *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), conf)
		},
	}
}

// backend is everything the services need from the outside world.
type backend struct {
	store   store.Store
	limiter otp.Limiter
	tokens  otp.Once
	closers []func() error
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			log.Warnf("shutdown: %v", err)
		}
	}
}

func openBackend(ctx context.Context, conf *config.Config) (*backend, error) {
	mem := otp.NewMemoryLimiter(conf.OTPTTL)
	b := &backend{limiter: mem, tokens: mem}

	if conf.DBDriver == "memory" {
		log.Warn("using the in-memory store, records are lost on exit")
		b.store = memstore.New()
		return b, nil
	}

	gdb, err := db.Open(conf)
	if err != nil {
		return nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	b.closers = append(b.closers, sqlDB.Close)

	var bus feed.Bus
	switch conf.FeedBackend {
	case "local", "":
		bus = feed.NewLocal()
	case "redis":
		var client *goredis.Client
		client, err = redis.Connect(ctx, conf)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, client.Close)
		rl := otp.NewRedisLimiter(client, conf.OTPTTL)
		b.limiter, b.tokens = rl, rl
		bus, err = feed.NewRedis(ctx, client)
	case "postgres":
		bus, err = feed.NewPostgres(sqlDB, conf.DatabaseURL)
	default:
		err = errors.Errorf("unsupported FEED_BACKEND %q", conf.FeedBackend)
	}
	if err != nil {
		b.Close()
		return nil, err
	}
	b.closers = append(b.closers, bus.Close)
	b.store = gormstore.New(gdb, bus)
	return b, nil
}

func newNotifier(conf *config.Config, users store.Users) notify.Notifier {
	if conf.SMTPHost == "" {
		log.Info("SMTP_HOST not set, notifications are only logged")
		return notify.Log{}
	}
	return notify.NewMailer(conf, users)
}

// newApp assembles the fiber app on top of a backend.
func newApp(conf *config.Config, b *backend, notifier notify.Notifier) *fiber.App {
	neg := negotiation.New(b.store, notifier)
	bill := billing.New(b.store, notifier, b.tokens, billing.Config{
		Threshold: conf.BillingThreshold,
		TokenTTL:  conf.AttendanceTokenTTL,
		Secret:    []byte(conf.JWTSecret),
	})
	hs := handshake.New(b.store, bill, b.limiter, notifier, handshake.Config{
		CodeTTL:         conf.OTPTTL,
		MaxAttempts:     conf.OTPMaxAttempts,
		SessionDuration: conf.SessionDuration,
	})

	app := fiber.New(fiber.Config{AppName: "tutor-sessions"})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
	}))

	routes.Setup(app, conf.JWTSecret, &routes.Handlers{
		Appointments: controllers.NewAppointmentController(neg),
		Sessions:     controllers.NewSessionController(hs),
		Contracts:    controllers.NewContractController(bill),
		Events:       controllers.NewEventsController(b.store, neg, bill),
	})
	return app
}

func serve(ctx context.Context, conf *config.Config) error {
	if conf.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := openBackend(ctx, conf)
	if err != nil {
		return err
	}
	defer b.Close()

	notifier := newNotifier(conf, b.store)
	scheduler, err := cron.StartCronJobs(cron.NewReminders(b.store, b.store, notifier), conf.ReminderSchedule, conf.PaymentReminderSchedule)
	if err != nil {
		return errors.Wrap(err, "start cron jobs")
	}
	defer scheduler.Stop()

	app := newApp(conf, b, notifier)
	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(":" + conf.Port)
	}()
	log.Infof("server running on port %s", conf.Port)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down server...")
	return app.ShutdownWithTimeout(10 * time.Second)
}
