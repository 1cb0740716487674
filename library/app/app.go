package app

import (
	"context"
	"io/fs"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ibd-library/library-service/library/config"
	"github.com/ibd-library/library-service/library/internal/assistant"
	"github.com/ibd-library/library-service/library/internal/handler"
	"github.com/ibd-library/library-service/library/internal/notify"
	"github.com/ibd-library/library-service/library/internal/repository"
	"github.com/ibd-library/library-service/library/internal/server"
	"github.com/ibd-library/library-service/library/internal/service"
	"github.com/ibd-library/library-service/library/migrations"
	"github.com/ibd-library/library-service/library/seed"
	"github.com/ibd-library/library-service/pkg/auth"
	"github.com/ibd-library/library-service/pkg/kafka"
	"github.com/ibd-library/library-service/pkg/logger"
	"github.com/ibd-library/library-service/pkg/migrate"
	"github.com/ibd-library/library-service/pkg/postgres"
	"github.com/ibd-library/library-service/pkg/sqlite"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func Run(cfg *config.Config) {
	log := logger.NewLogger(cfg.Log, "library")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := openDB(ctx, cfg.Database, true)
	if err != nil {
		log.Fatal("db init", zap.Error(err))
	}
	repo, err := repository.NewRepository(db, log)
	if err != nil {
		log.Fatal("repo", zap.Error(err))
	}

	revoker := auth.NewMemoryRevoker()
	if cfg.Redis.Addr != "" {
		client, err := auth.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("redis", zap.Error(err))
		}
		defer client.Close()
		revoker = auth.NewRedisRevoker(client)
	}
	tokens := auth.NewTokenManager(cfg.Auth)

	var publisher notify.Publisher = notify.NewLogPublisher(log)
	if cfg.Kafka.Enabled() {
		producer, err := kafka.NewProducer(cfg.Kafka)
		if err != nil {
			log.Fatal("kafka.NewProducer", zap.Error(err))
		}
		kp := notify.NewKafkaPublisher(producer, cfg.Kafka.Topic, log)
		defer kp.Close()
		publisher = kp
	}

	svc := service.NewService(repo, log,
		service.WithPublisher(publisher),
		service.WithAuth(tokens, revoker),
	)

	if n, err := seed.Run(ctx, svc, seedAdmin(cfg.Seed)); err != nil {
		log.Error("seed", zap.Error(err))
	} else if n > 0 {
		log.Info("sample catalog seeded", zap.Int("items", n))
	}

	sweeper := notify.NewOverdueSweeper(svc, publisher, log)
	if err := sweeper.Start(cfg.Notify.OverdueSchedule); err != nil {
		log.Fatal("sweeper", zap.Error(err))
	}
	defer sweeper.Stop()

	if cfg.Kafka.Enabled() {
		group, err := kafka.NewConsumerGroup(cfg.Kafka)
		if err != nil {
			log.Fatal("kafka.NewConsumerGroup", zap.Error(err))
		}
		defer group.Close()
		consumer := notify.NewReminderConsumer(notify.NewLogReminder(svc, log), log)
		go func() {
			if err := kafka.Consume(ctx, group, consumer, cfg.Kafka.Topic); err != nil {
				log.Error("kafka.Consume", zap.Error(err))
			}
		}()
	}

	var primary assistant.Responder
	if cfg.Assistant.APIKey != "" {
		primary = assistant.NewGemini(cfg.Assistant, svc, log)
	}
	chat := assistant.New(primary, assistant.NewFallback(svc), log)

	h := handler.New(svc, chat, tokens, revoker, log)
	srv := server.NewServer(cfg.Server, h.NewRouter())
	log.Info("http server start ON: ",
		zap.String("addr",
			net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))
	go func() {
		if err := srv.Run(); err != nil {
			log.Error("server run", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	termSig := <-sig

	log.Debug("Graceful shutdown", zap.Any("signal", termSig))

	closeCtx, closeCancel := context.WithTimeout(context.Background(), time.Second*5)
	defer closeCancel()

	if err = srv.Stop(closeCtx); err != nil {
		log.DPanic("srv.Stop", zap.Error(err))
	}
	cancel()
	db.Close()
	log.Info("Graceful shutdown finished")
}

// Migrate applies ("up"), rolls back one ("down") or reports ("status") schema migrations.
func Migrate(ctx context.Context, cfg *config.Config, direction string) (int64, error) {
	db, err := openDB(ctx, cfg.Database, false)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	dialect, fsys := migrationsFor(cfg.Database.Driver)
	switch direction {
	case "up":
		if err := migrate.Up(ctx, db.DB, dialect, fsys); err != nil {
			return 0, err
		}
	case "down":
		if err := migrate.Down(ctx, db.DB, dialect, fsys); err != nil {
			return 0, err
		}
	case "status":
	default:
		return 0, errors.Errorf("unknown migrate direction %q", direction)
	}
	return migrate.Status(ctx, db.DB, dialect, fsys)
}

// Seed loads the sample catalog and the librarian account into a migrated store.
func Seed(ctx context.Context, cfg *config.Config) (int, error) {
	log := logger.NewLogger(cfg.Log, "library")
	db, err := openDB(ctx, cfg.Database, true)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	repo, err := repository.NewRepository(db, log)
	if err != nil {
		return 0, err
	}
	return seed.Run(ctx, service.NewService(repo, log), seedAdmin(cfg.Seed))
}

func seedAdmin(cfg config.Seed) seed.Admin {
	return seed.Admin{Email: cfg.AdminEmail, Password: cfg.AdminPassword, Name: cfg.AdminName}
}

func migrationsFor(driver string) (string, fs.FS) {
	if driver == sqlite.DriverName {
		return migrate.DialectSQLite, migrations.SQLite()
	}
	return migrate.DialectPostgres, migrations.Postgres()
}

// openDB connects to the configured store, migrating it first when withMigrations is set.
func openDB(ctx context.Context, cfg config.Database, withMigrations bool) (*sqlx.DB, error) {
	_, fsys := migrationsFor(cfg.Driver)
	if !withMigrations {
		fsys = nil
	}
	switch cfg.Driver {
	case sqlite.DriverName:
		return sqlite.NewSQLiteDB(ctx, &cfg.SQLite, fsys)
	case migrate.DialectPostgres, postgres.DriverName:
		return postgres.NewPostgresDB(ctx, &cfg.Postgres, fsys)
	default:
		return nil, errors.Errorf("unknown DB_DRIVER %q", cfg.Driver)
	}
}
