package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"taskhub/internal/audit"
	"taskhub/internal/config"
	"taskhub/internal/metrics"
	"taskhub/internal/model"
	"taskhub/internal/notify"
	mysqlClient "taskhub/internal/platform/mysql"
	rabbitmqClient "taskhub/internal/platform/rabbitmq"
	redisClient "taskhub/internal/platform/redis"
	"taskhub/internal/platform/storage"
	"taskhub/internal/worker"
)

// App owns every process-wide collaborator: opened at startup, injected
// into services and closed together on shutdown.
type App struct {
	Config             *config.Config
	MySQL              *gorm.DB
	Redis              *redis.Client
	MQConn             *amqp.Connection
	Storage            *storage.ObjectStore
	Mailer             *notify.Mailer
	Audit              *audit.Log
	NotificationWorker *worker.NotificationWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	metrics.Init()

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(&model.User{}, &model.Task{}); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	objectStore, err := storage.New(
		ctx,
		cfg.Storage.Endpoint,
		cfg.Storage.AccessKey,
		cfg.Storage.SecretKey,
		cfg.Storage.UseSSL,
		cfg.Storage.Bucket,
		cfg.Storage.PublicBaseURL,
	)
	if err != nil {
		return nil, err
	}

	auditLog, err := audit.New(cfg.Audit.Dir)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.Tasks.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload staging dir failed: %w", err)
	}

	mailer := notify.NewMailer(
		cfg.Mail.Host,
		cfg.Mail.Port,
		cfg.Mail.Username,
		cfg.Mail.Password,
		cfg.Mail.From,
		cfg.Mail.FromName,
	)

	notificationWorker := worker.NewNotificationWorker(mqConn, mailer, cfg.RabbitMQ.NotificationQueue)
	if err := notificationWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start notification worker failed: %w", err)
	}

	return &App{
		Config:             cfg,
		MySQL:              mysqlDB,
		Redis:              redisCli,
		MQConn:             mqConn,
		Storage:            objectStore,
		Mailer:             mailer,
		Audit:              auditLog,
		NotificationWorker: notificationWorker,
		StartedAt:          time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.NotificationWorker != nil {
		a.NotificationWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
