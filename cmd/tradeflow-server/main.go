// Tradeflow server — HTTP API, планировщик расписаний и монитор
// ценовых алертов в одном процессе.
//
// Конфигурация через переменные окружения:
//
//	API_PORT       порт HTTP сервера (default: 8080)
//	DB_URL         DSN Postgres
//	BROKER_URL     адрес брокерского API
//	BROKER_MODE    "paper" — встроенный бумажный брокер вместо REST
//	MQ_URL         адрес RabbitMQ; пустой — события не публикуются
//	TELEGRAM_BOT_TOKEN, TELEGRAM_CHAT_ID — узел telegram_alert
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shaiso/Tradeflow/internal/api"
	"github.com/shaiso/Tradeflow/internal/broker"
	"github.com/shaiso/Tradeflow/internal/engine"
	"github.com/shaiso/Tradeflow/internal/locks"
	"github.com/shaiso/Tradeflow/internal/mq"
	"github.com/shaiso/Tradeflow/internal/nodes"
	"github.com/shaiso/Tradeflow/internal/notify"
	"github.com/shaiso/Tradeflow/internal/repo"
	"github.com/shaiso/Tradeflow/internal/telemetry"
	"github.com/shaiso/Tradeflow/internal/trigger"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting tradeflow-server")

	// Подключаемся к базе данных
	pool, err := repo.NewPool(context.Background())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to database")

	workflowRepo := repo.NewWorkflowRepo(pool)
	executionRepo := repo.NewExecutionRepo(pool)

	// Клиент брокера: REST или бумажный симулятор
	var brokerClient broker.Broker
	if os.Getenv("BROKER_MODE") == "paper" {
		brokerClient = broker.NewPaper()
		logger.Info("using paper broker")
	} else {
		brokerClient = broker.NewRESTClientFromEnv()
	}

	var notifier notify.Notifier = notify.Nop{}
	if tg := notify.NewTelegramFromEnv(); tg != nil {
		notifier = tg
		logger.Info("telegram notifications enabled")
	}

	// Публикация событий в RabbitMQ — опциональная
	var events engine.EventPublisher
	var mqConn *mq.Connection
	mqURL := os.Getenv("MQ_URL")
	if mqURL != "" {
		mqConn, err = mq.NewConnection(mqURL, logger)
		if err != nil {
			logger.Warn("rabbitmq unavailable, events disabled", "error", err)
		} else {
			defer mqConn.Close()
			if err := mq.SetupTopology(context.Background(), mqConn); err != nil {
				logger.Error("failed to set up mq topology", "error", err)
				os.Exit(1)
			}
			events = mq.NewPublisher(mqConn, logger)
			logger.Info("event publishing enabled")
		}
	}

	executor := nodes.NewExecutor(nodes.Config{
		Broker:   brokerClient,
		Notifier: notifier,
		Logger:   logger,
	})

	svc := engine.NewService(engine.Config{
		Store:    executionRepo,
		Executor: executor,
		Locks:    locks.NewManager(),
		Events:   events,
		Logger:   logger,
	})

	scheduler := trigger.NewScheduler(trigger.SchedulerConfig{
		Source:   workflowRepo,
		Launcher: svc,
		Logger:   logger,
	})

	monitor := trigger.NewMonitor(trigger.MonitorConfig{
		Broker:   brokerClient,
		Source:   workflowRepo,
		Launcher: svc,
		Logger:   logger,
	})

	// Восстанавливаем триггеры активных workflows после рестарта
	active, err := workflowRepo.ListActive(context.Background())
	if err != nil {
		logger.Error("failed to list active workflows", "error", err)
		os.Exit(1)
	}
	for i := range active {
		wf := &active[i]
		if err := scheduler.Register(wf); err != nil {
			logger.Warn("failed to restore schedule",
				telemetry.WithWorkflowID(wf.ID),
				"error", err,
			)
		}
		monitor.Register(wf)
	}
	logger.Info("triggers restored",
		"workflows", len(active),
		"schedules", scheduler.Registered(),
		"alerts", monitor.Watching(),
	)

	scheduler.Start()

	monitorCtx, stopMonitor := context.WithCancel(context.Background())
	go monitor.Run(monitorCtx)

	handler := api.NewHandler(api.Config{
		Workflows:  workflowRepo,
		Executions: executionRepo,
		Engine:     svc,
		Scheduler:  scheduler,
		Monitor:    monitor,
		Logger:     logger,
	})

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	addr := ":8080"
	if v := os.Getenv("API_PORT"); v != "" {
		addr = ":" + v
	}

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Ожидаем сигнал завершения
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	<-ctx.Done()
	logger.Info("shutting down")

	stopMonitor()
	scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	// Даём идущим executions дописать журналы
	svc.Wait()

	logger.Info("stopped")
}
