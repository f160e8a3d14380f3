package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bankcore/internal/config"
	"bankcore/internal/handler"
	"bankcore/internal/infrastructure/cache"
	"bankcore/internal/infrastructure/database"
	"bankcore/internal/infrastructure/lock"
	"bankcore/internal/infrastructure/mq"
	"bankcore/internal/job"
	"bankcore/internal/logger"
	"bankcore/internal/service"
	"bankcore/pkg/idgen"
)

func main() {
	// 加载配置
	cfg, err := config.LoadConfig("config/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Console)
	logger.SetGlobal(log)

	// 创建上下文（用于优雅关闭）
	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()

	// 初始化 ID 生成器
	seq, err := idgen.NewSnowflake(cfg.Server.WorkerID)
	if err != nil {
		log.Fatal().Err(err).Msg("初始化 ID 生成器失败")
	}

	// 初始化数据库（同时自动迁移表结构）
	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("连接数据库失败")
	}

	// 初始化 Redis
	redisClient, err := cache.InitRedis(ctx, &cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("连接 Redis 失败")
	}
	defer redisClient.Close()

	// 初始化 Kafka
	producer, err := mq.NewKafkaProducer(&cfg.Kafka)
	if err != nil {
		log.Fatal().Err(err).Msg("连接 Kafka 失败")
	}
	defer producer.Close()

	biz := cfg.Business
	locker := lock.NewAccountLocker(redisClient, biz.LockTTL, biz.LockRetryInterval, biz.LockMaxRetries)
	audit := service.NewOutboxAuditLog(db, cfg.Kafka.Topic.Audit)

	services := &handler.Services{
		Customers:    service.NewCustomerService(db, seq, audit, biz.CurrencyPrecision),
		Accounts:     service.NewAccountService(db, locker, seq, audit, biz.DefaultCurrency, biz.CurrencyPrecision),
		Transactions: service.NewTransactionService(db, locker, seq, audit, biz.CurrencyPrecision),
		Loans:        service.NewLoanService(db, seq, audit, biz.DefaultCurrency, biz.CurrencyPrecision),
		Dashboard:    service.NewDashboardService(db),
		Audit:        audit,
	}

	// 启动后台任务
	outboxSender := job.NewOutboxSender(db, producer, biz.OutboxInterval, biz.OutboxBatchSize, biz.MaxRetryCount)
	go outboxSender.Start(ctx)

	// 设置路由
	router := handler.SetupRouter(services, cfg.Server.Mode, log)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("driver", cfg.Database.Driver).Msg("服务启动")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("服务启动失败")
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("正在关闭服务...")

	// 取消上下文，停止后台任务
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("服务关闭异常")
	}

	log.Info().Msg("服务已关闭")
}
