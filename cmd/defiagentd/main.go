// Command defiagentd 启动 DeFi 智能体后端。
//
// @title                       DeFi Agent API
// @version                     1.0
// @description                 Chat, artifact and wallet endpoints of the DeFi agent backend.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"DeFi-Agent/internal/agents"
	"DeFi-Agent/internal/api"
	"DeFi-Agent/internal/auth"
	"DeFi-Agent/internal/chat"
	"DeFi-Agent/internal/config"
	"DeFi-Agent/internal/document"
	"DeFi-Agent/internal/files"
	"DeFi-Agent/internal/knowledge"
	"DeFi-Agent/internal/links"
	"DeFi-Agent/internal/llm"
	"DeFi-Agent/internal/llm/echo"
	"DeFi-Agent/internal/llm/openai"
	"DeFi-Agent/internal/observability/alerting"
	"DeFi-Agent/internal/observability/metrics"
	redisstore "DeFi-Agent/internal/storage/redis"
	"DeFi-Agent/internal/storage/sqldb"
	"DeFi-Agent/internal/store"
	"DeFi-Agent/internal/task"
	"DeFi-Agent/internal/web3/provider"
	"DeFi-Agent/pkg/logger"
)

// main 是 defiagentd 守护进程的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("defiagentd 运行失败: %v", err)
	}
}

func run(ctx context.Context) error {
	configPath := os.Getenv("DEFIAGENT_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("configs", "defiagent.yaml")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := logger.Init(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: cfg.Logging.OutputPaths,
		Audit: logger.AuditConfig{
			Enabled:    cfg.Logging.Audit.Enabled,
			Path:       cfg.Logging.Audit.Path,
			MaxSizeMB:  cfg.Logging.Audit.MaxSizeMB,
			MaxBackups: cfg.Logging.Audit.MaxBackups,
			MaxAgeDays: cfg.Logging.Audit.MaxAgeDays,
		},
	}); err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	defer logger.Sync()
	lg := logger.Named("defiagentd")

	repo, err := openRepository(ctx, cfg.Storage.Database)
	if err != nil {
		return err
	}
	defer repo.Close()

	redisClient := connectRedis(ctx, cfg.Storage.Redis.URL, lg)
	if redisClient != nil {
		defer redisClient.Close()
	}

	nonces := nonceStoreFor(redisClient)
	if nonces == nil {
		lg.Warn("Redis 不可用，钱包登录已禁用")
	}
	authService, err := auth.NewService(auth.Config{
		Secret:   cfg.Auth.Secret,
		TokenTTL: cfg.Auth.TokenTTL(),
		NonceTTL: cfg.Auth.NonceTTL(),
		Issuer:   "defiagentd",
	}, repo, nonces)
	if err != nil {
		return err
	}

	llmClient, err := createLLMClient(cfg.LLM)
	if err != nil {
		return err
	}

	chains, err := provider.NewRegistry(ctx, cfg.Web3)
	if err != nil {
		return err
	}
	defer chains.Close()
	if chains.Empty() {
		lg.Warn("未配置任何链，链上查询接口不可用")
	}

	registry := agents.NewRegistry()
	agents.RegisterBuiltins(registry, chains)

	// 使用 SQL 数据库时任务状态与业务数据共用连接池。
	var taskStore task.Store = task.NewMemoryStore()
	if sqlRepo, ok := repo.(*sqldb.Repository); ok {
		taskStore = task.NewSQLStore(sqlRepo.DB())
	}
	taskQueue, err := createTaskQueue(cfg.TaskQueue, redisClient)
	if err != nil {
		return err
	}
	defer func() {
		if err := taskQueue.Close(); err != nil {
			lg.Warn("关闭任务队列失败", slog.Any("error", err))
		}
	}()
	jobs := task.NewService(taskStore, taskQueue, cfg.TaskQueue.MaxRetries)

	alerts := alerting.NewFanout(&alerting.LogNotifier{Logger: logger.Audit()})
	processor := task.NewProcessor(taskStore, taskQueue, taskQueue,
		task.WithWorkerCount(cfg.TaskQueue.Workers),
		task.WithProcessorLogger(logger.Named("task")),
		task.WithObserver(func(kind task.Kind, outcome task.Outcome) {
			metrics.ObserveJob(string(kind), string(outcome))
		}),
		task.WithAlerts(alerts),
	)
	processor.Register(chat.TitleJobKind, chat.NewTitleExecutor(llmClient, repo, cfg.LLM.TitleModel))

	processorCtx, processorCancel := context.WithCancel(ctx)
	defer processorCancel()
	go func() {
		if err := processor.Start(processorCtx); err != nil && !errors.Is(err, context.Canceled) {
			lg.Error("任务处理器异常退出", slog.Any("error", err))
		}
	}()

	var buffer chat.StreamBuffer
	if redisClient != nil {
		buffer = redisstore.NewStreamBuffer(redisClient, 0)
	} else {
		buffer = chat.NewMemoryBuffer(0)
	}
	chatOpts := []chat.Option{
		chat.WithAgents(registry),
		chat.WithJobs(jobs),
		chat.WithStreamBuffer(buffer),
		chat.WithDefaultModel(cfg.LLM.Model),
		chat.WithStreamObserver(metrics.ObserveChatStream),
	}
	notes, err := loadKnowledge(cfg.LLM)
	if err != nil {
		return err
	}
	if notes != nil {
		chatOpts = append(chatOpts, chat.WithKnowledge(notes))
	}
	chatService := chat.NewService(repo, llmClient, chatOpts...)

	storage, err := createFileStorage(ctx, cfg.Files)
	if err != nil {
		return err
	}

	server := api.NewServer(cfg.Server, cfg.Auth, api.Dependencies{
		Auth:      authService,
		Chat:      chatService,
		Documents: document.NewService(repo),
		Links:     links.NewService(repo),
		Files:     files.NewService(storage, int64(cfg.Files.MaxSizeMB)<<20),
		Agents:    registry,
		Chains:    chains,
	})

	janitor, err := startJanitor(ctx, janitorTargets{
		buffer:   buffer,
		jobs:     jobs,
		server:   server,
		schedule: "@every 1m",
		taskTTL:  time.Hour,
	})
	if err != nil {
		return err
	}
	defer janitor.Stop()

	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func openRepository(ctx context.Context, cfg config.DatabaseConfig) (store.Repository, error) {
	switch cfg.Driver {
	case "", "memory":
		return store.NewMemory(), nil
	case sqldb.DriverMySQL, sqldb.DriverPostgres:
		return sqldb.Open(ctx, sqldb.Config{
			Driver:          cfg.Driver,
			DSN:             cfg.DSN,
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.ConnMaxLifetimeSeconds) * time.Second,
			ConnMaxIdleTime: time.Duration(cfg.ConnMaxIdleTimeSeconds) * time.Second,
		})
	default:
		return nil, fmt.Errorf("未知的数据库驱动: %s", cfg.Driver)
	}
}

// connectRedis 连接 Redis。未配置或连接失败时返回 nil，依赖 Redis 的功能随之降级。
func connectRedis(ctx context.Context, url string, lg *slog.Logger) *goredis.Client {
	if url == "" {
		return nil
	}
	client, err := redisstore.NewClient(ctx, url)
	if err != nil {
		lg.Warn("连接 Redis 失败，以降级模式运行", slog.Any("error", err))
		return nil
	}
	return client
}

// nonceStoreFor 仅在 Redis 可用时返回 nonce 存储，否则钱包 nonce 请求返回 offline:auth。
func nonceStoreFor(client *goredis.Client) auth.NonceStore {
	if client == nil {
		return nil
	}
	return redisstore.NewNonceStore(client)
}

func createTaskQueue(cfg config.TaskQueueConfig, client *goredis.Client) (task.Queue, error) {
	switch cfg.Driver {
	case "", "memory":
		return task.NewMemoryQueue(1024), nil
	case "redis":
		if client == nil {
			return nil, errors.New("redis 任务队列需要配置 storage.redis.url")
		}
		return task.NewRedisQueue(client, task.RedisQueueConfig{
			Queue:     cfg.Redis.Queue,
			BlockWait: time.Duration(cfg.Redis.BlockWaitSeconds) * time.Second,
		})
	case "rabbitmq":
		return task.NewRabbitMQQueue(task.RabbitMQConfig{
			URL:        cfg.RabbitMQ.URL,
			Queue:      cfg.RabbitMQ.Queue,
			Prefetch:   cfg.RabbitMQ.Prefetch,
			Durable:    cfg.RabbitMQ.Durable,
			AutoDelete: cfg.RabbitMQ.AutoDelete,
		})
	default:
		return nil, fmt.Errorf("未知的队列驱动: %s", cfg.Driver)
	}
}

func createFileStorage(ctx context.Context, cfg config.FilesConfig) (files.Storage, error) {
	switch cfg.Driver {
	case "", "memory":
		return files.NewMemoryStorage(""), nil
	case "minio":
		return files.NewMinIOStorage(ctx, cfg.MinIO)
	default:
		return nil, fmt.Errorf("未知的文件存储驱动: %s", cfg.Driver)
	}
}

// loadKnowledge 加载参考资料，未配置路径时返回 nil。
func loadKnowledge(cfg config.LLMConfig) (knowledge.Provider, error) {
	if cfg.KnowledgePath == "" {
		return nil, nil
	}
	provider, err := knowledge.LoadStaticProvider(cfg.KnowledgePath, cfg.KnowledgeLimit)
	if err != nil {
		return nil, err
	}
	return provider, nil
}

func createLLMClient(cfg config.LLMConfig) (llm.Client, error) {
	switch cfg.Provider {
	case "", "echo":
		return echo.New(), nil
	case "openai":
		if cfg.APIKey == "" {
			return nil, errors.New("OpenAI provider 需要配置 OPENAI_API_KEY")
		}
		return openai.NewClient(openai.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout(),
		})
	default:
		return nil, fmt.Errorf("未知的大模型 provider: %s", cfg.Provider)
	}
}
