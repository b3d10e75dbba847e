package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config 描述了 defiagentd 在启动阶段需要加载的全部配置。
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Storage   StorageConfig   `yaml:"storage"`
	LLM       LLMConfig       `yaml:"llm"`
	Web3      Web3Config      `yaml:"web3"`
	Files     FilesConfig     `yaml:"files"`
	TaskQueue TaskQueueConfig `yaml:"task_queue"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig 控制 API 服务的监听端口、跨域与限流参数。
type ServerConfig struct {
	Host                   string `yaml:"host"`
	Port                   int    `yaml:"port"`
	FrontendURL            string `yaml:"frontend_url"`
	Env                    string `yaml:"env"`
	AuthRequestsPerMinute  int    `yaml:"auth_requests_per_minute"`
	ChatRequestsPerMinute  int    `yaml:"chat_requests_per_minute"`
	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds"`
	MaxBodyBytes           int64  `yaml:"max_body_bytes"`
}

// Address 返回 HTTP 服务监听地址。
func (s ServerConfig) Address() string {
	return s.Host + ":" + strconv.Itoa(s.Port)
}

// IsProduction 判断当前是否运行在生产环境。
func (s ServerConfig) IsProduction() bool {
	return strings.EqualFold(s.Env, "production")
}

// ShutdownTimeout 返回优雅关闭的超时时间。
func (s ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutSeconds) * time.Second
}

// AuthConfig 描述 JWT 与钱包登录相关的参数。
type AuthConfig struct {
	Secret          string `yaml:"secret"`
	TokenTTLHours   int    `yaml:"token_ttl_hours"`
	CookieName      string `yaml:"cookie_name"`
	NonceTTLSeconds int    `yaml:"nonce_ttl_seconds"`
}

// TokenTTL 返回访问令牌有效期。
func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLHours) * time.Hour
}

// NonceTTL 返回钱包 nonce 有效期。
func (a AuthConfig) NonceTTL() time.Duration {
	return time.Duration(a.NonceTTLSeconds) * time.Second
}

// StorageConfig 统一描述数据库与 Redis 的连接信息。
type StorageConfig struct {
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
}

// DatabaseConfig 支持 memory、mysql 与 postgres 三种驱动。
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"`
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeSeconds int    `yaml:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int    `yaml:"conn_max_idle_time_seconds"`
}

// RedisConfig 为空时禁用钱包 nonce 与基于 Redis 的流缓存。
type RedisConfig struct {
	URL string `yaml:"url"`
}

// LLMConfig 用于配置大模型推理的调用方式。
type LLMConfig struct {
	Provider       string `yaml:"provider"`
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	TitleModel     string `yaml:"title_model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	// KnowledgePath 指向附加到系统提示词的参考资料文件，留空表示禁用。
	KnowledgePath  string `yaml:"knowledge_path"`
	KnowledgeLimit int    `yaml:"knowledge_limit"`
}

// Timeout 返回单次调用的超时时间。
func (l LLMConfig) Timeout() time.Duration {
	return time.Duration(l.TimeoutSeconds) * time.Second
}

// Web3Config 包含访问区块链节点所需的 RPC 信息。
type Web3Config struct {
	RPCURL       string `yaml:"rpc_url"`
	ChainID      string `yaml:"chain_id"`
	ChainConfig  string `yaml:"chain_config"`
	DefaultChain string `yaml:"default_chain"`
}

// FilesConfig 描述上传文件的存储后端。
type FilesConfig struct {
	Driver    string      `yaml:"driver"`
	MaxSizeMB int         `yaml:"max_size_mb"`
	MinIO     MinIOConfig `yaml:"minio"`
}

// MinIOConfig 对应 MinIO/S3 兼容存储。
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
	PublicURL string `yaml:"public_url"`
}

// TaskQueueConfig 描述后台任务队列。
type TaskQueueConfig struct {
	Driver     string         `yaml:"driver"`
	Workers    int            `yaml:"workers"`
	MaxRetries int            `yaml:"max_retries"`
	Redis      RedisQueue     `yaml:"redis"`
	RabbitMQ   RabbitMQConfig `yaml:"rabbitmq"`
}

// RedisQueue 描述 Redis list 队列。
type RedisQueue struct {
	Queue            string `yaml:"queue"`
	BlockWaitSeconds int    `yaml:"block_wait_seconds"`
}

// RabbitMQConfig 描述 RabbitMQ 队列。
type RabbitMQConfig struct {
	URL        string `yaml:"url"`
	Queue      string `yaml:"queue"`
	Prefetch   int    `yaml:"prefetch"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
}

// LoggingConfig 对应 pkg/logger 的配置。
type LoggingConfig struct {
	Level       string      `yaml:"level"`
	Format      string      `yaml:"format"`
	OutputPaths []string    `yaml:"output_paths"`
	Audit       AuditConfig `yaml:"audit"`
}

// AuditConfig 描述审计日志文件。
type AuditConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// environment 列出支持的环境变量覆盖项，未设置的变量保持文件中的取值。
type environment struct {
	Port            int    `envconfig:"PORT"`
	FrontendURL     string `envconfig:"FRONTEND_URL"`
	Env             string `envconfig:"NODE_ENV"`
	AuthSecret      string `envconfig:"AUTH_SECRET"`
	DatabaseDriver  string `envconfig:"DATABASE_DRIVER"`
	DatabaseURL     string `envconfig:"DATABASE_URL"`
	RedisURL        string `envconfig:"REDIS_URL"`
	LLMProvider     string `envconfig:"LLM_PROVIDER"`
	OpenAIKey       string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL   string `envconfig:"OPENAI_BASE_URL"`
	ChainRPCURL     string `envconfig:"CHAIN_RPC_URL"`
	ChainID         string `envconfig:"CHAIN_ID"`
	MinIOEndpoint   string `envconfig:"MINIO_ENDPOINT"`
	MinIOAccessKey  string `envconfig:"MINIO_ACCESS_KEY"`
	MinIOSecretKey  string `envconfig:"MINIO_SECRET_KEY"`
	MinIOBucket     string `envconfig:"MINIO_BUCKET"`
	TaskQueueDriver string `envconfig:"TASK_QUEUE_DRIVER"`
	RabbitMQURL     string `envconfig:"RABBITMQ_URL"`
	LogLevel        string `envconfig:"LOG_LEVEL"`
}

// Load 依次读取 .env、YAML 配置文件与环境变量，并补全默认值。
// 配置文件不存在时仅使用环境变量与默认值。
func Load(path string) (*Config, error) {
	if err := loadDotEnv(path); err != nil {
		return nil, err
	}

	var cfg Config
	baseDir := "."
	if strings.TrimSpace(path) != "" {
		baseDir = filepath.Dir(path)
		content, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(content, &cfg); err != nil {
				return nil, fmt.Errorf("解析配置失败: %w", err)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	if err := cfg.applyEnvironment(); err != nil {
		return nil, err
	}
	cfg.applyDefaults(baseDir)
	return &cfg, nil
}

// loadDotEnv 加载工作目录与配置目录下的 .env 文件，已存在的环境变量不会被覆盖。
func loadDotEnv(configPath string) error {
	candidates := []string{".env"}
	if dir := filepath.Dir(configPath); strings.TrimSpace(configPath) != "" && dir != "." {
		candidates = append(candidates, filepath.Join(dir, ".env"))
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		if err := godotenv.Load(candidate); err != nil {
			return fmt.Errorf("加载 %s 失败: %w", candidate, err)
		}
	}
	return nil
}

func (c *Config) applyEnvironment() error {
	var env environment
	if err := envconfig.Process("", &env); err != nil {
		return fmt.Errorf("解析环境变量失败: %w", err)
	}
	setInt(&c.Server.Port, env.Port)
	setString(&c.Server.FrontendURL, env.FrontendURL)
	setString(&c.Server.Env, env.Env)
	setString(&c.Auth.Secret, env.AuthSecret)
	setString(&c.Storage.Database.Driver, env.DatabaseDriver)
	setString(&c.Storage.Database.DSN, env.DatabaseURL)
	setString(&c.Storage.Redis.URL, env.RedisURL)
	setString(&c.LLM.Provider, env.LLMProvider)
	setString(&c.LLM.APIKey, env.OpenAIKey)
	setString(&c.LLM.BaseURL, env.OpenAIBaseURL)
	setString(&c.Web3.RPCURL, env.ChainRPCURL)
	setString(&c.Web3.ChainID, env.ChainID)
	setString(&c.Files.MinIO.Endpoint, env.MinIOEndpoint)
	setString(&c.Files.MinIO.AccessKey, env.MinIOAccessKey)
	setString(&c.Files.MinIO.SecretKey, env.MinIOSecretKey)
	setString(&c.Files.MinIO.Bucket, env.MinIOBucket)
	setString(&c.TaskQueue.Driver, env.TaskQueueDriver)
	setString(&c.TaskQueue.RabbitMQ.URL, env.RabbitMQURL)
	setString(&c.Logging.Level, env.LogLevel)
	if env.MinIOEndpoint != "" && c.Files.Driver == "" {
		c.Files.Driver = "minio"
	}
	if env.DatabaseURL != "" && c.Storage.Database.Driver == "" {
		c.Storage.Database.Driver = guessDriver(env.DatabaseURL)
	}
	return nil
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Server.FrontendURL == "" {
		c.Server.FrontendURL = "http://localhost:5555"
	}
	if c.Server.Env == "" {
		c.Server.Env = "development"
	}
	if c.Server.AuthRequestsPerMinute <= 0 {
		c.Server.AuthRequestsPerMinute = 5
	}
	if c.Server.ChatRequestsPerMinute <= 0 {
		c.Server.ChatRequestsPerMinute = 30
	}
	if c.Server.ShutdownTimeoutSeconds <= 0 {
		c.Server.ShutdownTimeoutSeconds = 5
	}
	if c.Server.MaxBodyBytes <= 0 {
		c.Server.MaxBodyBytes = 1 << 20
	}

	if c.Auth.Secret == "" {
		c.Auth.Secret = "secret"
	}
	if c.Auth.TokenTTLHours <= 0 {
		c.Auth.TokenTTLHours = 30 * 24
	}
	if c.Auth.CookieName == "" {
		c.Auth.CookieName = "auth_token"
	}
	if c.Auth.NonceTTLSeconds <= 0 {
		c.Auth.NonceTTLSeconds = 300
	}

	if c.Storage.Database.Driver == "" {
		c.Storage.Database.Driver = "memory"
	}

	if c.LLM.Provider == "" {
		if c.LLM.APIKey != "" {
			c.LLM.Provider = "openai"
		} else {
			c.LLM.Provider = "echo"
		}
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if c.LLM.TitleModel == "" {
		c.LLM.TitleModel = c.LLM.Model
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = 60
	}

	if c.LLM.KnowledgePath != "" && !filepath.IsAbs(c.LLM.KnowledgePath) {
		c.LLM.KnowledgePath = filepath.Join(baseDir, c.LLM.KnowledgePath)
	}
	if c.LLM.KnowledgeLimit <= 0 {
		c.LLM.KnowledgeLimit = 3
	}

	if c.Web3.ChainConfig != "" && !filepath.IsAbs(c.Web3.ChainConfig) {
		c.Web3.ChainConfig = filepath.Join(baseDir, c.Web3.ChainConfig)
	}

	if c.Files.Driver == "" {
		c.Files.Driver = "memory"
	}
	if c.Files.MaxSizeMB <= 0 {
		c.Files.MaxSizeMB = 5
	}
	if c.Files.MinIO.Bucket == "" {
		c.Files.MinIO.Bucket = "uploads"
	}
	if c.Files.MinIO.Region == "" {
		c.Files.MinIO.Region = "us-east-1"
	}

	if c.TaskQueue.Driver == "" {
		c.TaskQueue.Driver = "memory"
	}
	if c.TaskQueue.Workers <= 0 {
		c.TaskQueue.Workers = 2
	}
	if c.TaskQueue.MaxRetries <= 0 {
		c.TaskQueue.MaxRetries = 3
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Audit.Enabled && c.Logging.Audit.Path != "" && !filepath.IsAbs(c.Logging.Audit.Path) {
		c.Logging.Audit.Path = filepath.Join(baseDir, c.Logging.Audit.Path)
	}
}

func guessDriver(dsn string) string {
	lower := strings.ToLower(dsn)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return "postgres"
	}
	return "mysql"
}

func setString(dst *string, value string) {
	if strings.TrimSpace(value) != "" {
		*dst = strings.TrimSpace(value)
	}
}

func setInt(dst *int, value int) {
	if value != 0 {
		*dst = value
	}
}
