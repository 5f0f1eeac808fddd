package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Business BusinessConfig `mapstructure:"business"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type LogConfig struct {
	Mode string `mapstructure:"mode"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	Notification string `mapstructure:"notification"`
}

// LedgerConfig 账本核心参数
type LedgerConfig struct {
	IFSC                  string `mapstructure:"ifsc"`
	MaxAllocationAttempts int    `mapstructure:"max_allocation_attempts"`
	CreateRetries         int    `mapstructure:"create_retries"`
	StatementPageSize     int    `mapstructure:"statement_page_size"`
	ReservationTTLSeconds int    `mapstructure:"reservation_ttl_seconds"`
}

type BusinessConfig struct {
	OutboxIntervalMillis int `mapstructure:"outbox_interval_millis"`
	OutboxBatchSize      int `mapstructure:"outbox_batch_size"`
	MaxRetryCount        int `mapstructure:"max_retry_count"`
}

// SetDefaults 写入默认值，配置文件与环境变量均可覆盖
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("log.mode", "production")

	v.SetDefault("mysql.host", "127.0.0.1")
	v.SetDefault("mysql.port", 3306)
	v.SetDefault("mysql.user", "root")
	v.SetDefault("mysql.password", "")
	v.SetDefault("mysql.database", "bank_manage")
	v.SetDefault("mysql.max_open_conns", 20)
	v.SetDefault("mysql.max_idle_conns", 5)

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.brokers", []string{"127.0.0.1:9092"})
	v.SetDefault("kafka.topic.notification", "ledger.notification")

	v.SetDefault("ledger.ifsc", "BANK0000001")
	v.SetDefault("ledger.max_allocation_attempts", 32)
	v.SetDefault("ledger.create_retries", 3)
	v.SetDefault("ledger.statement_page_size", 50)
	v.SetDefault("ledger.reservation_ttl_seconds", 30)

	v.SetDefault("business.outbox_interval_millis", 200)
	v.SetDefault("business.outbox_batch_size", 100)
	v.SetDefault("business.max_retry_count", 5)
}

// LoadConfig 加载配置文件
//
// 环境变量以 LEDGER_ 为前缀覆盖配置项，例如 LEDGER_MYSQL_PASSWORD
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix("LEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验账本相关参数
func (c *Config) Validate() error {
	if c.Ledger.IFSC == "" {
		return fmt.Errorf("ledger.ifsc 不能为空")
	}
	if c.Ledger.MaxAllocationAttempts <= 0 {
		return fmt.Errorf("ledger.max_allocation_attempts 必须大于0")
	}
	if c.Ledger.CreateRetries <= 0 {
		return fmt.Errorf("ledger.create_retries 必须大于0")
	}
	if c.Ledger.StatementPageSize <= 0 {
		return fmt.Errorf("ledger.statement_page_size 必须大于0")
	}
	if c.Business.OutboxIntervalMillis <= 0 {
		return fmt.Errorf("business.outbox_interval_millis 必须大于0")
	}
	return nil
}
