package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	// GlobalConfig 全局配置实例
	GlobalConfig *Config
)

// LoadConfig 加载配置文件
// configPath: 配置文件路径，如果为空则使用默认路径
// env: 环境标识，支持 development, test, production
func LoadConfig(configPath, env string) (*Config, error) {
	// 设置默认环境
	if env == "" {
		env = getEnvFromEnvironment()
	}

	// 创建viper实例
	v := viper.New()

	// 设置配置文件类型
	v.SetConfigType("yaml")

	// 设置配置文件路径
	if configPath == "" {
		configPath = getDefaultConfigPath()
	}

	// 根据环境选择配置文件
	configFile := getConfigFileName(configPath, env)
	v.SetConfigFile(configFile)

	// 设置环境变量前缀
	v.SetEnvPrefix("APPROVAL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 绑定环境变量
	bindEnvironmentVariables(v)

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	// 解析配置到结构体
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaultEngineConfig(&config)
	applyDefaultSchedulerConfig(&config)

	// 验证配置
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// 设置全局配置
	GlobalConfig = &config

	return &config, nil
}

// getEnvFromEnvironment 从环境变量获取环境标识
func getEnvFromEnvironment() string {
	env := os.Getenv("APPROVAL_ENV")
	if env == "" {
		env = os.Getenv("GO_ENV")
	}
	if env == "" {
		env = "development" // 默认开发环境
	}
	return env
}

// getDefaultConfigPath 获取默认配置文件路径
func getDefaultConfigPath() string {
	// 尝试从环境变量获取配置路径
	if configPath := os.Getenv("APPROVAL_CONFIG_PATH"); configPath != "" {
		return configPath
	}

	// 使用默认路径
	return "configs"
}

// getConfigFileName 根据环境获取配置文件名
func getConfigFileName(configPath, env string) string {
	var configFile string

	switch env {
	case "production", "prod":
		configFile = filepath.Join(configPath, "config.prod.yaml")
	case "test", "testing":
		configFile = filepath.Join(configPath, "config.test.yaml")
	default:
		configFile = filepath.Join(configPath, "config.yaml")
	}

	// 检查文件是否存在，如果不存在则使用默认配置文件
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		defaultConfig := filepath.Join(configPath, "config.yaml")
		if _, err := os.Stat(defaultConfig); err == nil {
			return defaultConfig
		}
	}

	return configFile
}

// bindEnvironmentVariables 绑定环境变量
func bindEnvironmentVariables(v *viper.Viper) {
	// 数据库配置
	v.BindEnv("database.mysql.host", "APPROVAL_MYSQL_HOST")
	v.BindEnv("database.mysql.port", "APPROVAL_MYSQL_PORT")
	v.BindEnv("database.mysql.username", "APPROVAL_MYSQL_USERNAME")
	v.BindEnv("database.mysql.password", "APPROVAL_MYSQL_PASSWORD")
	v.BindEnv("database.mysql.database", "APPROVAL_MYSQL_DATABASE")

	v.BindEnv("database.redis.host", "APPROVAL_REDIS_HOST")
	v.BindEnv("database.redis.port", "APPROVAL_REDIS_PORT")
	v.BindEnv("database.redis.password", "APPROVAL_REDIS_PASSWORD")
	v.BindEnv("database.redis.database", "APPROVAL_REDIS_DATABASE")

	// JWT配置 (嵌套在security下的路径)
	v.BindEnv("security.jwt.secret", "APPROVAL_JWT_SECRET")
	v.BindEnv("security.jwt.access_token_expire", "APPROVAL_JWT_ACCESS_TOKEN_EXPIRE")
	v.BindEnv("security.jwt.refresh_token_expire", "APPROVAL_JWT_REFRESH_TOKEN_EXPIRE")
	v.BindEnv("security.jwt.issuer", "APPROVAL_JWT_ISSUER")
	v.BindEnv("security.jwt.algorithm", "APPROVAL_JWT_ALGORITHM")

	// 安全配置
	v.BindEnv("security.cors.allow_origins", "APPROVAL_CORS_ALLOW_ORIGINS")

	// 服务器配置
	v.BindEnv("server.host", "APPROVAL_SERVER_HOST")
	v.BindEnv("server.port", "APPROVAL_SERVER_PORT")
	v.BindEnv("server.mode", "APPROVAL_SERVER_MODE")

	// 规则引擎配置
	v.BindEnv("engine.stop_on_first_match", "APPROVAL_ENGINE_STOP_ON_FIRST_MATCH")
	v.BindEnv("engine.default_action", "APPROVAL_ENGINE_DEFAULT_ACTION")

	// 定时任务配置
	v.BindEnv("scheduler.enabled", "APPROVAL_SCHEDULER_ENABLED")
	v.BindEnv("scheduler.escalation_threshold_hours", "APPROVAL_SCHEDULER_ESCALATION_THRESHOLD_HOURS")
	v.BindEnv("scheduler.reminder_threshold_hours", "APPROVAL_SCHEDULER_REMINDER_THRESHOLD_HOURS")

	// 应用配置
	v.BindEnv("app.environment", "APPROVAL_APP_ENVIRONMENT")
	v.BindEnv("app.debug", "APPROVAL_APP_DEBUG")
}

// validateConfig 验证配置
func validateConfig(config *Config) error {
	// 验证服务器配置
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Server.Mode != "debug" && config.Server.Mode != "release" && config.Server.Mode != "test" {
		return fmt.Errorf("invalid server mode: %s", config.Server.Mode)
	}

	// 验证数据库配置
	if config.Database.MySQL.Host == "" {
		return fmt.Errorf("mysql host is required")
	}

	if config.Database.MySQL.Database == "" {
		return fmt.Errorf("mysql database name is required")
	}

	if config.Database.Redis.Host == "" {
		return fmt.Errorf("redis host is required")
	}

	// 验证JWT配置 (嵌套在security下的路径)
	if config.Security.JWT.Secret == "" {
		return fmt.Errorf("jwt secret is required")
	}

	if len(config.Security.JWT.Secret) < 32 {
		return fmt.Errorf("jwt secret must be at least 32 characters long")
	}

	// 验证日志配置
	validLogLevels := []string{"debug", "info", "warn", "error", "fatal", "panic"}
	if !contains(validLogLevels, config.Log.Level) {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, config.Log.Format) {
		return fmt.Errorf("invalid log format: %s", config.Log.Format)
	}

	validLogOutputs := []string{"stdout", "stderr", "file"}
	if !contains(validLogOutputs, config.Log.Output) {
		return fmt.Errorf("invalid log output: %s", config.Log.Output)
	}

	// 如果日志输出到文件，验证文件路径
	if config.Log.Output == "file" && config.Log.FilePath == "" {
		return fmt.Errorf("log file path is required when output is file")
	}

	// 验证定时任务配置，阈值关系错误会导致提醒先于升级失效
	if config.Scheduler.EscalationThresholdHours <= 0 {
		return fmt.Errorf("scheduler escalation threshold must be positive")
	}
	if config.Scheduler.ReminderThresholdHours <= 0 {
		return fmt.Errorf("scheduler reminder threshold must be positive")
	}
	if config.Scheduler.ReminderSuppressionHours <= 0 {
		return fmt.Errorf("scheduler reminder suppression window must be positive")
	}

	return nil
}

// applyDefaultEngineConfig 回填规则引擎默认配置
func applyDefaultEngineConfig(config *Config) {
	if config == nil {
		return
	}

	if strings.TrimSpace(config.Engine.DefaultAction) == "" {
		config.Engine.DefaultAction = "RequireApproval"
	}
}

// applyDefaultSchedulerConfig 回填定时任务默认配置
// 默认值与业务约定一致：升级扫描2小时、提醒6小时、超期刷新1小时、清理每天
func applyDefaultSchedulerConfig(config *Config) {
	if config == nil {
		return
	}

	if config.Scheduler.EscalationInterval <= 0 {
		config.Scheduler.EscalationInterval = 2 * time.Hour
	}
	if config.Scheduler.ReminderInterval <= 0 {
		config.Scheduler.ReminderInterval = 6 * time.Hour
	}
	if config.Scheduler.OverdueInterval <= 0 {
		config.Scheduler.OverdueInterval = time.Hour
	}
	if config.Scheduler.CleanupInterval <= 0 {
		config.Scheduler.CleanupInterval = 24 * time.Hour
	}
	if config.Scheduler.EscalationThresholdHours <= 0 {
		config.Scheduler.EscalationThresholdHours = 48
	}
	if config.Scheduler.ReminderThresholdHours <= 0 {
		config.Scheduler.ReminderThresholdHours = 24
	}
	if config.Scheduler.ReminderSuppressionHours <= 0 {
		config.Scheduler.ReminderSuppressionHours = 12
	}
	if config.Scheduler.CleanupRetentionDays <= 0 {
		config.Scheduler.CleanupRetentionDays = 90
	}
	if config.Scheduler.BatchSize <= 0 {
		config.Scheduler.BatchSize = 200
	}
}

// contains 检查切片是否包含指定元素
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// GetConfig 获取全局配置
func GetConfig() *Config {
	return GlobalConfig
}

// MustLoadConfig 加载配置，如果失败则panic
func MustLoadConfig(configPath, env string) *Config {
	config, err := LoadConfig(configPath, env)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	return config
}

// ReloadConfig 重新加载配置
func ReloadConfig() error {
	if GlobalConfig == nil {
		return fmt.Errorf("global config is not initialized")
	}

	// 重新加载配置
	config, err := LoadConfig("", "")
	if err != nil {
		return err
	}

	GlobalConfig = config
	return nil
}

// GetEnv 获取当前环境
func GetEnv() string {
	if GlobalConfig != nil {
		return GlobalConfig.App.Environment
	}
	return getEnvFromEnvironment()
}

// IsDevelopment 判断是否为开发环境
func IsDevelopment() bool {
	if GlobalConfig != nil {
		return GlobalConfig.App.IsDevelopment()
	}
	return GetEnv() == "development"
}

// IsProduction 判断是否为生产环境
func IsProduction() bool {
	if GlobalConfig != nil {
		return GlobalConfig.App.IsProduction()
	}
	return GetEnv() == "production"
}

// IsTest 判断是否为测试环境
func IsTest() bool {
	if GlobalConfig != nil {
		return GlobalConfig.App.IsTest()
	}
	return GetEnv() == "test"
}
