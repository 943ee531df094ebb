package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 应用配置结构体
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Log       LogConfig       `yaml:"log"`
	Redis     RedisConfig     `yaml:"redis"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Import    ImportConfig    `yaml:"import"`
	Backfill  BackfillConfig  `yaml:"backfill"`
	Feed      FeedConfig      `yaml:"feed"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port         string        `yaml:"port"`         // 服务器监听端口
	ReadTimeout  time.Duration `yaml:"readTimeout"`  // 读取超时时间
	WriteTimeout time.Duration `yaml:"writeTimeout"` // 写入超时时间
	IdleTimeout  time.Duration `yaml:"idleTimeout"`  // 空闲超时时间
}

// DatabaseConfig 数据库配置
// Driver 支持 mysql / postgres / sqlite，sqlite 时 Database 为文件路径
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`   // 数据库驱动类型
	Host     string `yaml:"host"`     // 数据库主机地址
	Port     int    `yaml:"port"`     // 数据库端口
	Username string `yaml:"username"` // 数据库用户名
	Password string `yaml:"password"` // 数据库密码
	Database string `yaml:"database"` // 数据库名称
	Charset  string `yaml:"charset"`  // 字符集
	SSLMode  string `yaml:"sslMode"`  // postgres sslmode
	MaxIdle  int    `yaml:"maxIdle"`  // 最大空闲连接数
	MaxOpen  int    `yaml:"maxOpen"`  // 最大打开连接数
	LogSQL   bool   `yaml:"logSQL"`   // 是否打印SQL
}

// JWTConfig JWT配置
type JWTConfig struct {
	Secret     string        `yaml:"secret"`     // JWT密钥
	ExpireTime time.Duration `yaml:"expireTime"` // JWT过期时间
	Issuer     string        `yaml:"issuer"`     // JWT签发者
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `yaml:"level"`      // 日志级别
	Filename   string `yaml:"filename"`   // 日志文件名
	MaxSize    int    `yaml:"maxSize"`    // 单个日志文件最大大小(MB)
	MaxBackups int    `yaml:"maxBackups"` // 最大备份文件数
	MaxAge     int    `yaml:"maxAge"`     // 最大保存天数
	Compress   bool   `yaml:"compress"`   // 是否压缩
}

// RedisConfig Redis配置，Host 为空表示不启用
type RedisConfig struct {
	Host     string `yaml:"host"`     // Redis主机地址
	Port     int    `yaml:"port"`     // Redis端口
	Password string `yaml:"password"` // Redis密码
	DB       int    `yaml:"db"`       // Redis数据库编号
}

// WebSocketConfig WebSocket 心跳配置
type WebSocketConfig struct {
	PingInterval time.Duration `yaml:"pingInterval"` // 发送ping的间隔
	ReadTimeout  time.Duration `yaml:"readTimeout"`  // 读超时时间（未收到任何数据则断开）
}

// CatalogConfig 外部番剧目录API配置
type CatalogConfig struct {
	BaseURL         string        `yaml:"baseURL"`         // 目录API地址
	ListURL         string        `yaml:"listURL"`         // 外部用户片单地址
	Timeout         time.Duration `yaml:"timeout"`         // 单次请求超时
	RequestInterval time.Duration `yaml:"requestInterval"` // 客户端限流间隔
	CacheTTL        time.Duration `yaml:"cacheTTL"`        // 响应缓存时间
	Locale          string        `yaml:"locale"`          // 状态文本本地化语言
}

// ImportConfig 片单导入配置
type ImportConfig struct {
	PageSize  int `yaml:"pageSize"`  // 外部分页大小
	MaxItems  int `yaml:"maxItems"`  // 单次导入上限
	ChunkSize int `yaml:"chunkSize"` // 单批写入条数
}

// BackfillConfig 元数据回填配置
type BackfillConfig struct {
	BatchSize int           `yaml:"batchSize"` // 每次调用处理条数
	Delay     time.Duration `yaml:"delay"`     // 请求间固定间隔
}

// FeedConfig 动态流配置
type FeedConfig struct {
	Limit int `yaml:"limit"` // 动态条数
}

// LoadConfig 加载配置（混合方式：YAML文件 + 环境变量）
func LoadConfig() *Config {
	// 1. 首先从YAML文件加载默认配置
	config := loadFromYAML(getEnv("CONFIG_FILE", "config/config.yaml"))

	// 2. 用环境变量覆盖配置（环境变量优先级更高）
	overrideWithEnvVars(config)

	return config
}

// loadFromYAML 从YAML文件加载配置，文件中缺省的字段保留默认值
func loadFromYAML(filePath string) *Config {
	config := GetDefaultConfig()

	data, err := os.ReadFile(filePath)
	if err != nil {
		return config
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return GetDefaultConfig()
	}

	return config
}

// overrideWithEnvVars 用环境变量覆盖配置
func overrideWithEnvVars(config *Config) {
	// 服务器配置
	if port := getEnv("SERVER_PORT", ""); port != "" {
		config.Server.Port = port
	}
	if timeout := getEnvDuration("SERVER_READ_TIMEOUT", 0); timeout > 0 {
		config.Server.ReadTimeout = timeout
	}
	if timeout := getEnvDuration("SERVER_WRITE_TIMEOUT", 0); timeout > 0 {
		config.Server.WriteTimeout = timeout
	}

	// 数据库配置
	if driver := getEnv("DB_DRIVER", ""); driver != "" {
		config.Database.Driver = driver
	}
	if host := getEnv("DB_HOST", ""); host != "" {
		config.Database.Host = host
	}
	if port := getEnvInt("DB_PORT", 0); port > 0 {
		config.Database.Port = port
	}
	if username := getEnv("DB_USERNAME", ""); username != "" {
		config.Database.Username = username
	}
	if password := getEnv("DB_PASSWORD", ""); password != "" {
		config.Database.Password = password
	}
	if database := getEnv("DB_DATABASE", ""); database != "" {
		config.Database.Database = database
	}
	if maxOpen := getEnvInt("DB_MAX_OPEN", 0); maxOpen > 0 {
		config.Database.MaxOpen = maxOpen
	}
	config.Database.LogSQL = getEnvBool("DB_LOG_SQL", config.Database.LogSQL)

	// JWT配置
	if secret := getEnv("JWT_SECRET", ""); secret != "" {
		config.JWT.Secret = secret
	}
	if expireTime := getEnvDuration("JWT_EXPIRE_TIME", 0); expireTime > 0 {
		config.JWT.ExpireTime = expireTime
	}
	if issuer := getEnv("JWT_ISSUER", ""); issuer != "" {
		config.JWT.Issuer = issuer
	}

	// 日志配置
	if level := getEnv("LOG_LEVEL", ""); level != "" {
		config.Log.Level = level
	}
	if filename := getEnv("LOG_FILENAME", ""); filename != "" {
		config.Log.Filename = filename
	}

	// Redis配置
	if host := getEnv("REDIS_HOST", ""); host != "" {
		config.Redis.Host = host
	}
	if port := getEnvInt("REDIS_PORT", 0); port > 0 {
		config.Redis.Port = port
	}
	if password := getEnv("REDIS_PASSWORD", ""); password != "" {
		config.Redis.Password = password
	}
	if db := getEnvInt("REDIS_DB", -1); db >= 0 {
		config.Redis.DB = db
	}

	// WebSocket配置
	if d := getEnvDuration("WS_PING_INTERVAL", 0); d > 0 {
		config.WebSocket.PingInterval = d
	}
	if d := getEnvDuration("WS_READ_TIMEOUT", 0); d > 0 {
		config.WebSocket.ReadTimeout = d
	}

	// 目录API配置
	if u := getEnv("CATALOG_BASE_URL", ""); u != "" {
		config.Catalog.BaseURL = u
	}
	if u := getEnv("CATALOG_LIST_URL", ""); u != "" {
		config.Catalog.ListURL = u
	}
	if d := getEnvDuration("CATALOG_TIMEOUT", 0); d > 0 {
		config.Catalog.Timeout = d
	}
	if d := getEnvDuration("CATALOG_REQUEST_INTERVAL", 0); d > 0 {
		config.Catalog.RequestInterval = d
	}
	if locale := getEnv("CATALOG_LOCALE", ""); locale != "" {
		config.Catalog.Locale = locale
	}

	// 导入与回填配置
	if n := getEnvInt("IMPORT_MAX_ITEMS", 0); n > 0 {
		config.Import.MaxItems = n
	}
	if n := getEnvInt("IMPORT_CHUNK_SIZE", 0); n > 0 {
		config.Import.ChunkSize = n
	}
	if n := getEnvInt("BACKFILL_BATCH_SIZE", 0); n > 0 {
		config.Backfill.BatchSize = n
	}
	if d := getEnvDuration("BACKFILL_DELAY", 0); d > 0 {
		config.Backfill.Delay = d
	}
}

// GetDefaultConfig 获取默认配置
func GetDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:   "mysql",
			Host:     "localhost",
			Port:     3306,
			Username: "animeshelf",
			Password: "animeshelf",
			Database: "animeshelf",
			Charset:  "utf8mb4",
			SSLMode:  "disable",
			MaxIdle:  10,
			MaxOpen:  100,
		},
		JWT: JWTConfig{
			Secret:     "change-me",
			ExpireTime: 24 * time.Hour,
			Issuer:     "animeshelf",
		},
		Log: LogConfig{
			Level:      "info",
			Filename:   "logs/app.log",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
			Compress:   true,
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: 6379,
		},
		WebSocket: WebSocketConfig{
			PingInterval: 30 * time.Second,
			ReadTimeout:  90 * time.Second,
		},
		Catalog: CatalogConfig{
			BaseURL:         "https://api.jikan.moe/v4",
			ListURL:         "https://myanimelist.net",
			Timeout:         8 * time.Second,
			RequestInterval: 400 * time.Millisecond,
			CacheTTL:        time.Hour,
			Locale:          "zh",
		},
		Import: ImportConfig{
			PageSize:  300,
			MaxItems:  3000,
			ChunkSize: 500,
		},
		Backfill: BackfillConfig{
			BatchSize: 5,
			Delay:     1200 * time.Millisecond,
		},
		Feed: FeedConfig{
			Limit: 30,
		},
	}
}

// 辅助函数：获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// 辅助函数：获取整数环境变量
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// 辅助函数：获取布尔环境变量
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// 辅助函数：获取时间环境变量
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
