package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host              string
	Port              int
	ReadTimeoutSec    int
	WriteTimeoutSec   int
	IdleTimeoutSec    int
	RequestTimeoutSec int
	CORSOrigins       []string `mapstructure:"corsOrigins"`
}

type App struct {
	Name string
	Env  string
	HTTP HTTP
}

type LogFile struct {
	Enable     bool
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type Log struct {
	Level string
	JSON  bool
	File  LogFile
}

// Session 标签页会话（对应浏览器 sessionStorage 的作用域）
type Session struct {
	Backend    string // memory | redis
	IdleTTLMin int
	Secret     string
	Issuer     string
}

// Auth 唯一允许的账号
type Auth struct {
	Username   string
	Password   string
	LoginRPS   float64 `mapstructure:"loginRPS"`
	LoginBurst int
}

type Records struct {
	URL             string `mapstructure:"url"`
	StaleWindowSec  int
	RetainWindowSec int
	FetchTimeoutSec int
	Locale          string
	SweepSpec       string
	RefreshLimit    int64
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DB struct {
	Driver             string // 为空则关闭登录审计
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
}

type Config struct {
	App     App
	Log     Log
	Session Session
	Auth    Auth
	Records Records
	DB      DB
	Redis   Redis `mapstructure:"redis"`
}

func (r Records) StaleWindow() time.Duration  { return time.Duration(r.StaleWindowSec) * time.Second }
func (r Records) RetainWindow() time.Duration { return time.Duration(r.RetainWindowSec) * time.Second }
func (r Records) FetchTimeout() time.Duration { return time.Duration(r.FetchTimeoutSec) * time.Second }
func (s Session) IdleTTL() time.Duration      { return time.Duration(s.IdleTTLMin) * time.Minute }

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "console-gate")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 8080)
	v.SetDefault("app.http.readTimeoutSec", 5)
	v.SetDefault("app.http.writeTimeoutSec", 15)
	v.SetDefault("app.http.idleTimeoutSec", 60)
	v.SetDefault("app.http.requestTimeoutSec", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.file.enable", false)
	v.SetDefault("log.file.filename", "logs/console.log")

	v.SetDefault("session.backend", "memory")
	v.SetDefault("session.idleTTLMin", 720)
	v.SetDefault("session.issuer", "console-gate")
	v.SetDefault("session.secret", "")

	v.SetDefault("auth.username", "admin")
	v.SetDefault("auth.password", "@Dmin123456")
	v.SetDefault("auth.loginRPS", 1)
	v.SetDefault("auth.loginBurst", 5)

	v.SetDefault("records.url", "https://jsonplaceholder.typicode.com/users")
	v.SetDefault("records.staleWindowSec", 300)
	v.SetDefault("records.retainWindowSec", 600)
	v.SetDefault("records.fetchTimeoutSec", 10)
	v.SetDefault("records.locale", "en")
	v.SetDefault("records.sweepSpec", "@every 1m")
	v.SetDefault("records.refreshLimit", 8)

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// 未知 key 不会被 AutomaticEnv 覆盖，这里全部先声明
	v.SetDefault("db.driver", "")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.username", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.maxOpenConns", 10)
	v.SetDefault("db.maxIdleConns", 5)
	v.SetDefault("db.connMaxLifetimeMin", 30)
	v.SetDefault("db.autoMigrate", true)
	v.SetDefault("db.logLevel", "warn")
}

// Load 读取 yaml + APP_ 前缀环境变量；文件不存在时只用默认值和环境变量
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(path); statErr == nil || !os.IsNotExist(statErr) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) validate() error {
	if c.Session.Secret == "" {
		return fmt.Errorf("config: session.secret is required")
	}
	switch c.Session.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: unsupported session.backend %q", c.Session.Backend)
	}
	if c.Records.URL == "" {
		return fmt.Errorf("config: records.url is required")
	}
	if c.Records.StaleWindowSec <= 0 || c.Records.RetainWindowSec < c.Records.StaleWindowSec {
		return fmt.Errorf("config: records retain window must be >= stale window > 0")
	}
	return nil
}
