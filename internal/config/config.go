package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	apperrors "github.com/wfunc/feudal-economy/internal/errors"
)

// Config 全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Log       LogConfig       `mapstructure:"log"`
	Security  SecurityConfig  `mapstructure:"security"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Feudal    FeudalConfig    `mapstructure:"feudal"`
	System    SystemConfig    `mapstructure:"system"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// WebSocketConfig WebSocket配置
type WebSocketConfig struct {
	Path              string        `mapstructure:"path"`
	ReadBufferSize    int           `mapstructure:"read_buffer_size"`
	WriteBufferSize   int           `mapstructure:"write_buffer_size"`
	MaxMessageSize    int64         `mapstructure:"max_message_size"`
	PingInterval      time.Duration `mapstructure:"ping_interval"`
	PongTimeout       time.Duration `mapstructure:"pong_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	EnableCompression bool          `mapstructure:"enable_compression"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level   string            `mapstructure:"level"`
	Format  string            `mapstructure:"format"`
	Output  string            `mapstructure:"output"`
	File    LogFileConfig     `mapstructure:"file"`
	Modules map[string]string `mapstructure:"modules"`
}

// LogFileConfig 日志文件配置
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	JWT         JWTConfig `mapstructure:"jwt"`
	HostKeyHash string    `mapstructure:"host_key_hash"` // 宿主密钥的argon2id哈希
}

// JWTConfig JWT配置
type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// TracingConfig 链路追踪配置
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}

// FeudalConfig 封建经济配置
type FeudalConfig struct {
	Tax       TaxConfig       `mapstructure:"tax"`
	Collector CollectorConfig `mapstructure:"collector"`
	Guard     GuardConfig     `mapstructure:"guard"`
	Farm      FarmConfig      `mapstructure:"farm"`
	Invite    InviteConfig    `mapstructure:"invite"`
	Merchant  MerchantConfig  `mapstructure:"merchant"`
	Audit     AuditConfig     `mapstructure:"audit"`
}

// TaxConfig 农奴税配置
type TaxConfig struct {
	SerfDueInterval    time.Duration  `mapstructure:"serf_due_interval"`
	PunishThreshold    int            `mapstructure:"punish_threshold"`
	WarnCooldown       time.Duration  `mapstructure:"warn_cooldown"`
	PointsPerReward    int            `mapstructure:"points_per_reward"`
	DueReducePerReward int            `mapstructure:"due_reduce_per_reward"`
	DiscountDuration   time.Duration  `mapstructure:"discount_duration"`
	BaseTax            map[string]int `mapstructure:"base_tax"`
	DefaultBaseTax     int            `mapstructure:"default_base_tax"`
}

// BaseTaxFor 职业对应的基础税额，未配置的职业使用默认值
func (t TaxConfig) BaseTaxFor(job string) int {
	if n, ok := t.BaseTax[strings.ToLower(job)]; ok {
		return n
	}
	return t.DefaultBaseTax
}

// CollectorConfig 征税官循环配置
type CollectorConfig struct {
	PassInterval    time.Duration `mapstructure:"pass_interval"`
	FailureBackoff  time.Duration `mapstructure:"failure_backoff"`
	DefaultInterval time.Duration `mapstructure:"default_interval"`
	MinInterval     time.Duration `mapstructure:"min_interval"`
	CurrencyItem    string        `mapstructure:"currency_item"`
}

// GuardConfig 守卫循环配置
type GuardConfig struct {
	PassInterval     time.Duration `mapstructure:"pass_interval"`
	AggroRadius      float64       `mapstructure:"aggro_radius"`
	MeleeRange       float64       `mapstructure:"melee_range"`
	MeleeCooldown    time.Duration `mapstructure:"melee_cooldown"`
	RangedMax        float64       `mapstructure:"ranged_max"`
	RangedCooldown   time.Duration `mapstructure:"ranged_cooldown"`
	ArrowSpeed       float64       `mapstructure:"arrow_speed"`
	WarnCooldown     time.Duration `mapstructure:"warn_cooldown"`
	Grace            time.Duration `mapstructure:"grace"`
	AttackAttrFactor float64       `mapstructure:"attack_attr_factor"`
}

// FarmConfig 农夫循环配置
type FarmConfig struct {
	PassInterval    time.Duration `mapstructure:"pass_interval"`
	DefaultInterval time.Duration `mapstructure:"default_interval"`
	Radius          int           `mapstructure:"radius"`
}

// InviteConfig 家族邀请配置
type InviteConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// MerchantConfig 商人配置
type MerchantConfig struct {
	Catalog string `mapstructure:"catalog"`
}

// AuditConfig 账本归档配置
type AuditConfig struct {
	Dir string `mapstructure:"dir"`
}

// SystemConfig 系统配置
type SystemConfig struct {
	Timezone string `mapstructure:"timezone"`
	MaxProcs int    `mapstructure:"max_procs"`
}

var (
	cfg  *Config
	once sync.Once
	mu   sync.RWMutex
	v    *viper.Viper
)

// Init 初始化配置
func Init(configPath string) error {
	var err error
	once.Do(func() {
		v = viper.New()

		if configPath != "" {
			v.SetConfigFile(configPath)
		} else {
			v.SetConfigName("config")
			v.SetConfigType("yaml")
			v.AddConfigPath("./configs")
			v.AddConfigPath(".")
		}

		v.SetEnvPrefix("FEUDAL")
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()

		SetDefaults(v)

		if err = v.ReadInConfig(); err != nil {
			// 配置文件不存在时使用默认配置
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				err = apperrors.Wrap(err, apperrors.ErrConfigLoad, "读取配置文件失败")
				return
			}
			err = nil
		}

		loaded := &Config{}
		if err = v.Unmarshal(loaded); err != nil {
			err = apperrors.Wrap(err, apperrors.ErrConfigParse)
			return
		}
		if err = loaded.Validate(); err != nil {
			return
		}
		cfg = loaded
	})

	return err
}

// SetDefaults 设置默认配置值
func SetDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "development")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// 数据库默认配置
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/feudal.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.auto_migrate", true)

	// WebSocket默认配置
	v.SetDefault("websocket.path", "/ws")
	v.SetDefault("websocket.read_buffer_size", 1024)
	v.SetDefault("websocket.write_buffer_size", 1024)
	v.SetDefault("websocket.max_message_size", 8192)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_timeout", "60s")
	v.SetDefault("websocket.write_timeout", "10s")
	v.SetDefault("websocket.enable_compression", false)

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file.path", "./logs")
	v.SetDefault("log.file.filename", "feudal.log")
	v.SetDefault("log.file.max_size", 100)
	v.SetDefault("log.file.max_age", 30)
	v.SetDefault("log.file.max_backups", 7)
	v.SetDefault("log.file.compress", true)

	// 安全默认配置
	v.SetDefault("security.jwt.secret", "change-me-in-production")
	v.SetDefault("security.jwt.expire_hours", 24)
	v.SetDefault("security.host_key_hash", "")

	// 链路追踪
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.service_name", "feudal-economy")

	// 农奴税
	v.SetDefault("feudal.tax.serf_due_interval", "10m")
	v.SetDefault("feudal.tax.punish_threshold", 3)
	v.SetDefault("feudal.tax.warn_cooldown", "60s")
	v.SetDefault("feudal.tax.points_per_reward", 100)
	v.SetDefault("feudal.tax.due_reduce_per_reward", 10)
	v.SetDefault("feudal.tax.discount_duration", "10m")
	v.SetDefault("feudal.tax.base_tax", map[string]int{
		"farmer": 4,
		"miner":  6,
		"guard":  5,
	})
	v.SetDefault("feudal.tax.default_base_tax", 3)

	// 征税官
	v.SetDefault("feudal.collector.pass_interval", "1s")
	v.SetDefault("feudal.collector.failure_backoff", "10s")
	v.SetDefault("feudal.collector.default_interval", "300s")
	v.SetDefault("feudal.collector.min_interval", "5s")
	v.SetDefault("feudal.collector.currency_item", "EMERALD")

	// 守卫
	v.SetDefault("feudal.guard.pass_interval", "500ms")
	v.SetDefault("feudal.guard.aggro_radius", 14.0)
	v.SetDefault("feudal.guard.melee_range", 2.7)
	v.SetDefault("feudal.guard.melee_cooldown", "1200ms")
	v.SetDefault("feudal.guard.ranged_max", 18.0)
	v.SetDefault("feudal.guard.ranged_cooldown", "1800ms")
	v.SetDefault("feudal.guard.arrow_speed", 1.6)
	v.SetDefault("feudal.guard.warn_cooldown", "10s")
	v.SetDefault("feudal.guard.grace", "3s")
	v.SetDefault("feudal.guard.attack_attr_factor", 0.25)

	// 农夫
	v.SetDefault("feudal.farm.pass_interval", "1s")
	v.SetDefault("feudal.farm.default_interval", "5s")
	v.SetDefault("feudal.farm.radius", 6)

	v.SetDefault("feudal.invite.ttl", "5m")
	v.SetDefault("feudal.merchant.catalog", "./configs/shops.yaml")
	v.SetDefault("feudal.audit.dir", "")

	v.SetDefault("system.timezone", "")
	v.SetDefault("system.max_procs", 0)
}

// Default 返回仅包含默认值的配置
func Default() *Config {
	dv := viper.New()
	SetDefaults(dv)
	c := &Config{}
	if err := dv.Unmarshal(c); err != nil {
		panic(fmt.Sprintf("默认配置解析失败: %v", err))
	}
	return c
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Feudal.Tax.SerfDueInterval <= 0 {
		return apperrors.New(apperrors.ErrConfigValidate, "feudal.tax.serf_due_interval 必须大于0")
	}
	if c.Feudal.Tax.PointsPerReward <= 0 {
		return apperrors.New(apperrors.ErrConfigValidate, "feudal.tax.points_per_reward 必须大于0")
	}
	if c.Feudal.Collector.PassInterval <= 0 || c.Feudal.Guard.PassInterval <= 0 || c.Feudal.Farm.PassInterval <= 0 {
		return apperrors.New(apperrors.ErrConfigValidate, "循环间隔必须大于0")
	}
	if c.Feudal.Farm.Radius < 0 {
		return apperrors.New(apperrors.ErrConfigValidate, "feudal.farm.radius 不能为负数")
	}
	return nil
}

// Get 获取配置实例
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// Watch 监听配置文件变化
func Watch(callback func(*Config)) {
	if v == nil {
		return
	}
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		newCfg := &Config{}
		if err := v.Unmarshal(newCfg); err != nil {
			fmt.Printf("配置重载失败: %v\n", err)
			return
		}
		if err := newCfg.Validate(); err != nil {
			fmt.Printf("配置重载校验失败: %v\n", err)
			return
		}

		mu.Lock()
		cfg = newCfg
		mu.Unlock()

		if callback != nil {
			callback(newCfg)
		}

		fmt.Println("配置已重新加载:", e.Name)
	})
}

// GetDuration 获取时间间隔配置
func GetDuration(key string) time.Duration {
	return v.GetDuration(key)
}

// IsSet 检查配置项是否存在
func IsSet(key string) bool {
	return v.IsSet(key)
}
