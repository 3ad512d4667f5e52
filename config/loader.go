// =============================================================================
// 📦 Overmind 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("OVERMIND").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 是 Overmind 的完整配置结构
type Config struct {
	// Router 路由配置
	Router RouterConfig `yaml:"router" env:"ROUTER"`

	// Policy 策略注册表配置
	Policy PolicyConfig `yaml:"policy" env:"-"`

	// Orchestrator 执行管理器配置
	Orchestrator OrchestratorConfig `yaml:"orchestrator" env:"ORCHESTRATOR"`

	// Agent 默认 Agent 配置
	Agent AgentConfig `yaml:"agent" env:"AGENT"`

	// Crew 默认 Crew 配置
	Crew CrewConfig `yaml:"crew" env:"CREW"`

	// Memory 分层记忆配置
	Memory MemoryConfig `yaml:"memory" env:"MEMORY"`

	// Redis 长期记忆的 Redis 后端配置
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Metrics 指标配置
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`
}

// RouterConfig 路由配置
type RouterConfig struct {
	// 路由策略: cost_optimized, latency_optimized, cascading, local_first, predictive
	Strategy string `yaml:"strategy" env:"STRATEGY"`
	// 是否启用故障切换
	FailoverEnabled bool `yaml:"failover_enabled" env:"FAILOVER_ENABLED"`
	// 月调用量估计
	MonthlyCallVolume int `yaml:"monthly_call_volume" env:"MONTHLY_CALL_VOLUME"`
	// local_first 的调用量阈值
	MediumCostThreshold int `yaml:"medium_cost_threshold" env:"MEDIUM_COST_THRESHOLD"`
	// local_first 的月节省额门槛（美元）
	LocalSavingsBar float64 `yaml:"local_savings_bar" env:"LOCAL_SAVINGS_BAR"`
	// 健康探测间隔
	HealthCheckInterval time.Duration `yaml:"health_check_interval" env:"HEALTH_CHECK_INTERVAL"`
}

// PolicyConfig 策略注册表配置
type PolicyConfig struct {
	// 是否启用策略校验
	Enabled bool `yaml:"enabled"`
	// 本地后端名
	LocalBackend string `yaml:"local_backend"`
	// 每个 team/persona 的准入清单
	Rules []PolicyRule `yaml:"rules"`
}

// PolicyRule 单个 team/persona 的准入清单
type PolicyRule struct {
	// 团队名
	Team string `yaml:"team"`
	// 人格名
	Persona string `yaml:"persona"`
	// 允许的本地模型（有序）
	LocalModels []string `yaml:"local_models"`
	// 允许的上游标识（有序）
	Upstreams []string `yaml:"upstreams"`
}

// OrchestratorConfig 执行管理器配置
type OrchestratorConfig struct {
	// 本团队名，任务分类的默认归属
	OwnTeam string `yaml:"own_team" env:"OWN_TEAM"`
	// 单次尝试超时；零值时使用分类得出的估计时长
	AttemptTimeout time.Duration `yaml:"attempt_timeout" env:"ATTEMPT_TIMEOUT"`
}

// AgentConfig 默认 Agent 配置
type AgentConfig struct {
	// 模型调用的有界重试次数
	MaxCallRetries int `yaml:"max_call_retries" env:"MAX_CALL_RETRIES"`
	// 单次模型调用超时
	CallTimeout time.Duration `yaml:"call_timeout" env:"CALL_TIMEOUT"`
}

// CrewConfig 默认 Crew 配置
type CrewConfig struct {
	// 处理模式: sequential, parallel, hierarchical
	Mode string `yaml:"mode" env:"MODE"`
	// parallel 模式的批大小
	Concurrency int `yaml:"concurrency" env:"CONCURRENCY"`
}

// MemoryConfig 分层记忆配置
type MemoryConfig struct {
	// 短期缓冲容量
	ShortTermCapacity int `yaml:"short_term_capacity" env:"SHORT_TERM_CAPACITY"`
	// 短期条目存活时长
	ShortTermTTL time.Duration `yaml:"short_term_ttl" env:"SHORT_TERM_TTL"`
	// 固化周期
	ConsolidationInterval time.Duration `yaml:"consolidation_interval" env:"CONSOLIDATION_INTERVAL"`
	// 长期后端: memory, redis
	Backend string `yaml:"backend" env:"BACKEND"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库编号
	DB int `yaml:"db" env:"DB"`
	// 键前缀
	KeyPrefix string `yaml:"key_prefix" env:"KEY_PREFIX"`
	// 连接池大小
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`
	// 最大重试次数
	MaxRetries int `yaml:"max_retries" env:"MAX_RETRIES"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 指标命名空间
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "OVERMIND",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct && field.Type() != reflect.TypeOf(time.Duration(0)) {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// validStrategies 允许的路由策略
var validStrategies = map[string]bool{
	"cost_optimized":    true,
	"latency_optimized": true,
	"cascading":         true,
	"local_first":       true,
	"predictive":        true,
}

// validModes 允许的 Crew 处理模式
var validModes = map[string]bool{
	"sequential":   true,
	"parallel":     true,
	"hierarchical": true,
}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	if !validStrategies[c.Router.Strategy] {
		errs = append(errs, fmt.Sprintf("unknown routing strategy %q", c.Router.Strategy))
	}
	if c.Router.MonthlyCallVolume < 0 {
		errs = append(errs, "monthly_call_volume must not be negative")
	}
	if !validModes[c.Crew.Mode] {
		errs = append(errs, fmt.Sprintf("unknown crew mode %q", c.Crew.Mode))
	}
	if c.Crew.Concurrency <= 0 {
		errs = append(errs, "crew concurrency must be positive")
	}
	if c.Agent.MaxCallRetries < 0 {
		errs = append(errs, "max_call_retries must not be negative")
	}
	if c.Memory.Backend != "memory" && c.Memory.Backend != "redis" {
		errs = append(errs, fmt.Sprintf("unknown memory backend %q", c.Memory.Backend))
	}
	for i, rule := range c.Policy.Rules {
		if rule.Team == "" || rule.Persona == "" {
			errs = append(errs, fmt.Sprintf("policy rule %d missing team or persona", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
