// =============================================================================
// 📦 Overmind 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Router:       DefaultRouterConfig(),
		Policy:       DefaultPolicyConfig(),
		Orchestrator: DefaultOrchestratorConfig(),
		Agent:        DefaultAgentConfig(),
		Crew:         DefaultCrewConfig(),
		Memory:       DefaultMemoryConfig(),
		Redis:        DefaultRedisConfig(),
		Log:          DefaultLogConfig(),
		Metrics:      DefaultMetricsConfig(),
	}
}

// DefaultRouterConfig 返回默认路由配置
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		Strategy:            "cost_optimized",
		FailoverEnabled:     true,
		MonthlyCallVolume:   5000,
		MediumCostThreshold: 10000,
		LocalSavingsBar:     10.0,
		HealthCheckInterval: 30 * time.Second,
	}
}

// DefaultPolicyConfig 返回默认策略配置（不启用校验）
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		Enabled:      false,
		LocalBackend: "ollama",
	}
}

// DefaultOrchestratorConfig 返回默认执行管理器配置
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		OwnTeam: "engineering",
	}
}

// DefaultAgentConfig 返回默认 Agent 配置
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		MaxCallRetries: 2,
		CallTimeout:    30 * time.Second,
	}
}

// DefaultCrewConfig 返回默认 Crew 配置
func DefaultCrewConfig() CrewConfig {
	return CrewConfig{
		Mode:        "sequential",
		Concurrency: 2,
	}
}

// DefaultMemoryConfig 返回默认分层记忆配置
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		ShortTermCapacity:     50,
		ShortTermTTL:          30 * time.Minute,
		ConsolidationInterval: 5 * time.Minute,
		Backend:               "memory",
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:       "localhost:6379",
		Password:   "",
		DB:         0,
		KeyPrefix:  "overmind:memory",
		PoolSize:   10,
		MaxRetries: 3,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:       "info",
		Format:      "json",
		OutputPaths: []string{"stdout"},
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   true,
		Namespace: "overmind",
	}
}
