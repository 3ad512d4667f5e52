// =============================================================================
// Overmind 主入口
// =============================================================================
// 多智能体任务编排引擎的命令行入口
//
// 使用方法:
//
//	overmind route --prompt "..."          # 路由一个提示词，打印路由决策
//	overmind route --config config.yaml    # 指定配置文件
//	overmind classify --prompt "..."       # 打印任务分类结果
//	overmind version                       # 显示版本信息
// =============================================================================
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/goblinos/overmind/config"
	"github.com/goblinos/overmind/internal/metrics"
	"github.com/goblinos/overmind/llm/router"
	"github.com/goblinos/overmind/orchestrator"
	"github.com/goblinos/overmind/types"
)

// 版本信息（构建时注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "route":
		runRoute(os.Args[2:])
	case "classify":
		runClassify(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// runRoute 对一个提示词做复杂度分类并产出路由决策
func runRoute(args []string) {
	fs := flag.NewFlagSet("route", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	prompt := fs.String("prompt", "", "Prompt to route")
	attempt := fs.Int("attempt", 1, "Attempt number (for cascading strategy)")
	fs.Parse(args)

	if *prompt == "" {
		fmt.Fprintln(os.Stderr, "route requires --prompt")
		os.Exit(1)
	}

	cfg := loadConfig(*configPath)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Metrics.Namespace, nil, logger)
	}

	policy, err := router.NewPolicy(router.Strategy(cfg.Router.Strategy), cfg.Router.FailoverEnabled)
	if err != nil {
		logger.Fatal("invalid routing policy", zap.Error(err))
	}
	policy.MonthlyCallVolume = cfg.Router.MonthlyCallVolume
	policy.MediumCostThreshold = cfg.Router.MediumCostThreshold
	policy.LocalSavingsBar = cfg.Router.LocalSavingsBar

	r := router.New(router.DefaultCapabilityTable(), collector, logger)
	decision, err := r.Route(context.Background(), &router.Request{
		Prompt:  *prompt,
		Attempt: *attempt,
		Policy:  policy,
	})
	if err != nil {
		logger.Fatal("routing failed", zap.Error(err))
	}

	printJSON(decision)
}

// runClassify 打印任务分类结果
func runClassify(args []string) {
	fs := flag.NewFlagSet("classify", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	prompt := fs.String("prompt", "", "Task prompt to classify")
	taskType := fs.String("type", "general", "Task type")
	fs.Parse(args)

	if *prompt == "" {
		fmt.Fprintln(os.Stderr, "classify requires --prompt")
		os.Exit(1)
	}

	cfg := loadConfig(*configPath)

	task := types.NewTask("", *taskType, *prompt)
	classifier := orchestrator.NewClassifier(cfg.Orchestrator.OwnTeam)
	printJSON(classifier.Classify(task))
}

func loadConfig(path string) *config.Config {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}

func printVersion() {
	fmt.Printf("Overmind %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`Overmind - Multi-Agent Task Orchestration Engine

Usage:
  overmind <command> [options]

Commands:
  route     Classify a prompt and print the routing decision
  classify  Print the task classification for a prompt
  version   Show version information
  help      Show this help message

Options for 'route':
  --config <path>   Path to configuration file (YAML)
  --prompt <text>   Prompt to route
  --attempt <n>     Attempt number, drives the cascading strategy

Options for 'classify':
  --prompt <text>   Task prompt to classify
  --type <text>     Task type hint

Examples:
  overmind route --prompt "Design a migration plan for the billing service"
  overmind route --config /etc/overmind/config.yaml --prompt "What is a goroutine?"
  overmind classify --prompt "Fix the flaky integration test" --type testing
  overmind version`)
}

// initLogger 按配置构建 zap logger
func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoding = "console"
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapConfig.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewProduction()
	}

	return logger
}
