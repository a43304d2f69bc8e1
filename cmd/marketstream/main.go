// =============================================================================
// MarketStream 主入口
// =============================================================================
// 命令行入口，运行新闻流会话、群聊示例并打印新闻 fixture
//
// 使用方法:
//
//	marketstream news --start 0 --end 2              # 打印新闻切片
//	marketstream stream                              # 运行新闻流 + 轮询会话
//	marketstream stream --config config.yaml         # 指定配置文件
//	marketstream groupchat                           # 运行 round robin 群聊
//	marketstream version                             # 显示版本信息
// =============================================================================

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/marketstream/config"
	"github.com/BaSui01/marketstream/internal/metrics"
	"github.com/BaSui01/marketstream/internal/telemetry"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app 在子命令之间共享的运行时依赖
type app struct {
	configPath string

	cfg       *config.Config
	logger    *zap.Logger
	telemetry *telemetry.Providers
	metrics   *metrics.Collector
}

// newRootCmd 构建命令树，每次调用返回独立的实例
func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "marketstream",
		Short: "Streaming market news into a two-agent conversation",
		Long: `MarketStream runs a user proxy and an assistant over a fixed market news
fixture. A producer feeds news into a shared cell while the user proxy
polls it and forwards fresh news to the assistant.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.shutdown()
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to config file (YAML)")

	root.AddCommand(
		newNewsCmd(a),
		newStreamCmd(a),
		newGroupChatCmd(a),
		newVersionCmd(),
	)
	return root
}

// setup 加载配置并初始化日志、遥测和指标
func (a *app) setup() error {
	loader := config.NewLoader()
	if a.configPath != "" {
		loader = loader.WithConfigPath(a.configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	a.cfg = cfg

	a.logger = initLogger(cfg.Log)
	a.logger.Debug("config loaded",
		zap.String("version", Version),
		zap.String("config_path", a.configPath),
	)

	providers, err := telemetry.Init(cfg.Telemetry, a.logger)
	if err != nil {
		a.logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	a.telemetry = providers

	if cfg.Metrics.Enabled {
		a.metrics = metrics.NewCollector(cfg.Metrics.Namespace, a.logger)
	}
	return nil
}

// shutdown 刷新遥测数据并同步日志
func (a *app) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	if a.telemetry != nil {
		err = a.telemetry.Shutdown(ctx)
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return err
}

// =============================================================================
// 📋 版本
// =============================================================================

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		// 版本信息不需要配置
		PersistentPreRunE:  func(*cobra.Command, []string) error { return nil },
		PersistentPostRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			printVersion(cmd)
		},
	}
}

func printVersion(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "MarketStream %s\n", Version)
	fmt.Fprintf(out, "  Build Time: %s\n", BuildTime)
	fmt.Fprintf(out, "  Git Commit: %s\n", GitCommit)
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	// 解析日志级别
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

	// 配置编码器
	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      encoding == "console",
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
	}

	var opts []zap.Option
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	if cfg.EnableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	logger, err := zapConfig.Build(opts...)
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewProduction()
	}
	return logger
}
