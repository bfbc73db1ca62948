// =============================================================================
// ImageFlow 主入口
// =============================================================================
// 命令行客户端，封装图像生成平台的上传、任务提交与结果轮询
//
// 使用方法:
//
//	imageflow generate --template <uuid> --file photo.jpg   # 上传并生成
//	imageflow generate --template <uuid> --image <key|url>  # 引用已有素材
//	imageflow status --id <generateUuid>                    # 查询任务状态
//	imageflow history --limit 20                            # 查看本地运行记录
//	imageflow history --purge 720h                          # 清理过期记录
//	imageflow version                                       # 显示版本信息
// =============================================================================

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/imageflow/client"
	"github.com/BaSui01/imageflow/config"
	"github.com/BaSui01/imageflow/history"
	"github.com/BaSui01/imageflow/internal/telemetry"
	"github.com/BaSui01/imageflow/internal/tlsutil"
	"github.com/BaSui01/imageflow/types"
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
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "generate":
		runGenerate(os.Args[2:])
	case "status":
		runStatus(os.Args[2:])
	case "history":
		runHistory(os.Args[2:])
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

// =============================================================================
// 🎨 generate 命令
// =============================================================================

func runGenerate(args []string) {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	template := fs.String("template", "", "Workflow template UUID")
	filePath := fs.String("file", "", "Local image to upload (jpg/jpeg/png)")
	image := fs.String("image", "", "Existing asset: storage key or absolute URL")
	prompt := fs.String("prompt", "", "Shorthand for --param prompt=<text>")
	output := fs.String("output", "", "Download the result image to this path")
	timeout := fs.Duration("timeout", 0, "Overall timeout, e.g. 5m (0 = no limit)")
	params := paramFlag{}
	fs.Var(params, "param", "Template parameter key=value (repeatable)")
	fs.Parse(args)

	if *template == "" {
		fmt.Fprintln(os.Stderr, "Missing required flag: --template")
		os.Exit(1)
	}
	if (*filePath == "") == (*image == "") {
		fmt.Fprintln(os.Stderr, "Exactly one of --file or --image is required")
		os.Exit(1)
	}
	if *prompt != "" {
		params["prompt"] = *prompt
	}

	cfg := loadConfig(*configPath)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("Starting ImageFlow",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	// Initialize OpenTelemetry
	otelProviders, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer shutdownTelemetry(otelProviders, logger)

	c, err := client.New(cfg, client.WithLogger(logger))
	if err != nil {
		logger.Fatal("Failed to create client", zap.Error(err))
	}
	defer c.Close()

	req := client.GenerateRequest{
		TemplateID: *template,
		Params:     params,
	}
	if *filePath != "" {
		data, readErr := os.ReadFile(*filePath)
		if readErr != nil {
			logger.Fatal("Failed to read image file", zap.Error(readErr))
		}
		req.File = data
		req.Filename = filepath.Base(*filePath)
	}
	if *image != "" {
		req.Image = parseAsset(*image)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	res, err := c.Generate(ctx, req)
	if err != nil {
		logger.Fatal("Generation failed", zap.Error(err))
	}

	fmt.Printf("generateUuid: %s\n", res.GenerateID)
	fmt.Printf("status:       %s\n", res.Status)
	fmt.Printf("imageUrl:     %s\n", res.URL)

	if *output != "" {
		if err := downloadImage(ctx, res.URL, *output); err != nil {
			logger.Fatal("Failed to download image", zap.Error(err))
		}
		fmt.Printf("saved:        %s\n", *output)
	}
}

// =============================================================================
// 🔍 status 命令
// =============================================================================

func runStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	id := fs.String("id", "", "Generation job UUID (generateUuid)")
	fs.Parse(args)

	if *id == "" {
		fmt.Fprintln(os.Stderr, "Missing required flag: --id")
		os.Exit(1)
	}

	cfg := loadConfig(*configPath)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	c, err := client.New(cfg, client.WithLogger(logger))
	if err != nil {
		logger.Fatal("Failed to create client", zap.Error(err))
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := c.Status(ctx, *id)
	if err != nil {
		logger.Fatal("Status query failed", zap.Error(err))
	}

	fmt.Printf("generateUuid: %s\n", res.GenerateID)
	fmt.Printf("status:       %s\n", res.Status)
	if res.URL != "" {
		fmt.Printf("imageUrl:     %s\n", res.URL)
	}
	if res.Message != "" {
		fmt.Printf("message:      %s\n", res.Message)
	}
	if !res.Status.Terminal() {
		fmt.Println("job is still in progress")
	}
}

// =============================================================================
// 🗄️ history 命令
// =============================================================================

func runHistory(args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	limit := fs.Int("limit", 20, "Number of recent runs to show")
	purge := fs.Duration("purge", 0, "Delete runs older than this duration, e.g. 720h (0 = keep all)")
	fs.Parse(args)

	// history 只读写本地记录，不要求网关配置完整
	cfg := loadConfig(*configPath)

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	store, err := history.Open(cfg.History, logger)
	if err != nil {
		logger.Fatal("Failed to open history store", zap.Error(err))
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *purge > 0 {
		n, purgeErr := store.Purge(ctx, time.Now().Add(-*purge))
		if purgeErr != nil {
			logger.Fatal("Failed to purge history", zap.Error(purgeErr))
		}
		fmt.Printf("purged %d runs older than %s\n", n, *purge)
		return
	}

	runs, err := store.Recent(ctx, *limit)
	if err != nil {
		logger.Fatal("Failed to list history", zap.Error(err))
	}

	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return
	}

	for _, r := range runs {
		summary := r.ResultURL
		if r.Error != "" {
			summary = "error: " + r.Error
		}
		fmt.Printf("%s  %-36s  %-10s  %s\n",
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			r.GenerateID,
			r.Status,
			summary,
		)
	}
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion() {
	fmt.Printf("ImageFlow %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`ImageFlow - AI image generation client

Usage:
  imageflow <command> [options]

Commands:
  generate  Upload an image (or reference an existing one) and run a workflow
  status    Query the status of a generation job
  history   Show or purge locally recorded runs
  version   Show version information
  help      Show this help message

Options for 'generate':
  --config <path>      Path to configuration file (YAML)
  --template <uuid>    Workflow template UUID (required)
  --file <path>        Local image to upload (jpg/jpeg/png)
  --image <key|url>    Existing asset: storage key or absolute URL
  --prompt <text>      Shorthand for --param prompt=<text>
  --param <key=value>  Template parameter (repeatable)
  --output <path>      Download the result image to this path
  --timeout <dur>      Overall timeout, e.g. 5m (0 = no limit)

Options for 'status':
  --config <path>      Path to configuration file (YAML)
  --id <uuid>          Generation job UUID (required)

Options for 'history':
  --config <path>      Path to configuration file (YAML)
  --limit <n>          Number of recent runs to show (default 20)
  --purge <dur>        Delete runs older than this duration, e.g. 720h

Examples:
  imageflow generate --template 7f3a0c1e --file photo.jpg --output out.png
  imageflow generate --template 7f3a0c1e --image input/abc.png --prompt sunset
  imageflow status --id 9c41d2b7
  imageflow history --limit 50
  imageflow history --purge 720h
  imageflow version`)
}

// =============================================================================
// 🔧 配置与日志初始化
// =============================================================================

// loadConfig 加载配置，失败直接退出
func loadConfig(configPath string) *config.Config {
	loader := config.NewLoader()
	if configPath != "" {
		loader = loader.WithConfigPath(configPath)
	}

	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	return cfg
}

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
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	// 构建配置
	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         "json",
		EncoderConfig:    encoderConfig,
		OutputPaths:      cfg.OutputPaths,
		ErrorOutputPaths: []string{"stderr"},
	}
	if cfg.Format == "console" {
		zapConfig.Encoding = "console"
	}

	var opts []zap.Option
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	if cfg.EnableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	// 构建 logger
	logger, err := zapConfig.Build(opts...)
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewProduction()
	}

	return logger
}

// =============================================================================
// 🧰 辅助类型与函数
// =============================================================================

// paramFlag 收集可重复的 --param key=value 模板参数
type paramFlag map[string]any

func (p paramFlag) String() string {
	pairs := make([]string, 0, len(p))
	for k, v := range p {
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, v))
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

func (p paramFlag) Set(value string) error {
	key, val, ok := strings.Cut(value, "=")
	if !ok || key == "" {
		return fmt.Errorf("expected key=value, got %q", value)
	}
	p[key] = val
	return nil
}

// parseAsset 区分存储 key 与绝对 URL 两种素材引用形式
func parseAsset(s string) types.AssetRef {
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return types.AssetFromURL(s)
	}
	return types.AssetFromKey(s)
}

// downloadImage 把生成结果取回本地文件
func downloadImage(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := tlsutil.SecureHTTPClient(2 * time.Minute).Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("download returned HTTP %d", resp.StatusCode)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func shutdownTelemetry(p *telemetry.Providers, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Shutdown(ctx); err != nil {
		logger.Warn("telemetry shutdown failed", zap.Error(err))
	}
}
