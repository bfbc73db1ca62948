package job

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/imageflow/gateway"
	"github.com/BaSui01/imageflow/internal/metrics"
	"github.com/BaSui01/imageflow/types"
)

// statusPath 状态查询的 API 路径
const statusPath = "/api/workflow/status"

// 轮询默认值
const (
	DefaultMaxAttempts = 60
	DefaultInterval    = 3 * time.Second
)

// Config 轮询预算。零值字段回落到默认值。
type Config struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts" env:"MAX_ATTEMPTS"`
	Interval    time.Duration `yaml:"interval" json:"interval" env:"INTERVAL"`
}

// withDefaults 返回填充默认值后的副本
func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	return c
}

// Image 状态响应中的单张图像。
type Image struct {
	URL         string `json:"imageUrl"`
	AuditStatus int    `json:"auditStatus"`
}

// Result 一次状态查询或完整等待的结果。
type Result struct {
	GenerateID string
	Status     types.JobStatus
	// URL 首张带有效地址的图像；仅 Success 终态保证非空。
	URL string
	// Images 平台返回的全部图像。
	Images []Image
	// Message 平台附带的状态消息（失败原因原样保留）。
	Message string
}

// statusQuery 状态查询负载
type statusQuery struct {
	GenerateUUID string `json:"generateUuid"`
}

// statusReply 状态接口的 wire 形状
type statusReply struct {
	GenerateUUID   string  `json:"generateUuid"`
	GenerateStatus int     `json:"generateStatus"`
	Images         []Image `json:"images"`
	GenerateMsg    string  `json:"generateMsg"`
}

// Poller 以固定间隔轮询任务状态直到终态或预算耗尽。
type Poller struct {
	gw      *gateway.Client
	cfg     Config
	logger  *zap.Logger
	metrics *metrics.Collector
}

// PollerOption 配置 Poller 的可选项。
type PollerOption func(*Poller)

// WithPollerLogger 注入 zap 日志器。
func WithPollerLogger(logger *zap.Logger) PollerOption {
	return func(p *Poller) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithPollerMetrics 挂载 Prometheus 指标收集器。
func WithPollerMetrics(col *metrics.Collector) PollerOption {
	return func(p *Poller) { p.metrics = col }
}

// NewPoller 创建轮询器。cfg 的零值字段取默认预算（60 次 / 3 秒）。
func NewPoller(gw *gateway.Client, cfg Config, opts ...PollerOption) (*Poller, error) {
	if gw == nil {
		return nil, types.NewValidationError("job: gateway client is required")
	}
	p := &Poller{
		gw:     gw,
		cfg:    cfg.withDefaults(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(zap.String("component", "job.poller"))
	return p, nil
}

// Poll 查询一次当前状态，不等待。任何状态（含非终态）均原样返回；
// 错误仅来自传输或信封层。
func (p *Poller) Poll(ctx context.Context, generateID string) (*Result, error) {
	if generateID == "" {
		return nil, types.NewValidationError("job: generate ID is required")
	}

	raw, err := p.gw.Call(ctx, statusPath, statusQuery{GenerateUUID: generateID})
	if err != nil {
		return nil, err
	}

	var reply statusReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, types.NewTransportError("job: malformed status payload", err)
	}

	res := &Result{
		GenerateID: generateID,
		Status:     types.JobStatus(reply.GenerateStatus),
		Images:     reply.Images,
		Message:    reply.GenerateMsg,
	}
	for _, img := range reply.Images {
		if img.URL != "" {
			res.URL = img.URL
			break
		}
	}
	return res, nil
}

// Wait 轮询直到任务终态，返回成功结果或结构化失败。
//
// 每次查询消耗一次尝试，瞬态传输错误同样计入预算；Failed / Timeout
// 立即终止且不消耗剩余预算；预算耗尽返回 MAX_ATTEMPTS_REACHED。
// 间隔等待随时响应 ctx 取消。
func (p *Poller) Wait(ctx context.Context, generateID string) (*Result, error) {
	if generateID == "" {
		return nil, types.NewValidationError("job: generate ID is required")
	}

	start := time.Now()
	var lastErr error

	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		res, err := p.Poll(ctx, generateID)
		switch {
		case err == nil:
			p.recordPoll(res.Status.String())
			p.logger.Debug("poll",
				zap.String("generate_id", generateID),
				zap.Int("attempt", attempt),
				zap.Stringer("status", res.Status),
			)

			if done, result, derr := p.classify(generateID, res, start); done {
				return result, derr
			}

		case types.IsRetryable(err):
			// 瞬态故障：消耗本次尝试，下一轮重试
			p.recordPoll(string(types.GetErrorCode(err)))
			p.logger.Warn("poll attempt failed",
				zap.String("generate_id", generateID),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			lastErr = err

		default:
			// 权威拒绝或本地错误：立即终止
			p.recordJob("rejected", start)
			return nil, err
		}

		if attempt < p.cfg.MaxAttempts {
			if err := sleepCtx(ctx, p.cfg.Interval); err != nil {
				return nil, types.NewTransportError("job: wait interrupted", err)
			}
		}
	}

	p.recordJob("max_attempts", start)
	err := types.NewError(types.ErrMaxAttempts,
		fmt.Sprintf("job %s: no terminal status after %d attempts", generateID, p.cfg.MaxAttempts))
	if lastErr != nil {
		err = err.WithCause(lastErr)
	}
	return nil, err
}

// classify 判定一次成功解码的状态是否终结等待。
// 返回 done=false 表示继续轮询。
func (p *Poller) classify(generateID string, res *Result, start time.Time) (bool, *Result, error) {
	switch {
	case res.Status == types.StatusSuccess:
		if res.URL == "" {
			p.recordJob("empty_result", start)
			return true, nil, types.NewError(types.ErrEmptyResult,
				fmt.Sprintf("job %s succeeded but returned no image URL", generateID)).
				WithStatus(types.StatusSuccess)
		}
		p.recordJob("success", start)
		p.logger.Info("job succeeded",
			zap.String("generate_id", generateID),
			zap.String("url", res.URL),
			zap.Duration("elapsed", time.Since(start)),
		)
		return true, res, nil

	case res.Status.Terminal():
		// Failed / Timeout：平台原因原样透出，永不重试
		p.recordJob(res.Status.String(), start)
		p.logger.Warn("job ended in failure",
			zap.String("generate_id", generateID),
			zap.Stringer("status", res.Status),
			zap.String("reason", res.Message),
		)
		return true, nil, types.NewJobFailure(res.Status, res.Message)

	default:
		return false, nil, nil
	}
}

func (p *Poller) recordPoll(status string) {
	if p.metrics != nil {
		p.metrics.RecordPoll(status)
	}
}

func (p *Poller) recordJob(outcome string, start time.Time) {
	if p.metrics != nil {
		p.metrics.RecordJob(outcome, time.Since(start))
	}
}

// sleepCtx 等待 d，ctx 取消时立即返回其错误。
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
