package job

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/BaSui01/imageflow/gateway"
	"github.com/BaSui01/imageflow/types"
)

// runPath 工作流提交的 API 路径
const runPath = "/api/workflow/run"

// ImageParamKey 生成参数中图像 URL 的固定键名
const ImageParamKey = "imageUrl"

// RunRequest 一次工作流运行的输入。
type RunRequest struct {
	// TemplateID 平台工作流模板 ID，必填。
	TemplateID string
	// Image 参考图引用：上传得到的存储 key 或外部绝对 URL，必填。
	Image types.AssetRef
	// Params 模板参数，原样并入 generateParams，可为 nil。
	Params map[string]any
}

// runPayload 提交接口的 wire 形状
type runPayload struct {
	TemplateUUID   string         `json:"templateUuid"`
	GenerateParams map[string]any `json:"generateParams"`
}

// submitReply 提交成功后平台返回的任务标识
type submitReply struct {
	GenerateUUID string `json:"generateUuid"`
}

// Submitter 提交工作流运行请求。
type Submitter struct {
	gw          *gateway.Client
	storageBase string
	logger      *zap.Logger
}

// SubmitterOption 配置 Submitter 的可选项。
type SubmitterOption func(*Submitter)

// WithSubmitterLogger 注入 zap 日志器。
func WithSubmitterLogger(logger *zap.Logger) SubmitterOption {
	return func(s *Submitter) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSubmitter 创建提交器。storageBase 为对象存储的公网基址，
// 用于把裸存储 key 改写为平台可回源的绝对 URL。
func NewSubmitter(gw *gateway.Client, storageBase string, opts ...SubmitterOption) (*Submitter, error) {
	if gw == nil {
		return nil, types.NewValidationError("job: gateway client is required")
	}
	if storageBase == "" {
		return nil, types.NewValidationError("job: storage base URL is required")
	}
	s := &Submitter{
		gw:          gw,
		storageBase: storageBase,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "job.submitter"))
	return s, nil
}

// Submit 提交一次工作流运行，返回任务 ID。
// 信封 code 非 0 由网关层转为 REMOTE_REJECTION，提交视为彻底失败。
func (s *Submitter) Submit(ctx context.Context, req RunRequest) (string, error) {
	if req.TemplateID == "" {
		return "", types.NewValidationError("job: template ID is required")
	}
	if req.Image.IsZero() {
		return "", types.NewValidationError("job: image reference is required")
	}

	params := make(map[string]any, len(req.Params)+1)
	for k, v := range req.Params {
		params[k] = v
	}
	params[ImageParamKey] = req.Image.ResolveURL(s.storageBase)

	raw, err := s.gw.Call(ctx, runPath, runPayload{
		TemplateUUID:   req.TemplateID,
		GenerateParams: params,
	})
	if err != nil {
		return "", err
	}

	var reply submitReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return "", types.NewTransportError("job: malformed submit payload", err)
	}
	if reply.GenerateUUID == "" {
		return "", types.NewTransportError("job: submit payload missing generateUuid", nil)
	}

	s.logger.Info("job submitted",
		zap.String("generate_id", reply.GenerateUUID),
		zap.String("template_id", req.TemplateID),
	)
	return reply.GenerateUUID, nil
}
