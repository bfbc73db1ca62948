// Copyright (c) ImageFlow Authors.
// Licensed under the MIT License.

package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/imageflow/cache"
	"github.com/BaSui01/imageflow/history"
	"github.com/BaSui01/imageflow/job"
	"github.com/BaSui01/imageflow/types"
)

// GenerateRequest 一次图像生成的输入。
// 参考图通过 File+Filename（现场上传）或 Image（已有素材）给出，二选一。
type GenerateRequest struct {
	// TemplateID 平台工作流模板 UUID，必填。
	TemplateID string
	// File 待上传的图像内容。
	File []byte
	// Filename 上传文件名，扩展名决定校验与 MIME。
	Filename string
	// Image 已有素材引用：存储 key 或绝对 URL。
	Image types.AssetRef
	// Params 模板参数，原样传给平台。
	Params map[string]any
}

// validate 在触网前完成请求校验
func (r GenerateRequest) validate() error {
	if r.TemplateID == "" {
		return types.NewValidationError("client: template id is required")
	}
	hasFile := len(r.File) > 0
	hasRef := !r.Image.IsZero()
	if hasFile && hasRef {
		return types.NewValidationError("client: File and Image are mutually exclusive")
	}
	if !hasFile && !hasRef {
		return types.NewValidationError("client: a reference image is required (File or Image)")
	}
	if hasFile && r.Filename == "" {
		return types.NewValidationError("client: Filename is required with File data")
	}
	return nil
}

// Generate 执行一次完整的生成：可选上传、提交工作流、轮询至终态。
//
// 对素材引用型请求（Image 非空），先查结果缓存再触网；命中时直接
// 返回缓存结果。现场上传的请求每次产生新的存储对象，不参与缓存。
// 任务拿到平台 ID 之后，无论成败都会尽力写一条历史记录。
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*job.Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	start := time.Now()

	// 缓存查询仅对素材引用型请求有意义：上传型请求的对象 key
	// 在上传前不存在，参数无法在触网前定态
	var cacheKey string
	if c.cache != nil && len(req.File) == 0 {
		cacheKey = c.cacheKeyFor(req)
		entry, err := c.cache.Get(ctx, cacheKey)
		switch {
		case err == nil:
			c.recordCacheHit()
			c.logger.Debug("result cache hit",
				zap.String("template_id", req.TemplateID),
				zap.String("generate_id", entry.GenerateID),
			)
			return &job.Result{
				GenerateID: entry.GenerateID,
				Status:     entry.Status,
				URL:        entry.URL,
			}, nil
		case cache.IsCacheMiss(err):
			c.recordCacheMiss()
		default:
			// 缓存故障降级为直连，不阻断生成
			c.logger.Warn("result cache get failed", zap.Error(err))
		}
	}

	ref := req.Image
	if len(req.File) > 0 {
		key, err := c.uploader.Upload(ctx, req.File, req.Filename)
		if err != nil {
			return nil, err
		}
		ref = types.AssetFromKey(key)
	}

	generateID, err := c.submitter.Submit(ctx, job.RunRequest{
		TemplateID: req.TemplateID,
		Image:      ref,
		Params:     req.Params,
	})
	if err != nil {
		return nil, err
	}

	res, err := c.poller.Wait(ctx, generateID)
	elapsed := time.Since(start)
	if err != nil {
		c.recordRun(ctx, req.TemplateID, generateID, nil, err, elapsed)
		return nil, err
	}
	c.recordRun(ctx, req.TemplateID, generateID, res, nil, elapsed)

	if c.cache != nil && cacheKey != "" {
		entry := &cache.Entry{
			GenerateID: generateID,
			URL:        res.URL,
			Status:     res.Status,
			CreatedAt:  time.Now(),
		}
		if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
			c.logger.Warn("result cache set failed", zap.Error(err))
		}
	}

	return res, nil
}

// GenerateBatch 并发执行多个互不相关的生成请求。
//
// 所有请求都会跑完：单个失败不会中断其余请求。返回的切片与入参
// 一一对应，results[i] 非 nil 当且仅当第 i 个请求成功；错误按
// 请求序号包装后合并返回。
func (c *Client) GenerateBatch(ctx context.Context, reqs []GenerateRequest) ([]*job.Result, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	results := make([]*job.Result, len(reqs))
	failures := make([]error, len(reqs))

	g := new(errgroup.Group)
	g.SetLimit(c.batchConcurrency)

	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			res, err := c.Generate(ctx, req)
			if err != nil {
				failures[i] = fmt.Errorf("generate %d: %w", i, err)
				return nil // 请求彼此独立，收集错误而不提前终止
			}
			results[i] = res
			return nil
		})
	}

	_ = g.Wait()

	if err := errors.Join(failures...); err != nil {
		return results, err
	}
	return results, nil
}

// cacheKeyFor 基于模板与解析后的完整参数（含图像 URL）派生缓存键
func (c *Client) cacheKeyFor(req GenerateRequest) string {
	params := make(map[string]any, len(req.Params)+1)
	for k, v := range req.Params {
		params[k] = v
	}
	params[job.ImageParamKey] = req.Image.ResolveURL(c.storageBase)
	return cache.Key(req.TemplateID, params)
}

// recordRun 尽力记录一条生成历史；失败仅告警。
// 使用 WithoutCancel：调用方取消不应丢掉已经发生的事实。
func (c *Client) recordRun(ctx context.Context, templateID, generateID string, res *job.Result, genErr error, elapsed time.Duration) {
	if c.recorder == nil || generateID == "" {
		return
	}

	run := &history.Run{
		GenerateID: generateID,
		TemplateID: templateID,
		Duration:   elapsed,
	}
	if genErr != nil {
		run.Error = genErr.Error()
		if e, ok := types.AsError(genErr); ok && e.Status != 0 {
			run.Status = e.Status
		}
	} else {
		run.Status = res.Status
		run.ResultURL = res.URL
	}

	if err := c.recorder.Save(context.WithoutCancel(ctx), run); err != nil {
		c.logger.Warn("failed to record run history",
			zap.String("generate_id", generateID),
			zap.Error(err),
		)
	}
}

func (c *Client) recordCacheHit() {
	if c.metrics != nil {
		c.metrics.RecordCacheHit(c.cacheType)
	}
}

func (c *Client) recordCacheMiss() {
	if c.metrics != nil {
		c.metrics.RecordCacheMiss(c.cacheType)
	}
}
