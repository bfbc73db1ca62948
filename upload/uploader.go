package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/imageflow/gateway"
	"github.com/BaSui01/imageflow/internal/metrics"
	"github.com/BaSui01/imageflow/internal/tlsutil"
	"github.com/BaSui01/imageflow/types"
)

// authorizationPath 平台颁发上传授权的 API 路径
const authorizationPath = "/api/upload/signature"

// defaultTimeout 对象存储直传的默认超时
const defaultTimeout = 120 * time.Second

// allowedExtensions 平台接受的素材格式。jpeg 在进入授权流程前
// 统一归一为 jpg，保证授权与上传使用完全一致的扩展名。
var allowedExtensions = map[string]string{
	"jpg":  "jpg",
	"jpeg": "jpg",
	"png":  "png",
}

// contentTypes 归一化扩展名到 MIME 类型的映射
var contentTypes = map[string]string{
	"jpg": "image/jpeg",
	"png": "image/png",
}

// authorization 上传授权（预签名 POST 策略），一次性使用
type authorization struct {
	PostURL              string `json:"postUrl"`
	Key                  string `json:"key"`
	Policy               string `json:"policy"`
	XOssSignatureVersion string `json:"xOssSignatureVersion"`
	XOssCredential       string `json:"xOssCredential"`
	XOssDate             string `json:"xOssDate"`
	XOssSignature        string `json:"xOssSignature"`
	XOssExpire           string `json:"xOssExpire"`
}

// authorizationRequest 授权请求负载
type authorizationRequest struct {
	Name      string `json:"name"`
	Extension string `json:"extension"`
}

// Uploader 将本地图像上传至平台对象存储，换取存储对象 key。
// 上传分两步：先经签名网关取授权，再凭授权直传存储服务。
type Uploader struct {
	gw      *gateway.Client
	http    *http.Client
	logger  *zap.Logger
	metrics *metrics.Collector
}

// Option 配置 Uploader 的可选项。
type Option func(*Uploader)

// WithHTTPClient 注入直传存储所用的 HTTP 客户端。
func WithHTTPClient(hc *http.Client) Option {
	return func(u *Uploader) {
		if hc != nil {
			u.http = hc
		}
	}
}

// WithLogger 注入 zap 日志器。
func WithLogger(logger *zap.Logger) Option {
	return func(u *Uploader) {
		if logger != nil {
			u.logger = logger
		}
	}
}

// WithMetrics 挂载 Prometheus 指标收集器。
func WithMetrics(col *metrics.Collector) Option {
	return func(u *Uploader) { u.metrics = col }
}

// New 创建上传器。
func New(gw *gateway.Client, opts ...Option) (*Uploader, error) {
	if gw == nil {
		return nil, types.NewValidationError("upload: gateway client is required")
	}
	u := &Uploader{
		gw:     gw,
		http:   tlsutil.SecureHTTPClient(defaultTimeout),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(u)
	}
	u.logger = u.logger.With(zap.String("component", "upload"))
	return u, nil
}

// Upload 上传一张图像，返回对象存储 key。
// 扩展名校验与归一化在任何网络调用之前完成；失败不重试，由调用方决定。
func (u *Uploader) Upload(ctx context.Context, data []byte, filename string) (string, error) {
	key, err := u.upload(ctx, data, filename)
	if u.metrics != nil {
		if err != nil {
			u.metrics.RecordUpload(string(types.GetErrorCode(err)), 0)
		} else {
			u.metrics.RecordUpload("ok", int64(len(data)))
		}
	}
	return key, err
}

func (u *Uploader) upload(ctx context.Context, data []byte, filename string) (string, error) {
	name, ext, err := normalizeFilename(filename)
	if err != nil {
		return "", err
	}

	auth, err := u.authorize(ctx, name, ext)
	if err != nil {
		return "", err
	}

	u.logger.Debug("upload authorized",
		zap.String("key", auth.Key),
		zap.String("filename", name+"."+ext),
		zap.Int("bytes", len(data)),
	)

	if err := u.post(ctx, auth, data, name+"."+ext, ext); err != nil {
		return "", err
	}

	u.logger.Info("upload completed",
		zap.String("key", auth.Key),
		zap.Int("bytes", len(data)),
	)
	return auth.Key, nil
}

// authorize 向平台申请一次性上传授权。
func (u *Uploader) authorize(ctx context.Context, name, ext string) (*authorization, error) {
	raw, err := u.gw.Call(ctx, authorizationPath, authorizationRequest{
		Name:      name + "." + ext,
		Extension: ext,
	})
	if err != nil {
		return nil, err
	}

	var auth authorization
	if err := json.Unmarshal(raw, &auth); err != nil {
		return nil, types.NewTransportError("upload: malformed authorization payload", err)
	}
	if auth.PostURL == "" || auth.Key == "" {
		return nil, types.NewTransportError("upload: incomplete authorization payload", nil)
	}
	return &auth, nil
}

// post 凭授权将文件直传对象存储。
// 字段顺序是存储协议的一部分：策略字段在前，file 部分严格最后。
func (u *Uploader) post(ctx context.Context, auth *authorization, data []byte, filename, ext string) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fields := []struct{ name, value string }{
		{"key", auth.Key},
		{"policy", auth.Policy},
		{"x-oss-signature-version", auth.XOssSignatureVersion},
		{"x-oss-credential", auth.XOssCredential},
		{"x-oss-date", auth.XOssDate},
		{"x-oss-signature", auth.XOssSignature},
		{"x-oss-expire", auth.XOssExpire},
	}
	for _, f := range fields {
		if err := writer.WriteField(f.name, f.value); err != nil {
			return types.NewValidationError("upload: write form field " + f.name).WithCause(err)
		}
	}

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", contentTypeFor(ext))
	part, err := writer.CreatePart(header)
	if err != nil {
		return types.NewValidationError("upload: create file part").WithCause(err)
	}
	if _, err := part.Write(data); err != nil {
		return types.NewValidationError("upload: write file data").WithCause(err)
	}
	if err := writer.Close(); err != nil {
		return types.NewValidationError("upload: finalize multipart body").WithCause(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, auth.PostURL, &buf)
	if err != nil {
		return types.NewValidationError("upload: build storage request").WithCause(err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := u.http.Do(req)
	if err != nil {
		return types.NewTransportError("upload: storage request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		u.logger.Warn("storage rejected upload",
			zap.String("key", auth.Key),
			zap.Int("http_status", resp.StatusCode),
		)
		return types.NewError(types.ErrRemoteRejection,
			fmt.Sprintf("storage returned HTTP %d: %s", resp.StatusCode, string(body))).
			WithHTTPStatus(resp.StatusCode)
	}
	return nil
}

// normalizeFilename 校验并归一化文件名。
// 返回不含扩展名的基名与归一化后的扩展名；违例在此处即被拒绝，
// 不会发出任何网络请求。
func normalizeFilename(filename string) (name, ext string, err error) {
	base := path.Base(strings.TrimSpace(filename))
	dot := strings.LastIndex(base, ".")
	if dot <= 0 || dot == len(base)-1 {
		return "", "", types.NewValidationError(
			fmt.Sprintf("upload: filename %q has no extension", filename))
	}

	name = base[:dot]
	ext = strings.ToLower(base[dot+1:])
	normalized, ok := allowedExtensions[ext]
	if !ok {
		return "", "", types.NewValidationError(
			fmt.Sprintf("upload: extension %q is not allowed (want jpg, jpeg or png)", ext))
	}
	return name, normalized, nil
}

// contentTypeFor 由归一化扩展名推导 MIME 类型，未知时回退二进制流。
func contentTypeFor(ext string) string {
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}
