package sign

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"io"
	"net/url"
	"strconv"
	"time"

	"github.com/BaSui01/imageflow/types"
)

// 随机数固定字母表，与平台校验规则一致
const nonceAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// nonceLength 平台要求的随机串长度
const nonceLength = 16

// SignedQuery 单次请求的签名四元组
// 每次调用重新生成，严禁复用（nonce 防重放）
type SignedQuery struct {
	AccessKey string // 平台颁发的访问密钥
	Signature string // URL-safe base64（无填充）编码的 HMAC-SHA1 摘要
	Timestamp int64  // 签名时刻，epoch 毫秒
	Nonce     string // 16 位随机串，[a-z0-9]
}

// Encode 将签名参数编码为查询字符串，供网关信封的 signatureParams 字段使用。
func (q SignedQuery) Encode() string {
	v := url.Values{}
	v.Set("AccessKey", q.AccessKey)
	v.Set("Signature", q.Signature)
	v.Set("Timestamp", strconv.FormatInt(q.Timestamp, 10))
	v.Set("SignatureNonce", q.Nonce)
	return v.Encode()
}

// Signer 按平台规则对请求路径签名。
//
// 签名算法：HMAC-SHA1(secretKey, path + "&" + timestamp + "&" + nonce)，
// 摘要经 URL-safe base64 无填充编码。时钟与熵源可注入，便于测试确定性。
type Signer struct {
	creds   types.Credentials
	now     func() time.Time
	entropy io.Reader
}

// Option 配置 Signer 的可选项。
type Option func(*Signer)

// WithClock 注入时钟（默认 time.Now）。
func WithClock(now func() time.Time) Option {
	return func(s *Signer) { s.now = now }
}

// WithEntropy 注入熵源（默认 crypto/rand）。
func WithEntropy(r io.Reader) Option {
	return func(s *Signer) { s.entropy = r }
}

// New 创建签名器。AccessKey 与 SecretKey 均不能为空。
func New(creds types.Credentials, opts ...Option) (*Signer, error) {
	if !creds.Valid() {
		return nil, types.NewValidationError("sign: access key and secret key are required")
	}
	s := &Signer{
		creds:   creds,
		now:     time.Now,
		entropy: rand.Reader,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Sign 为给定 API 路径生成一次性签名参数。
// path 为平台 API 路径（如 /api/workflow/run），不含查询串。
func (s *Signer) Sign(path string) SignedQuery {
	nonce := s.newNonce()
	ts := s.now().UnixMilli()

	msg := path + "&" + strconv.FormatInt(ts, 10) + "&" + nonce
	mac := hmac.New(sha1.New, []byte(s.creds.SecretKey))
	mac.Write([]byte(msg))

	return SignedQuery{
		AccessKey: s.creds.AccessKey,
		Signature: base64.RawURLEncoding.EncodeToString(mac.Sum(nil)),
		Timestamp: ts,
		Nonce:     nonce,
	}
}

// newNonce 从熵源取样并映射到固定字母表。
// crypto/rand.Read 保证填满缓冲区且不出错。
func (s *Signer) newNonce() string {
	buf := make([]byte, nonceLength)
	_, _ = io.ReadFull(s.entropy, buf)
	for i, b := range buf {
		buf[i] = nonceAlphabet[int(b)%len(nonceAlphabet)]
	}
	return string(buf)
}
