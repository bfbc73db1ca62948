package sign

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/imageflow/types"
)

var testCreds = types.Credentials{AccessKey: "ak-test", SecretKey: "sk-test"}

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func TestNew_RequiresCredentials(t *testing.T) {
	t.Parallel()

	_, err := New(types.Credentials{})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrValidation))

	_, err = New(types.Credentials{AccessKey: "ak"})
	require.Error(t, err, "缺少 SecretKey 必须拒绝")

	_, err = New(testCreds)
	require.NoError(t, err)
}

func TestSign_MessageLayout(t *testing.T) {
	t.Parallel()

	// 全零熵源 → nonce 为 16 个 'a'，便于独立重算摘要。
	s, err := New(testCreds,
		WithClock(fixedClock(1700000000000)),
		WithEntropy(bytes.NewReader(make([]byte, 64))),
	)
	require.NoError(t, err)

	q := s.Sign("/api/generate")

	assert.Equal(t, "ak-test", q.AccessKey)
	assert.Equal(t, int64(1700000000000), q.Timestamp)
	assert.Equal(t, strings.Repeat("a", 16), q.Nonce)

	mac := hmac.New(sha1.New, []byte("sk-test"))
	mac.Write([]byte("/api/generate&1700000000000&" + strings.Repeat("a", 16)))
	want := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	assert.Equal(t, want, q.Signature, "摘要必须覆盖 path&timestamp&nonce 原文")
}

func TestSign_SignatureEncoding(t *testing.T) {
	t.Parallel()

	s, err := New(testCreds)
	require.NoError(t, err)

	q := s.Sign("/api/workflow/run")

	// URL-safe base64 无填充：20 字节 SHA1 摘要恒为 27 字符。
	assert.Len(t, q.Signature, 27)
	assert.NotContains(t, q.Signature, "=")
	assert.NotContains(t, q.Signature, "+")
	assert.NotContains(t, q.Signature, "/")

	raw, err := base64.RawURLEncoding.DecodeString(q.Signature)
	require.NoError(t, err)
	assert.Len(t, raw, sha1.Size)
}

func TestSign_FreshPerCall(t *testing.T) {
	t.Parallel()

	s, err := New(testCreds)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		q := s.Sign("/api/workflow/run")
		assert.False(t, seen[q.Nonce], "nonce 不允许重复")
		seen[q.Nonce] = true
	}
}

func TestSign_DifferentPathsDifferentSignatures(t *testing.T) {
	t.Parallel()

	s, err := New(testCreds,
		WithClock(fixedClock(1700000000000)),
		WithEntropy(bytes.NewReader(make([]byte, 128))),
	)
	require.NoError(t, err)

	a := s.Sign("/api/upload/signature")
	b := s.Sign("/api/workflow/run")
	assert.NotEqual(t, a.Signature, b.Signature)
}

func TestSignedQuery_Encode(t *testing.T) {
	t.Parallel()

	q := SignedQuery{
		AccessKey: "ak-test",
		Signature: "sig",
		Timestamp: 1700000000000,
		Nonce:     "abcdefgh12345678",
	}

	values, err := url.ParseQuery(q.Encode())
	require.NoError(t, err)
	assert.Equal(t, "ak-test", values.Get("AccessKey"))
	assert.Equal(t, "sig", values.Get("Signature"))
	assert.Equal(t, "1700000000000", values.Get("Timestamp"))
	assert.Equal(t, "abcdefgh12345678", values.Get("SignatureNonce"))
}
