package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/imageflow/gateway"
	"github.com/BaSui01/imageflow/sign"
	"github.com/BaSui01/imageflow/types"
)

func TestNormalizeFilename(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in       string
		wantName string
		wantExt  string
		wantErr  bool
	}{
		{"photo.jpg", "photo", "jpg", false},
		{"photo.jpeg", "photo", "jpg", false}, // jpeg 归一为 jpg
		{"photo.JPEG", "photo", "jpg", false},
		{"photo.PNG", "photo", "png", false},
		{"dir/sub/photo.jpeg", "photo", "jpg", false},
		{"my.photo.png", "my.photo", "png", false},
		{"photo.gif", "", "", true},
		{"photo.webp", "", "", true},
		{"noextension", "", "", true},
		{".hidden", "", "", true},
		{"trailingdot.", "", "", true},
		{"", "", "", true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			name, ext, err := normalizeFilename(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, types.IsCode(err, types.ErrValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantName, name)
			assert.Equal(t, tc.wantExt, ext)
		})
	}
}

func TestContentTypeFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "image/jpeg", contentTypeFor("jpg"))
	assert.Equal(t, "image/png", contentTypeFor("png"))
	assert.Equal(t, "application/octet-stream", contentTypeFor("bin"))
}

// testStack 组装一条完整的假上传链路：签名网关 + 对象存储。
type testStack struct {
	uploader     *Uploader
	authRequests []authorizationRequest
	partNames    [][]string // 每次存储请求观察到的 multipart 字段顺序
	fileTypes    []string   // file 部分的 Content-Type
	storageCalls int32
}

func newTestStack(t *testing.T, storageStatus int) *testStack {
	t.Helper()
	st := &testStack{}

	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&st.storageCalls, 1)

		mr, err := r.MultipartReader()
		require.NoError(t, err)
		var names []string
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			names = append(names, part.FormName())
			if part.FormName() == "file" {
				st.fileTypes = append(st.fileTypes, part.Header.Get("Content-Type"))
			}
			_, _ = io.Copy(io.Discard, part)
		}
		st.partNames = append(st.partNames, names)
		w.WriteHeader(storageStatus)
	}))
	t.Cleanup(storage.Close)

	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var env struct {
			Path string          `json:"path"`
			Data json.RawMessage `json:"data"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&env))
		require.Equal(t, authorizationPath, env.Path)

		var authReq authorizationRequest
		require.NoError(t, json.Unmarshal(env.Data, &authReq))
		st.authRequests = append(st.authRequests, authReq)

		auth := authorization{
			PostURL:              storage.URL,
			Key:                  "input/20260825/" + authReq.Name,
			Policy:               "cG9saWN5",
			XOssSignatureVersion: "OSS4-HMAC-SHA256",
			XOssCredential:       "cred/20260825/cn-north-1/oss/aliyun_v4_request",
			XOssDate:             "20260825T030405Z",
			XOssSignature:        "c2lnbmF0dXJl",
			XOssExpire:           "3600",
		}
		data, _ := json.Marshal(auth)
		fmt.Fprintf(w, `{"code":0,"msg":"","data":%s}`, data)
	}))
	t.Cleanup(proxy.Close)

	signer, err := sign.New(types.Credentials{AccessKey: "ak", SecretKey: "sk"})
	require.NoError(t, err)
	gw, err := gateway.New(proxy.URL, signer)
	require.NoError(t, err)
	up, err := New(gw)
	require.NoError(t, err)
	st.uploader = up
	return st
}

func TestUploader_Upload_FieldOrderAndKey(t *testing.T) {
	st := newTestStack(t, http.StatusNoContent)

	key, err := st.uploader.Upload(context.Background(), []byte("png-bytes"), "portrait.png")
	require.NoError(t, err)
	assert.Equal(t, "input/20260825/portrait.png", key)

	require.Len(t, st.partNames, 1)
	assert.Equal(t, []string{
		"key",
		"policy",
		"x-oss-signature-version",
		"x-oss-credential",
		"x-oss-date",
		"x-oss-signature",
		"x-oss-expire",
		"file",
	}, st.partNames[0], "策略字段在前，file 必须是最后一个部分")

	require.Len(t, st.fileTypes, 1)
	assert.Equal(t, "image/png", st.fileTypes[0])
}

func TestUploader_Upload_JpegNormalizedBeforeAuthorization(t *testing.T) {
	st := newTestStack(t, http.StatusOK)

	_, err := st.uploader.Upload(context.Background(), []byte("jpeg-bytes"), "photo.JPEG")
	require.NoError(t, err)

	require.Len(t, st.authRequests, 1)
	assert.Equal(t, "jpg", st.authRequests[0].Extension, "授权请求必须携带归一化后的扩展名")
	assert.Equal(t, "photo.jpg", st.authRequests[0].Name)

	require.Len(t, st.fileTypes, 1)
	assert.Equal(t, "image/jpeg", st.fileTypes[0])
}

func TestUploader_Upload_ValidationBeforeNetwork(t *testing.T) {
	st := newTestStack(t, http.StatusOK)

	_, err := st.uploader.Upload(context.Background(), []byte("gif-bytes"), "anim.gif")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrValidation))

	assert.Empty(t, st.authRequests, "非法扩展名不允许触发授权请求")
	assert.Zero(t, atomic.LoadInt32(&st.storageCalls))
}

func TestUploader_Upload_StorageRejection(t *testing.T) {
	st := newTestStack(t, http.StatusForbidden)

	_, err := st.uploader.Upload(context.Background(), []byte("bytes"), "photo.jpg")
	require.Error(t, err)

	e, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrRemoteRejection, e.Code)
	assert.Equal(t, http.StatusForbidden, e.HTTPStatus)

	// 上传层不重试
	assert.Equal(t, int32(1), atomic.LoadInt32(&st.storageCalls))
}

func TestUploader_Upload_AuthorizationRejected(t *testing.T) {
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":100030,"msg":"upload quota exhausted","data":null}`))
	}))
	defer proxy.Close()

	signer, err := sign.New(types.Credentials{AccessKey: "ak", SecretKey: "sk"})
	require.NoError(t, err)
	gw, err := gateway.New(proxy.URL, signer)
	require.NoError(t, err)
	up, err := New(gw)
	require.NoError(t, err)

	_, err = up.Upload(context.Background(), []byte("bytes"), "photo.jpg")
	require.Error(t, err)

	e, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrRemoteRejection, e.Code)
	assert.Equal(t, 100030, e.APICode)
	assert.Equal(t, "upload quota exhausted", e.Message)
}

func TestNew_RequiresGateway(t *testing.T) {
	t.Parallel()

	_, err := New(nil)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrValidation))
}
