package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/BaSui01/imageflow/types"
)

// keyPrefix 所有缓存键的统一前缀
const keyPrefix = "imageflow:result:"

// ErrCacheMiss 缓存未命中错误
var ErrCacheMiss = errors.New("cache miss")

// IsCacheMiss 判断是否为缓存未命中错误
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

// Entry 缓存条目：一次成功生成的最终结果。
type Entry struct {
	GenerateID string          `json:"generate_id"`
	URL        string          `json:"url"`
	Status     types.JobStatus `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ResultCache 结果缓存接口。实现必须并发安全。
type ResultCache interface {
	// Get 返回缓存条目；未命中返回 ErrCacheMiss。
	Get(ctx context.Context, key string) (*Entry, error)
	// Set 写入条目，TTL 由实现决定。
	Set(ctx context.Context, key string, entry *Entry) error
	// Close 释放底层资源。
	Close() error
}

// Key 由模板 ID 与完整生成参数派生确定性缓存键。
// encoding/json 对 map 键做字典序输出，同一参数集合必然得到同一键。
func Key(templateID string, params map[string]any) string {
	data, err := json.Marshal(struct {
		TemplateID string         `json:"t"`
		Params     map[string]any `json:"p"`
	}{templateID, params})
	if err != nil {
		// fallback: 使用 fmt.Sprintf 生成确定性字符串避免 key 碰撞
		data = []byte(fmt.Sprintf("%s|%v", templateID, params))
	}
	hash := sha256.Sum256(data)
	return keyPrefix + hex.EncodeToString(hash[:16]) // 使用前 16 字节
}
