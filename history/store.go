// 版权所有 2024 ImageFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

package history

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BaSui01/imageflow/types"
)

// ErrNotFound 按任务 ID 查询时没有匹配记录
var ErrNotFound = errors.New("run not found")

// =============================================================================
// 📜 生成历史模型
// =============================================================================

// Run 一次图像生成任务的持久化记录
type Run struct {
	ID         string          `gorm:"primaryKey;size:36" json:"id"`
	GenerateID string          `gorm:"size:64;index:idx_generate_id" json:"generate_id"` // 平台任务 ID
	TemplateID string          `gorm:"size:64;index:idx_template_id" json:"template_id"` // 工作流模板 UUID
	Status     types.JobStatus `gorm:"not null" json:"status"`                           // 终态（success/failed/timeout）
	ResultURL  string          `gorm:"type:text" json:"result_url"`                      // 成功时的图片 URL
	Error      string          `gorm:"type:text" json:"error"`                           // 失败时的原因
	Duration   time.Duration   `json:"duration"`                                         // 提交到终态的耗时
	CreatedAt  time.Time       `gorm:"index:idx_created_at" json:"created_at"`
}

// Config 历史存储配置
type Config struct {
	// 是否启用历史记录
	Enabled bool `yaml:"enabled" json:"enabled" env:"ENABLED"`

	// SQLite 数据库文件路径
	Path string `yaml:"path" json:"path" env:"PATH"`
}

// DefaultConfig 返回默认历史存储配置
func DefaultConfig() Config {
	return Config{
		Enabled: false,
		Path:    "imageflow.db",
	}
}

// =============================================================================
// 🗄️ 存储仓库
// =============================================================================

// Store 生成历史仓库
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
	mu     sync.RWMutex
	closed bool
}

// Open 打开（必要时创建）SQLite 历史数据库并迁移表结构
func Open(cfg Config, logger *zap.Logger) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = DefaultConfig().Path
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	store, err := NewStore(db, logger)
	if err != nil {
		return nil, err
	}

	store.logger.Info("history store opened", zap.String("path", path))
	return store, nil
}

// NewStore 在已有 GORM 连接上创建仓库并执行迁移
func NewStore(db *gorm.DB, logger *zap.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := db.AutoMigrate(&Run{}); err != nil {
		return nil, fmt.Errorf("failed to auto migrate: %w", err)
	}

	return &Store{
		db:     db,
		logger: logger.With(zap.String("component", "history")),
	}, nil
}

// =============================================================================
// 🎯 核心方法
// =============================================================================

// Save 写入一条生成记录，自动补全 ID 与创建时间
func (s *Store) Save(ctx context.Context, run *Run) error {
	if run == nil {
		return fmt.Errorf("run cannot be nil")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}

	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	s.logger.Debug("run recorded",
		zap.String("generate_id", run.GenerateID),
		zap.String("status", run.Status.String()),
	)
	return nil
}

// Recent 按创建时间倒序返回最近 limit 条记录
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	var runs []Run
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// FindByGenerateID 按平台任务 ID 查找记录
func (s *Store) FindByGenerateID(ctx context.Context, generateID string) (*Run, error) {
	if generateID == "" {
		return nil, fmt.Errorf("generate id cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	var run Run
	err := s.db.WithContext(ctx).
		Where("generate_id = ?", generateID).
		First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find run: %w", err)
	}
	return &run, nil
}

// Purge 删除早于 olderThan 的记录，返回删除条数
func (s *Store) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, fmt.Errorf("store is closed")
	}

	result := s.db.WithContext(ctx).
		Where("created_at < ?", olderThan).
		Delete(&Run{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge runs: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		s.logger.Info("purged old runs", zap.Int64("count", result.RowsAffected))
	}
	return result.RowsAffected, nil
}

// Close 关闭底层数据库连接
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	s.logger.Info("closing history store")
	return sqlDB.Close()
}
