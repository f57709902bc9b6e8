package aggregator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/caramaschiHG/Dilutio/internal/compounding"
	"github.com/caramaschiHG/Dilutio/internal/config"
	"github.com/caramaschiHG/Dilutio/internal/metrics"

	"go.uber.org/zap"
)

const (
	kindBase      = "base"
	kindFractions = "fractions"
)

// CacheManager 计算结果缓存管理器（按输入快照记忆化）
type CacheManager struct {
	config  *config.Config
	kv      KVStore
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewCacheManager 创建缓存管理器（m 可为 nil）
func NewCacheManager(
	cfg *config.Config,
	kv KVStore,
	m *metrics.Metrics,
	logger *zap.Logger,
) *CacheManager {
	return &CacheManager{
		config:  cfg,
		kv:      kv,
		metrics: m,
		logger:  logger,
	}
}

// baseKeySnapshot 基质缓存键覆盖的全部输入（含生效密度）
type baseKeySnapshot struct {
	Inputs  compounding.BaseInputs `json:"inputs"`
	Density string                 `json:"density"`
}

// fractionsKeySnapshot 分装缓存键覆盖的全部输入
type fractionsKeySnapshot struct {
	BaseConcentration string                      `json:"base_concentration"`
	Patients          []compounding.PatientRecord `json:"patients"`
}

// BaseKey 基质结果的缓存键
func (c *CacheManager) BaseKey(in compounding.BaseInputs, density float64) (string, error) {
	return c.key(kindBase, baseKeySnapshot{
		Inputs:  in,
		Density: strconv.FormatFloat(density, 'g', -1, 64),
	})
}

// FractionsKey 分装结果的缓存键
func (c *CacheManager) FractionsKey(records []compounding.PatientRecord, baseConcentration float64) (string, error) {
	if records == nil {
		records = []compounding.PatientRecord{}
	}
	return c.key(kindFractions, fractionsKeySnapshot{
		BaseConcentration: strconv.FormatFloat(baseConcentration, 'g', -1, 64),
		Patients:          records,
	})
}

// key = prefix + kind + ":" + sha256(JSON 快照)
func (c *CacheManager) key(kind string, snapshot interface{}) (string, error) {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s cache key: %w", kind, err)
	}
	sum := sha256.Sum256(raw)
	return c.config.Cache.KeyPrefix + kind + ":" + hex.EncodeToString(sum[:]), nil
}

// GetBase 读取基质缓存，不存在时返回 ErrCacheMiss
func (c *CacheManager) GetBase(ctx context.Context, key string) (*compounding.BaseResult, error) {
	var r compounding.BaseResult
	if err := c.get(ctx, kindBase, key, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// SetBase 写入基质缓存
func (c *CacheManager) SetBase(ctx context.Context, key string, r compounding.BaseResult) error {
	return c.set(ctx, kindBase, key, r)
}

// GetFractions 读取分装缓存，不存在时返回 ErrCacheMiss
func (c *CacheManager) GetFractions(ctx context.Context, key string) ([]compounding.PatientResult, error) {
	var r []compounding.PatientResult
	if err := c.get(ctx, kindFractions, key, &r); err != nil {
		return nil, err
	}
	if r == nil {
		r = []compounding.PatientResult{}
	}
	return r, nil
}

// SetFractions 写入分装缓存
func (c *CacheManager) SetFractions(ctx context.Context, key string, r []compounding.PatientResult) error {
	return c.set(ctx, kindFractions, key, r)
}

func (c *CacheManager) get(ctx context.Context, kind, key string, dst interface{}) error {
	raw, err := c.kv.Get(ctx, key)
	if err != nil {
		if err == ErrCacheMiss {
			c.metrics.RecordCacheLookup(kind, "miss")
			return ErrCacheMiss
		}
		c.metrics.RecordCacheLookup(kind, "error")
		return fmt.Errorf("failed to get %s cache: %w", kind, err)
	}

	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		c.metrics.RecordCacheLookup(kind, "error")
		return fmt.Errorf("failed to unmarshal %s cache: %w", kind, err)
	}

	c.metrics.RecordCacheLookup(kind, "hit")
	c.logger.Debug("Calculation cache hit",
		zap.String("kind", kind),
		zap.String("key", key),
	)
	return nil
}

func (c *CacheManager) set(ctx context.Context, kind, key string, value interface{}) error {
	jsonData, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s result: %w", kind, err)
	}

	if err := c.kv.Set(ctx, key, string(jsonData), c.config.Cache.TTL); err != nil {
		return fmt.Errorf("failed to set %s cache: %w", kind, err)
	}

	c.logger.Debug("Updated calculation cache",
		zap.String("kind", kind),
		zap.String("key", key),
	)
	return nil
}
