package aggregator

import (
	"context"

	"github.com/caramaschiHG/Dilutio/internal/compounding"
	"github.com/caramaschiHG/Dilutio/internal/config"
	"github.com/caramaschiHG/Dilutio/internal/metrics"
	"github.com/caramaschiHG/Dilutio/internal/models"

	"go.uber.org/zap"
)

// BatchAggregator 批次聚合器：基质 -> 患者分装 -> 汇总
// 缓存仅用于加速，缓存故障时直接计算，不向调用方返回错误
type BatchAggregator struct {
	config       *config.Config
	standardizer *compounding.BaseStandardizer
	cache        *CacheManager // nil = 不缓存
	metrics      *metrics.Metrics
	logger       *zap.Logger
}

// NewBatchAggregator 创建批次聚合器
func NewBatchAggregator(
	cfg *config.Config,
	cache *CacheManager,
	m *metrics.Metrics,
	logger *zap.Logger,
) *BatchAggregator {
	return &BatchAggregator{
		config:       cfg,
		standardizer: compounding.NewBaseStandardizer(cfg.Densities),
		cache:        cache,
		metrics:      m,
		logger:       logger,
	}
}

// ComputeBase 计算基质标准化结果（带缓存）
func (a *BatchAggregator) ComputeBase(ctx context.Context, in compounding.BaseInputs) compounding.BaseResult {
	r := a.computeBase(ctx, in)
	a.metrics.RecordBase(modeLabel(in.Mode), r.IsValid)
	return r
}

// modeLabel 未知模式统一为 "unknown"，限制指标基数
func modeLabel(m compounding.Mode) string {
	if !m.Known() {
		return "unknown"
	}
	return string(m)
}

func (a *BatchAggregator) computeBase(ctx context.Context, in compounding.BaseInputs) compounding.BaseResult {
	if a.cache == nil {
		return a.standardizer.Compute(in)
	}

	key, err := a.cache.BaseKey(in, a.standardizer.Density(in.ExtractType))
	if err != nil {
		a.logger.Warn("Failed to build base cache key", zap.Error(err))
		return a.standardizer.Compute(in)
	}

	cached, err := a.cache.GetBase(ctx, key)
	if err == nil {
		return *cached
	}
	if err != ErrCacheMiss {
		a.logger.Warn("Failed to read base cache, computing directly",
			zap.String("key", key),
			zap.Error(err),
		)
	}

	r := a.standardizer.Compute(in)
	if err := a.cache.SetBase(ctx, key, r); err != nil {
		a.logger.Warn("Failed to update base cache",
			zap.String("key", key),
			zap.Error(err),
		)
	}
	return r
}

// ComputeFractions 计算患者分装结果（带缓存），输出与输入一一对应
func (a *BatchAggregator) ComputeFractions(ctx context.Context, records []compounding.PatientRecord, baseConcentration float64) []compounding.PatientResult {
	results := a.computeFractions(ctx, records, baseConcentration)
	for _, r := range results {
		a.metrics.RecordFraction(fractionOutcome(r, baseConcentration))
	}
	return results
}

func (a *BatchAggregator) computeFractions(ctx context.Context, records []compounding.PatientRecord, baseConcentration float64) []compounding.PatientResult {
	if a.cache == nil || len(records) == 0 {
		return compounding.ComputeFractions(records, baseConcentration)
	}

	key, err := a.cache.FractionsKey(records, baseConcentration)
	if err != nil {
		a.logger.Warn("Failed to build fractions cache key", zap.Error(err))
		return compounding.ComputeFractions(records, baseConcentration)
	}

	cached, err := a.cache.GetFractions(ctx, key)
	if err == nil && len(cached) == len(records) {
		return cached
	}
	if err != nil && err != ErrCacheMiss {
		a.logger.Warn("Failed to read fractions cache, computing directly",
			zap.String("key", key),
			zap.Error(err),
		)
	}

	results := compounding.ComputeFractions(records, baseConcentration)
	if err := a.cache.SetFractions(ctx, key, results); err != nil {
		a.logger.Warn("Failed to update fractions cache",
			zap.String("key", key),
			zap.Error(err),
		)
	}
	return results
}

// Aggregate 完整重算一个批次
// 基质无效时以浓度 0 计算分装（全部为零值，不报错）；仅在 ctx 已取消时返回错误
func (a *BatchAggregator) Aggregate(ctx context.Context, in compounding.BaseInputs, records []compounding.PatientRecord) (*models.BatchCalculation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	base := a.ComputeBase(ctx, in)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	concentration := 0.0
	if base.IsValid {
		concentration = base.FinalConcentrationMgPerMl
	}
	patients := a.ComputeFractions(ctx, records, concentration)
	summary := compounding.Summarize(base, patients)

	a.logger.Debug("Aggregated batch",
		zap.String("mode", string(in.Mode)),
		zap.Bool("base_valid", base.IsValid),
		zap.Int("patient_count", len(patients)),
		zap.Bool("has_errors", summary.HasErrors),
		zap.Bool("base_paste_sufficient", summary.BasePasteSufficient),
	)

	return &models.BatchCalculation{
		Base:     base,
		Patients: patients,
		Summary:  summary,
	}, nil
}

// fractionOutcome 指标标签：ok / infeasible / incomplete
func fractionOutcome(r compounding.PatientResult, baseConcentration float64) string {
	if r.IsError {
		return "infeasible"
	}
	_, okT := compounding.ParsePositive(r.TargetConcentrationMgPerMl)
	_, okB := compounding.ParsePositive(r.BottleVolumeMl)
	if !okT || !okB || !(baseConcentration > 0) {
		return "incomplete"
	}
	return "ok"
}
