package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caramaschiHG/Dilutio/internal/aggregator"
	"github.com/caramaschiHG/Dilutio/internal/compounding"
	"github.com/caramaschiHG/Dilutio/internal/metrics"
	"github.com/caramaschiHG/Dilutio/internal/models"
	"github.com/caramaschiHG/Dilutio/internal/report"

	"go.uber.org/zap"
)

// CompoundingService 复方计算服务接口（HTTP 与 CLI 共用）
type CompoundingService interface {
	// ComputeBase 基质标准化
	ComputeBase(ctx context.Context, req models.BaseRequest) compounding.BaseResult
	// ComputeFractions 按给定基质浓度计算患者分装
	ComputeFractions(ctx context.Context, req models.FractionsRequest) []compounding.PatientResult
	// ComputeBatch 完整重算批次（基质 + 分装 + 汇总）
	ComputeBatch(ctx context.Context, req models.BatchRequest) (*models.BatchCalculation, error)
	// GeneratePOP 生成 POP 工作簿
	GeneratePOP(ctx context.Context, req models.POPRequest) (*POPFile, error)
	// ExtractTypes 支持的提取物类型及生效密度
	ExtractTypes(ctx context.Context) []models.ExtractTypeInfo
}

// POPFile 生成的 POP 工作簿
type POPFile struct {
	FileName    string
	BatchNumber string
	Content     []byte
}

// compoundingService 复方计算服务实现
type compoundingService struct {
	aggregator *aggregator.BatchAggregator
	densities  compounding.DensityTable
	metrics    *metrics.Metrics
	now        func() time.Time
	logger     *zap.Logger
}

// NewCompoundingService 创建复方计算服务（now 为 nil 时使用 time.Now）
func NewCompoundingService(
	agg *aggregator.BatchAggregator,
	densities compounding.DensityTable,
	m *metrics.Metrics,
	now func() time.Time,
	logger *zap.Logger,
) CompoundingService {
	if densities == nil {
		densities = compounding.DefaultDensities()
	}
	if now == nil {
		now = time.Now
	}
	return &compoundingService{
		aggregator: agg,
		densities:  densities,
		metrics:    m,
		now:        now,
		logger:     logger,
	}
}

func (s *compoundingService) ComputeBase(ctx context.Context, req models.BaseRequest) compounding.BaseResult {
	return s.aggregator.ComputeBase(ctx, req.Inputs())
}

func (s *compoundingService) ComputeFractions(ctx context.Context, req models.FractionsRequest) []compounding.PatientResult {
	return s.aggregator.ComputeFractions(ctx, req.Patients, req.BaseConcentrationMgPerMl)
}

func (s *compoundingService) ComputeBatch(ctx context.Context, req models.BatchRequest) (*models.BatchCalculation, error) {
	batch, err := s.aggregator.Aggregate(ctx, req.Base.Inputs(), req.Patients)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate batch: %w", err)
	}
	return batch, nil
}

func (s *compoundingService) GeneratePOP(ctx context.Context, req models.POPRequest) (*POPFile, error) {
	docType, err := report.ParseDocumentType(req.Type)
	if err != nil {
		s.metrics.RecordPOP("unknown", popResult(err))
		return nil, err
	}

	batch, err := s.ComputeBatch(ctx, models.BatchRequest{Base: req.Base, Patients: req.Patients})
	if err != nil {
		s.metrics.RecordPOP(string(docType), popResult(err))
		return nil, err
	}

	now := s.now()
	doc := report.POPDocument{
		Type:           docType,
		BatchNumber:    strings.TrimSpace(req.BatchNumber),
		IssueDate:      strings.TrimSpace(req.IssueDate),
		Technician:     strings.TrimSpace(req.Technician),
		ExtractType:    compounding.ParseExtractType(req.Base.ExtractType),
		PotencyPercent: req.Base.PotencyPercent,
		Base:           batch.Base,
		Patients:       batch.Patients,
	}
	if doc.BatchNumber == "" {
		doc.BatchNumber = report.GenerateBatchNumber(now)
	}
	if doc.IssueDate == "" {
		doc.IssueDate = report.FormatIssueDate(now)
	}

	content, err := report.GeneratePOP(doc)
	s.metrics.RecordPOP(string(docType), popResult(err))
	if err != nil {
		s.logger.Info("POP generation rejected",
			zap.String("type", string(docType)),
			zap.String("batch_number", doc.BatchNumber),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("POP generated",
		zap.String("type", string(docType)),
		zap.String("batch_number", doc.BatchNumber),
		zap.Int("patient_count", len(doc.Patients)),
		zap.Int("size_bytes", len(content)),
	)
	return &POPFile{
		FileName:    doc.FileName(),
		BatchNumber: doc.BatchNumber,
		Content:     content,
	}, nil
}

func (s *compoundingService) ExtractTypes(ctx context.Context) []models.ExtractTypeInfo {
	out := make([]models.ExtractTypeInfo, 0, len(compounding.ExtractTypes))
	for _, t := range compounding.ExtractTypes {
		out = append(out, models.ExtractTypeInfo{
			Type:    string(t),
			Label:   t.Label(),
			Density: s.densities.Density(t),
		})
	}
	return out
}

// IsPreconditionError POP 前置条件不满足（输入本身合法，但当前状态不允许生成）
func IsPreconditionError(err error) bool {
	return errors.Is(err, report.ErrBaseInvalid) ||
		errors.Is(err, report.ErrTechnicianRequired) ||
		errors.Is(err, report.ErrInfeasiblePatients)
}

func popResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, report.ErrBaseInvalid):
		return "base_invalid"
	case errors.Is(err, report.ErrTechnicianRequired):
		return "technician_required"
	case errors.Is(err, report.ErrInfeasiblePatients):
		return "infeasible_patients"
	case errors.Is(err, report.ErrUnknownDocumentType):
		return "unknown_type"
	default:
		return "error"
	}
}
