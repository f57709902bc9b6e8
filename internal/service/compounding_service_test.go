package service

import (
	"context"
	"testing"
	"time"

	"github.com/caramaschiHG/Dilutio/internal/aggregator"
	"github.com/caramaschiHG/Dilutio/internal/compounding"
	"github.com/caramaschiHG/Dilutio/internal/config"
	"github.com/caramaschiHG/Dilutio/internal/metrics"
	"github.com/caramaschiHG/Dilutio/internal/models"
	"github.com/caramaschiHG/Dilutio/internal/report"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2026, time.March, 7, 14, 30, 0, 0, time.UTC)

func newTestService(t *testing.T) (CompoundingService, *metrics.Metrics) {
	t.Helper()
	cfg := &config.Config{}
	cfg.Cache.KeyPrefix = "dilutio:calc:"
	cfg.Cache.TTL = time.Minute
	cfg.Densities = compounding.DefaultDensities()

	logger := zap.NewNop()
	m := metrics.New()
	cache := aggregator.NewCacheManager(cfg, aggregator.NewMemoryKVStore(), m, logger)
	agg := aggregator.NewBatchAggregator(cfg, cache, m, logger)
	return NewCompoundingService(agg, cfg.Densities, m, func() time.Time { return fixedNow }, logger), m
}

func rosinBase() models.BaseRequest {
	return models.BaseRequest{
		Mode:                       "mass",
		ExtractType:                "rosin",
		PotencyPercent:             "70",
		ExtractMassGrams:           "10",
		TargetConcentrationMgPerMl: "100",
	}
}

func TestCompoundingService_ComputeBase(t *testing.T) {
	svc, _ := newTestService(t)

	r := svc.ComputeBase(context.Background(), rosinBase())
	assert.True(t, r.IsValid)
	assert.Equal(t, 70.0, r.FinalVolumeMl)
	assert.Equal(t, 61.0, r.DiluentToAddMl)
}

func TestCompoundingService_ComputeFractions(t *testing.T) {
	svc, _ := newTestService(t)

	out := svc.ComputeFractions(context.Background(), models.FractionsRequest{
		BaseConcentrationMgPerMl: 100,
		Patients: []compounding.PatientRecord{
			{ID: "p1", TargetConcentrationMgPerMl: "20", BottleVolumeMl: "30"},
		},
	})
	require.Len(t, out, 1)
	assert.Equal(t, 6.0, out[0].AliquotVolumeMl)
	assert.Equal(t, "p1", out[0].ID)
}

func TestCompoundingService_GeneratePOP_FillsTraceability(t *testing.T) {
	svc, m := newTestService(t)

	file, err := svc.GeneratePOP(context.Background(), models.POPRequest{
		Type:       "full",
		Technician: "Maria Souza",
		Base:       rosinBase(),
		Patients: []compounding.PatientRecord{
			{ID: "p1", Name: "Ana", TargetConcentrationMgPerMl: "20", BottleVolumeMl: "30"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "LOT.20260307.1430", file.BatchNumber)
	assert.Equal(t, "POP_LOT.20260307.1430.xlsx", file.FileName)
	assert.NotEmpty(t, file.Content)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.POPDocuments.WithLabelValues("full", "ok")))
}

func TestCompoundingService_GeneratePOP_KeepsGivenBatchNumber(t *testing.T) {
	svc, _ := newTestService(t)

	file, err := svc.GeneratePOP(context.Background(), models.POPRequest{
		Type:        "base",
		Technician:  "Maria Souza",
		BatchNumber: "LOT.CUSTOM",
		Base:        rosinBase(),
	})
	require.NoError(t, err)
	assert.Equal(t, "LOT.CUSTOM", file.BatchNumber)
}

func TestCompoundingService_GeneratePOP_Preconditions(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()

	_, err := svc.GeneratePOP(ctx, models.POPRequest{Type: "base", Base: rosinBase()})
	assert.ErrorIs(t, err, report.ErrTechnicianRequired)
	assert.True(t, IsPreconditionError(err))

	invalid := rosinBase()
	invalid.PotencyPercent = "0"
	_, err = svc.GeneratePOP(ctx, models.POPRequest{Type: "base", Technician: "Maria", Base: invalid})
	assert.ErrorIs(t, err, report.ErrBaseInvalid)

	_, err = svc.GeneratePOP(ctx, models.POPRequest{
		Type:       "full",
		Technician: "Maria",
		Base:       rosinBase(),
		Patients: []compounding.PatientRecord{
			{ID: "p1", TargetConcentrationMgPerMl: "200", BottleVolumeMl: "10"},
		},
	})
	assert.ErrorIs(t, err, report.ErrInfeasiblePatients)

	_, err = svc.GeneratePOP(ctx, models.POPRequest{Type: "pdf", Technician: "Maria", Base: rosinBase()})
	assert.ErrorIs(t, err, report.ErrUnknownDocumentType)
	assert.False(t, IsPreconditionError(err))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.POPDocuments.WithLabelValues("base", "technician_required")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.POPDocuments.WithLabelValues("full", "infeasible_patients")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.POPDocuments.WithLabelValues("unknown", "unknown_type")))
}

func TestCompoundingService_ExtractTypes(t *testing.T) {
	svc, _ := newTestService(t)

	types := svc.ExtractTypes(context.Background())
	require.Len(t, types, 3)
	assert.Equal(t, "rosin", types[0].Type)
	assert.Equal(t, "Rosin (Sem Solvente)", types[0].Label)
	assert.Equal(t, compounding.DefaultExtractDensity, types[0].Density)
}

func TestCompoundingService_ComputeBatch_Canceled(t *testing.T) {
	svc, m := newTestService(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.ComputeBatch(ctx, models.BatchRequest{Base: rosinBase()})
	require.ErrorIs(t, err, context.Canceled)

	_, err = svc.GeneratePOP(ctx, models.POPRequest{Type: "base", Technician: "Maria", Base: rosinBase()})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.POPDocuments.WithLabelValues("base", "error")))
}
