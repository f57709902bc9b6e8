package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/caramaschiHG/Dilutio/internal/aggregator"
	"github.com/caramaschiHG/Dilutio/internal/compounding"
	"github.com/caramaschiHG/Dilutio/internal/config"
	httpapi "github.com/caramaschiHG/Dilutio/internal/http"
	"github.com/caramaschiHG/Dilutio/internal/models"
	"github.com/caramaschiHG/Dilutio/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestServer 启动完整的 dilutio HTTP 栈（内存缓存）
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := &config.Config{}
	cfg.Cache.KeyPrefix = "dilutio:calc:"
	cfg.Cache.TTL = time.Minute
	cfg.Densities = compounding.DefaultDensities()

	logger := zap.NewNop()
	cache := aggregator.NewCacheManager(cfg, aggregator.NewMemoryKVStore(), nil, logger)
	agg := aggregator.NewBatchAggregator(cfg, cache, nil, logger)
	svc := service.NewCompoundingService(agg, cfg.Densities, nil,
		func() time.Time { return time.Date(2026, time.March, 7, 14, 30, 0, 0, time.UTC) }, logger)

	router := httpapi.NewRouter(nil, logger)
	router.RegisterCompoundingRoutes(httpapi.NewCompoundingHandler(svc, logger))

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
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

func TestClient_ComputeBase(t *testing.T) {
	c := New(newTestServer(t).URL, zap.NewNop())

	r, err := c.ComputeBase(context.Background(), rosinBase())
	require.NoError(t, err)
	assert.True(t, r.IsValid)
	assert.Equal(t, 7000.0, r.TotalActiveMg)
	assert.Equal(t, 61.0, r.DiluentToAddMl)
}

func TestClient_ComputeFractionsAndBatch(t *testing.T) {
	c := New(newTestServer(t).URL, zap.NewNop())
	ctx := context.Background()
	patients := []compounding.PatientRecord{
		{ID: "p1", Name: "Ana", TargetConcentrationMgPerMl: "20", BottleVolumeMl: "30"},
		{ID: "p2", Name: "Bruno", TargetConcentrationMgPerMl: "200", BottleVolumeMl: "10"},
	}

	fr, err := c.ComputeFractions(ctx, models.FractionsRequest{BaseConcentrationMgPerMl: 100, Patients: patients})
	require.NoError(t, err)
	require.Len(t, fr, 2)
	assert.Equal(t, 6.0, fr[0].AliquotVolumeMl)
	assert.True(t, fr[1].IsError)

	batch, err := c.ComputeBatch(ctx, models.BatchRequest{Base: rosinBase(), Patients: patients})
	require.NoError(t, err)
	assert.True(t, batch.Summary.HasErrors)
	assert.Equal(t, 6.0, batch.Summary.TotalAliquotRequiredMl)
}

func TestClient_GeneratePOP(t *testing.T) {
	c := New(newTestServer(t).URL, zap.NewNop())

	content, lot, err := c.GeneratePOP(context.Background(), models.POPRequest{
		Type:       "base",
		Technician: "Maria Souza",
		Base:       rosinBase(),
	})
	require.NoError(t, err)
	assert.Equal(t, "LOT.20260307.1430", lot)
	// xlsx 是 zip 容器
	assert.Equal(t, "PK", string(content[:2]))
}

func TestClient_GeneratePOP_Precondition(t *testing.T) {
	c := New(newTestServer(t).URL, zap.NewNop())

	_, _, err := c.GeneratePOP(context.Background(), models.POPRequest{Type: "base", Base: rosinBase()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPrecondition))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, httpapi.ResultError, apiErr.Code)
}

func TestClient_EnvelopeErrorCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(httpapi.Fail("calculation unavailable"))
	}))
	defer srv.Close()

	c := New(srv.URL, zap.NewNop())
	_, err := c.ComputeBase(context.Background(), rosinBase())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "calculation unavailable", apiErr.Message)
	assert.False(t, errors.Is(err, ErrPrecondition))
}
