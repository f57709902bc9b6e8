package aggregator_test

import (
	"context"
	"strings"
	"testing"
	"time"

	agg "github.com/caramaschiHG/Dilutio/internal/aggregator"
	"github.com/caramaschiHG/Dilutio/internal/compounding"
	"github.com/caramaschiHG/Dilutio/internal/config"
	"github.com/caramaschiHG/Dilutio/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Cache.KeyPrefix = "dilutio:calc:"
	cfg.Cache.TTL = time.Minute
	cfg.Densities = compounding.DefaultDensities()
	return cfg
}

func sampleBaseInputs() compounding.BaseInputs {
	return compounding.BaseInputs{
		Mode:                       compounding.ModeMassToVolume,
		ExtractType:                compounding.ExtractRosin,
		PotencyPercent:             "70",
		ExtractMassGrams:           "10",
		TargetConcentrationMgPerMl: "100",
	}
}

func TestCacheManager_BaseRoundTrip(t *testing.T) {
	kv := newFakeKVStore()
	m := metrics.New()
	cm := agg.NewCacheManager(testConfig(), kv, m, zap.NewNop())
	ctx := context.Background()

	key, err := cm.BaseKey(sampleBaseInputs(), 0.9)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "dilutio:calc:base:"))

	_, err = cm.GetBase(ctx, key)
	assert.ErrorIs(t, err, agg.ErrCacheMiss)

	want := compounding.ComputeBase(sampleBaseInputs())
	require.NoError(t, cm.SetBase(ctx, key, want))

	got, err := cm.GetBase(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, want, *got)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("base", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("base", "hit")))
}

func TestCacheManager_BaseKeyCoversInputsAndDensity(t *testing.T) {
	cm := agg.NewCacheManager(testConfig(), newFakeKVStore(), nil, zap.NewNop())

	in := sampleBaseInputs()
	k1, err := cm.BaseKey(in, 0.9)
	require.NoError(t, err)

	k2, err := cm.BaseKey(in, 0.95)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)

	in.TargetVolumeMl = "50"
	k3, err := cm.BaseKey(in, 0.9)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3)

	k4, err := cm.BaseKey(sampleBaseInputs(), 0.9)
	require.NoError(t, err)
	assert.Equal(t, k1, k4)
}

func TestCacheManager_FractionsRoundTrip(t *testing.T) {
	kv := newFakeKVStore()
	cm := agg.NewCacheManager(testConfig(), kv, nil, zap.NewNop())
	ctx := context.Background()

	records := []compounding.PatientRecord{
		{ID: "p1", Name: "Ana", TargetConcentrationMgPerMl: "20", BottleVolumeMl: "30"},
	}
	key, err := cm.FractionsKey(records, 70)
	require.NoError(t, err)

	otherKey, err := cm.FractionsKey(records, 71)
	require.NoError(t, err)
	assert.NotEqual(t, key, otherKey)

	want := compounding.ComputeFractions(records, 70)
	require.NoError(t, cm.SetFractions(ctx, key, want))

	got, err := cm.GetFractions(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCacheManager_CorruptEntry(t *testing.T) {
	kv := newFakeKVStore()
	m := metrics.New()
	cm := agg.NewCacheManager(testConfig(), kv, m, zap.NewNop())

	key, err := cm.BaseKey(sampleBaseInputs(), 0.9)
	require.NoError(t, err)
	kv.put(key, "not-json")

	_, err = cm.GetBase(context.Background(), key)
	require.Error(t, err)
	assert.NotErrorIs(t, err, agg.ErrCacheMiss)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("base", "error")))
}

func TestCacheManager_BackendError(t *testing.T) {
	cm := agg.NewCacheManager(testConfig(), brokenKVStore{}, nil, zap.NewNop())
	ctx := context.Background()

	_, err := cm.GetFractions(ctx, "k")
	assert.ErrorIs(t, err, errKVDown)

	err = cm.SetBase(ctx, "k", compounding.BaseResult{})
	assert.ErrorIs(t, err, errKVDown)
}
