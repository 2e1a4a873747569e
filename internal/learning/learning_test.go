package learning

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/shivavenkatesh/voodoo/internal/classify"
	"github.com/shivavenkatesh/voodoo/internal/host/synthetic"
	"github.com/shivavenkatesh/voodoo/internal/patterns"
	"github.com/shivavenkatesh/voodoo/internal/probe"
	"github.com/shivavenkatesh/voodoo/internal/research"
	"github.com/shivavenkatesh/voodoo/internal/store"
	"github.com/shivavenkatesh/voodoo/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func createTestService(t *testing.T, rd *research.Data) (Service, *store.Memory) {
	t.Helper()
	cl, err := classify.New(classify.Config{})
	require.NoError(t, err)

	mem := store.NewMemory(nil)
	ps, err := patterns.Open(context.Background(), patterns.Config{Persister: mem, Detector: cl})
	require.NoError(t, err)

	svc := NewService(probe.New(probe.Config{}), cl, ps, Config{Research: rd})
	t.Cleanup(func() { svc.Close() })
	return svc, mem
}

func plateHost() *synthetic.Host {
	return synthetic.New(
		synthetic.Param{Name: "decay", Value: types.String("1.00 s"), Format: "%.2f s", AcceptRange: &types.Range{Min: 0.1, Max: 20}},
		synthetic.Param{Name: "mix", Value: types.Float(30), AcceptRange: &types.Range{Min: 0, Max: 100}},
		synthetic.Param{Name: "mode", Value: types.String("Plate"), Choices: []string{"Plate", "Room", "Chamber"}},
	)
}

func TestAnalyze(t *testing.T) {
	svc, mem := createTestService(t, nil)
	ctx := context.Background()
	info := types.PluginInfo{Name: "ValhallaPlate", Path: "/Library/Audio/Plug-Ins/VST3/ValhallaPlate.vst3"}

	result, err := svc.Analyze(ctx, plateHost(), info)
	require.NoError(t, err)

	assert.NotEmpty(t, result.SessionID)
	assert.Equal(t, result.Delta.SessionID, result.SessionID)
	assert.Len(t, result.Discovery.Parameters, 3)
	assert.Equal(t, types.KindStringNumeric, result.Discovery.Parameters["decay"].Kind)
	assert.Equal(t, types.KindStringChoice, result.Discovery.Parameters["mode"].Kind)

	assert.Equal(t, "time_based_effects.reverb", result.Classification.EffectType)
	assert.Equal(t, types.MethodName, result.Classification.Method)
	assert.NotEmpty(t, result.TestPlan)

	require.Len(t, result.FormatChecks, 1)
	assert.True(t, result.FormatChecks[0].Working)
	assert.Nil(t, result.Research)

	// decay format, decay range and mix range
	assert.Equal(t, 3, result.Delta.NewPatterns)
	assert.Equal(t, "time_based_effects.reverb", result.Delta.EffectType)
	assert.Equal(t, 1, mem.Saves())

	// Nothing was learned yet when the first session enhanced its discovery
	assert.Empty(t, result.Enhanced.Parameters["decay"].SuggestedFormat)
}

func TestAnalyze_SecondSessionUsesLearnedPatterns(t *testing.T) {
	svc, _ := createTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Analyze(ctx, plateHost(), types.PluginInfo{Name: "ValhallaPlate"})
	require.NoError(t, err)

	result, err := svc.Analyze(ctx, plateHost(), types.PluginInfo{Name: "PlateClone"})
	require.NoError(t, err)

	decay := result.Enhanced.Parameters["decay"]
	assert.Equal(t, "%.2f s", decay.SuggestedFormat)
	require.NotNil(t, decay.SuggestedRange)
	assert.Equal(t, types.Range{Min: 0.1, Max: 10}, *decay.SuggestedRange)
	assert.Equal(t, "decay_time", decay.LearnedCategory)
	assert.Equal(t, "wet_dry_mix", result.Enhanced.Parameters["mix"].LearnedCategory)

	// The raw discovery stays unannotated
	assert.Empty(t, result.Discovery.Parameters["decay"].SuggestedFormat)

	assert.Equal(t, 0, result.Delta.NewPatterns)
	assert.Equal(t, 1, result.Delta.ConfirmedPatterns)
	assert.Empty(t, result.Delta.Anomalies)
	assert.Equal(t, 2, svc.Stats().PluginsAnalyzed)
}

func TestAnalyze_NoParameters(t *testing.T) {
	svc, mem := createTestService(t, nil)

	h := synthetic.New(synthetic.Param{Name: "broken", Value: types.Float(1), Unreadable: true})
	_, err := svc.Analyze(context.Background(), h, types.PluginInfo{Name: "Empty"})
	assert.ErrorIs(t, err, ErrNoParameters)
	assert.Equal(t, 0, mem.Saves())
}

func TestAnalyze_Research(t *testing.T) {
	rd, err := research.Parse(strings.NewReader(`
plugins:
  valhallaplate:
    decay:
      type: string_numeric
      format: "%.2f s"
    size:
      type: numeric
`))
	require.NoError(t, err)
	svc, _ := createTestService(t, rd)

	result, err := svc.Analyze(context.Background(), plateHost(), types.PluginInfo{Name: "ValhallaPlate.vst3"})
	require.NoError(t, err)

	require.NotNil(t, result.Research)
	assert.Equal(t, []string{"decay"}, result.Research.Matched)
	assert.Equal(t, []string{"size"}, result.Research.Missing)
	assert.Empty(t, result.Research.Mismatches)
	assert.Greater(t, result.Research.Score, 0.0)
}

func TestLearn_RejectsEmptyDiscovery(t *testing.T) {
	svc, _ := createTestService(t, nil)

	_, err := svc.Learn(context.Background(), "Empty", &types.DiscoveryMap{})
	assert.ErrorIs(t, err, ErrNoParameters)
}

func TestRunBatch(t *testing.T) {
	defer goleak.VerifyNone(t)

	svc, mem := createTestService(t, nil)

	var jobs []Job
	for i := 0; i < 8; i++ {
		jobs = append(jobs, Job{Info: types.PluginInfo{Name: fmt.Sprintf("Plate%d", i)}, Host: plateHost()})
	}
	jobs = append(jobs, Job{Info: types.PluginInfo{Name: "Empty"}, Host: synthetic.New()})

	results, err := RunBatch(context.Background(), svc, jobs, 3)
	require.NoError(t, err)
	require.Len(t, results, len(jobs))

	assert.Equal(t, 1, Failed(results))
	assert.Equal(t, "Empty", results[8].Plugin)
	assert.True(t, errors.Is(results[8].Err, ErrNoParameters))

	newPatterns, confirmed := 0, 0
	for i, r := range results[:8] {
		require.NoError(t, r.Err, "job %d", i)
		assert.Equal(t, fmt.Sprintf("Plate%d", i), r.Plugin)
		newPatterns += r.Result.Delta.NewPatterns
		confirmed += r.Result.Delta.ConfirmedPatterns
		assert.Empty(t, r.Result.Delta.Anomalies)
	}
	// Exactly one worker observed each pattern first
	assert.Equal(t, 3, newPatterns)
	assert.Equal(t, 7, confirmed)
	assert.Equal(t, 8, mem.Saves())
	assert.Equal(t, 8, svc.Stats().PluginsAnalyzed)
}

func TestRunBatch_Cancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	svc, mem := createTestService(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	jobs := []Job{
		{Info: types.PluginInfo{Name: "A"}, Host: plateHost()},
		{Info: types.PluginInfo{Name: "B"}, Host: plateHost()},
	}
	results, err := RunBatch(ctx, svc, jobs, 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, Failed(results))
	assert.Equal(t, 0, mem.Saves())
}
