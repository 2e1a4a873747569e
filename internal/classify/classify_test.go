package classify

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shivavenkatesh/voodoo/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := New(Config{})
	require.NoError(t, err)
	return c
}

func discovery(facts ...types.ParameterFact) *types.DiscoveryMap {
	dm := &types.DiscoveryMap{Parameters: make(map[string]types.ParameterFact, len(facts))}
	for _, f := range facts {
		if f.Kind == "" {
			f.Kind = types.KindNumeric
		}
		dm.Parameters[f.Name] = f
	}
	dm.Metadata.TotalParameters = len(facts)
	return dm
}

func names(ns ...string) *types.DiscoveryMap {
	facts := make([]types.ParameterFact, len(ns))
	for i, n := range ns {
		facts[i] = types.ParameterFact{Name: n}
	}
	return discovery(facts...)
}

func TestClassify_NameShortcut(t *testing.T) {
	c := createTestClassifier(t)

	ec := c.Classify("ValhallaPlate", names("alpha", "beta", "gamma"))

	assert.Equal(t, "time_based_effects.reverb", ec.EffectType)
	assert.Equal(t, types.MethodName, ec.Method)
	assert.Equal(t, 1.0, ec.Confidence)
	assert.Empty(t, ec.Categories)
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, ec.Uncategorized)
}

func TestDetect_ShortcutOrder(t *testing.T) {
	c := createTestClassifier(t)

	tests := map[string]string{
		"ValhallaVintageVerb.vst3": "time_based_effects.reverb",
		"SpringReverb":             "time_based_effects.reverb",
		"EchoBoy":                  "time_based_effects.delay",
		"TapeDelay":                "time_based_effects.delay",
		"SuperChorus":              "modulation_effects.chorus",
		"BusCompressor":            "dynamics.compressor",
		"NoiseGate":                "dynamics.gate",
		"Overdrive 9":              "distortion_saturation.overdrive",
		"ValhallaRoom":             "time_based_effects.reverb",
		"ValhallaDelay":            "time_based_effects.delay",
		"ValhallaFreqEcho":         "time_based_effects.delay",
		"Pro EQ":                   "frequency_effects.parametric_eq",
	}
	for plugin, want := range tests {
		got, ok := c.EffectType(plugin, nil)
		assert.True(t, ok, plugin)
		assert.Equal(t, want, got, plugin)
	}

	// "hall" inside Valhalla and "eq" inside Freq are not words of the name
	for _, plugin := range []string{"Mystery Box", "ValhallaSpaceModulator", "FreqShifter"} {
		_, ok := c.EffectType(plugin, []string{"alpha"})
		assert.False(t, ok, plugin)
	}
}

func TestNameWords(t *testing.T) {
	assert.Equal(t, map[string]bool{"valhalla": true, "room": true, "vst3": true}, nameWords("ValhallaRoom.vst3"))
	assert.Equal(t, map[string]bool{"pro": true, "q": true, "3": true}, nameWords("Pro-Q 3"))
	assert.Equal(t, map[string]bool{"eq": true, "eight": true}, nameWords("EQEight"))
}

func TestClassify_Signature(t *testing.T) {
	c := createTestClassifier(t)

	ec := c.Classify("Mystery", names("decay", "predelay", "wet", "damping"))

	assert.Equal(t, "time_based_effects.reverb", ec.EffectType)
	assert.Equal(t, types.MethodSignature, ec.Method)
	assert.InDelta(t, 0.75, ec.Confidence, 1e-9)
	assert.Equal(t, map[string]string{
		"decay_time": "decay",
		"pre_delay":  "predelay",
		"mix":        "wet",
		"damping":    "damping",
	}, ec.Mappings)
	assert.Empty(t, ec.Uncategorized)
}

func TestClassify_SignatureTieUsesCatalogOrder(t *testing.T) {
	c := createTestClassifier(t)

	// Both chorus (3/3) and flanger (4/4) qualify; chorus is listed first
	ec := c.Classify("Mystery", names("rate", "depth", "mix", "feedback", "voices"))

	want := types.EffectClassification{
		EffectType: "modulation_effects.chorus",
		Confidence: 1,
		Method:     types.MethodSignature,
		Categories: map[string]types.CategoryGroup{
			CategoryCore:     {Parameters: []string{"depth", "mix", "rate"}, Priority: "critical"},
			CategoryAdvanced: {Parameters: []string{"feedback", "voices"}, Priority: "secondary"},
		},
		Uncategorized: []string{},
		Mappings: map[string]string{
			"rate":     "rate",
			"depth":    "depth",
			"mix":      "mix",
			"voices":   "voices",
			"feedback": "feedback",
		},
	}
	if diff := cmp.Diff(want, ec); diff != "" {
		t.Errorf("classification mismatch (-want +got):\n%s", diff)
	}
}

func TestClassify_BelowThreshold(t *testing.T) {
	c, err := New(Config{Threshold: 0.8})
	require.NoError(t, err)

	// 3 of 4 reverb core parameters is not enough at 0.8
	ec := c.Classify("Mystery", names("decay", "predelay", "wet"))
	assert.Empty(t, ec.EffectType)
	assert.Equal(t, types.MethodKeywords, ec.Method)
	assert.InDelta(t, 0.75, ec.Confidence, 1e-9)
}

func TestClassify_KeywordBuckets(t *testing.T) {
	c := createTestClassifier(t)

	dm := discovery(
		types.ParameterFact{Name: "modRate"},
		types.ParameterFact{Name: "hiShelf"},
		types.ParameterFact{Name: "tailMs", Unit: "ms", Range: &types.Range{Min: 0, Max: 500}},
		types.ParameterFact{Name: "shortMs", Unit: "ms", Range: &types.Range{Min: 0, Max: 50}},
		types.ParameterFact{Name: "voicing", Kind: types.KindStringChoice, ValidValues: []string{"A", "B"}},
		types.ParameterFact{Name: "stereo_spread"},
		types.ParameterFact{Name: "xyz"},
	)

	ec := c.Classify("Mystery", dm)

	assert.Empty(t, ec.EffectType)
	assert.Equal(t, []string{"modRate"}, ec.Categories["modulation"].Parameters)
	assert.Equal(t, "modulation", ec.Categories["modulation"].Priority)
	assert.Equal(t, []string{"hiShelf"}, ec.Categories["tone_shaping"].Parameters)
	assert.Equal(t, []string{"tailMs"}, ec.Categories["reverb_core"].Parameters)
	assert.Equal(t, []string{"voicing"}, ec.Categories["algorithm"].Parameters)
	assert.Equal(t, []string{"stereo_spread"}, ec.Categories["spatial"].Parameters)
	assert.Equal(t, []string{"shortMs", "xyz"}, ec.Uncategorized)
}

func TestClassify_UsesLearnedAnnotations(t *testing.T) {
	c := createTestClassifier(t)

	raw := discovery(
		types.ParameterFact{Name: "Regen"},
		types.ParameterFact{Name: "Dly", Unit: "ms"},
	)
	ec := c.Classify("Mystery", raw)
	assert.Empty(t, ec.Categories)
	assert.Equal(t, []string{"Dly", "Regen"}, ec.Uncategorized)

	enhanced := raw.Clone()
	regen := enhanced.Parameters["Regen"]
	regen.LearnedCategory = "feedback"
	enhanced.Parameters["Regen"] = regen
	dly := enhanced.Parameters["Dly"]
	dly.SuggestedRange = &types.Range{Min: 0, Max: 2000}
	enhanced.Parameters["Dly"] = dly

	ec = c.Classify("Mystery", enhanced)
	assert.Equal(t, []string{"Dly", "Regen"}, ec.Categories["reverb_core"].Parameters)
	assert.Empty(t, ec.Uncategorized)
}

func TestClassify_NameComesFromMapKey(t *testing.T) {
	c := createTestClassifier(t)

	dm := &types.DiscoveryMap{Parameters: map[string]types.ParameterFact{
		"Mix": {Kind: types.KindNumeric},
	}}
	ec := c.Classify("Unknown", dm)

	assert.Equal(t, []string{"Mix"}, ec.Categories["reverb_core"].Parameters)
	assert.Empty(t, ec.Uncategorized)
}

func TestClassify_Partition(t *testing.T) {
	c := createTestClassifier(t)
	vocabulary := []string{
		"mix", "decay", "pre_delay", "size", "damping", "modDepth", "modRate",
		"feedback", "highFreq", "low_cut", "mode", "color", "width", "attack",
		"release", "threshold", "ratio", "drive", "tone", "output", "xyz",
		"early", "density", "freeze", "q", "gain", "frequency", "voices",
	}
	plugins := []string{"Mystery", "ValhallaRoom", "EchoBoy", "Pro-Q 3", "Saturn"}
	kinds := []types.ParameterKind{types.KindNumeric, types.KindStringChoice, types.KindString}
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		var facts []types.ParameterFact
		for _, n := range vocabulary {
			if rng.Intn(2) == 0 {
				continue
			}
			f := types.ParameterFact{Name: n, Kind: kinds[rng.Intn(len(kinds))]}
			if rng.Intn(3) == 0 {
				f.Unit = "ms"
				f.Range = &types.Range{Min: 0, Max: float64(rng.Intn(1000))}
			}
			facts = append(facts, f)
		}
		dm := discovery(facts...)
		plugin := plugins[rng.Intn(len(plugins))]

		ec := c.Classify(plugin, dm)

		seen := make(map[string]int)
		for _, group := range ec.Categories {
			for _, n := range group.Parameters {
				seen[n]++
			}
		}
		for _, n := range ec.Uncategorized {
			seen[n]++
		}
		for _, n := range dm.Names() {
			require.Equal(t, 1, seen[n], fmt.Sprintf("iteration %d plugin %s: %s placed %d times", i, plugin, n, seen[n]))
		}
		require.Len(t, seen, len(dm.Parameters))
	}
}

func TestMatchParameter_Rules(t *testing.T) {
	c := createTestClassifier(t)
	flanger, ok := c.catalog.Lookup("modulation_effects.flanger")
	require.True(t, ok)

	tests := []struct {
		discovered []string
		param      int
		want       string
	}{
		{[]string{"Rate"}, 0, "Rate"},              // exact, case-insensitive
		{[]string{"lfo_rate"}, 0, "lfo_rate"},      // variation
		{[]string{"sweepDepth"}, 1, "sweepDepth"},  // containment
		{[]string{"fbAmt", "tone"}, 2, "fbAmt"},    // abbreviation
		{[]string{"wet_dry_mix", "mix"}, 3, "mix"}, // exact beats containment
	}
	for _, tt := range tests {
		got, ok := matchParameter(flanger.CoreParameters[tt.param], tt.discovered, map[string]bool{})
		assert.True(t, ok, tt.want)
		assert.Equal(t, tt.want, got)
	}

	_, ok = matchParameter(flanger.CoreParameters[0], []string{"Rate"}, map[string]bool{"Rate": true})
	assert.False(t, ok, "claimed names are not reused")
}

func TestTestPlan(t *testing.T) {
	ec := types.EffectClassification{Categories: map[string]types.CategoryGroup{
		"reverb_core": {Parameters: []string{"mix"}},
		"algorithm":   {Parameters: []string{"mode"}},
		"spatial":     {Parameters: []string{"width"}},
	}}

	plan := TestPlan(ec)
	require.Len(t, plan, 2)
	assert.Equal(t, "phase_1_core", plan[0].Name)
	assert.Equal(t, []string{"mode_comparison", "baseline_measurement", "decay_sweep", "size_variations"}, plan[0].Tests)
	assert.Equal(t, "phase_4_spatial", plan[1].Name)

	assert.Empty(t, TestPlan(types.EffectClassification{}))
}
