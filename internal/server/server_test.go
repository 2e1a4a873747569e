package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shivavenkatesh/voodoo/internal/classify"
	"github.com/shivavenkatesh/voodoo/internal/learning"
	"github.com/shivavenkatesh/voodoo/internal/patterns"
	"github.com/shivavenkatesh/voodoo/internal/probe"
	"github.com/shivavenkatesh/voodoo/internal/store"
	"github.com/shivavenkatesh/voodoo/pkg/types"
)

const plateDiscovery = `{
  "_metadata": {"plugin_name": "ValhallaPlate", "total_parameters": 3},
  "parameters": {
    "decay": {"type": "string_numeric", "current_value": "1.00 s", "format": "%.2f s", "range": [0.1, 10], "unit": "s"},
    "mix": {"type": "numeric", "current_value": 30, "range": [0, 100], "unit": "%"},
    "mode": {"type": "string_choice", "current_value": "Plate", "valid_values": ["Plate", "Room"]}
  }
}`

func createTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cl, err := classify.New(classify.Config{})
	if err != nil {
		t.Fatalf("failed to create classifier: %v", err)
	}
	ps, err := patterns.Open(context.Background(), patterns.Config{Persister: store.NewMemory(nil), Detector: cl})
	if err != nil {
		t.Fatalf("failed to open patterns: %v", err)
	}
	svc := learning.NewService(probe.New(probe.Config{}), cl, ps, learning.Config{})

	ts := httptest.NewServer(New(svc, Config{}).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func TestHealth(t *testing.T) {
	ts := createTestServer(t)

	resp := get(t, ts.URL+"/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body map[string]string
	decode(t, resp, &body)
	if body["status"] != "ok" || body["version"] != Version {
		t.Errorf("body = %v", body)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}

func TestLearnThenStatsAndHistory(t *testing.T) {
	ts := createTestServer(t)

	resp := post(t, ts.URL+"/learn", plateDiscovery)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("learn status = %d", resp.StatusCode)
	}
	var delta types.LearningDelta
	decode(t, resp, &delta)
	if delta.PluginName != "ValhallaPlate" || delta.NewPatterns != 3 {
		t.Errorf("delta = %+v", delta)
	}
	if delta.EffectType != "time_based_effects.reverb" {
		t.Errorf("effect type = %q", delta.EffectType)
	}

	var stats types.LearningStats
	decode(t, get(t, ts.URL+"/stats"), &stats)
	if stats.PluginsAnalyzed != 1 || stats.StringFormatsLearned != 1 || stats.RangePatterns != 2 {
		t.Errorf("stats = %+v", stats)
	}

	var history struct {
		Plugins []HistoryEntry `json:"plugins"`
	}
	decode(t, get(t, ts.URL+"/history"), &history)
	if len(history.Plugins) != 1 || history.Plugins[0].Plugin != "ValhallaPlate" || history.Plugins[0].ParameterCount != 3 {
		t.Errorf("history = %+v", history)
	}

	var snap types.PatternSnapshot
	decode(t, get(t, ts.URL+"/patterns"), &snap)
	if snap.StringFormats["decay"] != "%.2f s" {
		t.Errorf("patterns = %+v", snap)
	}
}

func TestLearn_PluginQueryOverride(t *testing.T) {
	ts := createTestServer(t)

	resp := post(t, ts.URL+"/learn?plugin=EchoBoy", plateDiscovery)
	var delta types.LearningDelta
	decode(t, resp, &delta)
	if delta.PluginName != "EchoBoy" || delta.EffectType != "time_based_effects.delay" {
		t.Errorf("delta = %+v", delta)
	}
}

func TestLearn_BadRequests(t *testing.T) {
	ts := createTestServer(t)

	tests := []struct {
		name string
		path string
		body string
	}{
		{"invalid json", "/learn", "{"},
		{"no plugin name", "/learn", `{"parameters": {"mix": {"type": "numeric"}}}`},
		{"no parameters", "/learn?plugin=Empty", `{"parameters": {}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, ts.URL+tt.path, tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}

	resp := get(t, ts.URL+"/learn")
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET /learn status = %d", resp.StatusCode)
	}
}

func TestClassify(t *testing.T) {
	ts := createTestServer(t)

	resp := post(t, ts.URL+"/classify", plateDiscovery)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body ClassifyResponse
	decode(t, resp, &body)
	if body.Classification.EffectType != "time_based_effects.reverb" {
		t.Errorf("effect type = %q", body.Classification.EffectType)
	}
	if body.Classification.Method != types.MethodName {
		t.Errorf("method = %q", body.Classification.Method)
	}
	if len(body.TestPlan) == 0 {
		t.Error("expected a test plan")
	}

	// Classification does not learn
	var stats types.LearningStats
	decode(t, get(t, ts.URL+"/stats"), &stats)
	if stats.PluginsAnalyzed != 0 {
		t.Errorf("classify should not learn: %+v", stats)
	}
}

func TestEnhance(t *testing.T) {
	ts := createTestServer(t)
	post(t, ts.URL+"/learn", plateDiscovery)

	resp := post(t, ts.URL+"/enhance", `{"parameters": {"decay": {"type": "string"}, "modDepth": {"type": "numeric"}}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var dm types.DiscoveryMap
	decode(t, resp, &dm)

	decay := dm.Parameters["decay"]
	if decay.SuggestedFormat != "%.2f s" {
		t.Errorf("suggested format = %q", decay.SuggestedFormat)
	}
	if decay.SuggestedRange == nil || *decay.SuggestedRange != (types.Range{Min: 0.1, Max: 10}) {
		t.Errorf("suggested range = %v", decay.SuggestedRange)
	}
	if decay.LearnedCategory != "decay_time" {
		t.Errorf("learned category = %q", decay.LearnedCategory)
	}
	if dm.Parameters["modDepth"].LearnedCategory != "" {
		t.Errorf("modDepth matched no learned pattern, got %q", dm.Parameters["modDepth"].LearnedCategory)
	}
}

func TestClassify_FactsKeyedByName(t *testing.T) {
	ts := createTestServer(t)

	resp := post(t, ts.URL+"/classify?plugin=Unknown", `{"parameters": {"Mix": {"type": "numeric"}, "Width": {"type": "numeric"}}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body ClassifyResponse
	decode(t, resp, &body)

	if got := body.Classification.Categories["reverb_core"].Parameters; len(got) != 1 || got[0] != "Mix" {
		t.Errorf("reverb_core = %v", got)
	}
	if got := body.Classification.Categories["spatial"].Parameters; len(got) != 1 || got[0] != "Width" {
		t.Errorf("spatial = %v", got)
	}
	if len(body.Classification.Uncategorized) != 0 {
		t.Errorf("uncategorized = %v", body.Classification.Uncategorized)
	}
}

func TestSortHistory(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := []HistoryEntry{
		{Plugin: "B", LastSeen: t0},
		{Plugin: "C", LastSeen: t0.Add(time.Hour)},
		{Plugin: "A", LastSeen: t0},
	}
	SortHistory(entries)

	got := []string{entries[0].Plugin, entries[1].Plugin, entries[2].Plugin}
	want := []string{"C", "A", "B"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}
