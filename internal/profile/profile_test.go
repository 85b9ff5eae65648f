package profile

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rewired-gh/humanbattery/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var loadNow = time.Date(2024, 3, 10, 9, 0, 0, 0, time.Local)

func load(t *testing.T, data string) (*Profile, []Warning) {
	t.Helper()
	return Load([]byte(data), LoadOptions{Now: loadNow})
}

func unknownOcc(name string) models.Occurrence {
	return models.Occurrence{Name: name, Value: models.Unknown()}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	p := New("Ada", 0)
	s := models.Known(-4)
	p.Engine.Registry().Upsert("Run", &s)
	run, _ := p.Engine.Registry().Lookup("Run")
	run.SetFixed(-5)
	run.SetNote("uphill")

	_, err := p.Engine.AddDay("2024-03-01", []models.Occurrence{unknownOcc("Gym"), unknownOcc("Cook")}, 60, 40, false)
	require.NoError(t, err)
	_, err = p.Engine.AddDay("2024-03-02", nil, 55, 50, false)
	require.NoError(t, err)

	data, err := Save(p)
	require.NoError(t, err)

	loaded, warnings := load(t, string(data))
	assert.Empty(t, warnings)
	assert.Equal(t, p.ID, loaded.ID)
	assert.Equal(t, "Ada", loaded.Name)
	assert.Equal(t, p.Engine.Registry().Names(), loaded.Engine.Registry().Names())

	loadedRun, ok := loaded.Engine.Registry().Lookup("Run")
	require.True(t, ok)
	fixed, ok := loadedRun.Fixed()
	assert.True(t, ok)
	assert.Equal(t, -5.0, fixed)
	assert.Equal(t, "uphill", loadedRun.Note())

	assert.Equal(t, p.Engine.Sleep().Samples(), loaded.Engine.Sleep().Samples())
	assert.Equal(t, p.Engine.LastEndOfDay(), loaded.Engine.LastEndOfDay())
	require.Len(t, loaded.Engine.Backlog(), 1)
	assert.Equal(t, models.DateKey("2024-03-01"), loaded.Engine.Backlog()[0].Date)

	again, err := Save(loaded)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))
}

func TestSaveWritesVersion(t *testing.T) {
	data, err := Save(New("", 0))
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, FormatVersion, out["version"])
	assert.Equal(t, DefaultName, out["name"])
	assert.Equal(t, []interface{}{}, out["days"])
}

func TestLoadLegacyProfile(t *testing.T) {
	legacy := `{
		"name": "Humanoid",
		"events": {
			"Run": "{\"name\":\"Run\",\"values\":[\"-10\",-6,null],\"fixed_value\":null,\"note\":\"\"}",
			"Nap": {"name":"Nap","values":[4,"lots"],"fixed_value":"3","note":"short"}
		},
		"sleep": "{\"name\":\"Sleep Quality\",\"values\":[30,40],\"fixed_value\":null}",
		"energy_before_sleep": "45",
		"days": [
			{
				"date": "2024-03-05",
				"events": "[\"{\\\"name\\\":\\\"Gym\\\",\\\"values\\\":[\\\"auto\\\"]}\",\"{\\\"name\\\":\\\"Cook\\\",\\\"values\\\":[\\\"auto\\\"]}\"]",
				"starting_energy": "70",
				"ending_energy": "50"
			}
		]
	}`

	p, warnings := load(t, legacy)

	run, ok := p.Engine.Registry().Lookup("Run")
	require.True(t, ok)
	assert.Equal(t, []models.Sample{models.Known(-10), models.Known(-6), models.Unknown()}, run.Samples())

	nap, ok := p.Engine.Registry().Lookup("Nap")
	require.True(t, ok)
	assert.Equal(t, []models.Sample{models.Known(4)}, nap.Samples())
	fixed, _ := nap.Fixed()
	assert.Equal(t, 3.0, fixed)

	require.Len(t, warnings, 1)
	assert.Equal(t, "events.Nap", warnings[0].Path)

	est, ok := p.Engine.Sleep().Estimate()
	assert.True(t, ok)
	assert.Equal(t, 35.0, est)

	eod := p.Engine.LastEndOfDay()
	require.True(t, eod.Known())
	assert.Equal(t, models.DateKey("2024-03-09"), *eod.Date)
	assert.Equal(t, 45.0, *eod.Value)

	backlog := p.Engine.Backlog()
	require.Len(t, backlog, 1)
	assert.Equal(t, 70.0, backlog[0].StartingEnergy)
	assert.Len(t, backlog[0].Occurrences, 2)
	assert.NotEqual(t, uuid.Nil, p.ID)
}

func TestLoadBackupEnvelope(t *testing.T) {
	inner, err := Save(New("Grace", 0))
	require.NoError(t, err)
	env, err := json.Marshal(map[string]string{"profile": string(inner), "settings": "{}"})
	require.NoError(t, err)

	p, warnings := load(t, string(env))
	assert.Empty(t, warnings)
	assert.Equal(t, "Grace", p.Name)
}

func TestLoadFallbacks(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		warnings int
	}{
		{"empty", "", 0},
		{"null", "null", 0},
		{"garbage", "{not json", 1},
		{"bad snapshot", `{"energy_before_sleep": {"value": "tired"}}`, 1},
		{"bad id", `{"id": "nope"}`, 1},
		{"future version", `{"version": "9"}`, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, warnings := load(t, tt.data)
			require.NotNil(t, p)
			require.NotNil(t, p.Engine)
			assert.Len(t, warnings, tt.warnings)
			assert.Equal(t, DefaultName, p.Name)
			assert.False(t, p.Engine.LastEndOfDay().Known())
		})
	}
}

func TestLoadKeepsCorruptDay(t *testing.T) {
	data := `{"days":[{"date":"2024-03-01","events":"[oops","starting_energy":50,"ending_energy":40}]}`

	p, warnings := load(t, data)
	require.Len(t, warnings, 1)
	require.Len(t, p.Engine.Backlog(), 1)

	out, err := Save(p)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"events": "[oops"`)
}

func TestLogDay(t *testing.T) {
	p := New("", 0)
	added, result, err := p.LogDay("2024-03-01", []models.Occurrence{unknownOcc("Nap")}, 50, 45, false)
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, []models.DateKey{"2024-03-01"}, result.Resolved)

	added, _, err = p.LogDay("2024-03-01", nil, 50, 45, false)
	require.NoError(t, err)
	assert.False(t, added)
}

func TestWarningString(t *testing.T) {
	assert.Equal(t, "sleep: reset", Warning{Path: "sleep", Message: "reset"}.String())
	assert.Equal(t, "reset", Warning{Message: "reset"}.String())
}

func TestLoadUsesWindow(t *testing.T) {
	data := `{"events":{"Run":{"name":"Run","values":[1,2,3,4,5]}}}`
	p, _ := Load([]byte(data), LoadOptions{Window: 3, Now: loadNow})
	run, ok := p.Engine.Registry().Lookup("Run")
	require.True(t, ok)
	assert.Equal(t, 3, run.Len())
	assert.True(t, strings.HasPrefix(run.RangeString(0), "[3"))
}
