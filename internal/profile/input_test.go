package profile

import (
	"strings"
	"testing"

	"github.com/rewired-gh/humanbattery/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCount(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"", 1, false},
		{"3", 3, false},
		{"Twice", 2, false},
		{"a lot", 5, false},
		{"0", 0, true},
		{"few", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCount(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseActivityArg(t *testing.T) {
	tests := []struct {
		arg     string
		want    []models.Occurrence
		wantErr bool
	}{
		{
			arg:  "Run",
			want: []models.Occurrence{{Name: "Run", Value: models.Unknown()}},
		},
		{
			arg:  "Run=-10",
			want: []models.Occurrence{{Name: "Run", Value: models.Known(-10)}},
		},
		{
			arg: "Chores*twice",
			want: []models.Occurrence{
				{Name: "Chores", Value: models.Unknown()},
				{Name: "Chores", Value: models.Unknown()},
			},
		},
		{
			arg:  "Marathon=-250",
			want: []models.Occurrence{{Name: "Marathon", Value: models.Known(-100)}},
		},
		{arg: "=5", wantErr: true},
		{arg: "Run=tired", wantErr: true},
		{arg: "Run*none", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := ParseActivityArg(tt.arg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseActivityArgInvalidValue(t *testing.T) {
	for _, arg := range []string{"Run=tired", "Run=NaN", "Run=-Inf"} {
		_, err := ParseActivityArg(arg)
		var invalid *models.InvalidSampleError
		assert.ErrorAs(t, err, &invalid, arg)
	}
}

func TestParsePlanArg(t *testing.T) {
	item, err := ParsePlanArg("Walk*3")
	require.NoError(t, err)
	assert.Equal(t, "Walk", item.Name)
	assert.Equal(t, 3, item.Count)

	_, err = ParsePlanArg(" ")
	assert.ErrorIs(t, err, models.ErrEmptyActivityName)
}

const importYAML = `
- date: 2024-03-01
  start: 60
  end: 40
  activities:
    - name: Gym
    - name: Cook
- date: 2024-03-02
  start: 55
  end: 47
  activities:
    - name: Cook
      value: -3
    - name: Chores
      count: twice
- date: 2024-03-02
  start: 10
  end: 20
`

func TestReadDays(t *testing.T) {
	days, err := ReadDays(strings.NewReader(importYAML))
	require.NoError(t, err)
	require.Len(t, days, 3)

	assert.Equal(t, models.DateKey("2024-03-01"), days[0].Date)
	assert.Equal(t, 60.0, days[0].Start)
	assert.Len(t, days[0].Occurrences, 2)

	assert.Equal(t, models.Known(-3), days[1].Occurrences[0].Value)
	assert.Len(t, days[1].Occurrences, 3)
	assert.Empty(t, days[2].Occurrences)
}

func TestReadDaysErrors(t *testing.T) {
	tests := map[string]string{
		"missing energy": "- date: 2024-03-01\n  start: 10\n",
		"bad date":       "- date: someday\n  start: 1\n  end: 2\n",
		"bad value":      "- date: 2024-03-01\n  start: 1\n  end: 2\n  activities:\n    - name: Run\n      value: fast\n",
		"not a list":     "date: 2024-03-01\n",
	}

	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ReadDays(strings.NewReader(input))
			assert.Error(t, err)
		})
	}
}

func TestReadDaysEmpty(t *testing.T) {
	days, err := ReadDays(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, days)
}

func TestImportDays(t *testing.T) {
	p := New("", 0)
	result, err := p.ImportDays(strings.NewReader(importYAML), false)
	require.NoError(t, err)

	assert.Equal(t, []models.DateKey{"2024-03-01", "2024-03-02"}, result.Added)
	assert.Equal(t, []models.DateKey{"2024-03-02"}, result.Skipped)

	// Day two teaches Cook and splits the rest over Chores, which in turn
	// leaves Gym as day one's only unknown.
	est, ok := p.Engine.Registry().Estimate("Chores")
	require.True(t, ok)
	assert.Equal(t, -2.5, est)
	est, ok = p.Engine.Registry().Estimate("Gym")
	require.True(t, ok)
	assert.Equal(t, -17.0, est)
	assert.Empty(t, p.Engine.Backlog())
}
