package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rewired-gh/humanbattery/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	t      *testing.T
	dir    string
	config string
}

func newHarness(t *testing.T, backend string) *harness {
	t.Helper()
	dir := t.TempDir()
	config := filepath.Join(dir, "humanbattery.yaml")
	content := fmt.Sprintf(`storage:
  backend: %s
  file_path: %s
  db_path: %s
`, backend, filepath.Join(dir, "profile.json"), filepath.Join(dir, "profile.db"))
	require.NoError(t, os.WriteFile(config, []byte(content), 0600))
	return &harness{t: t, dir: dir, config: config}
}

// run executes one command in a fresh process-like app.
func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	a := newApp()
	a.now = func() time.Time { return time.Date(2024, 3, 5, 9, 0, 0, 0, time.Local) }
	defer a.close()

	var out bytes.Buffer
	a.root.SetOut(&out)
	a.root.SetErr(&out)
	a.root.SetArgs(append([]string{"--config", h.config, "--color=false"}, args...))
	err := a.root.Execute()
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, "command %v failed: %s", args, out)
	return out
}

func TestCLI_LogAndResolve(t *testing.T) {
	h := newHarness(t, "json")

	out := h.mustRun("log", "--date", "2024-03-01", "--start", "60", "--end", "40", "Gym", "Cook")
	assert.Contains(t, out, "Explained 0 day(s), 1 still pending.")

	out = h.mustRun("pending")
	assert.Contains(t, out, "Activities needing a value: Cook, Gym")
	assert.Contains(t, out, "2024-03-01")

	h.mustRun("log", "--date", "2024-03-02", "--start", "70", "--end", "55", "Gym=-5", "Cook")

	out = h.mustRun("pending")
	assert.Contains(t, out, "Nothing pending")

	out = h.mustRun("sleep")
	assert.Contains(t, out, "Sleep restores 30.0")
	assert.Contains(t, out, "Last logged: 2024-03-02 ending at 55.0.")

	out = h.mustRun("names")
	assert.Equal(t, "Cook\nGym\n", out)
}

func TestCLI_DuplicateDayNeedsOverwrite(t *testing.T) {
	h := newHarness(t, "json")
	h.mustRun("log", "--date", "2024-03-01", "--start", "60", "--end", "40", "Gym=-20")

	_, err := h.run("log", "--date", "2024-03-01", "--start", "60", "--end", "50", "Gym=-10")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--overwrite")

	h.mustRun("log", "--date", "2024-03-01", "--start", "60", "--end", "50", "Gym=-10", "--overwrite")
}

func TestCLI_LogRequiresEnd(t *testing.T) {
	h := newHarness(t, "json")
	_, err := h.run("log", "Gym")
	assert.Error(t, err)
}

func TestCLI_LogRejectsBadActivity(t *testing.T) {
	h := newHarness(t, "json")
	_, err := h.run("log", "--end", "40", "Gym=lots")
	assert.Error(t, err)
}

func TestCLI_RejectsNonFiniteNumbers(t *testing.T) {
	h := newHarness(t, "json")
	h.mustRun("log", "--date", "2024-03-01", "--start", "60", "--end", "40", "Gym=-20")

	_, err := h.run("log", "--date", "2024-03-02", "--end", "NaN", "Gym")
	assert.Error(t, err)
	_, err = h.run("log", "--date", "2024-03-02", "--end", "40", "Gym=NaN")
	assert.Error(t, err)
	_, err = h.run("forecast", "--start", "NaN", "Gym")
	assert.Error(t, err)
	_, err = h.run("activity", "fixed", "Gym", "NaN")
	assert.Error(t, err)

	out := h.mustRun("report", "--output", "json")
	var rows []report.ActivityRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].Estimate)
	assert.Equal(t, -20.0, *rows[0].Estimate)
}

func TestCLI_ForecastJSON(t *testing.T) {
	h := newHarness(t, "json")
	h.mustRun("log", "--date", "2024-03-01", "--start", "60", "--end", "40", "Work=-20")

	out := h.mustRun("forecast", "--start", "80", "--output", "json", "Work*2", "Juggling")

	var f map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &f))
	assert.Equal(t, -40.0, f["total"])
	assert.Equal(t, 40.0, f["ending_energy"])
	assert.Equal(t, "deficit", f["balance"])
	assert.Equal(t, []interface{}{"Juggling"}, f["missing"])
}

func TestCLI_ActivityCommands(t *testing.T) {
	h := newHarness(t, "json")
	h.mustRun("log", "--date", "2024-03-01", "--start", "60", "--end", "40", "Gym")

	out := h.mustRun("activity", "fixed", "Gym", "-8")
	assert.Contains(t, out, "Updated Gym.")

	h.mustRun("activity", "note", "Gym", "leg", "day")

	out = h.mustRun("report", "--output", "json")
	var rows []report.ActivityRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].Estimate)
	assert.Equal(t, -8.0, *rows[0].Estimate)
	assert.Equal(t, "leg day", rows[0].Note)

	_, err := h.run("activity", "fixed", "Gym", "-250")
	assert.Error(t, err)
	_, err = h.run("activity", "unfix", "Nope")
	assert.Error(t, err)

	h.mustRun("activity", "remove", "Gym")
	out = h.mustRun("names")
	assert.Empty(t, out)
}

func TestCLI_ReportRejectsUnknownRanking(t *testing.T) {
	h := newHarness(t, "json")
	_, err := h.run("report", "--by", "mood")
	assert.Error(t, err)
}

func TestCLI_ReportToFile(t *testing.T) {
	h := newHarness(t, "json")
	h.mustRun("log", "--date", "2024-03-01", "--start", "60", "--end", "40", "Run=-20")

	path := filepath.Join(h.dir, "activities.csv")
	h.mustRun("report", "--output", "csv", "--output-file", path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "1,Run,Drain,-20.0")
}

func TestCLI_Import(t *testing.T) {
	h := newHarness(t, "json")
	path := filepath.Join(h.dir, "days.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- date: 2024-03-01
  start: 60
  end: 40
  activities:
    - name: Run
      value: -20
- date: 2024-03-02
  start: 70
  end: 50
  activities:
    - name: Run
`), 0600))

	out := h.mustRun("import", path)
	assert.Contains(t, out, "Imported 2 day(s).")

	// Only the last logged day and the pending days count as logged.
	out = h.mustRun("import", path)
	assert.Contains(t, out, "Skipped 1 already logged: [2024-03-02]")
}

func TestCLI_BackupAndRestore(t *testing.T) {
	h := newHarness(t, "json")

	_, err := h.run("backup", filepath.Join(h.dir, "empty.json"))
	require.Error(t, err)

	h.mustRun("log", "--date", "2024-03-01", "--start", "60", "--end", "40", "Run=-20")

	backup := filepath.Join(h.dir, "backup.json")
	h.mustRun("backup", backup)

	saved, err := os.ReadFile(filepath.Join(h.dir, "profile.json"))
	require.NoError(t, err)
	copied, err := os.ReadFile(backup)
	require.NoError(t, err)
	assert.Equal(t, saved, copied)

	h.mustRun("activity", "remove", "Run")
	out := h.mustRun("restore", backup)
	assert.Contains(t, out, "Restored profile Humanoid")
	assert.Equal(t, "Run\n", h.mustRun("names"))

	garbage := filepath.Join(h.dir, "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte("not json"), 0600))
	_, err = h.run("restore", garbage)
	assert.Error(t, err)
}

func TestCLI_NotifyWithoutTelegramPrints(t *testing.T) {
	h := newHarness(t, "json")
	h.mustRun("log", "--date", "2024-03-01", "--start", "60", "--end", "40", "Run=-20")

	out := h.mustRun("notify")
	assert.Contains(t, out, "Energy summary for Humanoid")
}

func TestCLI_SQLiteBackend(t *testing.T) {
	h := newHarness(t, "sqlite")
	h.mustRun("log", "--date", "2024-03-01", "--start", "60", "--end", "40", "Gym", "Cook")
	h.mustRun("think")

	out := h.mustRun("pending", "--output", "csv")
	assert.Contains(t, out, "2024-03-01,-20.0,Cook|Gym,false")

	out = h.mustRun("revisions")
	assert.NotEmpty(t, out)

	_, err := os.Stat(filepath.Join(h.dir, "profile.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestCLI_RevisionsNeedSQLite(t *testing.T) {
	h := newHarness(t, "json")
	_, err := h.run("revisions")
	assert.Error(t, err)
}
