package profile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rewired-gh/humanbattery/internal/engine"
	"github.com/rewired-gh/humanbattery/internal/logger"
	"github.com/rewired-gh/humanbattery/internal/models"
	"github.com/rewired-gh/humanbattery/internal/registry"
)

// FormatVersion is written into every save.
const FormatVersion = "3"

// LoadOptions controls how a saved profile is read.
type LoadOptions struct {
	// Window is the sample capacity of every series. Zero uses the default.
	Window int
	// Now dates a bare end-of-day level saved without a date. Zero uses
	// the current time.
	Now time.Time
}

// savedProfile is the canonical save format.
type savedProfile struct {
	Version           string                       `json:"version"`
	ID                string                       `json:"id"`
	Name              string                       `json:"name"`
	Events            map[string]models.SeriesJSON `json:"events"`
	Sleep             models.SeriesJSON            `json:"sleep"`
	EnergyBeforeSleep models.EndOfDay              `json:"energy_before_sleep"`
	Days              []*models.DayRecord          `json:"days"`
}

// storedProfile reads every format written so far. Older saves nest each
// series as a JSON string and may store the end-of-day level bare.
type storedProfile struct {
	Version           string                     `json:"version"`
	ID                string                     `json:"id"`
	Name              *string                    `json:"name"`
	Events            map[string]json.RawMessage `json:"events"`
	Sleep             json.RawMessage            `json:"sleep"`
	EnergyBeforeSleep json.RawMessage            `json:"energy_before_sleep"`
	Days              []json.RawMessage          `json:"days"`
}

// backupEnvelope is the shape of a browser backup file: the profile and
// the settings, each stored as a JSON string.
type backupEnvelope struct {
	Profile  *string `json:"profile"`
	Settings *string `json:"settings"`
}

// Save encodes p in the canonical format.
func Save(p *Profile) ([]byte, error) {
	state := p.Engine.State()

	out := savedProfile{
		Version:           FormatVersion,
		ID:                p.ID.String(),
		Name:              p.Name,
		Events:            make(map[string]models.SeriesJSON, state.Registry.Len()),
		Sleep:             state.Sleep.ToJSON(),
		EnergyBeforeSleep: state.LastEndOfDay,
		Days:              state.Backlog,
	}
	for _, series := range state.Registry.All() {
		out.Events[series.Name()] = series.ToJSON()
	}
	if out.Days == nil {
		out.Days = []*models.DayRecord{}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode profile: %w", err)
	}
	return data, nil
}

// Load decodes a saved profile. It never fails: damaged parts are replaced
// with empty ones and reported as warnings, and a payload that cannot be
// read at all yields a fresh profile.
func Load(data []byte, opts LoadOptions) (*Profile, []Warning) {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	window := opts.Window
	if window <= 0 {
		window = models.DefaultWindow
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return New(DefaultName, window), nil
	}

	data = unwrapBackup(data)

	var in storedProfile
	if err := json.Unmarshal(data, &in); err != nil {
		return New(DefaultName, window), []Warning{{
			Message: fmt.Sprintf("profile could not be read, starting fresh: %v", err),
		}}
	}

	var warnings []Warning
	warn := func(path, format string, args ...interface{}) {
		w := Warning{Path: path, Message: fmt.Sprintf(format, args...)}
		logger.Warn("Loading profile: %s", w)
		warnings = append(warnings, w)
	}

	switch in.Version {
	case "", "1", "2", FormatVersion:
	default:
		warn("version", "unknown format version %q, reading as version %s", in.Version, FormatVersion)
	}

	p := &Profile{Name: DefaultName}
	if in.Name != nil && *in.Name != "" {
		p.Name = *in.Name
	}
	p.ID = uuid.New()
	if in.ID != "" {
		id, err := uuid.Parse(in.ID)
		if err != nil {
			warn("id", "invalid profile id %q, assigned a new one", in.ID)
		} else {
			p.ID = id
		}
	}

	reg := registry.New(window)
	names := make([]string, 0, len(in.Events))
	for name := range in.Events {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		path := "events." + name
		series, dropped, err := decodeSeries(in.Events[name], name, window)
		if err != nil {
			warn(path, "activity dropped: %v", err)
			continue
		}
		for _, d := range dropped {
			warn(path, "invalid sample %s dropped", d)
		}
		if series != nil {
			reg.Put(series)
		}
	}

	sleep, dropped, err := decodeSeries(in.Sleep, engine.SleepActivityName, window)
	if err != nil {
		warn("sleep", "sleep history reset: %v", err)
		sleep = nil
	}
	for _, d := range dropped {
		warn("sleep", "invalid sample %s dropped", d)
	}

	eod, err := models.ParseEndOfDay(in.EnergyBeforeSleep, opts.Now)
	if err != nil {
		warn("energy_before_sleep", "%v", err)
		eod = models.EndOfDay{}
	}

	var backlog []*models.DayRecord
	for i, raw := range in.Days {
		var day models.DayRecord
		if err := json.Unmarshal(raw, &day); err != nil {
			warn(fmt.Sprintf("days[%d]", i), "day dropped: %v", err)
			continue
		}
		if !day.Normalized() {
			warn(fmt.Sprintf("days[%d]", i), "activities of %s could not be read; kept for retry", day.Date)
		}
		backlog = append(backlog, &day)
	}

	p.Engine = engine.FromState(engine.State{
		Registry:     reg,
		Sleep:        sleep,
		LastEndOfDay: eod,
		Backlog:      backlog,
	})
	return p, warnings
}

// unwrapBackup returns the embedded profile of a backup file, or data
// unchanged when it is not one.
func unwrapBackup(data []byte) []byte {
	var env backupEnvelope
	if err := json.Unmarshal(data, &env); err != nil || env.Profile == nil {
		return data
	}
	logger.Debug("Loading profile from a backup envelope")
	return []byte(*env.Profile)
}

// decodeSeries reads a series stored as an object or as a JSON string
// holding one. Samples that do not parse are dropped and returned as
// their raw text. A null series yields nil.
func decodeSeries(raw json.RawMessage, fallbackName string, window int) (*models.ValueSeries, []string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil, nil
	}
	if raw[0] == '"' {
		var nested string
		if err := json.Unmarshal(raw, &nested); err != nil {
			return nil, nil, err
		}
		raw = bytes.TrimSpace([]byte(nested))
		if bytes.Equal(raw, []byte("null")) {
			return nil, nil, nil
		}
	}

	var in struct {
		Name       string            `json:"name"`
		Values     []json.RawMessage `json:"values"`
		FixedValue json.RawMessage   `json:"fixed_value"`
		Note       *string           `json:"note"`
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, nil, fmt.Errorf("not a series: %w", err)
	}

	out := models.SeriesJSON{Name: in.Name}
	if out.Name == "" {
		out.Name = fallbackName
	}
	if in.Note != nil {
		out.Note = *in.Note
	}

	var dropped []string
	for _, v := range in.Values {
		var s models.Sample
		if err := json.Unmarshal(v, &s); err != nil {
			dropped = append(dropped, string(v))
			continue
		}
		out.Values = append(out.Values, s)
	}

	fixed, err := models.ParseLevel(in.FixedValue)
	if err != nil {
		dropped = append(dropped, "fixed_value "+string(in.FixedValue))
	} else {
		out.FixedValue = fixed
	}

	return models.SeriesFromJSON(out, window), dropped, nil
}
