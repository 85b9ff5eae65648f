// Package profile ties one user's identity to their engine state and
// converts it to and from the saved JSON form.
package profile

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rewired-gh/humanbattery/internal/engine"
	"github.com/rewired-gh/humanbattery/internal/models"
	"github.com/rewired-gh/humanbattery/internal/registry"
)

// DefaultName is given to profiles that were never named.
const DefaultName = "Humanoid"

// Profile is one user's energy history.
type Profile struct {
	ID     uuid.UUID
	Name   string
	Engine *engine.Engine
}

// New creates an empty profile whose series keep window samples.
func New(name string, window int) *Profile {
	if name == "" {
		name = DefaultName
	}
	return &Profile{
		ID:     uuid.New(),
		Name:   name,
		Engine: engine.New(registry.New(window)),
	}
}

// Warning describes part of a saved profile that could not be loaded as
// stored. Loading continues past warnings.
type Warning struct {
	Path    string
	Message string
}

func (w Warning) String() string {
	if w.Path == "" {
		return w.Message
	}
	return fmt.Sprintf("%s: %s", w.Path, w.Message)
}

// LogDay adds one day to the profile's engine and reports the resolution.
func (p *Profile) LogDay(date models.DateKey, occurrences []models.Occurrence, start, end float64, overwrite bool) (bool, engine.ResolveResult, error) {
	added, err := p.Engine.AddDay(date, occurrences, start, end, overwrite)
	if err != nil || !added {
		return added, engine.ResolveResult{}, err
	}
	return true, p.Engine.LastResolve(), nil
}
