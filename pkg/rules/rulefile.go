// Package rules implements the RuleEngine: it evaluates a single candidate
// outgoing segment against a user rule-file and a small set of built-in
// heuristics, returning a Verdict.
package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Action is what a tag-value rule does with a matching candidate.
type Action string

const (
	// ActionPriority adds Value to the candidate's score.
	ActionPriority Action = "priority"
	// ActionAvoid marks the candidate Avoid regardless of other weights.
	ActionAvoid Action = "avoid"
)

// TagRule is one entry in a highway/surface/smoothness map.
type TagRule struct {
	Action Action `yaml:"action"`
	Value  uint8  `yaml:"value,omitempty"`
}

// File is the rule-file's data-only, enumerated-options shape.
type File struct {
	Highway    map[string]TagRule `yaml:"highway,omitempty"`
	Surface    map[string]TagRule `yaml:"surface,omitempty"`
	Smoothness map[string]TagRule `yaml:"smoothness,omitempty"`

	Basic BasicRules `yaml:"basic,omitempty"`
}

// BasicRules are always present, with the defaults below when the
// rule-file omits them or omits the basic block entirely.
type BasicRules struct {
	// StepLimit hard-caps Navigator steps per itinerary.
	StepLimit int `yaml:"step_limit,omitempty"`

	// PreferSameRoad is the additive bonus when a candidate shares a
	// way-id or name with the incoming segment.
	PreferSameRoad uint8 `yaml:"prefer_same_road,omitempty"`

	// ProgressionDirectionDeg is the maximum angular deviation (degrees)
	// from the bearing toward the active waypoint before a candidate is
	// penalized; beyond ProgressionDirectionAvoidDeg it is avoided outright.
	ProgressionDirectionDeg      float64 `yaml:"progression_direction_deg,omitempty"`
	ProgressionDirectionAvoidDeg float64 `yaml:"progression_direction_avoid_deg,omitempty"`
	ProgressionDirectionPenalty  uint8   `yaml:"progression_direction_penalty,omitempty"`

	// ProgressionSpeed: if set, a sliding window checks
	// (distance-advanced / steps-taken) and triggers NoProgress when it
	// falls below the threshold.
	ProgressionSpeedEnabled     bool    `yaml:"progression_speed_enabled,omitempty"`
	ProgressionSpeedWindow      int     `yaml:"progression_speed_window,omitempty"`
	ProgressionSpeedMinMetersPerStep float64 `yaml:"progression_speed_min_m_per_step,omitempty"`

	// NoShortDetours penalizes candidates that diverge from the incoming
	// way only to rejoin it within ShortDetourMaxMeters.
	NoShortDetoursEnabled  bool    `yaml:"no_short_detours_enabled,omitempty"`
	ShortDetourMaxMeters   float64 `yaml:"short_detour_max_meters,omitempty"`
	ShortDetourPenalty     uint8   `yaml:"short_detour_penalty,omitempty"`

	// NoSharpTurns avoids candidates whose incoming->outgoing angle falls
	// in the illegal-U-turn band on multi-lane roads.
	NoSharpTurnsEnabled bool    `yaml:"no_sharp_turns_enabled,omitempty"`
	SharpTurnMinDeg     float64 `yaml:"sharp_turn_min_deg,omitempty"`
	SharpTurnMaxDeg     float64 `yaml:"sharp_turn_max_deg,omitempty"`
}

// DefaultBasicRules returns the built-in basic rule defaults.
func DefaultBasicRules() BasicRules {
	return BasicRules{
		StepLimit:                       1_000_000,
		PreferSameRoad:                  20,
		ProgressionDirectionDeg:         60,
		ProgressionDirectionAvoidDeg:    120,
		ProgressionDirectionPenalty:     40,
		ProgressionSpeedEnabled:         true,
		ProgressionSpeedWindow:          50,
		ProgressionSpeedMinMetersPerStep: 5,
		NoShortDetoursEnabled:           true,
		ShortDetourMaxMeters:            150,
		ShortDetourPenalty:              30,
		NoSharpTurnsEnabled:             true,
		SharpTurnMinDeg:                 135,
		SharpTurnMaxDeg:                 225,
	}
}

// Empty returns a rule-file with no highway/surface/smoothness priorities
// or avoids and only the basic-rule defaults.
func Empty() *File {
	return &File{Basic: DefaultBasicRules()}
}

// AllHighwaysAvoid returns a rule-file that avoids each of the given
// highway values.
func AllHighwaysAvoid(values ...string) *File {
	f := Empty()
	f.Highway = make(map[string]TagRule, len(values))
	for _, v := range values {
		f.Highway[v] = TagRule{Action: ActionAvoid}
	}
	return f
}

// Load reads and validates a rule-file from path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rules: reading rule-file: %w", err)
	}
	return Parse(data)
}

// Parse validates and decodes rule-file YAML. Basic-rule fields the YAML
// omits keep their defaults; an explicit zero for one of the limits in
// applyBasicDefaults is replaced by its default as well.
func Parse(data []byte) (*File, error) {
	f := File{Basic: DefaultBasicRules()}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("rules: invalid rule-file: %w", err)
	}
	applyBasicDefaults(&f.Basic)
	if err := validate(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

func applyBasicDefaults(b *BasicRules) {
	d := DefaultBasicRules()
	if b.StepLimit == 0 {
		b.StepLimit = d.StepLimit
	}
	if b.ProgressionDirectionDeg == 0 {
		b.ProgressionDirectionDeg = d.ProgressionDirectionDeg
	}
	if b.ProgressionDirectionAvoidDeg == 0 {
		b.ProgressionDirectionAvoidDeg = d.ProgressionDirectionAvoidDeg
	}
	if b.ProgressionDirectionPenalty == 0 {
		b.ProgressionDirectionPenalty = d.ProgressionDirectionPenalty
	}
	if b.ProgressionSpeedWindow == 0 {
		b.ProgressionSpeedWindow = d.ProgressionSpeedWindow
	}
	if b.ShortDetourMaxMeters == 0 {
		b.ShortDetourMaxMeters = d.ShortDetourMaxMeters
	}
	if b.SharpTurnMinDeg == 0 {
		b.SharpTurnMinDeg = d.SharpTurnMinDeg
	}
	if b.SharpTurnMaxDeg == 0 {
		b.SharpTurnMaxDeg = d.SharpTurnMaxDeg
	}
}

func validate(f *File) error {
	for category, rules := range map[string]map[string]TagRule{
		"highway": f.Highway, "surface": f.Surface, "smoothness": f.Smoothness,
	} {
		for k, r := range rules {
			if r.Action != ActionPriority && r.Action != ActionAvoid {
				return fmt.Errorf("rules: %s[%q]: invalid action %q", category, k, r.Action)
			}
		}
	}
	if f.Basic.StepLimit <= 0 {
		return fmt.Errorf("rules: basic.step_limit must be positive")
	}
	return nil
}
