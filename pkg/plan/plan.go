// Package plan describes and applies the clock configuration a board needs
// before the operating system takes over.
package plan

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/golang/glog"
	"sigs.k8s.io/yaml"

	"github.com/s32-bsp/s32clk/pkg/clk"
	"github.com/s32-bsp/s32clk/pkg/features"
)

// ErrRateMismatch is returned when a clock does not run at the rate its
// step asked for
var ErrRateMismatch = errors.New("rate mismatch")

//go:embed plans/s32g274a.yaml
var s32g274aYAML []byte

//go:embed plans/s32r45.yaml
var s32r45YAML []byte

// embeddedPlans maps SoC variant -> raw YAML boot plan
var embeddedPlans = map[string][]byte{
	"s32g274a": s32g274aYAML,
	"s32r45":   s32r45YAML,
}

// Plan is an ordered list of clock operations
type Plan struct {
	Name string `json:"name"`
	// SecureBoot steps run ahead of Steps on secure boot profiles
	SecureBoot []Step `json:"secureBoot,omitempty"`
	Steps      []Step `json:"steps"`
}

// Step reparents, sets the rate of and enables one clock, in that order.
// Empty fields are skipped.
type Step struct {
	Clock  string `json:"clock"`
	Parent string `json:"parent,omitempty"`
	Rate   uint64 `json:"rate,omitempty"`
	Enable bool   `json:"enable,omitempty"`
	// Verify reads the rate back from hardware after the step
	Verify         bool `json:"verify,omitempty"`
	SkipOnEmulator bool `json:"skipOnEmulator,omitempty"`
}

func (s Step) String() string {
	out := s.Clock
	if s.Parent != "" {
		out += " <- " + s.Parent
	}
	if s.Rate != 0 {
		out += fmt.Sprintf(" @ %d Hz", s.Rate)
	}
	if s.Enable {
		out += " (enable)"
	}
	return out
}

// Default returns the embedded boot plan of variant for the given feature
// profile
func Default(variant string, f features.Features) (*Plan, error) {
	data, ok := embeddedPlans[variant]
	if !ok {
		return nil, fmt.Errorf("no boot plan for SoC %q", variant)
	}
	glog.Infof("boot plan: using embedded plan for %s", variant)
	p, err := decode("embedded:"+variant, data)
	if err != nil {
		return nil, err
	}
	return p.profile(f), nil
}

// LoadFile reads a plan from path. Secure boot and emulator entries are
// kept as written, call Profile to resolve them.
func LoadFile(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read boot plan: %w", err)
	}
	return decode(path, data)
}

// Profile resolves a loaded plan for a feature profile
func (p *Plan) Profile(f features.Features) *Plan {
	return p.profile(f)
}

func decode(path string, data []byte) (*Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", path, err)
	}
	for i, s := range append(append([]Step{}, p.SecureBoot...), p.Steps...) {
		if s.Clock == "" {
			return nil, fmt.Errorf("%s: step %d names no clock", path, i)
		}
	}
	return &p, nil
}

// profile flattens the plan: secure boot steps first, emulator skips
// dropped
func (p *Plan) profile(f features.Features) *Plan {
	out := &Plan{Name: p.Name}
	var steps []Step
	if f.Boot.SecureBoot {
		steps = append(steps, p.SecureBoot...)
	}
	steps = append(steps, p.Steps...)
	for _, s := range steps {
		if f.Boot.Emulator && s.SkipOnEmulator {
			glog.V(2).Infof("boot plan %s: skipping %s on emulator", p.Name, s)
			continue
		}
		s.SkipOnEmulator = false
		out.Steps = append(out.Steps, s)
	}
	return out
}

// Marshal renders the plan as YAML
func (p *Plan) Marshal() ([]byte, error) {
	return yaml.Marshal(p)
}

// Validate checks that every clock the plan names exists in r
func (p *Plan) Validate(r *clk.Registry) error {
	for i, s := range append(append([]Step{}, p.SecureBoot...), p.Steps...) {
		if _, err := r.Lookup(s.Clock); err != nil {
			return fmt.Errorf("boot plan %s step %d: %w", p.Name, i, err)
		}
		if s.Parent == "" {
			continue
		}
		if _, err := r.Lookup(s.Parent); err != nil {
			return fmt.Errorf("boot plan %s step %d: parent: %w", p.Name, i, err)
		}
	}
	return nil
}
