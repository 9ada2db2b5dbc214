package soc

import (
	"fmt"
	"os"
	"sort"

	"github.com/golang/glog"
	"sigs.k8s.io/yaml"

	"github.com/s32-bsp/s32clk/pkg/clk"
	"github.com/s32-bsp/s32clk/pkg/hw"
	"github.com/s32-bsp/s32clk/pkg/scmi"
)

// Variant is the YAML-backed description of one SoC's clock hardware
type Variant struct {
	Name string `json:"name"`
	// Extends names an embedded variant whose tables this one builds on.
	// Clocks with the same name replace the inherited definition.
	Extends    string                `json:"extends,omitempty"`
	Partitions int                   `json:"partitions,omitempty"`
	Gating     *hw.GatingBases       `json:"gating,omitempty"`
	Modules    map[string]clk.Module `json:"modules,omitempty"`
	Clocks     []ClockDef            `json:"clocks,omitempty"`
	SCMI       scmi.Table            `json:"scmi,omitempty"`
}

// ClockDef is one node of the clock tree. Which fields apply depends on
// Kind: Instance names the oscillator, PLL or DFS module, or the module
// owning a mux. Index is the PLL output, DFS port or mux number.
type ClockDef struct {
	Name        string   `json:"name"`
	Aliases     []string `json:"aliases,omitempty"`
	Kind        clk.Kind `json:"kind"`
	Instance    string   `json:"instance,omitempty"`
	Parent      string   `json:"parent,omitempty"`
	Inputs      []string `json:"inputs,omitempty"`
	Index       int      `json:"index,omitempty"`
	Outputs     int      `json:"outputs,omitempty"`
	Ratio       uint64   `json:"ratio,omitempty"`
	FreqHz      uint64   `json:"freq,omitempty"`
	External    bool     `json:"external,omitempty"`
	Partition   int      `json:"partition,omitempty"`
	Block       int      `json:"block,omitempty"`
	CheckStatus bool     `json:"checkStatus,omitempty"`
	MinHz       uint64   `json:"min,omitempty"`
	MaxHz       uint64   `json:"max,omitempty"`
	Sel         *uint32  `json:"sel,omitempty"`
}

// maximum extends chain, guards against variants extending each other
const maxExtends = 8

// Names lists the embedded variants that describe a complete SoC
func Names() []string {
	var names []string
	for name := range embeddedVariants {
		if !abstractVariants[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Load returns the embedded variant name with its inherited tables merged
func Load(name string) (*Variant, error) {
	data, ok := embeddedVariants[name]
	if !ok || len(data) == 0 {
		return nil, fmt.Errorf("no clock tables for SoC %q, known: %v", name, Names())
	}
	glog.Infof("SoC tables: using embedded tables for %s", name)
	v, err := decodeVariant("embedded:"+name, data)
	if err != nil {
		return nil, err
	}
	return resolve(v, 0)
}

// LoadFile reads a variant from path. It may extend an embedded variant.
func LoadFile(path string) (*Variant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read SoC tables: %w", err)
	}
	v, err := decodeVariant(path, data)
	if err != nil {
		return nil, err
	}
	glog.Infof("SoC tables: loaded %s from %s", v.Name, path)
	return resolve(v, 0)
}

func decodeVariant(path string, data []byte) (*Variant, error) {
	var v Variant
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", path, err)
	}
	if v.Name == "" {
		return nil, fmt.Errorf("%s: variant has no name", path)
	}
	return &v, nil
}

func resolve(v *Variant, depth int) (*Variant, error) {
	if v.Extends == "" {
		return v, nil
	}
	if depth >= maxExtends {
		return nil, fmt.Errorf("variant %s: extends chain deeper than %d", v.Name, maxExtends)
	}
	data, ok := embeddedVariants[v.Extends]
	if !ok {
		return nil, fmt.Errorf("variant %s extends unknown variant %s", v.Name, v.Extends)
	}
	base, err := decodeVariant("embedded:"+v.Extends, data)
	if err != nil {
		return nil, err
	}
	base, err = resolve(base, depth+1)
	if err != nil {
		return nil, err
	}
	return base.merge(v), nil
}

// merge returns v with the tables of over applied on top
func (v *Variant) merge(over *Variant) *Variant {
	out := &Variant{
		Name:       over.Name,
		Partitions: v.Partitions,
		Gating:     v.Gating,
		Modules:    map[string]clk.Module{},
		SCMI:       v.SCMI.Merge(over.SCMI),
	}
	if over.Partitions != 0 {
		out.Partitions = over.Partitions
	}
	if over.Gating != nil {
		out.Gating = over.Gating
	}
	for name, m := range v.Modules {
		out.Modules[name] = m
	}
	for name, m := range over.Modules {
		out.Modules[name] = m
	}

	replaced := map[string]ClockDef{}
	for _, c := range over.Clocks {
		replaced[c.Name] = c
	}
	for _, c := range v.Clocks {
		if r, ok := replaced[c.Name]; ok {
			out.Clocks = append(out.Clocks, r)
			delete(replaced, c.Name)
			continue
		}
		out.Clocks = append(out.Clocks, c)
	}
	for _, c := range over.Clocks {
		if _, ok := replaced[c.Name]; ok {
			out.Clocks = append(out.Clocks, c)
		}
	}
	return out
}
