package plan

import (
	"encoding/binary"
	"fmt"
	"os"
	"strings"

	"github.com/golang/glog"
	"github.com/u-root/u-root/pkg/dt"

	"github.com/s32-bsp/s32clk/pkg/clk"
	"github.com/s32-bsp/s32clk/pkg/scmi"
)

// scmiClockNode is the node name of the SCMI clock protocol provider
const scmiClockNode = "protocol@14"

// LoadDeviceTree reads a flattened device tree blob
func LoadDeviceTree(path string) (*dt.FDT, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open device tree: %w", err)
	}
	defer f.Close()
	fdt, err := dt.ReadFDT(f)
	if err != nil {
		return nil, fmt.Errorf("parse device tree %s: %w", path, err)
	}
	return fdt, nil
}

// FromDeviceTree builds a plan from the assigned-clocks,
// assigned-clock-parents and assigned-clock-rates properties of every node
// in fdt. Clock specifiers are SCMI IDs, translated through agent.
func FromDeviceTree(fdt *dt.FDT, r *clk.Registry, agent *scmi.Agent) (*Plan, error) {
	providers, err := scmiProviders(fdt)
	if err != nil {
		return nil, err
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("device tree has no SCMI clock provider")
	}

	p := &Plan{Name: "device-tree"}
	err = fdt.RootNode.Walk(func(n *dt.Node) error {
		prop, ok := n.LookProperty("assigned-clocks")
		if !ok {
			return nil
		}
		steps, err := nodeSteps(n, prop, providers, r, agent)
		if err != nil {
			return fmt.Errorf("node %s: %w", n.Name, err)
		}
		p.Steps = append(p.Steps, steps...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	glog.Infof("boot plan: %d steps imported from device tree", len(p.Steps))
	return p, nil
}

func scmiProviders(fdt *dt.FDT) (map[uint32]bool, error) {
	providers := map[uint32]bool{}
	err := fdt.RootNode.Walk(func(n *dt.Node) error {
		if !strings.HasPrefix(n.Name, scmiClockNode) {
			return nil
		}
		prop, ok := n.LookProperty("phandle")
		if !ok {
			// not referenced
			return nil
		}
		ph, err := prop.AsPHandle()
		if err != nil {
			return fmt.Errorf("%s: illegal phandle: %w", n.Name, err)
		}
		providers[uint32(ph)] = true
		return nil
	})
	return providers, err
}

func cells(prop *dt.Property) ([]uint32, error) {
	if len(prop.Value)%4 != 0 {
		return nil, fmt.Errorf("%s: length %d is not a multiple of 4", prop.Name, len(prop.Value))
	}
	out := make([]uint32, len(prop.Value)/4)
	for i := range out {
		out[i] = binary.BigEndian.Uint32(prop.Value[4*i:])
	}
	return out, nil
}

// specifiers splits a phandle list into SCMI IDs. A zero phandle is an
// empty entry and yields ok=false.
func specifiers(prop *dt.Property, providers map[uint32]bool) (ids []uint32, ok []bool, err error) {
	cs, err := cells(prop)
	if err != nil {
		return nil, nil, err
	}
	for i := 0; i < len(cs); {
		ph := cs[i]
		if ph == 0 {
			ids = append(ids, 0)
			ok = append(ok, false)
			i++
			continue
		}
		if !providers[ph] {
			return nil, nil, fmt.Errorf("%s: phandle %d is not an SCMI clock provider", prop.Name, ph)
		}
		if i+1 >= len(cs) {
			return nil, nil, fmt.Errorf("%s: truncated specifier", prop.Name)
		}
		ids = append(ids, cs[i+1])
		ok = append(ok, true)
		i += 2
	}
	return ids, ok, nil
}

func nodeSteps(n *dt.Node, clocks *dt.Property, providers map[uint32]bool, r *clk.Registry, agent *scmi.Agent) ([]Step, error) {
	ids, present, err := specifiers(clocks, providers)
	if err != nil {
		return nil, err
	}
	var parents []uint32
	var hasParent []bool
	if prop, ok := n.LookProperty("assigned-clock-parents"); ok {
		if parents, hasParent, err = specifiers(prop, providers); err != nil {
			return nil, err
		}
	}
	var rates []uint32
	if prop, ok := n.LookProperty("assigned-clock-rates"); ok {
		if rates, err = cells(prop); err != nil {
			return nil, err
		}
	}

	var steps []Step
	for i, id := range ids {
		if !present[i] {
			continue
		}
		node, err := agent.ClockID(id)
		if err != nil {
			return nil, err
		}
		// compound clocks pick their source from the SCMI ID
		mux, source, err := agent.Route(id)
		if err != nil {
			return nil, err
		}
		if mux != clk.NoNode {
			steps = append(steps, Step{Clock: r.Name(mux), Parent: r.Name(source)})
		}

		s := Step{Clock: r.Name(node)}
		if i < len(parents) && hasParent[i] {
			parent, err := agent.ClockID(parents[i])
			if err != nil {
				return nil, err
			}
			s.Parent = r.Name(parent)
		}
		if i < len(rates) && rates[i] != 0 {
			s.Rate = uint64(rates[i])
			s.Enable = true
			s.Verify = true
		}
		if s.Parent == "" && s.Rate == 0 {
			continue
		}
		steps = append(steps, s)
	}
	return steps, nil
}
