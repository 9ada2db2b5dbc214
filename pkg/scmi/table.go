package scmi

// Mapping binds one SCMI clock ID to a clock of the registry
type Mapping struct {
	ID    uint32 `json:"id"`
	Clock string `json:"clock"`
}

// Compound is a clock whose source depends on the interface mode the
// caller picked through the SCMI ID. Selecting a mode switches Mux to the
// mode's source before Clock is touched.
type Compound struct {
	Clock string `json:"clock"`
	Mux   string `json:"mux"`
	Modes []Mode `json:"modes"`
}

// Mode is one SCMI ID of a compound clock
type Mode struct {
	ID     uint32 `json:"id"`
	Mode   string `json:"mode"`
	Source string `json:"source"`
}

// Table is the SCMI clock ID map of a SoC
type Table struct {
	Clocks    []Mapping  `json:"clocks,omitempty"`
	Compounds []Compound `json:"compounds,omitempty"`
}

// Merge returns t with the entries of other added. IDs of other win.
func (t Table) Merge(other Table) Table {
	seen := map[uint32]bool{}
	for _, m := range other.Clocks {
		seen[m.ID] = true
	}
	for _, c := range other.Compounds {
		for _, m := range c.Modes {
			seen[m.ID] = true
		}
	}

	var out Table
	for _, m := range t.Clocks {
		if !seen[m.ID] {
			out.Clocks = append(out.Clocks, m)
		}
	}
	for _, c := range t.Compounds {
		kept := Compound{Clock: c.Clock, Mux: c.Mux}
		for _, m := range c.Modes {
			if !seen[m.ID] {
				kept.Modes = append(kept.Modes, m)
			}
		}
		if len(kept.Modes) > 0 {
			out.Compounds = append(out.Compounds, kept)
		}
	}
	out.Clocks = append(out.Clocks, other.Clocks...)
	out.Compounds = append(out.Compounds, other.Compounds...)
	return out
}
