// Package debug prints the clock tree, the partition states and the hardware
// wait statistics of a built SoC.
package debug

import (
	"fmt"
	"io"
	"strings"

	"github.com/s32-bsp/s32clk/pkg/clk"
	"github.com/s32-bsp/s32clk/pkg/metrics"
	"github.com/s32-bsp/s32clk/pkg/partition"
	"github.com/s32-bsp/s32clk/pkg/regs"
)

// label returns the printed form of a node
func label(r *clk.Registry, id clk.NodeID) string {
	n, err := r.Resolve(id)
	if err != nil {
		return fmt.Sprintf("<%d>", id)
	}
	s := fmt.Sprintf("%s (%s, %s)", n.Name, n.Spec.Kind(), FormatHz(r.GetRate(id)))
	if len(n.Aliases) > 0 {
		s += " [" + strings.Join(n.Aliases, " ") + "]"
	}
	return s
}

// printTreeNode prints a node and everything currently derived from it
func printTreeNode(w io.Writer, r *clk.Registry, id clk.NodeID, indent string, isLast bool) {
	connector := "├──"
	childIndent := indent + "│   "
	if isLast {
		connector = "└──"
		childIndent = indent + "    "
	}
	fmt.Fprintf(w, "%s%s %s\n", indent, connector, label(r, id))

	children := r.Children(id)
	for i, child := range children {
		printTreeNode(w, r, child, childIndent, i == len(children)-1)
	}
}

// PrintTree prints every source clock with the nodes it currently feeds.
// Mux inputs that are not selected are not shown.
func PrintTree(w io.Writer, r *clk.Registry) {
	for _, root := range r.Roots() {
		fmt.Fprintln(w, label(r, root))
		children := r.Children(root)
		for i, child := range children {
			printTreeNode(w, r, child, "", i == len(children)-1)
		}
	}
}

// PrintPartitions prints the gating state of partitions 0 to n-1
func PrintPartitions(w io.Writer, c *partition.Controller, n int) {
	for p := 0; p < n; p++ {
		fmt.Fprintf(w, "partition %d: %s\n", p, c.State(p))
	}
}

// PrintPollStats prints one line per kind of hardware wait
func PrintPollStats(w io.Writer, stats *regs.PollStats) {
	for _, s := range stats.Summaries() {
		fmt.Fprintf(w, "%-40s count %-6d mean %8.1f stddev %8.1f max %8.0f\n", s.Op, s.Count, s.Mean, s.StdDev, s.Max)
	}
}

// PublishRates exports the current rate of every clock
func PublishRates(r *clk.Registry) {
	for _, id := range r.Nodes() {
		metrics.UpdateClockRate(r.Name(id), r.GetRate(id))
	}
}

// FormatHz renders a frequency with the largest exact unit
func FormatHz(hz uint64) string {
	switch {
	case hz == 0:
		return "off"
	case hz%1000000 == 0:
		return fmt.Sprintf("%d MHz", hz/1000000)
	case hz%1000 == 0:
		return fmt.Sprintf("%d kHz", hz/1000)
	default:
		return fmt.Sprintf("%d Hz", hz)
	}
}
