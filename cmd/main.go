package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/golang/glog"

	"github.com/s32-bsp/s32clk/pkg/debug"
	"github.com/s32-bsp/s32clk/pkg/features"
	"github.com/s32-bsp/s32clk/pkg/metrics"
	"github.com/s32-bsp/s32clk/pkg/plan"
	"github.com/s32-bsp/s32clk/pkg/regs"
	"github.com/s32-bsp/s32clk/pkg/simhw"
	"github.com/s32-bsp/s32clk/pkg/soc"
)

// Git commit of current build set at build time
var GitCommit = "Undefined"

const (
	backendSim    = "sim"
	backendDevMem = "devmem"
)

type cliParams struct {
	soc         string
	socFile     string
	backend     string
	memFile     string
	planFile    string
	dtb         string
	metricsFile string
	pollTimeout time.Duration
	maxPolls    int
	secureBoot  bool
	emulator    bool
	nearest     bool
	trace       bool
	dump        bool
	printPlan   bool
	watch       bool
}

// Parse Command line flags
func (cp *cliParams) flagInit() {
	flag.StringVar(&cp.soc, "soc", "s32g274a",
		fmt.Sprintf("SoC variant to bring up, one of %v", soc.Names()))
	flag.StringVar(&cp.socFile, "soc-file", "",
		"YAML clock tables overriding -soc")
	flag.StringVar(&cp.backend, "backend", backendSim,
		"register backend: sim or devmem")
	flag.StringVar(&cp.memFile, "mem", regs.DefaultMemFile,
		"physical memory device used by the devmem backend")
	flag.StringVar(&cp.planFile, "plan", "",
		"YAML boot plan replacing the embedded plan of the SoC")
	flag.StringVar(&cp.dtb, "dtb", "",
		"flattened device tree whose SCMI clock consumers are brought up after the boot plan")
	flag.StringVar(&cp.metricsFile, "metrics-file", "",
		"write clock metrics in the node-exporter textfile format")
	flag.DurationVar(&cp.pollTimeout, "poll-timeout", regs.DefaultPollTimeout,
		"time bound of every hardware wait")
	flag.IntVar(&cp.maxPolls, "max-polls", regs.DefaultMaxPolls,
		"register read bound of every hardware wait")
	flag.BoolVar(&cp.secureBoot, "secure-boot", false,
		"park the XBAR on FIRC before the boot plan")
	flag.BoolVar(&cp.emulator, "emulator", false,
		"skip clocks missing on the pre-silicon emulator")
	flag.BoolVar(&cp.nearest, "nearest", false,
		"accept settings that only approximate the requested frequencies")
	flag.BoolVar(&cp.trace, "trace", false,
		"log every register access at verbosity 4")
	flag.BoolVar(&cp.dump, "dump", false,
		"print the clock tree, partition states and poll statistics when done")
	flag.BoolVar(&cp.printPlan, "print-plan", false,
		"print the resolved boot plan and exit")
	flag.BoolVar(&cp.watch, "watch", false,
		"keep running and validate the -plan file against the clock tree whenever it changes")
	flag.Parse()
	cp.debugPrint()
}

func (cp *cliParams) debugPrint() {
	glog.Infof("SoC set to: %s", cp.soc)
	if cp.socFile != "" {
		glog.Infof("SoC tables file set to: %s", cp.socFile)
	}
	glog.Infof("register backend set to: %s", cp.backend)
	glog.Infof("boot plan file set to: %q", cp.planFile)
	glog.Infof("device tree set to: %q", cp.dtb)
	glog.Infof("poll bounds set to: %v / %d reads", cp.pollTimeout, cp.maxPolls)
	glog.Infof("watch: %v", cp.watch)
}

func (cp *cliParams) requested() features.Features {
	return features.Features{
		Boot: features.BootFeatures{
			SecureBoot: cp.secureBoot,
			Emulator:   cp.emulator,
		},
		Clock: features.ClockFeatures{
			SetNearestFreq: cp.nearest,
		},
	}
}

func main() {
	fmt.Printf("Git commit: %s\n", GitCommit)
	cp := &cliParams{}
	cp.flagInit()
	defer glog.Flush()

	if err := run(cp); err != nil {
		glog.Errorf("%v", err)
		glog.Flush()
		os.Exit(1)
	}
}

func loadVariant(cp *cliParams) (*soc.Variant, error) {
	if cp.socFile != "" {
		return soc.LoadFile(cp.socFile)
	}
	return soc.Load(cp.soc)
}

func loadPlan(cp *cliParams, variant string) (*plan.Plan, error) {
	if cp.planFile == "" {
		return plan.Default(variant, *features.Flags)
	}
	p, err := plan.LoadFile(cp.planFile)
	if err != nil {
		return nil, err
	}
	return p.Profile(*features.Flags), nil
}

// openBackend returns the register accessor and a function releasing it
func openBackend(cp *cliParams, v *soc.Variant) (regs.Accessor, func(), error) {
	switch cp.backend {
	case backendSim:
		return simhw.New(v.SimLayout()), func() {}, nil
	case backendDevMem:
		mem, err := regs.OpenDevMem(cp.memFile, v.Windows())
		if err != nil {
			return nil, nil, err
		}
		return mem, func() {
			if err := mem.Close(); err != nil {
				glog.Errorf("closing %s: %v", cp.memFile, err)
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown register backend %q", cp.backend)
	}
}

func run(cp *cliParams) error {
	v, err := loadVariant(cp)
	if err != nil {
		return err
	}
	features.SetFlags(cp.requested(), v.Name)
	features.Flags.Print()

	p, err := loadPlan(cp, v.Name)
	if err != nil {
		return err
	}
	if cp.printPlan {
		out, err := p.Marshal()
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	}

	metrics.RegisterMetrics()

	acc, closeBackend, err := openBackend(cp, v)
	if err != nil {
		return err
	}
	defer closeBackend()
	if cp.trace {
		acc = regs.Trace{Accessor: acc}
	}

	poller := regs.NewPoller(cp.pollTimeout, cp.maxPolls)
	s, err := v.Build(soc.Options{
		Regs:                acc,
		Poller:              poller,
		SetNearestFrequency: features.Flags.Clock.SetNearestFreq,
	})
	if err != nil {
		return err
	}

	rep, err := plan.Apply(s.Registry, p)
	printReport(rep)
	if err != nil {
		finish(cp, s, v.Partitions, poller)
		return err
	}

	if cp.dtb != "" {
		if err := applyDeviceTree(cp.dtb, s); err != nil {
			finish(cp, s, v.Partitions, poller)
			return err
		}
	}
	finish(cp, s, v.Partitions, poller)

	if cp.watch {
		return watchPlan(cp, s)
	}
	return nil
}

func applyDeviceTree(path string, s *soc.SoC) error {
	fdt, err := plan.LoadDeviceTree(path)
	if err != nil {
		return err
	}
	dp, err := plan.FromDeviceTree(fdt, s.Registry, s.Agent)
	if err != nil {
		return err
	}
	rep, err := plan.Apply(s.Registry, dp)
	printReport(rep)
	return err
}

func printReport(rep *plan.Report) {
	if rep == nil {
		return
	}
	for _, r := range rep.Steps {
		glog.Infof("%s: %s -> %s (%v)", rep.Plan, r.Step, debug.FormatHz(r.RateHz), r.Elapsed)
	}
}

// finish dumps the state and writes the metrics, also after a failed plan
func finish(cp *cliParams, s *soc.SoC, partitions int, poller *regs.Poller) {
	if cp.dump {
		debug.PrintTree(os.Stdout, s.Registry)
		debug.PrintPartitions(os.Stdout, s.Partitions, partitions)
		debug.PrintPollStats(os.Stdout, poller.Stats)
	}
	if cp.metricsFile == "" {
		return
	}
	debug.PublishRates(s.Registry)
	if err := metrics.WriteTextfile(cp.metricsFile); err != nil {
		glog.Errorf("writing metrics to %s: %v", cp.metricsFile, err)
	}
}

// watchPlan validates the plan file against the built clock tree on every
// change until a signal arrives
func watchPlan(cp *cliParams, s *soc.SoC) error {
	if cp.planFile == "" {
		return errors.New("-watch needs -plan")
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating plan watcher: %w", err)
	}
	defer watcher.Close()

	// editors replace files, so watch the directory
	target := filepath.Clean(cp.planFile)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watching %s: %w", cp.planFile, err)
	}
	glog.Infof("watching boot plan %s", target)

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			p, err := loadPlan(cp, s.Name)
			if err != nil {
				glog.Errorf("boot plan %s: %v", target, err)
				continue
			}
			if err := p.Validate(s.Registry); err != nil {
				glog.Errorf("boot plan %s no longer matches the clock tree: %v", target, err)
				continue
			}
			glog.Infof("boot plan %s: %d steps valid", target, len(p.Steps))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			glog.Errorf("plan watcher: %v", err)
		case <-ctx.Done():
			glog.Info("signal received, shutting down")
			return nil
		}
	}
}
