package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/p3md/internal/config"
	"github.com/san-kum/p3md/internal/dynamo"
	"github.com/san-kum/p3md/internal/experiment"
	"github.com/san-kum/p3md/internal/sim"
	"github.com/san-kum/p3md/internal/storage"
	"github.com/san-kum/p3md/internal/viz"
)

func setup(cmd *cobra.Command, logger *slog.Logger) (*experiment.Experiment, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, err
	}
	exp := experiment.New(cfg, logger)
	if err := exp.Setup(cmd.Context()); err != nil {
		return nil, err
	}
	return exp, nil
}

func checkConfig(cmd *cobra.Command, args []string) error {
	exp, err := setup(cmd, newLogger(os.Stderr))
	if err != nil {
		return err
	}
	fmt.Println(viz.RenderSummary(exp.Summary()))
	if savePath != "" {
		if err := config.Save(savePath, exp.Config()); err != nil {
			return err
		}
		fmt.Printf("saved: %s\n", savePath)
	}
	return nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	cmd.SetContext(ctx)

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	// the live view owns the terminal, so its logs go to a file
	logOut := io.Writer(os.Stderr)
	if live {
		f, err := os.Create(filepath.Join(dataDir, "live.log"))
		if err != nil {
			return err
		}
		defer f.Close()
		logOut = f
	}

	exp, err := setup(cmd, newLogger(logOut))
	if err != nil {
		return err
	}
	if !quiet {
		fmt.Println(viz.RenderSummary(exp.Summary()))
	}
	if replicas > 1 {
		return runEnsemble(ctx, exp, st)
	}

	cfg := exp.Config()
	w, err := st.Create(metadata(exp, cfg.Seed), cfg, dumps)
	if err != nil {
		return err
	}

	start := time.Now()
	var res *dynamo.Result
	if live {
		res, err = viz.RunLive(ctx, cfg.Name, cfg.Run.EquilibrationSteps+cfg.Run.ProductionSteps, exp.Box(),
			func(ctx context.Context, o dynamo.Observer) (*dynamo.Result, error) {
				return exp.Run(ctx, w, o)
			})
	} else {
		res, err = exp.Run(ctx, w)
	}
	if cerr := w.Close(res); cerr != nil && err == nil {
		err = cerr
	}

	printResult(w.ID(), res, time.Since(start))
	return err
}

func runEnsemble(ctx context.Context, exp *experiment.Experiment, st *storage.Store) error {
	cfg := exp.Config()
	writers := make([]*storage.Writer, replicas)

	ens := sim.NewEnsemble(exp.Factory(func(r *experiment.Replica) error {
		w, err := st.Create(metadata(exp, r.Seed), cfg, dumps)
		if err != nil {
			return err
		}
		writers[r.Seed-cfg.Seed] = w
		r.Sim.AddObserver(w)
		return nil
	}), replicas, cfg.Seed, parallel)

	start := time.Now()
	results, err := ens.Run(ctx)
	for i, w := range writers {
		if w == nil {
			continue
		}
		if cerr := w.Close(results[i]); cerr != nil && err == nil {
			err = cerr
		}
		printResult(w.ID(), results[i], time.Since(start))
	}
	return err
}

func metadata(exp *experiment.Experiment, seed uint64) storage.RunMetadata {
	cfg := exp.Config()
	s := exp.Summary()
	return storage.RunMetadata{
		ID:         storage.NewRunID(cfg.Name, seed),
		Name:       cfg.Name,
		Timestamp:  time.Now(),
		Seed:       seed,
		Particles:  s.Particles,
		Dt:         cfg.Integrator.Dt,
		Potential:  s.Potential,
		Method:     s.Method,
		Integrator: cfg.Integrator.Type,
		Thermostat: cfg.Thermostat.Type,
		Alpha:      s.Alpha,
		PPError:    s.PPError,
		PMError:    s.PMError,
		TotalError: s.TotalError,
	}
}

func printResult(id string, res *dynamo.Result, wall time.Duration) {
	fmt.Printf("\nrun: %s\n", id)
	if res == nil {
		fmt.Println("status: not started")
		return
	}
	status := "completed"
	if res.Err != nil {
		status = "halted: " + res.Err.Error()
	}
	fmt.Printf("status: %s\n", status)
	fmt.Printf("steps: %d  dumps: %d  force evaluations: %d\n", res.Stats.Steps, res.Stats.Dumps, res.Stats.ForceEvaluations)
	fmt.Printf("wall: %s  (equilibration %s, production %s, forces %s)\n",
		wall.Round(time.Millisecond),
		res.Stats.EquilibrationTime.Round(time.Millisecond),
		res.Stats.ProductionTime.Round(time.Millisecond),
		res.Stats.ForceTime.Round(time.Millisecond))
	fmt.Printf("energy: %.6e -> %.6e  (drift %.3e)\n", res.Stats.InitialTotalEnergy, res.Stats.FinalTotalEnergy, res.Stats.RelativeEnergyDrift)

	names := make([]string, 0, len(res.Metrics))
	for k := range res.Metrics {
		names = append(names, k)
	}
	slices.Sort(names)
	for _, k := range names {
		fmt.Printf("  %-14s %.6e\n", k, res.Metrics[k])
	}
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tN\tPOTENTIAL\tINTEG\tSTEPS\tDRIFT\tSTATUS")
	for _, run := range runs {
		status := "ok"
		if run.Error != "" {
			status = "halted"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s/%s\t%s\t%d\t%.2e\t%s\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Particles,
			run.Potential, run.Method,
			run.Integrator,
			run.Stats.Steps,
			run.Stats.RelativeEnergyDrift,
			status,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	rows, err := st.LoadThermo(runID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("potential: %s (%s), %d particles\n", meta.Potential, meta.Method, meta.Particles)
	fmt.Printf("samples: %d\n\n", len(rows))

	fields := []string{"total", "temperature"}
	if field != "" {
		fields = []string{field}
	}
	for _, f := range fields {
		graph, err := viz.PlotThermo(rows, f, plotPhase, width, height)
		if err != nil {
			return err
		}
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	return storage.New(dataDir).ExportJSON(os.Stdout, args[0])
}

func showDump(cmd *cobra.Command, args []string) error {
	p, err := dynamo.ParsePhase(dumpPhase)
	if err != nil {
		return err
	}
	rows, err := storage.New(dataDir).LoadDump(args[0], p, dumpIdx)
	if err != nil {
		return err
	}
	if head > 0 && len(rows) > head {
		rows = rows[:head]
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "ID\tSPECIES\tX\tY\tZ\tVX\tVY\tVZ\t")
	for _, r := range rows {
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t\n", r.ID, r.Species,
			sci(r.X), sci(r.Y), sci(r.Z), sci(r.VX), sci(r.VY), sci(r.VZ))
	}
	return w.Flush()
}

func sci(v float64) string { return strconv.FormatFloat(v, 'e', 5, 64) }

func listPresets(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		for _, p := range allPresets() {
			fmt.Println(p)
		}
		return nil
	}
	names := config.ListPresets(args[0])
	if names == nil {
		return fmt.Errorf("no presets for %q (available: %v)", args[0], config.PresetKinds())
	}
	for _, n := range names {
		cfg := config.GetPreset(args[0], n)
		fmt.Printf("%-12s %d particles, %s/%s, %s\n", n, cfg.TotalParticles(), cfg.Potential.Type, cfg.Potential.Method, cfg.Integrator.Type)
	}
	return nil
}
