package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/san-kum/p3md/internal/config"
	"github.com/san-kum/p3md/internal/experiment"
	"github.com/san-kum/p3md/internal/viz"
)

var (
	dataDir  string
	verbose  bool
	logJSON  bool
	theme    string
	quiet    bool
	registry = experiment.NewRegistry()

	// run configuration
	configFile string
	preset     string
	name       string
	seed       uint64
	dt         float64
	eqSteps    int
	prodSteps  int
	dumpStep   int
	integrator string
	thermo     string
	workers    int

	// run behaviour
	live     bool
	dumps    bool
	replicas int
	parallel int
	savePath string

	// inspection
	field     string
	plotPhase string
	dumpPhase string
	width     int
	height    int
	dumpIdx   int
	head      int
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "p3md",
		Short:         "particle-particle particle-mesh molecular dynamics",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			viz.SetTheme(theme)
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".p3md", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log as JSON")
	rootCmd.PersistentFlags().StringVar(&theme, "theme", viz.ThemeCyberpunk.Name, "color theme ("+strings.Join(viz.ThemeNames(), ", ")+")")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "set up and run a simulation",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	configFlags(runCmd)
	runCmd.Flags().BoolVar(&live, "live", false, "follow the run in a live view")
	runCmd.Flags().BoolVar(&dumps, "dumps", false, "write particle dumps")
	runCmd.Flags().IntVar(&replicas, "replicas", 1, "independent replicas with consecutive seeds")
	runCmd.Flags().IntVar(&parallel, "parallel", 0, "replicas running at once (0 = all)")
	runCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print the setup summary")
	runCmd.MarkFlagsMutuallyExclusive("live", "replicas")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "validate a configuration and print the derived parameters",
		Args:  cobra.NoArgs,
		RunE:  checkConfig,
	}
	configFlags(checkCmd)
	checkCmd.Flags().StringVar(&savePath, "save", "", "write the resolved configuration to this file")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the thermodynamics of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&field, "field", "", "column to plot ("+strings.Join(viz.ThermoFields(), ", ")+"); default total and temperature")
	plotCmd.Flags().StringVar(&plotPhase, "phase", "", "only plot this phase")
	plotCmd.Flags().IntVar(&width, "width", 80, "plot width")
	plotCmd.Flags().IntVar(&height, "height", 10, "plot height")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata and thermodynamics as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	dumpCmd := &cobra.Command{
		Use:   "dump [run_id]",
		Short: "print a particle dump",
		Args:  cobra.ExactArgs(1),
		RunE:  showDump,
	}
	dumpCmd.Flags().IntVar(&dumpIdx, "step", 0, "dump step")
	dumpCmd.Flags().StringVar(&dumpPhase, "phase", "production", "dump phase")
	dumpCmd.Flags().IntVar(&head, "head", 10, "particles to print (0 = all)")

	presetsCmd := &cobra.Command{
		Use:   "presets [kind]",
		Short: "list presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	rootCmd.AddCommand(runCmd, checkCmd, listCmd, plotCmd, exportCmd, dumpCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func configFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "preset as kind/name")
	cmd.Flags().StringVar(&name, "name", "", "run name")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "random seed")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "time step")
	cmd.Flags().IntVar(&eqSteps, "eq-steps", config.DefaultEqSteps, "equilibration steps")
	cmd.Flags().IntVar(&prodSteps, "prod-steps", config.DefaultProdSteps, "production steps")
	cmd.Flags().IntVar(&dumpStep, "dump-step", config.DefaultDumpStep, "steps between production dumps")
	cmd.Flags().StringVar(&integrator, "integrator", "", "integrator ("+strings.Join(registry.ListIntegrators(), ", ")+")")
	cmd.Flags().StringVar(&thermo, "thermostat", "", "thermostat ("+strings.Join(registry.ListThermostats(), ", ")+")")
	cmd.Flags().IntVar(&workers, "workers", 0, "worker goroutines (0 = one per CPU)")
	cmd.MarkFlagsMutuallyExclusive("config", "preset")
}

// resolveConfig starts from the preset, the config file or the defaults and
// applies the flags the user set.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case preset != "":
		kind, pname, ok := strings.Cut(preset, "/")
		p := config.GetPreset(kind, pname)
		if !ok || p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %s)", preset, strings.Join(allPresets(), ", "))
		}
		cfg = p.Clone()
	case configFile != "":
		c, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
	default:
		cfg = config.DefaultConfig()
	}

	f := cmd.Flags()
	if f.Changed("name") {
		cfg.Name = name
	}
	if f.Changed("seed") {
		cfg.Seed = seed
	}
	if f.Changed("dt") {
		cfg.Integrator.Dt = dt
	}
	if f.Changed("eq-steps") {
		cfg.Run.EquilibrationSteps = eqSteps
	}
	if f.Changed("prod-steps") {
		cfg.Run.ProductionSteps = prodSteps
	}
	if f.Changed("dump-step") {
		cfg.Run.DumpStep = dumpStep
	}
	if f.Changed("integrator") {
		cfg.Integrator.Type = integrator
	}
	if f.Changed("thermostat") {
		cfg.Thermostat.Type = thermo
	}
	if f.Changed("workers") {
		cfg.Workers = workers
	}
	return cfg, nil
}

func allPresets() []string {
	var out []string
	for _, kind := range config.PresetKinds() {
		for _, p := range config.ListPresets(kind) {
			out = append(out, kind+"/"+p)
		}
	}
	return out
}

func newLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	if logJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
