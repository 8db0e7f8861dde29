package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/pksim/pksim/internal/assemble"
	"github.com/pksim/pksim/internal/config"
	"github.com/pksim/pksim/internal/dataset"
	"github.com/pksim/pksim/internal/engine"
	"github.com/pksim/pksim/internal/storage"
	"github.com/pksim/pksim/internal/tgrid"
)

var (
	dataDir    string
	dataFile   string
	idataFile  string
	configFile string
	integrator string
	dt         float64
	adaptive   bool
	tolerance  float64
	gridStart  float64
	gridEnd    float64
	gridDelta  float64
	descol     string
	reqList    []string
	requestLst []string
	carryList  []string
	tscale     float64
	obsonly    bool
	obsaug     bool
	workers    int
	strict     bool
	fillNA     bool
	timeout    time.Duration
	outFile    string
	asJSON     bool
	saveRun    bool
	plotCol    string
	plotID     string
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, nil))

func main() {
	rootCmd := &cobra.Command{
		Use:   "pksim",
		Short: "pharmacometric ODE simulation",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", ".pksim", "run storage directory")

	runCmd := &cobra.Command{
		Use:   "run [model]",
		Short: "run a simulation",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	runCmd.Flags().StringVar(&dataFile, "data", "", "input data set (csv)")
	runCmd.Flags().StringVar(&idataFile, "idata", "", "individual-level table (csv)")
	runCmd.Flags().StringVar(&configFile, "config", "", "run config file (yaml)")
	runCmd.Flags().StringVar(&integrator, "integrator", "rk4", "integrator")
	runCmd.Flags().Float64Var(&dt, "dt", 0.1, "fixed timestep")
	runCmd.Flags().BoolVar(&adaptive, "adaptive", false, "adaptive stepping")
	runCmd.Flags().Float64Var(&tolerance, "tol", 1e-6, "adaptive tolerance")
	runCmd.Flags().Float64Var(&gridStart, "start", 0, "design start time")
	runCmd.Flags().Float64Var(&gridEnd, "end", 24, "design end time")
	runCmd.Flags().Float64Var(&gridDelta, "delta", 1, "design time step")
	runCmd.Flags().StringVar(&descol, "descol", "", "idata design-group column")
	runCmd.Flags().StringSliceVar(&reqList, "Req", nil, "exclusive output list (compartments+captures)")
	runCmd.Flags().StringSliceVar(&requestLst, "req", nil, "output compartments (captures always kept)")
	runCmd.Flags().StringSliceVar(&carryList, "carry", nil, "columns carried into output")
	runCmd.Flags().Float64Var(&tscale, "tscale", 1.0, "reported time multiplier")
	runCmd.Flags().BoolVar(&obsonly, "obsonly", false, "observation rows only")
	runCmd.Flags().BoolVar(&obsaug, "obsaug", false, "augment with event-time rows")
	runCmd.Flags().IntVar(&workers, "workers", 0, "parallel individuals (0 = NumCPU)")
	runCmd.Flags().BoolVar(&strict, "strict", false, "fail the run on any individual failure")
	runCmd.Flags().BoolVar(&fillNA, "fill-na", false, "NA-fill rows of failed individuals")
	runCmd.Flags().DurationVar(&timeout, "timeout", 0, "global run timeout")
	runCmd.Flags().StringVar(&outFile, "out", "", "write result to file (default stdout)")
	runCmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON instead of CSV")
	runCmd.Flags().BoolVar(&saveRun, "save", false, "persist the run under --data-dir")

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "list models and integrators",
		RunE:  listModels,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		RunE:  listRuns,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a saved run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot one output column of a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&plotCol, "col", "CP", "column to plot")
	plotCmd.Flags().StringVar(&plotID, "id", "", "individual to plot (default first)")

	rootCmd.AddCommand(runCmd, modelsCmd, listCmd, exportCmd, plotCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func buildRunConfig(args []string) (string, map[string]float64, engine.RunConfig, error) {
	if configFile != "" {
		cfg, err := config.Load(configFile)
		if err != nil {
			return "", nil, engine.RunConfig{}, err
		}
		model := cfg.Model
		if len(args) > 0 {
			model = args[0]
		}
		rc, err := cfg.RunConfig()
		return model, cfg.Params, rc, err
	}

	if len(args) == 0 {
		return "", nil, engine.RunConfig{}, fmt.Errorf("model name required (or --config)")
	}

	b := engine.NewBuilder().
		Req(reqList...).
		Request(requestLst...).
		CarryOut(carryList...).
		TScale(tscale).
		ObsOnly(obsonly).
		ObsAug(obsaug).
		Workers(workers).
		Strict(strict).
		FillNA(fillNA).
		Timeout(timeout)

	step := engine.DefaultStepConfig()
	step.Dt = dt
	step.Adaptive = adaptive
	step.Tolerance = tolerance
	b.Step(step)

	b.Design(tgrid.Assignment{
		Descol:  descol,
		Designs: []any{tgrid.New(gridStart, gridEnd, gridDelta)},
	})

	rc, err := b.Build()
	return args[0], nil, rc, err
}

func runSimulation(cmd *cobra.Command, args []string) error {
	model, params, rc, err := buildRunConfig(args)
	if err != nil {
		return err
	}

	registry := engine.NewRegistry()
	m, err := registry.Model(model)
	if err != nil {
		return err
	}
	if len(params) > 0 {
		m = m.WithParams(params)
	}
	newInteg, err := registry.Integrator(integrator)
	if err != nil {
		return err
	}

	var data *dataset.Dataset
	if dataFile != "" {
		if data, err = dataset.LoadCSV(dataFile); err != nil {
			return err
		}
	}
	var idata *dataset.IData
	if idataFile != "" {
		if idata, err = dataset.LoadIDataCSV(idataFile); err != nil {
			return err
		}
	}

	res, err := assemble.Run(context.Background(), m, newInteg, data, idata, rc)
	if err != nil {
		return err
	}

	for _, w := range res.Warnings {
		logger.Warn(w)
	}
	for _, d := range res.Diagnostics {
		if d.Err != nil {
			logger.Warn("individual failed", "id", d.ID, "err", d.Err)
		}
	}

	if saveRun {
		store := storage.New(dataDir)
		if err := store.Init(); err != nil {
			return err
		}
		runID, err := store.Save(model, integrator, res)
		if err != nil {
			return err
		}
		logger.Info("run saved", "id", runID, "rows", res.Table.Len())
	}

	out := os.Stdout
	if outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	if asJSON {
		return res.Table.WriteJSON(out)
	}
	return res.Table.WriteCSV(out)
}

func listModels(cmd *cobra.Command, args []string) error {
	registry := engine.NewRegistry()
	fmt.Println("models:")
	for _, name := range registry.ListModels() {
		fmt.Println("  " + name)
	}
	fmt.Println("integrators:")
	for _, name := range registry.ListIntegrators() {
		fmt.Println("  " + name)
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	store := storage.New(dataDir)
	runs, err := store.List()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tINTEGRATOR\tINDIVIDUALS\tROWS\tFAILURES\tTIME")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			r.ID, r.Model, r.Integrator, r.Individuals, r.Rows, len(r.Failures),
			r.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func exportRun(cmd *cobra.Command, args []string) error {
	store := storage.New(dataDir)
	meta, err := store.Load(args[0])
	if err != nil {
		return err
	}
	tbl, err := store.LoadTable(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return err
	}
	return tbl.WriteJSON(os.Stdout)
}

func plotRun(cmd *cobra.Command, args []string) error {
	store := storage.New(dataDir)
	tbl, err := store.LoadTable(args[0])
	if err != nil {
		return err
	}

	col, err := tbl.Column(plotCol)
	if err != nil {
		return err
	}

	id := plotID
	if id == "" && tbl.Len() > 0 {
		id = tbl.Rows()[0].ID
	}

	var series []float64
	for i, r := range tbl.Rows() {
		if r.ID == id {
			series = append(series, col[i])
		}
	}
	if len(series) == 0 {
		return fmt.Errorf("no rows for individual %q", id)
	}

	fmt.Printf("%s, id=%s\n", plotCol, id)
	fmt.Println(asciigraph.Plot(series, asciigraph.Height(15), asciigraph.Width(70)))
	return nil
}
