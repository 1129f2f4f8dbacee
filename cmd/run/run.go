package run

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/cheggaaa/pb.v1"

	"github.com/seatkit/paracousti/internal/buildinfo"
	"github.com/seatkit/paracousti/internal/conf"
	"github.com/seatkit/paracousti/internal/logger"
	"github.com/seatkit/paracousti/internal/observability"
	"github.com/seatkit/paracousti/internal/output"
	"github.com/seatkit/paracousti/internal/report"
	"github.com/seatkit/paracousti/internal/stressor"
	"github.com/seatkit/paracousti/internal/telemetry"
)

// GetLogger returns the run command logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("run")
}

// Command creates the run command, which aggregates a set of model runs.
func Command(build buildinfo.BuildInfo) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Aggregate scenario runs into stressor layers",
		Long: `Combine the with-device and baseline ParAcousti runs of every boundary
condition into probability-weighted stressor, exceedance and species layers,
written as NetCDF rasters with an optional binned CSV report.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configFile, err := cmd.Flags().GetString("config")
			if err != nil {
				return err
			}
			settings, err := conf.Load(configFile)
			if err != nil {
				return err
			}

			closeLog, err := setupLogging(settings.Logging)
			if err != nil {
				return err
			}
			defer closeLog()

			_, err = Execute(cmd.Context(), settings, build, cmd.ErrOrStderr())
			return err
		},
	}

	if err := setupFlags(cmd); err != nil {
		panic(err)
	}
	return cmd
}

// flagBindings maps run flags onto configuration keys.
var flagBindings = map[string]string{
	"device-dir":    "input.device_dir",
	"baseline-dir":  "input.baseline_dir",
	"probabilities": "input.probabilities",
	"species-dir":   "input.species_dir",
	"risk-layer":    "input.risk_layer",
	"metric":        "analysis.metric",
	"weighting":     "analysis.weighting",
	"threshold":     "analysis.threshold",
	"depth-policy":  "analysis.depth_policy",
	"species-km2":   "analysis.species_resolution_km2",
	"hours":         "analysis.single_condition_hours",
	"workers":       "analysis.workers",
	"output":        "output.dir",
	"crs":           "output.crs",
	"binned-csv":    "output.binned_csv",
	"bins":          "output.bins",
	"metrics-file":  "output.metrics_file",
	"telemetry":     "telemetry.enabled",
	"telemetry-dsn": "telemetry.dsn",
	"log-file":      "logging.file",
}

func setupFlags(cmd *cobra.Command) error {
	f := cmd.Flags()
	f.String("device-dir", "", "Directory of with-device NetCDF runs")
	f.String("baseline-dir", "", "Directory of baseline NetCDF runs (default: zero baseline)")
	f.String("probabilities", "", "Boundary condition probability CSV")
	f.String("species-dir", "", "Directory of species percent and density files")
	f.String("risk-layer", "", "Secondary constraint raster")
	f.String("metric", conf.DefaultMetric, "Metric variable, e.g. SPL or SEL")
	f.String("weighting", conf.DefaultWeighting, "Weighting prefix, None for unweighted")
	f.Float64("threshold", conf.DefaultThreshold, "Threshold in dB")
	f.String("depth-policy", conf.DefaultDepthPolicy, "Depth policy: depth_maximum, depth_average, bottom_bin, top_bin")
	f.Float64("species-km2", 0, "Species grid cell area in km², 0 disables area scaling")
	f.Float64("hours", conf.DefaultSingleConditionHours, "Exposure hours for per-scenario SEL results")
	f.Int("workers", 0, "Parallel scenario readers, 0 uses all CPUs")
	f.StringP("output", "o", conf.DefaultOutputDir, "Output directory")
	f.Int("crs", conf.DefaultCRS, "EPSG code of the output coordinates")
	f.Bool("binned-csv", false, "Also write binned area CSV reports")
	f.Int("bins", conf.DefaultBins, "Number of bins in the CSV reports")
	f.String("metrics-file", "", "Write Prometheus metrics to this textfile")
	f.Bool("telemetry", false, "Report errors to Sentry")
	f.String("telemetry-dsn", "", "Sentry DSN")
	f.String("log-file", "", "Also write JSON logs to this file")

	for flag, key := range flagBindings {
		if err := viper.BindPFlag(key, f.Lookup(flag)); err != nil {
			return err
		}
	}
	return nil
}

// setupLogging installs the global logger described by settings.
func setupLogging(s conf.LoggingSettings) (func(), error) {
	cfg := &logger.LoggingConfig{
		DefaultLevel: s.Level,
		Console:      &logger.ConsoleOutput{Enabled: true, Level: s.Level},
	}
	if s.File != "" {
		cfg.FileOutput = &logger.FileOutput{Enabled: true, Path: s.File, Level: s.Level}
	}
	cl, err := logger.NewCentralLogger(cfg)
	if err != nil {
		return nil, err
	}
	logger.SetGlobal(cl)
	return func() { _ = cl.Close() }, nil
}

// Execute performs one run with loaded settings and returns the manifest path.
// Progress is drawn on progressOut.
func Execute(ctx context.Context, settings *conf.Settings, build buildinfo.BuildInfo, progressOut io.Writer) (manifest string, err error) {
	closeTelemetry, err := telemetry.Init(settings.Telemetry, build.Version())
	if err != nil {
		return "", err
	}
	defer closeTelemetry()

	runID := uuid.NewString()
	ctx = logger.WithTraceID(ctx, runID)
	log := GetLogger().WithContext(ctx)

	m, err := observability.NewMetrics()
	if err != nil {
		return "", err
	}

	scenarios := 0
	defer func() {
		m.Pipeline.RecordRunFinished(time.Now(), scenarios, err == nil)
		if settings.Output.MetricsFile == "" {
			return
		}
		if werr := m.WriteTextfile(settings.Output.MetricsFile); werr != nil {
			log.Warn("failed to write metrics textfile", logger.Error(werr))
		}
	}()

	bar := newProgress(progressOut)
	defer bar.finish()

	cfg := stressor.ConfigFromSettings(settings)
	log.Info("run started",
		logger.String("version", build.Version()),
		logger.String("device_dir", cfg.DeviceDir),
		logger.String("metric", cfg.Metric),
		logger.String("weighting", cfg.Weighting),
		logger.Float64("threshold", cfg.Threshold))

	start := time.Now()
	res, err := stressor.New(cfg,
		stressor.WithRecorder(m.Pipeline),
		stressor.WithProgress(bar.update),
	).Run(ctx)
	if err != nil {
		return "", err
	}
	bar.finish()
	scenarios = len(res.PerScenario)

	writer, err := output.NewNetCDFWriter(settings.Output.Dir, settings.Output.CRS, output.WithRecorder(m.Output))
	if err != nil {
		return "", err
	}
	if err := writer.WriteResult(res); err != nil {
		return "", err
	}

	var reports []output.File
	if settings.Output.BinnedCSV {
		reports, err = report.NewWriter(settings.Output.Dir, settings.Output.Bins, m.Output).WriteResult(res)
		if err != nil {
			return "", err
		}
	}

	ids := make([]string, 0, len(res.PerScenario))
	for _, sc := range res.PerScenario {
		ids = append(ids, sc.ID)
	}
	info := output.RunInfo{
		RunID:       runID,
		Finished:    time.Now().UTC(),
		Metric:      cfg.Metric,
		Weighting:   cfg.Weighting,
		Threshold:   cfg.Threshold,
		DepthPolicy: cfg.DepthPolicy.String(),
		Scenarios:   ids,
	}
	manifest, err = writer.WriteManifest(info, output.GeometryOf(res.Grid, settings.Output.CRS), reports...)
	if err != nil {
		return "", err
	}

	log.Info("run finished",
		logger.Int("scenarios", scenarios),
		logger.Int("files", len(writer.Files())+len(reports)),
		logger.Duration("elapsed", time.Since(start)),
		logger.String("manifest", manifest))
	return manifest, nil
}

// progress draws a bar once the scenario count is known.
type progress struct {
	out     io.Writer
	bar     *pb.ProgressBar
	once    sync.Once
	started atomic.Bool
	done    sync.Once
}

func newProgress(out io.Writer) *progress {
	return &progress{out: out}
}

// update is safe for concurrent use.
func (p *progress) update(_, total int) {
	p.once.Do(func() {
		p.bar = pb.New(total).Prefix("scenarios ")
		p.bar.Output = p.out
		p.bar.ShowSpeed = false
		p.bar.Start()
		p.started.Store(true)
	})
	p.bar.Increment()
}

func (p *progress) finish() {
	if !p.started.Load() {
		return
	}
	p.done.Do(p.bar.Finish)
}
