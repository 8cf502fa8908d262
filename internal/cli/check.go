package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ppiankov/veritas/internal/model"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// errNoReport is returned when a run ends with the ERROR verdict
var errNoReport = errors.New("no report could be produced")

var (
	hypothesisContext string
	outJSON           string
	outMD             string
	maxIterations     int
	threshold         float64
	runTimeout        time.Duration
	replayFile        string
	metricsAddr       string
	detailedConflicts bool
	noCache           bool
	noHistory         bool
	noFooter          bool
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <hypothesis>",
	Short: "Validate a single hypothesis against public evidence",
	Long: `Check validates one hypothesis:
- Ask whether the hypothesis is ambiguous and refine it when possible
- Break it into atomic claims with supporting and refuting search queries
- Search for supporting, refuting and background sources for every claim
- Judge each source and resolve conflicts between them
- Synthesize a report, and research again while confidence is low

Example:
  veritas check "Mars has liquid water on its surface"
  veritas check "Remote work increases productivity" --context "software teams, 2020-2024"
  veritas check "Coffee reduces the risk of type 2 diabetes" --json report.json --md report.md
  veritas check "..." --replay fixtures/search.yaml --max-iterations 1`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&hypothesisContext, "context", "", "optional framing for the hypothesis")

	// Output flags
	checkCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (optional)")
	checkCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")

	addRunFlags(checkCmd)
	checkCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during the run (e.g. :9090)")
}

// addRunFlags registers the research flags shared by check and batch
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "maximum research iterations (default from config)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "confidence needed to stop iterating, 0-100 (default from config)")
	cmd.Flags().DurationVar(&runTimeout, "timeout", 0, "timeout for a single run (default from config)")
	cmd.Flags().StringVar(&replayFile, "replay", "", "answer searches from a recorded YAML file instead of Exa")
	cmd.Flags().BoolVar(&detailedConflicts, "detailed-conflicts", false, "attach a structured conflict analysis to every finding")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the URL cache")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "do not record the run in the history database")
	cmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
}

// applyRunFlags overrides cfg with the run flags the user set
func applyRunFlags(cmd *cobra.Command, cfg *model.Config) {
	flags := cmd.Flags()
	if flags.Changed("max-iterations") {
		cfg.Research.MaxIterations = maxIterations
	}
	if flags.Changed("threshold") {
		cfg.Research.ConfidenceThreshold = threshold
	}
	if flags.Changed("timeout") {
		cfg.Research.RunTimeout = runTimeout
	}
	if replayFile != "" {
		cfg.Search.Provider = "replay"
		cfg.Search.ReplayFile = expandHome(replayFile)
	}
	if detailedConflicts {
		cfg.Research.DetailedConflicts = true
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if noHistory {
		cfg.Store.Enabled = false
	}
	if noFooter {
		cfg.Output.IncludeFooter = false
	}
}

// setup loads the configuration, applies flags and builds the logger
func setup(cmd *cobra.Command) (*model.Config, *zap.Logger, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}
	applyRunFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration:\n%w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	h := model.Hypothesis{Text: strings.TrimSpace(args[0]), Context: strings.TrimSpace(hypothesisContext)}
	if h.Text == "" {
		return errors.New("hypothesis must not be empty")
	}

	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("close failed", zap.Error(err))
		}
	}()

	if metricsAddr != "" {
		shutdown := serveMetrics(metricsAddr, logger)
		defer shutdown()
	}

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Validating: %s\n", h.Text)
		fmt.Fprintf(os.Stderr, "Max iterations: %d, threshold: %.0f\n", cfg.Research.MaxIterations, cfg.Research.ConfidenceThreshold)
		fmt.Fprintln(os.Stderr)
	}

	res, err := a.engine.Run(ctx, h)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	if outJSON != "" {
		if err := a.renderer.RenderJSON(&res.Report, outJSON); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ JSON report written to: %s\n", outJSON)
	}
	if outMD != "" {
		if err := a.renderer.RenderMarkdown(&res.Report, outMD); err != nil {
			return fmt.Errorf("render Markdown: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Markdown report written to: %s\n", outMD)
	}

	a.renderer.RenderSummary(os.Stdout, res)
	if a.history != nil {
		fmt.Fprintf(os.Stderr, "Run ID: %s (veritas history show %s)\n", res.RunID, shortID(res.RunID))
	}

	if res.Report.Verdict == model.VerdictError {
		return errNoReport
	}
	return nil
}

// serveMetrics exposes the Prometheus registry until the returned func is called
func serveMetrics(addr string, logger *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server failed", zap.String("addr", addr), zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
