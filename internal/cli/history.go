package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/ppiankov/veritas/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	historyLimit int
	historyJSON  bool
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect previous validation runs",
	Long: `Inspect runs recorded in the history database (store.path, default ~/.veritas/history.db).

Every run stores the report of each research iteration, so the way
confidence evolved across iterations can be reviewed afterwards.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openHistory()
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		runs, err := st.ListRuns(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		if historyJSON {
			return writeJSON(os.Stdout, runs)
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded yet.")
			return nil
		}
		printRuns(os.Stdout, runs)
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run and the report of every iteration",
	Long:  `Show a run. The run ID may be abbreviated to any unique prefix.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openHistory()
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		run, err := st.GetRun(cmd.Context(), args[0])
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no run matches %q", args[0])
		}
		if err != nil {
			return err
		}
		reports, err := st.GetReports(cmd.Context(), run.ID)
		if err != nil {
			return err
		}

		if historyJSON {
			return writeJSON(os.Stdout, struct {
				Run     *store.Run              `json:"run"`
				Reports []store.IterationReport `json:"reports"`
			}{run, reports})
		}
		printRun(os.Stdout, run, reports)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)

	historyCmd.PersistentFlags().BoolVar(&historyJSON, "json", false, "print JSON instead of text")
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of runs to list")
}

func openHistory() (*store.SqlStore, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(cfg.Store.Path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("no history database at %s", cfg.Store.Path)
	}
	return store.Open(cfg.Store.Path)
}

func printRuns(w io.Writer, runs []store.Run) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tVERDICT\tCONF\tITER\tHYPOTHESIS")
	for _, r := range runs {
		verdict := string(r.Verdict)
		switch {
		case r.FinishedAt == nil:
			verdict = "running"
		case r.Interrupted:
			verdict += "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.0f\t%d\t%s\n",
			shortID(r.ID), r.StartedAt.Local().Format(time.DateTime), verdict,
			r.Confidence, r.Iterations, truncateText(r.Hypothesis, 60))
	}
	_ = tw.Flush()
}

func printRun(w io.Writer, run *store.Run, reports []store.IterationReport) {
	fmt.Fprintf(w, "Run:         %s\n", run.ID)
	fmt.Fprintf(w, "Hypothesis:  %s\n", run.Hypothesis)
	if run.Context != "" {
		fmt.Fprintf(w, "Context:     %s\n", run.Context)
	}
	fmt.Fprintf(w, "Started:     %s\n", run.StartedAt.Local().Format(time.DateTime))
	if run.FinishedAt != nil {
		fmt.Fprintf(w, "Finished:    %s (%v)\n", run.FinishedAt.Local().Format(time.DateTime),
			run.FinishedAt.Sub(run.StartedAt).Round(time.Second))
		fmt.Fprintf(w, "Verdict:     %s (confidence %.0f/100)\n", run.Verdict, run.Confidence)
	}
	if run.Interrupted {
		fmt.Fprintln(w, "Status:      interrupted")
	}
	fmt.Fprintln(w)

	for _, it := range reports {
		fmt.Fprintf(w, "Iteration %d: %s (confidence %.0f/100, %d findings, %d sources)\n",
			it.Iteration, it.Report.Verdict, it.Report.ConfidenceScore,
			len(it.Report.Findings), len(it.Report.Sources))
		for _, f := range it.Report.Findings {
			fmt.Fprintf(w, "  - %-16s %3.0f  %s\n", f.Verdict, f.ConfidenceScore, truncateText(f.Claim.Text, 70))
		}
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncateText(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
