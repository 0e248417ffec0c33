package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tbanks7/applyflow/internal/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent pipeline runs",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of runs to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	store, err := history.NewRunStore(cfg.HistoryDB)
	if err != nil {
		logger.Error("failed to open run history", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	sums, err := store.Recent(historyLimit)
	if err != nil {
		logger.Error("failed to read run history", "error", err)
		os.Exit(1)
	}
	if len(sums) == 0 {
		fmt.Println("no runs recorded yet")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tDURATION\tFETCHED\tELIGIBLE\tNEW\tOK\tFAILED\tSTAGES\tERROR")
	for _, s := range sums {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%s\t%s\n",
			s.StartedAt.Local().Format("2006-01-02 15:04"),
			s.Duration().Round(time.Second),
			s.Fetched, s.Eligible, s.New, s.Succeeded, s.Failed,
			formatStages(s.FailedByStage), s.Error)
	}
	return w.Flush()
}

// formatStages renders a failure breakdown like "generation:1 resume-compile:2",
// stages sorted for stable output.
func formatStages(stages map[string]int) string {
	if len(stages) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(stages))
	for k := range stages {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s:%d", k, stages[k]))
	}
	return strings.Join(parts, " ")
}
