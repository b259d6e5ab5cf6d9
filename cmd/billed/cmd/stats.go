package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

var statsEmail string

// statsCmd represents the stats command.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Display submission statistics",
	Long: `Display statistics about bill submissions.

Shows:
- Total number of submissions
- Bills created and updated
- Failed submissions
- Last submission timestamp

With --email the employee's submissions are listed as well.

Example:
  billed stats
  billed stats --email employee@test.tld`,
	Run: runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsEmail, "email", "", "list this employee's submissions")
}

func runStats(cmd *cobra.Command, args []string) {
	slog.Info("Loading configuration")

	cfg := loadConfig()
	exitOnError(cfg.Validate([]string{"history", "dbPath"}), "invalid configuration")

	conn, journal := openJournal(cfg)
	defer conn.Close()

	stats, err := journal.GetStats()
	exitOnError(err, "failed to get statistics")

	fmt.Println("\n=== Submission Statistics ===")
	fmt.Printf("Total submissions: %d\n", stats.Total)
	fmt.Printf("Bills created:     %d\n", stats.Created)
	fmt.Printf("Bills updated:     %d\n", stats.Updated)
	fmt.Printf("Failed:            %d\n", stats.Failed)

	if stats.LastSubmission.Valid {
		fmt.Printf("Last submission:   %s\n", stats.LastSubmission.String)
	} else {
		fmt.Printf("Last submission:   (never)\n")
	}

	if statsEmail != "" {
		list, err := journal.ListByEmail(statsEmail)
		exitOnError(err, "failed to list submissions")

		fmt.Printf("\n=== Submissions of %s ===\n", statsEmail)
		for _, s := range list {
			line := fmt.Sprintf("%s  %-6s  %-7s  %s  %s  %s €",
				s.SubmittedAt.Format("2006-01-02 15:04"), s.Operation, s.Outcome, s.BillDate, s.BillName, s.Amount)
			if s.ErrorMessage != "" {
				line += "  (" + s.ErrorMessage + ")"
			}
			fmt.Println(line)
		}
	}

	fmt.Println()

	slog.Info("Statistics displayed successfully")
}
