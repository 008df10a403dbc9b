package app

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/pvpmeta/pvpmeta-server/internal/audit"
	"github.com/pvpmeta/pvpmeta-server/internal/db"
	"github.com/pvpmeta/pvpmeta-server/internal/status"
	"github.com/pvpmeta/pvpmeta-server/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print recent update outcomes",
	Long: `Print the newest audit records, across all sources or for the source named by
--source. Safe to run next to a serving process.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().String("source", "", "Only show records of this source")
	historyCmd.Flags().Int("limit", audit.DefaultLimit, "Maximum number of records")
	addConfigFlag(historyCmd, false)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	ctx := contextOf(cmd)

	_, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	sourceID, err := cmd.Flags().GetString("source")
	if err != nil {
		return fmt.Errorf("failed to get source flag: %w", err)
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return fmt.Errorf("failed to get limit flag: %w", err)
	}

	conn, err := db.Open(ctx, cfg.Database, db.WithoutLock())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer closeConnection(conn)

	log := audit.NewLog(store.New(conn.DB))

	var records []*status.AuditRecord
	if sourceID != "" {
		records, err = log.History(ctx, sourceID, limit)
	} else {
		records, err = log.Recent(ctx, limit)
	}
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No updates recorded")
		return nil
	}
	return printRecords(cmd.OutOrStdout(), records)
}

func printRecords(w io.Writer, records []*status.AuditRecord) error {
	table := tablewriter.NewWriter(w)
	table.Header("Started", "Source", "Type", "Trigger", "Status", "Added", "Modified", "Skipped", "Duration", "Marker")
	for _, r := range records {
		err := table.Append([]string{
			r.StartedAt.UTC().Format(time.RFC3339),
			r.SourceID,
			r.UpdateType,
			string(r.Trigger),
			string(r.Status),
			strconv.Itoa(r.Added),
			strconv.Itoa(r.Modified),
			strconv.Itoa(r.Skipped),
			(time.Duration(r.DurationMS) * time.Millisecond).String(),
			shortMarker(r.VersionMarker),
		})
		if err != nil {
			return err
		}
	}
	return table.Render()
}
