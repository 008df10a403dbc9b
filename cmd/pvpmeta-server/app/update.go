package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pvpmeta/pvpmeta-server/database"
	pvpapp "github.com/pvpmeta/pvpmeta-server/internal/app"
	"github.com/pvpmeta/pvpmeta-server/internal/db"
	"github.com/pvpmeta/pvpmeta-server/internal/events"
	"github.com/pvpmeta/pvpmeta-server/internal/source"
	"github.com/pvpmeta/pvpmeta-server/internal/status"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update the store once and exit",
	Long: `Fetch every active source, or only the one named by --source, and apply it to the
store in priority order. Change detection is skipped. Must not run while a server
holds the same SQLite database.`,
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().String("source", "", "Only update the source with this ID, even if inactive")
	addConfigFlag(updateCmd, false)
}

func runUpdate(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	sourceID, err := cmd.Flags().GetString("source")
	if err != nil {
		return fmt.Errorf("failed to get source flag: %w", err)
	}

	conn, err := db.Open(ctx, cfg.Database, db.WithDebug(viper.GetBool("debug")))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer closeConnection(conn)

	if err := database.MigrateUp(ctx, conn.DB); err != nil {
		return err
	}

	components, err := pvpapp.NewComponents(ctx, cfg, conn)
	if err != nil {
		return err
	}

	tasks, err := runOnce(ctx, components, sourceID)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No active sources")
		return nil
	}

	if err := printTasks(cmd.OutOrStdout(), tasks); err != nil {
		return err
	}

	failed := 0
	for _, t := range tasks {
		if t.Status != status.TaskStatusCompleted {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d updates failed", failed, len(tasks))
	}
	return nil
}

// runOnce enqueues the targets as manual tasks and drains the queue in the
// calling goroutine. It returns the finished tasks in processing order.
func runOnce(ctx context.Context, c *pvpapp.Components, sourceID string) ([]*status.UpdateTask, error) {
	var targets []*source.Descriptor
	if sourceID != "" {
		src, ok := c.Registry.Get(sourceID)
		if !ok {
			return nil, fmt.Errorf("unknown source %q", sourceID)
		}
		targets = append(targets, src)
	} else {
		targets = c.Registry.Active()
	}

	var finished []*status.UpdateTask
	collect := func(_ context.Context, e events.Event) error {
		finished = append(finished, e.Task)
		return nil
	}
	defer c.Events.Subscribe(events.UpdateComplete, collect)()
	defer c.Events.Subscribe(events.UpdateError, collect)()

	for _, src := range targets {
		if _, err := c.Queue.Enqueue(src, status.TriggerManual); err != nil {
			return nil, err
		}
	}
	c.Processor.Drain(ctx)

	if err := ctx.Err(); err != nil {
		return finished, fmt.Errorf("update interrupted: %w", err)
	}
	return finished, nil
}

func printTasks(w io.Writer, tasks []*status.UpdateTask) error {
	table := tablewriter.NewWriter(w)
	table.Header("Source", "Kind", "Status", "Added", "Modified", "Skipped", "Marker", "Error")
	for _, t := range tasks {
		err := table.Append([]string{
			t.SourceID,
			t.Kind,
			string(t.Status),
			strconv.Itoa(t.Added),
			strconv.Itoa(t.Modified),
			strconv.Itoa(t.Skipped),
			shortMarker(t.VersionMarker),
			t.ErrorMessage,
		})
		if err != nil {
			return err
		}
	}
	return table.Render()
}

// shortMarker trims content hashes and commit IDs for display
func shortMarker(marker string) string {
	const maxLen = 16
	if len(marker) <= maxLen {
		return marker
	}
	return marker[:maxLen]
}
