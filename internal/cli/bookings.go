package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wolfman30/office-portal/internal/app/bootstrap"
	"github.com/wolfman30/office-portal/internal/csvexport"
	"github.com/wolfman30/office-portal/internal/dashboard"
)

func newBookingsCmd(a *app) *cobra.Command {
	var (
		rf rangeFlags
		vf viewFlags
	)
	cmd := &cobra.Command{
		Use:   "bookings",
		Short: "List online bookings for a date range",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.load(ctx, &rf); err != nil {
				return err
			}
			vf.apply(a.engine.Board)
			renderBookings(cmd.OutOrStdout(), a.engine.Board.Table())
			return nil
		},
	}
	rf.bind(cmd)
	vf.bind(cmd)
	return cmd
}

func newSeriesCmd(a *app) *cobra.Command {
	var rf rangeFlags
	cmd := &cobra.Command{
		Use:   "series",
		Short: "Bookings made per day, zero-filled",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd.Context(), &rf); err != nil {
				return err
			}
			renderSeries(cmd.OutOrStdout(), a.engine.Board.Series())
			return nil
		},
	}
	rf.bind(cmd)
	return cmd
}

func newBreakdownCmd(a *app) *cobra.Command {
	var rf rangeFlags
	cmd := &cobra.Command{
		Use:   "breakdown",
		Short: "New versus existing patients for a date range",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd.Context(), &rf); err != nil {
				return err
			}
			renderBreakdown(cmd.OutOrStdout(), a.engine.Board.Range(), a.engine.Board.Breakdown())
			return nil
		},
	}
	rf.bind(cmd)
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var (
		rf      rangeFlags
		vf      viewFlags
		dir     string
		archive bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the filtered bookings as CSV",
		Long: `Write the bookings in the current view as CSV.

By default the file lands in --dir (EXPORT_DIR). With --archive it goes to
the configured archive, which is S3 when EXPORT_S3_BUCKET is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.load(ctx, &rf); err != nil {
				return err
			}
			vf.apply(a.engine.Board)
			name, data := a.engine.Board.ExportCSV()

			if dir == "" {
				dir = a.opts.Config.ExportDir
			}
			var sink csvexport.Sink = csvexport.NewFileSink(dir)
			if archive {
				var err error
				if sink, err = a.archiveSink(cmd); err != nil {
					return err
				}
			}
			location, err := sink.Put(ctx, name, data)
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d bookings to %s\n", len(a.engine.Board.Visible()), location)
			return nil
		},
	}
	rf.bind(cmd)
	vf.bind(cmd)
	cmd.Flags().StringVar(&dir, "dir", "", "Directory for the CSV file (default EXPORT_DIR)")
	cmd.Flags().BoolVar(&archive, "archive", false, "Send the file to the configured archive instead of --dir")
	return cmd
}

func (a *app) archiveSink(cmd *cobra.Command) (csvexport.Sink, error) {
	var client csvexport.S3API
	if strings.TrimSpace(a.opts.Config.ExportS3Bucket) != "" && a.opts.S3 != nil {
		built, err := a.opts.S3(cmd.Context())
		if err != nil {
			return nil, fmt.Errorf("export: s3 client: %w", err)
		}
		client = built
	}
	return bootstrap.BuildExportSink(a.opts.Config, client, a.logger)
}

func newDeleteCmd(a *app) *cobra.Command {
	var (
		rf  rangeFlags
		ids []string
		yes bool
	)
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Permanently delete bookings by confirmation id",
		Long: `Permanently delete bookings by confirmation id.

Each id must be a booking in the fetched range. Nothing is deleted
without --yes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids = append(ids, args...)
			if len(ids) == 0 {
				return errors.New("at least one --id is required")
			}
			ctx := cmd.Context()
			if err := a.load(ctx, &rf); err != nil {
				return err
			}
			board := a.engine.Board
			board.SetView("", dashboard.SortCacheOrder)
			for _, id := range ids {
				if board.IsSelected(id) {
					continue
				}
				if _, err := board.Toggle(id); err != nil {
					return fmt.Errorf("%s: %w", id, err)
				}
			}
			selected := board.SelectedIDs()
			if !yes {
				fmt.Fprintf(cmd.OutOrStdout(), "Would permanently delete %d bookings: %s\n", len(selected), strings.Join(selected, ", "))
				return errors.New("refusing to delete without --yes")
			}
			n, err := board.DeleteSelected(ctx)
			if n == 0 && err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d bookings\n", n)
			if err != nil {
				a.logger.Warn("refresh after delete failed", "error", err)
			}
			return nil
		},
	}
	rf.bind(cmd)
	cmd.Flags().StringSliceVar(&ids, "id", nil, "Confirmation id to delete (repeatable)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm the permanent deletion")
	return cmd
}
