// Package cli is the officectl command tree. Every command runs against the
// same engine the portal service uses; the remembered credential is the only
// state kept between invocations.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wolfman30/office-portal/internal/app/bootstrap"
	appconfig "github.com/wolfman30/office-portal/internal/config"
	"github.com/wolfman30/office-portal/internal/csvexport"
	"github.com/wolfman30/office-portal/internal/dashboard"
	"github.com/wolfman30/office-portal/internal/session"
	"github.com/wolfman30/office-portal/pkg/logging"
)

// ErrNotSignedIn is returned by commands that need a remembered session.
var ErrNotSignedIn = errors.New("not signed in: run `officectl login` first")

// Options wires the command tree. Config is required; the rest default.
type Options struct {
	Config *appconfig.Config
	// Err receives logs. Defaults to os.Stderr.
	Err io.Writer
	// Store overrides the configured credential store.
	Store session.CredentialStore
	// S3 builds the archive client when EXPORT_S3_BUCKET is set.
	S3 func(ctx context.Context) (csvexport.S3API, error)
	// Dynamo builds the client for CREDENTIAL_STORE=dynamodb.
	Dynamo     func(ctx context.Context) (session.DynamoAPI, error)
	HTTPClient *http.Client
	Clock      func() time.Time
	Location   *time.Location
}

type app struct {
	opts     Options
	logLevel string

	logger     *logging.Logger
	engine     *bootstrap.Engine
	closeStore func() error
}

// NewRootCmd builds officectl.
func NewRootCmd(opts Options) *cobra.Command {
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	a := &app{opts: opts, closeStore: func() error { return nil }}

	cmd := &cobra.Command{
		Use:   "officectl",
		Short: "Office booking dashboard from the command line",
		Long: `officectl signs in to the office booking API and works with the same
booking cache, filters and exports as the portal.

Examples:
  officectl login --user frontdesk
  officectl bookings --range 7 --query cleaning --sort newest
  officectl series --from 2026-01-01 --to 2026-01-31
  officectl export --archive
  officectl send --booking CNF-1 --body "See you tomorrow"`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.closeStore()
		},
	}
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(newLoginCmd(a))
	cmd.AddCommand(newLogoutCmd(a))
	cmd.AddCommand(newBookingsCmd(a))
	cmd.AddCommand(newSeriesCmd(a))
	cmd.AddCommand(newBreakdownCmd(a))
	cmd.AddCommand(newExportCmd(a))
	cmd.AddCommand(newDeleteCmd(a))
	cmd.AddCommand(newSendCmd(a))
	cmd.AddCommand(newThreadCmd(a))
	return cmd
}

func (a *app) init(ctx context.Context) error {
	cfg := a.opts.Config
	if cfg == nil {
		return errors.New("officectl: config is required")
	}
	level := cfg.LogLevel
	if a.logLevel != "" {
		level = a.logLevel
	}
	a.logger = logging.NewWithWriter(level, a.opts.Err)

	store := a.opts.Store
	if store == nil {
		var dynamo session.DynamoAPI
		if cfg.CredentialStore == "dynamodb" && a.opts.Dynamo != nil {
			client, err := a.opts.Dynamo(ctx)
			if err != nil {
				return fmt.Errorf("officectl: dynamodb client: %w", err)
			}
			dynamo = client
		}
		built, closeFn, err := bootstrap.BuildCredentialStore(ctx, cfg, a.logger, dynamo)
		if err != nil {
			return err
		}
		store, a.closeStore = built, closeFn
	}

	engine, err := bootstrap.BuildEngine(cfg, store, a.logger, nil, bootstrap.EngineOptions{
		HTTPClient: a.opts.HTTPClient,
		Clock:      a.opts.Clock,
		Location:   a.opts.Location,
	})
	if err != nil {
		return err
	}
	a.engine = engine
	return nil
}

// authorize restores the remembered session and waits for verification.
func (a *app) authorize(ctx context.Context) error {
	verified, err := a.engine.Sessions.Restore(ctx)
	if errors.Is(err, session.ErrNoStoredCredential) {
		return ErrNotSignedIn
	}
	if err != nil {
		return fmt.Errorf("load remembered session: %w", err)
	}
	if err := <-verified; err != nil {
		return err
	}
	return nil
}

// load authorizes and fills the booking cache for the flagged range.
func (a *app) load(ctx context.Context, rf *rangeFlags) error {
	if err := a.authorize(ctx); err != nil {
		return err
	}
	rng, err := rf.resolve(a.engine.Board)
	if err != nil {
		return err
	}
	return a.engine.Board.Fetch(ctx, rng)
}

type rangeFlags struct {
	from  string
	to    string
	quick string
}

func (rf *rangeFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&rf.from, "from", "", "First booked date, YYYY-MM-DD")
	cmd.Flags().StringVar(&rf.to, "to", "", "Last booked date, YYYY-MM-DD")
	rf.bindQuick(cmd)
}

// bindQuick registers only --range, for commands that use --to for something else.
func (rf *rangeFlags) bindQuick(cmd *cobra.Command) {
	cmd.Flags().StringVar(&rf.quick, "range", "", `Quick range: "today", "mtd" or a number of trailing days`)
}

func (rf *rangeFlags) resolve(board *dashboard.Dashboard) (dashboard.DateRange, error) {
	switch {
	case rf.quick != "":
		if rf.from != "" || rf.to != "" {
			return dashboard.DateRange{}, errors.New("--range cannot be combined with --from/--to")
		}
		return dashboard.QuickRange(rf.quick, board.Today())
	case rf.from != "" && rf.to != "":
		return dashboard.ParseDateRange(rf.from, rf.to)
	case rf.from != "" || rf.to != "":
		return dashboard.DateRange{}, errors.New("--from and --to must be given together")
	default:
		return board.DefaultRange(), nil
	}
}

type viewFlags struct {
	query string
	sort  string
}

func (vf *viewFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&vf.query, "query", "q", "", "Case-insensitive search over name, status, type, insurance and confirmation id")
	cmd.Flags().StringVar(&vf.sort, "sort", "cache", `Row order: "cache" or "newest"`)
}

func (vf *viewFlags) apply(board *dashboard.Dashboard) {
	board.SetView(vf.query, dashboard.ParseSortMode(vf.sort))
}
