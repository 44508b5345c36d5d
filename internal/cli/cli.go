/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package cli wires configuration, storage and the floor plan engine into the
// chatters command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"chatters/internal/backend"
	"chatters/internal/config"
	"chatters/internal/crash"
	"chatters/internal/domain"
	"chatters/internal/floorplan"
	"chatters/internal/geom"
	"chatters/internal/layout"
	applog "chatters/internal/log"
	"chatters/internal/storage/postgres"
	"chatters/internal/storage/sqlite"
	"chatters/internal/telemetry"
	"chatters/internal/version"
)

// App holds the state shared by all commands of one invocation.
type App struct {
	cfg     config.AppConfig
	verbose bool
	venue   string
	remote  bool

	active activeLayout
}

// New returns an App with defaults; configuration is loaded when a command runs.
func New() *App {
	return &App{cfg: config.Defaults()}
}

// CrashTarget describes what crash.Recover should rescue. The layout pointer
// follows whatever store the running command has loaded.
func (a *App) CrashTarget() crash.Target {
	return crash.Target{Layout: &a.active}
}

// Execute runs the command line with args (os.Args[1:] when nil).
func (a *App) Execute(ctx context.Context, args []string) error {
	root := a.RootCommand()
	if args != nil {
		root.SetArgs(args)
	}
	return root.ExecuteContext(ctx)
}

// RootCommand builds the command tree.
func (a *App) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "chatters",
		Short:         "Chatters floor plan engine",
		Long:          "Manage venue floor plans: zones, tables, layout exports and the layout API server.",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			a.teardown(cmd.Context())
		},
	}
	root.SetVersionTemplate("chatters {{.Version}}\n")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&a.venue, "venue", "", "venue id (overrides layout.venue_id)")
	root.PersistentFlags().BoolVar(&a.remote, "remote", false, "talk to the layout API at backend.base_url instead of the database")

	root.AddCommand(a.newServeCmd())
	root.AddCommand(a.newMigrateCmd())
	root.AddCommand(a.newVenueCmd())
	root.AddCommand(a.newZoneCmd())
	root.AddCommand(a.newLayoutCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "chatters %s\n", version.String())
			return err
		},
	}
}

func (a *App) setup() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	}
	if v := strings.TrimSpace(a.venue); v != "" {
		cfg.Layout.VenueID = v
	}
	a.cfg = cfg
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	tc := telemetry.FromEnv()
	tc.OptIn = tc.OptIn || cfg.Telemetry.OptIn
	if cfg.Telemetry.EventsURL != "" {
		tc.EventsURL = cfg.Telemetry.EventsURL
	}
	if cfg.Telemetry.CrashURL != "" {
		tc.CrashURL = cfg.Telemetry.CrashURL
	}
	telemetry.NewDefault(tc)
	applog.WithComponent("cli").Debug("config loaded",
		slog.String("driver", cfg.Database.Driver),
		slog.Bool("remote", a.remote),
		slog.String("venue_id", cfg.Layout.VenueID))
	return nil
}

func (a *App) teardown(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	fctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	telemetry.Flush(fctx)
	_ = applog.Close()
}

// openBackend connects to the configured store. Local databases are migrated
// on open.
func (a *App) openBackend(ctx context.Context) (backend.Backend, func() error, error) {
	l := applog.WithComponent("cli")
	if a.remote {
		c := backend.NewClient(a.cfg.Backend.BaseURL, backend.ClientOptions{
			Timeout: a.cfg.Backend.Timeout(),
			Retries: a.cfg.Backend.Retries,
		})
		return c, func() error { return nil }, nil
	}
	switch strings.ToLower(a.cfg.Database.Driver) {
	case "postgres", "postgresql", "pg":
		s, err := postgres.Open(ctx, a.cfg.Database.PostgresDSN())
		if err != nil {
			return nil, nil, err
		}
		applied, err := s.Migrate(ctx)
		if err != nil {
			_ = s.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		if len(applied) > 0 {
			l.Info("migrations applied", slog.Any("names", applied))
		}
		return s, s.Close, nil
	case "sqlite", "":
		s, err := sqlite.Open(ctx, a.cfg.Database.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", a.cfg.Database.Driver)
	}
}

func (a *App) venueID() (string, error) {
	id := strings.TrimSpace(a.cfg.Layout.VenueID)
	if id == "" {
		return "", fmt.Errorf("%w: pass --venue or set layout.venue_id", domain.ErrVenueRequired)
	}
	return id, nil
}

func (a *App) container() geom.Size {
	return geom.Size{W: a.cfg.Layout.ContainerWidth, H: a.cfg.Layout.ContainerHeight}
}

func (a *App) storeOptions() floorplan.Options {
	lc := a.cfg.Layout
	return floorplan.Options{
		Snap:       layout.SnapOptions{Distance: lc.SnapDistance, Policy: layout.ParseSnapPolicy(lc.SnapPolicy)},
		Resize:     layout.ResizeOptions{Grid: lc.Grid, MinSize: lc.MinTableSize},
		ZoomStep:   lc.ZoomStep,
		FitPadding: lc.FitPadding,
	}
}

// session is an open backend plus a loaded floor plan of the selected venue.
type session struct {
	be    backend.Backend
	venue domain.Venue
	store *floorplan.Store
	close func() error
}

func (a *App) openSession(ctx context.Context) (*session, error) {
	id, err := a.venueID()
	if err != nil {
		return nil, err
	}
	be, closeFn, err := a.openBackend(ctx)
	if err != nil {
		return nil, err
	}
	fail := func(err error) (*session, error) {
		_ = closeFn()
		return nil, err
	}
	v, err := be.GetVenue(ctx, id)
	if err != nil {
		return fail(fmt.Errorf("venue %s: %w", id, err))
	}
	st, err := floorplan.New(be, v.ID, a.container(), a.storeOptions())
	if err != nil {
		return fail(err)
	}
	if err := st.Load(ctx); err != nil {
		return fail(err)
	}
	a.active.set(st)
	return &session{be: be, venue: v, store: st, close: func() error {
		a.active.set(nil)
		return closeFn()
	}}, nil
}

// activeLayout lets crash recovery reach the store of the running command.
type activeLayout struct {
	mu sync.Mutex
	s  *floorplan.Store
}

func (l *activeLayout) set(s *floorplan.Store) {
	l.mu.Lock()
	l.s = s
	l.mu.Unlock()
}

func (l *activeLayout) get() *floorplan.Store {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.s
}

func (l *activeLayout) HasUnsavedChanges() bool {
	s := l.get()
	return s != nil && s.HasUnsavedChanges()
}

func (l *activeLayout) Dump() ([]byte, error) {
	s := l.get()
	if s == nil {
		return nil, errors.New("no layout loaded")
	}
	return s.Dump()
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
