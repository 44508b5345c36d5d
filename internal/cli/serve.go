/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"chatters/internal/backend"
	"chatters/internal/domain"
	applog "chatters/internal/log"
	"chatters/internal/storage/postgres"
	"chatters/internal/storage/sqlite"
)

func (a *App) newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the layout HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.remote {
				return fmt.Errorf("serve needs a database, not --remote")
			}
			ctx := cmd.Context()
			be, closeFn, err := a.openBackend(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = closeFn() }()
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			srv := backend.NewServer(be, backend.ServerOptions{
				Logger:          applog.WithComponent("api"),
				ReadTimeout:     a.cfg.Server.ReadTimeout(),
				ShutdownTimeout: a.cfg.Server.ShutdownTimeout(),
			})
			applog.WithComponent("cli").Info("serving", slog.String("addr", addr), slog.String("driver", a.cfg.Database.Driver))
			return srv.ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")
	return cmd
}

func (a *App) newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			switch strings.ToLower(a.cfg.Database.Driver) {
			case "postgres", "postgresql", "pg":
				s, err := postgres.Open(ctx, a.cfg.Database.PostgresDSN())
				if err != nil {
					return err
				}
				defer s.Close()
				applied, err := s.Migrate(ctx)
				if err != nil {
					return err
				}
				if len(applied) == 0 {
					printf(out, "database is up to date\n")
				}
				for _, name := range applied {
					printf(out, "applied %s\n", name)
				}
				return nil
			default:
				s, err := sqlite.Open(ctx, a.cfg.Database.SQLitePath)
				if err != nil {
					return err
				}
				defer s.Close()
				v, err := s.SchemaVersion(ctx)
				if err != nil {
					return err
				}
				printf(out, "sqlite schema version %d at %s\n", v, s.Path())
				return nil
			}
		},
	}
}

func (a *App) newVenueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "venue",
		Short: "Manage venues",
	}
	var id string
	ensure := &cobra.Command{
		Use:   "ensure NAME",
		Short: "Create a venue or rename an existing one and print its id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			be, closeFn, err := a.openBackend(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = closeFn() }()
			v, err := be.EnsureVenue(ctx, domain.Venue{ID: id, Name: strings.TrimSpace(args[0])})
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%s\n", v.ID)
			return nil
		},
	}
	ensure.Flags().StringVar(&id, "id", "", "venue id to create or rename")
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the selected venue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			vid, err := a.venueID()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			be, closeFn, err := a.openBackend(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = closeFn() }()
			v, err := be.GetVenue(ctx, vid)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%s\t%s\n", v.ID, v.Name)
			return nil
		},
	}
	cmd.AddCommand(ensure, show)
	return cmd
}
