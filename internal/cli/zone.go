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
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"chatters/internal/domain"
	"chatters/internal/floorplan"
)

// findZone resolves a zone by id or, failing that, by case-insensitive name.
func findZone(st *floorplan.Store, ref string) (domain.Zone, error) {
	ref = strings.TrimSpace(ref)
	zones := st.Zones()
	for _, z := range zones {
		if z.ID == ref {
			return z, nil
		}
	}
	for _, z := range zones {
		if strings.EqualFold(z.Name, ref) {
			return z, nil
		}
	}
	return domain.Zone{}, fmt.Errorf("zone %q: %w", ref, domain.ErrZoneNotFound)
}

// withSession opens a session for the selected venue, runs fn and closes it.
func (a *App) withSession(ctx context.Context, fn func(*session) error) error {
	s, err := a.openSession(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = s.close() }()
	return fn(s)
}

func (a *App) newZoneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "zone",
		Short: "Manage the zones of a venue",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List zones in display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withSession(cmd.Context(), func(s *session) error {
				counts := map[string]int{}
				for _, t := range s.store.Tables() {
					counts[t.ZoneID]++
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				printf(tw, "ORDER\tID\tNAME\tTABLES\n")
				for _, z := range s.store.Zones() {
					printf(tw, "%d\t%s\t%s\t%d\n", z.Order, z.ID, z.Name, counts[z.ID])
				}
				return tw.Flush()
			})
		},
	}

	create := &cobra.Command{
		Use:   "create [NAME]",
		Short: "Append a zone (named \"" + floorplan.DefaultZoneName + "\" unless NAME is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd.Context(), func(s *session) error {
				name := ""
				if len(args) == 1 {
					name = args[0]
				}
				z, err := s.store.CreateNamedZone(cmd.Context(), name)
				if err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "%s\t%s\n", z.ID, z.Name)
				return nil
			})
		},
	}

	rename := &cobra.Command{
		Use:   "rename ZONE NAME",
		Short: "Rename a zone",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd.Context(), func(s *session) error {
				z, err := findZone(s.store, args[0])
				if err != nil {
					return err
				}
				return s.store.RenameZone(cmd.Context(), z.ID, args[1])
			})
		},
	}

	var yes bool
	del := &cobra.Command{
		Use:   "delete ZONE",
		Short: "Delete a zone and every table in it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd.Context(), func(s *session) error {
				z, err := findZone(s.store, args[0])
				if err != nil {
					return err
				}
				err = s.store.DeleteZone(cmd.Context(), z.ID, yes)
				if errors.Is(err, domain.ErrConfirmationRequired) {
					return fmt.Errorf("%w (re-run with --yes to delete its tables too)", err)
				}
				if err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "deleted zone %s\n", z.Name)
				return nil
			})
		},
	}
	del.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deleting the zone's tables")

	cmd.AddCommand(list, create, rename, del)
	return cmd
}
