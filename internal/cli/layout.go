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
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"chatters/internal/domain"
	"chatters/internal/export"
	"chatters/internal/floorplan"
	"chatters/internal/geom"
	"chatters/internal/layout"
	"chatters/internal/layoutio"
	applog "chatters/internal/log"
	"chatters/internal/telemetry"
)

func findTable(st *floorplan.Store, number string) (domain.Table, error) {
	number = strings.TrimSpace(number)
	for _, t := range st.Tables() {
		if t.Number == number {
			return t, nil
		}
	}
	return domain.Table{}, fmt.Errorf("table %q: %w", number, domain.ErrTableNotFound)
}

func parseFloats(args ...string) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(strings.TrimSpace(a), 64)
		if err != nil {
			return nil, fmt.Errorf("not a number: %q", a)
		}
		out[i] = v
	}
	return out, nil
}

func (a *App) newLayoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Inspect, edit, export and import a venue floor plan",
	}
	cmd.AddCommand(
		a.newLayoutShowCmd(),
		a.newLayoutFitCmd(),
		a.newLayoutAddCmd(),
		a.newLayoutMoveCmd(),
		a.newLayoutResizeCmd(),
		a.newLayoutRenumberCmd(),
		a.newLayoutAssignCmd(),
		a.newLayoutRemoveCmd(),
		a.newLayoutExportCmd(),
		a.newLayoutImportCmd(),
	)
	return cmd
}

func (a *App) newLayoutShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "List tables with their saved positions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withSession(cmd.Context(), func(s *session) error {
				names := map[string]string{}
				for _, z := range s.store.Zones() {
					names[z.ID] = z.Name
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				printf(tw, "ZONE\tTABLE\tSHAPE\tX%%\tY%%\tW\tH\n")
				for _, t := range s.store.Tables() {
					zone := names[t.ZoneID]
					if zone == "" {
						zone = "-"
					}
					printf(tw, "%s\t%s\t%s\t%.2f\t%.2f\t%.0f\t%.0f\n", zone, t.Number, t.Shape, t.XPercent, t.YPercent, t.Width, t.Height)
				}
				return tw.Flush()
			})
		},
	}
}

func (a *App) newLayoutFitCmd() *cobra.Command {
	var zone string
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Compute the zoom and pan that fit a zone's tables on screen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withSession(cmd.Context(), func(s *session) error {
				if zone != "" {
					z, err := findZone(s.store, zone)
					if err != nil {
						return err
					}
					if err := s.store.SelectZone(z.ID); err != nil {
						return err
					}
				}
				vs := s.store.FitToScreen()
				printf(cmd.OutOrStdout(), "zoom=%.4f pan=(%.2f, %.2f)\n", vs.Zoom, vs.Pan.X, vs.Pan.Y)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&zone, "zone", "", "zone id or name (default: first zone)")
	return cmd
}

// editAndSave turns on edit mode, applies fn and saves the staged layout.
func (a *App) editAndSave(cmd *cobra.Command, fn func(s *session) error) error {
	return a.withSession(cmd.Context(), func(s *session) error {
		s.store.SetEditMode(true)
		if err := fn(s); err != nil {
			return err
		}
		if err := s.store.SaveLayout(cmd.Context()); err != nil {
			return err
		}
		s.store.SetEditMode(false)
		return nil
	})
}

func (a *App) newLayoutAddCmd() *cobra.Command {
	var shape, zone string
	var at []float64
	cmd := &cobra.Command{
		Use:   "add NUMBER",
		Short: "Add a table and save",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sh, err := domain.ParseShape(shape)
			if err != nil {
				return err
			}
			if len(at) != 0 && len(at) != 2 {
				return fmt.Errorf("--at takes x,y")
			}
			return a.editAndSave(cmd, func(s *session) error {
				if zone != "" {
					z, err := findZone(s.store, zone)
					if err != nil {
						return err
					}
					if err := s.store.SelectZone(z.ID); err != nil {
						return err
					}
				}
				t, err := s.store.AddTable(args[0], sh)
				if err != nil {
					return err
				}
				if len(at) == 2 {
					p, err := s.store.DragTable(t.ID, at[0], at[1])
					if err != nil {
						return err
					}
					t = p.Table
				}
				printf(cmd.OutOrStdout(), "added table %s at (%.2f, %.2f)\n", t.Number, t.X, t.Y)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&shape, "shape", "square", "square, circle or rectangle")
	cmd.Flags().StringVar(&zone, "zone", "", "zone id or name (default: first zone)")
	cmd.Flags().Float64SliceVar(&at, "at", nil, "pixel position x,y (snapped to neighbours)")
	return cmd
}

func (a *App) newLayoutMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move NUMBER X Y",
		Short: "Move a table to a pixel position, snapping to its zone neighbours, and save",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			xy, err := parseFloats(args[1], args[2])
			if err != nil {
				return err
			}
			return a.editAndSave(cmd, func(s *session) error {
				t, err := findTable(s.store, args[0])
				if err != nil {
					return err
				}
				p, err := s.store.DragTable(t.ID, xy[0], xy[1])
				if err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "table %s at (%.2f, %.2f)\n", p.Table.Number, p.Table.X, p.Table.Y)
				for _, g := range p.Guides {
					printf(cmd.OutOrStdout(), "  snapped %s %s at %.2f\n", g.Orientation, g.Kind, g.Position)
				}
				return nil
			})
		},
	}
}

func (a *App) newLayoutResizeCmd() *cobra.Command {
	var handle string
	var by []float64
	cmd := &cobra.Command{
		Use:   "resize NUMBER [WIDTH HEIGHT]",
		Short: "Resize a table from a handle and save",
		Long: "Resize a table to WIDTH x HEIGHT from a handle, or drag the handle by\n" +
			"--by dx,dy screen pixels. Dimensions stick to the grid; north and west\n" +
			"handles also snap the moved edge to neighbouring tables.",
		Args: cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var wh []float64
			switch {
			case len(by) == 0 && len(args) == 3:
				var err error
				if wh, err = parseFloats(args[1], args[2]); err != nil {
					return err
				}
			case len(by) == 2 && len(args) == 1:
			default:
				return fmt.Errorf("resize takes WIDTH HEIGHT or --by dx,dy")
			}
			h, err := layout.ParseHandle(handle)
			if err != nil {
				return err
			}
			return a.editAndSave(cmd, func(s *session) error {
				t, err := findTable(s.store, args[0])
				if err != nil {
					return err
				}
				var p floorplan.Placement
				if wh != nil {
					p, err = s.store.ResizeTable(t.ID, h, wh[0], wh[1])
				} else {
					p, err = dragHandle(s.store, t, h, geom.Pt{X: by[0], Y: by[1]})
				}
				if err != nil {
					return err
				}
				r := layout.TableRect(p.Table)
				printf(cmd.OutOrStdout(), "table %s at (%.2f, %.2f) size %.0fx%.0f\n", p.Table.Number, r.X, r.Y, r.W, r.H)
				for _, g := range p.Guides {
					printf(cmd.OutOrStdout(), "  snapped %s %s at %.2f\n", g.Orientation, g.Kind, g.Position)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&handle, "handle", "se", "resize handle: n, s, e, w, ne, nw, se or sw")
	cmd.Flags().Float64SliceVar(&by, "by", nil, "drag the handle by dx,dy screen pixels")
	return cmd
}

// dragHandle replays a pointer drag of t's handle by delta.
func dragHandle(st *floorplan.Store, t domain.Table, h layout.Handle, delta geom.Pt) (floorplan.Placement, error) {
	start := st.ToScreen(layout.TableRect(t).Min())
	rs, err := st.BeginResize(t.ID, h, start)
	if err != nil {
		return floorplan.Placement{}, err
	}
	rs.Move(start.Add(delta))
	return rs.End()
}

func (a *App) newLayoutRenumberCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "renumber NUMBER NEW",
		Short: "Give a table a new number and save",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.editAndSave(cmd, func(s *session) error {
				t, err := findTable(s.store, args[0])
				if err != nil {
					return err
				}
				updated, err := s.store.RenumberTable(t.ID, args[1])
				if err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "table %s is now %s\n", t.Number, updated.Number)
				return nil
			})
		},
	}
}

func (a *App) newLayoutAssignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assign NUMBER [ZONE]",
		Short: "Move a table into a zone, or out of every zone without ZONE, and save",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.editAndSave(cmd, func(s *session) error {
				t, err := findTable(s.store, args[0])
				if err != nil {
					return err
				}
				zoneID, name := "", ""
				if len(args) == 2 {
					z, err := findZone(s.store, args[1])
					if err != nil {
						return err
					}
					zoneID, name = z.ID, z.Name
				}
				if _, err := s.store.AssignZone(t.ID, zoneID); err != nil {
					return err
				}
				if zoneID == "" {
					printf(cmd.OutOrStdout(), "table %s unassigned\n", t.Number)
				} else {
					printf(cmd.OutOrStdout(), "table %s in zone %s\n", t.Number, name)
				}
				return nil
			})
		},
	}
}

func (a *App) newLayoutRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm NUMBER...",
		Aliases: []string{"remove"},
		Short:   "Remove tables and save",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.editAndSave(cmd, func(s *session) error {
				for _, n := range args {
					t, err := findTable(s.store, n)
					if err != nil {
						return err
					}
					if err := s.store.RemoveTable(t.ID); err != nil {
						return err
					}
				}
				printf(cmd.OutOrStdout(), "removed %d table(s)\n", len(args))
				return nil
			})
		},
	}
}

// exportFormat picks the format from the flag or the output extension.
func exportFormat(flag, out string) string {
	if f := strings.ToLower(strings.TrimSpace(flag)); f != "" {
		return f
	}
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(out)), ".")
}

func (a *App) newLayoutExportCmd() *cobra.Command {
	var (
		format, out, zone string
		qr, grid          bool
		scale             float64
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the saved layout as json, pdf, png, xlsx or dxf",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if out == "" {
				return fmt.Errorf("--out is required")
			}
			f := exportFormat(format, out)
			ctx := cmd.Context()
			l := applog.WithOperation(applog.WithComponent("cli"), "export")
			return a.withSession(ctx, func(s *session) error {
				if f == "json" {
					doc, err := layoutio.Export(ctx, s.be, s.venue.ID)
					if err != nil {
						return err
					}
					doc.VenueName = s.venue.Name
					c := a.container()
					doc.Container = &layoutio.Container{Width: c.W, Height: c.H}
					if err := layoutio.WriteFile(out, doc); err != nil {
						return err
					}
					telemetry.LayoutExported("json", len(doc.Tables))
					printf(cmd.OutOrStdout(), "wrote %s\n", out)
					return nil
				}

				plan, err := export.LoadPlan(ctx, s.be, s.venue, a.container())
				if err != nil {
					return err
				}
				switch f {
				case "pdf":
					err = export.WritePDF(out, plan, export.PDFOptions{
						QRCards:         qr,
						FeedbackBaseURL: a.cfg.Layout.FeedbackBaseURL,
						IncludeGrid:     grid,
					})
				case "png":
					opt := export.PNGOptions{Scale: scale, Labels: true}
					if zone != "" {
						z, zerr := findZone(s.store, zone)
						if zerr != nil {
							return zerr
						}
						opt.Zone = z.ID
					}
					err = export.WritePNG(out, plan, opt)
				case "xlsx":
					err = export.WriteRoster(out, plan, a.cfg.Layout.FeedbackBaseURL)
				case "dxf":
					err = export.WriteDXF(out, plan)
				default:
					return fmt.Errorf("unknown export format %q", f)
				}
				if err != nil {
					l.Error("export failed", slog.String("format", f), slog.Any("err", err))
					return err
				}
				printf(cmd.OutOrStdout(), "wrote %s\n", out)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file")
	cmd.Flags().StringVarP(&format, "format", "f", "", "json, pdf, png, xlsx or dxf (default: from --out extension)")
	cmd.Flags().BoolVar(&qr, "qr", false, "pdf: append QR feedback cards (needs layout.feedback_base_url)")
	cmd.Flags().BoolVar(&grid, "grid", false, "pdf: draw a background grid")
	cmd.Flags().StringVar(&zone, "zone", "", "png: render one zone only")
	cmd.Flags().Float64Var(&scale, "scale", 1, "png: output pixels per layout pixel")
	return cmd
}

func (a *App) newLayoutImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Apply a layout document to the venue (zones by name, tables by number)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := layoutio.ReadFile(args[0])
			if err != nil {
				return err
			}
			return a.withSession(cmd.Context(), func(s *session) error {
				res, err := layoutio.Apply(cmd.Context(), s.be, s.venue.ID, doc)
				if err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "zones created %d, tables created %d, updated %d, deleted %d\n",
					res.ZonesCreated, res.TablesCreated, res.TablesUpdated, res.TablesDeleted)
				return nil
			})
		},
	}
}
