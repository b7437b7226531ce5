package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jengzang/antrak/internal/middleware"
	"github.com/jengzang/antrak/internal/models"
)

// NewServeCommand starts the HTTP API.
func NewServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Serve(ctx)
		},
	}
}

// NewIngestCommand saves the positions of NMEA and GPX files.
func NewIngestCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest DEVICE FILE...",
		Short: "Save positions read from NMEA (*.nmea, *.log) or GPX (*.gpx) files",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.Track.SavePositions(cmd.Context(), args[0], args[1:]...)
			if err != nil {
				return err
			}
			return output(cmd.OutOrStdout(), opts, result, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "saved %d positions for %s (batch %s)\n", result.Saved, result.Device, result.BatchID)
				return err
			})
		},
	}
}

// NewTrackCommand groups track registration and listing.
func NewTrackCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "track",
		Short: "Manage tracks",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add DEVICE TRIP NAME START END",
		Short: "Register a track; START and END are narrowed to stored positions",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := ParseTime(args[3])
			if err != nil {
				return err
			}
			end, err := ParseTime(args[4])
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			t, err := a.Track.SetTrack(cmd.Context(), args[0], args[1], args[2], start, end)
			if err != nil {
				return err
			}
			return output(cmd.OutOrStdout(), opts, t, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s - %s: %s - %s\n", t.Trip, t.Name, t.Start.Format(time.DateTime), t.End.Format(time.DateTime))
				return err
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "ls DEVICE [QUERY]",
		Short: "List tracks whose \"trip name\" matches QUERY",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			tracks, err := a.Track.ListTracks(cmd.Context(), args[0], queryArg(args))
			if err != nil {
				return err
			}
			return output(cmd.OutOrStdout(), opts, tracks, func(w io.Writer) error {
				return writeTracks(w, tracks)
			})
		},
	})
	return cmd
}

// NewStatsCommand prints the track statistics report.
func NewStatsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats DEVICE [QUERY]",
		Short: "Show duration, distance and maximum speed of tracks",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if opts.Format == "json" {
				rows, err := a.Report.Summary(cmd.Context(), args[0], queryArg(args))
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), rows)
			}
			return a.Report.Stats(cmd.Context(), args[0], queryArg(args), cmd.OutOrStdout())
		},
	}
}

// NewRenderCommand writes one map per matching track.
func NewRenderCommand(opts *RootOptions) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "render DEVICE [QUERY]",
		Short: "Render maps of tracks",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			files, err := a.Maps.Render(cmd.Context(), args[0], queryArg(args), dir)
			if err != nil {
				return err
			}
			return output(cmd.OutOrStdout(), opts, files, func(w io.Writer) error {
				for _, f := range files {
					if _, err := fmt.Fprintln(w, f); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&dir, "output", "o", ".", "output directory")
	return cmd
}

// NewTokenCommand issues an API token signed with the configured secret.
func NewTokenCommand(opts *RootOptions) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token SUBJECT",
		Short: "Issue a bearer token for the write endpoints",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(opts)
			if err != nil {
				return err
			}
			token, err := middleware.IssueToken(cfg.JWTSecret, args[0], ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

// ParseTime accepts RFC 3339, "2006-01-02 15:04:05", "2006-01-02 15:04"
// and "2006-01-02". Times without zone are UTC.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range []string{time.DateTime, "2006-01-02 15:04", time.DateOnly} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", s)
}

func queryArg(args []string) string {
	if len(args) > 1 {
		return args[1]
	}
	return ""
}

func output(w io.Writer, opts *RootOptions, v any, text func(io.Writer) error) error {
	if opts.Format == "json" {
		return writeJSON(w, v)
	}
	return text(w)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTracks(w io.Writer, tracks []models.Track) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, t := range tracks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.Trip, t.Name, t.Start.Format(time.DateTime), t.End.Format(time.DateTime))
	}
	return tw.Flush()
}
