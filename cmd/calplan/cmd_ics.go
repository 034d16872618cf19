package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"calplan/internal/ics"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all events as an iCalendar file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			body := ics.Export(a.store.All(), ics.ExportOptions{Name: "calplan"})
			if out == "" || out == "-" {
				_, err = io.WriteString(cmd.OutOrStdout(), body)
				return err
			}
			if err := os.WriteFile(out, []byte(body), 0o600); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d events to %s\n", a.store.Len(), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")
	return cmd
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "import FILE|URL",
		Short: "Import events from an iCalendar file or feed",
		Long: `Import events from an iCalendar file or http(s) feed. Recurring events
are expanded into independent one-off events within --from/--to
(default: one year either side of today).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			start, end := ics.DefaultWindow(a.planner.Now())
			if from != "" {
				if start, err = a.parseDay(from); err != nil {
					return err
				}
			}
			if to != "" {
				if end, err = a.parseDay(to); err != nil {
					return err
				}
				end = end.AddDate(0, 0, 1).Add(-time.Nanosecond)
			}

			body, src, err := ics.NewFetcher().Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			res, err := ics.Convert(src, body, ics.FlattenConfig{
				Location:   a.planner.Location(),
				RangeStart: start,
				RangeEnd:   end,
			})
			if err != nil {
				return err
			}
			imported, err := a.store.Import(cmd.Context(), res.Events)
			if err != nil {
				return fmt.Errorf("save imported events: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d events\n", len(imported))
			for _, uid := range res.Truncated {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: series %s truncated\n", uid)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "First day to import, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "Last day to import, YYYY-MM-DD")
	return cmd
}
