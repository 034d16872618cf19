package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"calplan/internal/capture"
	"calplan/internal/jobs"
)

func newBackupCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Write a JSON snapshot of all events to the backup directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			path, err := jobs.RunBackup(a.store, a.cfg.Backup.Dir, a.cfg.Backup.Keep, nowFunc())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func newCaptureCmd(opts *rootOptions) *cobra.Command {
	var url, out string
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Screenshot the month page of a running server to PNG",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			copts := a.captureOptions()
			if url != "" {
				copts.URL = url
			}
			if out != "" {
				copts.OutputPath = out
			}
			if err := capture.MonthPNG(cmd.Context(), copts); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), copts.OutputPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "Page to capture (default capture.url)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "PNG output path (default capture.output)")
	return cmd
}
