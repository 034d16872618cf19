package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"calplan/internal/calendar"
	"calplan/internal/planner"
	"calplan/internal/termview"
)

// formFlags binds the event form fields to a command's flags.
type formFlags struct {
	date        string
	title       string
	start       string
	end         string
	description string
	tag         string
}

func (f *formFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.date, "date", "", "Day as YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&f.title, "title", "", "Event title")
	cmd.Flags().StringVar(&f.start, "start", "", "Start time as HH:MM")
	cmd.Flags().StringVar(&f.end, "end", "", "End time as HH:MM")
	cmd.Flags().StringVar(&f.description, "description", "", "Free-form notes")
	cmd.Flags().StringVar(&f.tag, "tag", "", "Tag from the configured preset list")
}

// apply overlays the flags the user actually set onto form.
func (f *formFlags) apply(cmd *cobra.Command, form planner.Form) planner.Form {
	changed := cmd.Flags().Changed
	if changed("title") {
		form.Title = f.title
	}
	if changed("start") {
		form.StartTime = f.start
	}
	if changed("end") {
		form.EndTime = f.end
	}
	if changed("description") {
		form.Description = f.description
	}
	if changed("tag") {
		form.Tag = f.tag
	}
	return form
}

func newAddCmd(opts *rootOptions) *cobra.Command {
	var ff formFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an event",
		Example: `  calplan add --title "Team sync" --start 09:30 --end 10:00 --tag Focus
  calplan add --date 2025-10-20 --title "Dentist"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			day, err := a.parseDay(ff.date)
			if err != nil {
				return err
			}
			ev, err := a.planner.Create(cmd.Context(), day, ff.apply(cmd, planner.Form{}))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s on %s\n", ev.ID, calendar.DayKey(ev.StartDate))
			return nil
		},
	}
	ff.register(cmd)
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newEditCmd(opts *rootOptions) *cobra.Command {
	var ff formFlags
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change fields of an existing event",
		Long: `Change fields of an existing event. Only the flags given are changed;
pass an empty value (e.g. --start "") to clear a field.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			id := args[0]
			existing, ok := a.store.Get(id)
			if !ok {
				return fmt.Errorf("event %s not found", id)
			}
			day := calendar.StartOfDay(existing.StartDate.In(a.planner.Location()))
			if ff.date != "" {
				if day, err = a.parseDay(ff.date); err != nil {
					return err
				}
			}

			form := ff.apply(cmd, planner.FormFromEvent(existing))
			ev, ok, err := a.planner.Update(cmd.Context(), id, day, form)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("event %s not found", id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %s on %s\n", ev.ID, calendar.DayKey(ev.StartDate))
			return nil
		},
	}
	ff.register(cmd)
	return cmd
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete ID",
		Aliases: []string{"rm"},
		Short:   "Delete an event",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.planner.Delete(cmd.Context(), args[0]) {
				return fmt.Errorf("event %s not found", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func newTagsCmd(opts *rootOptions) *cobra.Command {
	var presets bool
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List tags in use (or the preset list with --presets)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			tags := a.planner.TagOptions()
			if presets {
				tags = a.planner.Presets()
			}
			if len(tags) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(tags, "\n"))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&presets, "presets", false, "Show the configured preset list")
	return cmd
}

func newAgendaCmd(opts *rootOptions) *cobra.Command {
	var date, tag string
	cmd := &cobra.Command{
		Use:   "agenda",
		Short: "Show one day's events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			day, err := a.parseDay(date)
			if err != nil {
				return err
			}
			items := a.planner.AgendaFor(day, tag)
			fmt.Fprint(cmd.OutOrStdout(), termview.RenderAgenda(day, items, termview.DefaultStyles()))
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Day as YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&tag, "tag", "", "Only show events with this tag")
	return cmd
}

func newMonthCmd(opts *rootOptions) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "month",
		Short: "Show the month grid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			day, err := a.parseDay(date)
			if err != nil {
				return err
			}
			v := a.planner.NewView().SelectDay(day)
			fmt.Fprint(cmd.OutOrStdout(), termview.RenderMonth(a.planner.Month(v), termview.DefaultStyles()))
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Any day of the month as YYYY-MM-DD (default today)")
	return cmd
}
