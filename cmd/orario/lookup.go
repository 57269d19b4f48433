package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"orario/internal/core"
	"orario/internal/lookup"
	"orario/internal/timetable"
)

type lookupOptions struct {
	day    string
	period int
	full   bool
	school string
	json   bool
}

func newLookupCmd(configPath *string) *cobra.Command {
	var opts lookupOptions

	cmd := &cobra.Command{
		Use:   "lookup <name>",
		Short: "Print the timetable of a class, teacher or room",
		Long: `Resolve a class (4F), teacher (ROSSI) or room (AULA 69) against the timetable index
and print the lesson in progress, or a whole day with --full.`,
		Example: `  orario lookup 4F
  orario lookup "AULA 69" --day MER --period 3
  orario lookup rossi --full --school verolanuova`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath, os.Stderr)
			if err != nil {
				return err
			}
			if opts.school != "" {
				if _, err := a.service.SwitchSource(opts.school); err != nil {
					return fmt.Errorf("school %q: %w", opts.school, err)
				}
			}

			res, err := runLookup(cmd, a.service, strings.Join(args, " "), opts)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), res, opts.json)
		},
	}

	cmd.Flags().StringVarP(&opts.day, "day", "d", "", "day code LUN..SAB (default: today)")
	cmd.Flags().IntVarP(&opts.period, "period", "p", 0, "lesson period 1..12 (default: the one in progress)")
	cmd.Flags().BoolVarP(&opts.full, "full", "f", false, "print the whole day")
	cmd.Flags().StringVarP(&opts.school, "school", "s", "", "school keyword from source.schools")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the result as JSON")
	return cmd
}

func runLookup(cmd *cobra.Command, svc *lookup.Service, name string, opts lookupOptions) (*lookup.Result, error) {
	ctx := cmd.Context()
	if opts.period < 0 || opts.period > 12 {
		return nil, core.NewInvalidInputError("period must be between 1 and 12")
	}
	period := opts.period
	if opts.full {
		period = 0
	}

	switch {
	case opts.day != "":
		day, ok := timetable.ParseDay(opts.day)
		if !ok {
			return nil, core.NewInvalidInputError("unknown day " + opts.day)
		}
		return svc.At(ctx, name, day, period)
	case opts.full:
		return svc.Day(ctx, name)
	case period > 0:
		day, ok := timetable.DayOf(svc.Now())
		if !ok {
			return nil, lookup.ErrNoLessonsToday
		}
		return svc.At(ctx, name, day, period)
	default:
		return svc.Current(ctx, name)
	}
}

func printResult(w io.Writer, res *lookup.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	var err error
	switch res.Outcome {
	case timetable.Found:
		_, err = fmt.Fprintln(w, res.Text)
	case timetable.Ambiguous:
		_, err = fmt.Fprintf(w, "%d matches:\n%s\n", res.CandidateCount, strings.Join(res.Candidates, "\n"))
		if err == nil && res.CandidateCount > len(res.Candidates) {
			_, err = fmt.Fprintf(w, "... and %d more\n", res.CandidateCount-len(res.Candidates))
		}
	default:
		err = fmt.Errorf("no %s matches the name", res.Category)
	}
	return err
}
