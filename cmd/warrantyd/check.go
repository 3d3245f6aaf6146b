package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"appliance-warranty-backend/config"
	"appliance-warranty-backend/internal/warranty"
)

func parseFlagDate(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	d, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return &d, nil
}

func newCheckCmd(opts *rootOptions) *cobra.Command {
	var purchase, endDate, today, tz, locale string
	var months int

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Print the warranty state for a purchase date without a database",
		RunE: func(cmd *cobra.Command, args []string) error {
			purchaseDate, err := parseFlagDate("purchase-date", purchase)
			if err != nil {
				return err
			}
			if months < 1 {
				return fmt.Errorf("--months must be a positive integer")
			}
			end, err := parseFlagDate("end-date", endDate)
			if err != nil {
				return err
			}
			if end != nil {
				if purchaseDate == nil {
					return fmt.Errorf("--end-date requires --purchase-date")
				}
				if months = warranty.MonthsBetween(*purchaseDate, *end); months < 1 {
					return fmt.Errorf("--end-date must be at least a month after --purchase-date")
				}
			}

			now, err := parseFlagDate("today", today)
			if err != nil {
				return err
			}
			if now == nil {
				loc, err := checkLocation(opts, tz)
				if err != nil {
					return err
				}
				d := warranty.DateOf(time.Now().In(loc))
				now = &d
			}

			res := warranty.Compute(purchaseDate, months, *now)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "months:    %d\n", months)
			if res.EndDate != nil {
				fmt.Fprintf(out, "end_date:  %s\n", res.EndDate.Format(time.DateOnly))
			} else {
				fmt.Fprintln(out, "end_date:  unknown")
			}
			if res.DaysLeft != nil {
				fmt.Fprintf(out, "days_left: %d\n", *res.DaysLeft)
			} else {
				fmt.Fprintln(out, "days_left: unknown")
			}
			fmt.Fprintf(out, "status:    %s\n", res.Status)
			fmt.Fprintf(out, "progress:  %d%%\n", res.ProgressPercent())
			text := warranty.FormatRemainingIn(res.RemainingDays(), warranty.NegotiateLocale(locale))
			if text != "" {
				fmt.Fprintf(out, "remaining: %s\n", text)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&purchase, "purchase-date", "", "purchase date (YYYY-MM-DD); omit for unknown")
	cmd.Flags().IntVar(&months, "months", warranty.DefaultMonths, "warranty length in months")
	cmd.Flags().StringVar(&endDate, "end-date", "", "warranty end date (YYYY-MM-DD); derives --months")
	cmd.Flags().StringVar(&today, "today", "", "evaluation date (YYYY-MM-DD), defaults to today")
	cmd.Flags().StringVar(&tz, "tz", "", "timezone for today, defaults to warranty.timezone from the config")
	cmd.Flags().StringVar(&locale, "locale", "ja", "wording of the remaining time (ja or en)")
	return cmd
}

// checkLocation resolves the zone "today" is taken in. An explicit --tz must
// be valid; otherwise the configured warranty timezone applies.
func checkLocation(opts *rootOptions, tz string) (*time.Location, error) {
	if tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("invalid --tz: %w", err)
		}
		return loc, nil
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from %s: %w", opts.configPath, err)
	}
	return cfg.Warranty.Location(), nil
}
