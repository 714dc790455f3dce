package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"calkit/internal/slots"
)

var (
	slotsDate  string
	slotsTZ    string
	slotsStart int
	slotsEnd   int
	slotsLen   int
	roundSlot  int
)

var slotsCmd = &cobra.Command{
	Use:   "slots",
	Short: "Print the time slots of one day",
	Example: `  calkit slots --start 9 --end 17 --slot 30
  calkit slots --date 2024-03-31 --tz Europe/Berlin`,
	Args: cobra.NoArgs,
	RunE: runSlots,
}

var roundCmd = &cobra.Command{
	Use:     "round <RFC3339 time>",
	Short:   "Round a time to the nearest slot boundary",
	Example: "  calkit round 2024-03-04T10:37:00+01:00 --slot 30",
	Args:    cobra.ExactArgs(1),
	RunE:    runRound,
}

func init() {
	slotsCmd.Flags().StringVar(&slotsDate, "date", "", "Day as YYYY-MM-DD (default today)")
	slotsCmd.Flags().StringVar(&slotsTZ, "tz", "", "IANA timezone (default UTC)")
	slotsCmd.Flags().IntVar(&slotsStart, "start", 8, "First visible hour")
	slotsCmd.Flags().IntVar(&slotsEnd, "end", 18, "End hour (exclusive)")
	slotsCmd.Flags().IntVar(&slotsLen, "slot", 30, "Slot length in minutes")
	roundCmd.Flags().IntVar(&roundSlot, "slot", 30, "Slot length in minutes")

	rootCmd.AddCommand(slotsCmd, roundCmd)
}

func runSlots(cmd *cobra.Command, args []string) error {
	date := time.Now()
	if slotsDate != "" {
		d, err := time.Parse("2006-01-02", slotsDate)
		if err != nil {
			return fmt.Errorf("--date: %w", err)
		}
		date = d
	}

	g, err := slots.Compute(slots.Spec{
		StartHour:   slotsStart,
		EndHour:     slotsEnd,
		SlotMinutes: slotsLen,
		Date:        date,
		Timezone:    slotsTZ,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i := range g.Indices {
		fmt.Fprintf(out, "%d\t%s\t%s\n", g.Indices[i], g.Labels[i], g.Starts[i].Format(time.RFC3339))
	}
	return nil
}

func runRound(cmd *cobra.Command, args []string) error {
	t, err := time.Parse(time.RFC3339, args[0])
	if err != nil {
		return err
	}
	if roundSlot <= 0 {
		return slots.ErrInvalidDuration
	}
	fmt.Fprintln(cmd.OutOrStdout(), slots.Round(t, roundSlot).Format(time.RFC3339))
	return nil
}
