package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"calkit/internal/plugin"
)

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List registered plugins and their state",
	Args:  cobra.NoArgs,
	RunE:  runPlugins,
}

var (
	exportFrom string
	exportTo   string
	exportOut  string
)

var exportCmd = &cobra.Command{
	Use:   "export <plugin key>",
	Short: "Refresh data sources once and export the events",
	Example: `  calkit export export-ics --out week.ics
  calkit export export-csv --from 2024-03-01 --to 2024-04-01`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "First day YYYY-MM-DD (default today)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "End day YYYY-MM-DD, exclusive (default today + horizon)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default: the export's file name, - for stdout)")

	rootCmd.AddCommand(pluginsCmd, exportCmd)
}

func runPlugins(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	if err := a.activate(cmd.Context()); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tTYPE\tSTATE\tDESCRIPTION")
	for _, rec := range a.registry.Records() {
		state, _ := a.registry.State(rec.Key)
		typ, desc := "-", ""
		if rec.Instance != nil {
			typ = string(rec.Instance.Type())
			if d, ok := rec.Instance.(plugin.Describer); ok {
				desc = d.Description()
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", rec.Key, typ, state, desc)
	}
	return tw.Flush()
}

func runExport(cmd *cobra.Command, args []string) error {
	key := args[0]
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	if err := a.activate(ctx); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
	}
	if err := a.refresher.Refresh(ctx); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
	}

	loc, _ := cfg.Location()
	start, end := a.refresher.Window()
	if exportFrom != "" {
		if start, err = time.ParseInLocation("2006-01-02", exportFrom, loc); err != nil {
			return fmt.Errorf("--from: %w", err)
		}
	}
	if exportTo != "" {
		if end, err = time.ParseInLocation("2006-01-02", exportTo, loc); err != nil {
			return fmt.Errorf("--to: %w", err)
		}
	}

	res, err := a.registry.InvokeExport(ctx, key, a.refresher.EventsBetween(start, end), plugin.ExportConfig{
		Title:      "calkit",
		Location:   loc,
		RangeStart: start,
		RangeEnd:   end,
		Options:    cfg.PluginOptions()[key],
	})
	if err != nil {
		return err
	}

	if exportOut == "-" {
		_, err = cmd.OutOrStdout().Write(res.Data)
		return err
	}
	path := exportOut
	if path == "" {
		path = res.Filename
	}
	if err := os.WriteFile(path, res.Data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%s, %d bytes)\n", path, res.Format, len(res.Data))
	return nil
}
