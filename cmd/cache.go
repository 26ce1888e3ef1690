package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/parkrun-transit/internal/datacache"
	"github.com/sells-group/parkrun-transit/internal/explorer"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the dataset cache",
}

// -- cache info --

var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show age and size of cached entries",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initSource(ctx, "cache")
		if err != nil {
			return err
		}
		defer env.Close()

		infos, err := env.Source.Info(ctx)
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "Cache is empty.")
			return nil
		}
		formatCacheInfo(cmd.OutOrStdout(), infos)
		return nil
	},
}

// -- cache modes --

var cacheModesCmd = &cobra.Command{
	Use:   "modes",
	Short: "List transport modes with cached stops",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initSource(ctx, "cache")
		if err != nil {
			return err
		}
		defer env.Close()

		modes, err := env.Source.CachedModes(ctx)
		if err != nil {
			return err
		}
		for _, m := range modes {
			if m == "" {
				m = "(no mode)"
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), m)
		}
		return nil
	},
}

// -- cache clear --

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove cached events and stops",
	Long:  "Removes the cached events and full stops entries. Per-mode stop entries are kept unless --modes is given.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initSource(ctx, "cache")
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Source.Clear(ctx); err != nil {
			return err
		}
		withModes, _ := cmd.Flags().GetBool("modes")
		if withModes {
			if err := env.Source.ClearModes(ctx); err != nil {
				return err
			}
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "Cache cleared.")
		return nil
	},
}

// -- cache warm --

var cacheWarmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Fetch any missing or stale datasets",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initSource(ctx, "cache")
		if err != nil {
			return err
		}
		defer env.Close()

		modes := cfg.View.Modes
		if raw, _ := cmd.Flags().GetString("modes"); raw != "" {
			modes = explorer.SplitModes(raw)
		}
		if err := env.Source.Warm(ctx, modes); err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "Cache warm.")
		return nil
	},
}

func formatCacheInfo(out io.Writer, infos []datacache.EntryInfo) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "KEY\tFETCHED\tAGE\tSIZE\tSTATE")
	_, _ = fmt.Fprintln(w, "---\t-------\t---\t----\t-----")

	for _, in := range infos {
		fetched, age, state := "-", "-", "stale"
		switch {
		case in.Corrupt:
			state = "corrupt"
		default:
			fetched = in.FetchedAt.Format("2006-01-02 15:04")
			age = in.Age.Round(time.Minute).String()
			if in.Fresh {
				state = "fresh"
			}
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			in.Key,
			fetched,
			age,
			formatSize(in.Size),
			state,
		)
	}
	_ = w.Flush()
}

func formatSize(n int) string {
	switch {
	case n >= 1024*1024:
		return fmt.Sprintf("%.1fMB", float64(n)/(1024*1024))
	case n >= 1024:
		return fmt.Sprintf("%.0fKB", float64(n)/1024)
	default:
		return fmt.Sprintf("%dB", n)
	}
}

func init() {
	cacheClearCmd.Flags().Bool("modes", false, "also remove per-mode stop entries")
	cacheWarmCmd.Flags().String("modes", "", "comma separated transport modes (default from config)")

	cacheCmd.AddCommand(cacheInfoCmd, cacheModesCmd, cacheClearCmd, cacheWarmCmd)
	rootCmd.AddCommand(cacheCmd)
}
