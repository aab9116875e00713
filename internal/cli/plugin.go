package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lumenstudio/lumen/internal/config"
)

var pluginCmd = &cobra.Command{
	Use:   "plugin",
	Short: "Manage effect plugins",
}

var pluginListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured plugins",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		defer func() { _ = logger.Sync() }()

		provider := config.NewProvider(flagConfig, buildVersion, logger)
		if err := provider.Initialize(cmd.Context()); err != nil {
			return err
		}
		descriptors, err := provider.Descriptors(cmd.Context())
		if err != nil {
			return err
		}
		if len(descriptors) == 0 {
			fmt.Println("no plugins configured")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tPATH\tSTATUS")
		for _, d := range descriptors {
			status := "ok"
			if !d.Valid {
				status = d.Reason
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", d.Name, d.Path, status)
		}
		return w.Flush()
	},
}

var pluginLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load all configured plugins",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		defer func() { _ = logger.Sync() }()

		mgr, registry, err := buildManager(logger)
		if err != nil {
			return err
		}
		defer mgr.UnloadAll()

		results, err := mgr.EnsureLoaded(cmd.Context())
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("no plugins configured")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tRESULT")
		failed := 0
		for _, r := range results {
			if r.Success {
				fmt.Fprintf(w, "%s\tloaded\n", r.Name)
				continue
			}
			failed++
			fmt.Fprintf(w, "%s\t%v\n", r.Name, r.Err)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		fmt.Printf("%d loaded, %d failed, %d effects registered\n",
			len(results)-failed, failed, registry.Count())
		return nil
	},
}

func init() {
	pluginCmd.AddCommand(pluginListCmd)
	pluginCmd.AddCommand(pluginLoadCmd)
	rootCmd.AddCommand(pluginCmd)
}
