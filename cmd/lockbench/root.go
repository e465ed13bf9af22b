package main

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/llxisdsh/fastrlock/internal/bench"
)

const (
	Version = "1.0.0"
)

// newRootCmd builds the command tree around a fresh viper instance.
func newRootCmd() *cobra.Command {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:   "lockbench",
		Short: "reentrant lock benchmark",
		Long: fmt.Sprintf(`lockbench (v%s)

Times the fastrlock reentrant lock against a sync.Mutex based
reentrant lock, sequentially and from many goroutines.`, Version),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			initConfig(v)
			return v.BindPFlags(cmd.Flags())
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number of lockbench",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "lockbench v%s\n", Version)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the available locks and workloads",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "locks:")
			for _, name := range bench.LockNames() {
				fmt.Fprintf(out, "  %s\n", name)
			}
			fmt.Fprintln(out, "workloads:")
			for _, w := range bench.Workloads() {
				fmt.Fprintf(out, "  %s\n", w.Name)
			}
		},
	}

	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newRunCmd(v))
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(versionCmd)
	return rootCmd
}

// initConfig loads env files and maps FASTRLOCK_* variables onto flags.
func initConfig(v *viper.Viper) {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	v.SetEnvPrefix("fastrlock")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// splitList flattens comma separated entries, dropping blanks.
// Lists read from the environment arrive as one comma separated string.
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}
