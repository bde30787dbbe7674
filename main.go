// Command dipend inspects the dependency graph of a demo application:
// serve the visualizer, print the build order or validate registrations.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/km-arc/go-dipend/framework/config"
)

var (
	cfgFile  string
	envFiles []string
)

var rootCmd = &cobra.Command{
	Use:   "dipend",
	Short: "Dependency injection runtime tooling",
	Long: `dipend builds the demo application's container and lets you look at it:
serve the dependency graph in the browser, print the order singletons are
built in, or validate every registration.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"YAML or TOML config file (default: environment and .env)")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil,
		"dotenv files to load (default: .env)")
}

// loadConfig reads --config when given, the environment otherwise.
func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.LoadFile(cfgFile)
	}
	return config.Load(envFiles...), nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
