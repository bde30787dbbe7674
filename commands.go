package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/km-arc/go-dipend/framework/app"
	"github.com/km-arc/go-dipend/framework/graph"
)

var (
	graphHost string
	graphPort int
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Serve the dependency graph visualizer",
	Long: `Boot the demo application and serve its dependency graph over HTTP
until interrupted. The page lives at /, the raw graph at /api/data.`,
	RunE: runGraph,
}

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Print dependencies in build order",
	RunE:  runOrder,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check every registration can be built",
	RunE:  runValidate,
}

func init() {
	graphCmd.Flags().StringVar(&graphHost, "host", "", "listen host (overrides config)")
	graphCmd.Flags().IntVar(&graphPort, "port", 0, "listen port (overrides config)")

	rootCmd.AddCommand(graphCmd, orderCmd, validateCmd)
}

// newDemoApp creates the application with the demo registrations.
func newDemoApp(cmd *cobra.Command) (*app.Application, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if graphHost != "" {
		cfg.Server.Host = graphHost
	}
	if graphPort != 0 {
		cfg.Server.Port = graphPort
	}

	a, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return nil, err
	}
	if err := a.Register(cmd.Context(), &demoProvider{}); err != nil {
		return nil, err
	}
	return a, nil
}

func runGraph(cmd *cobra.Command, _ []string) error {
	a, err := newDemoApp(cmd)
	if err != nil {
		return err
	}
	return a.ServeGraph(cmd.Context())
}

func runOrder(cmd *cobra.Command, _ []string) error {
	a, err := newDemoApp(cmd)
	if err != nil {
		return err
	}
	if err := a.Boot(cmd.Context()); err != nil {
		return err
	}
	data, err := graph.Build(a.Container)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for i, n := range data.Nodes {
		fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, n.Type, n.Node)
	}
	return w.Flush()
}

func runValidate(cmd *cobra.Command, _ []string) error {
	a, err := newDemoApp(cmd)
	if err != nil {
		return err
	}
	errs := multierr.Errors(a.Validate())
	for _, e := range errs {
		fmt.Fprintln(cmd.ErrOrStderr(), "✗", e)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d problem(s) found", len(errs))
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✓ all dependencies can be built")
	return nil
}
