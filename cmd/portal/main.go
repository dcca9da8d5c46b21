package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/site-analyzer/portal/internal/app"
	"github.com/site-analyzer/portal/internal/config"
	"github.com/site-analyzer/portal/internal/tools/common"
	"github.com/site-analyzer/portal/internal/tools/loadgen"
	"github.com/site-analyzer/portal/internal/tools/ui"
)

func main() {
	root := &cobra.Command{
		Use:   "portal",
		Short: "Login-gated extension download portal with a live traffic feed",
	}

	var envFile string
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional env file loaded before configuration")

	root.AddCommand(newServeCommand(&envFile))
	root.AddCommand(newLoadgenCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newServeCommand(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the portal HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := common.LoadEnvFile(*envFile); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load(ctx)
			if err != nil {
				return err
			}
			a, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			return a.Run(ctx)
		},
	}
}

func newLoadgenCommand() *cobra.Command {
	var (
		baseURL     string
		profile     string
		duration    time.Duration
		rps         int
		concurrency int
		seed        int64
		ci          bool
	)
	cmd := &cobra.Command{
		Use:   "loadgen",
		Short: "Generate synthetic traffic so the live feed has something to show",
		RunE: func(cmd *cobra.Command, _ []string) error {
			run := func(ctx context.Context) ([]string, error) {
				res, err := loadgen.Run(ctx, loadgen.Config{
					BaseURL:     baseURL,
					Profile:     profile,
					Duration:    duration,
					RPS:         rps,
					Concurrency: concurrency,
					Seed:        seed,
				})
				if err != nil {
					return nil, err
				}
				details := []string{fmt.Sprintf("requests=%d failures=%d", res.TotalRequests, res.Failures)}
				for class, n := range res.StatusClasses {
					details = append(details, fmt.Sprintf("%s=%d", class, n))
				}
				return details, nil
			}

			var details []string
			var err error
			if ci {
				details, err = run(cmd.Context())
				common.PrintCIResult(err == nil, "loadgen", details, err)
			} else {
				details, err = ui.Run("generating traffic", run)
				for _, d := range details {
					fmt.Println(d)
				}
			}
			return err
		},
	}
	cmd.Flags().StringVar(&baseURL, "base-url", "http://localhost:4000", "portal base URL")
	cmd.Flags().StringVar(&profile, "profile", "mixed", "traffic profile: mixed, public or auth")
	cmd.Flags().DurationVar(&duration, "duration", 30*time.Second, "how long to generate traffic")
	cmd.Flags().IntVar(&rps, "rps", 20, "request rate")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "concurrent workers")
	cmd.Flags().Int64Var(&seed, "seed", 42, "random seed")
	cmd.Flags().BoolVar(&ci, "ci", false, "non-interactive machine-readable output")
	return cmd
}
