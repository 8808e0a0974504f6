package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/Additional-Code/catalog/internal/app"
	"github.com/Additional-Code/catalog/internal/ingest"
	"github.com/Additional-Code/catalog/internal/migration"
	"github.com/Additional-Code/catalog/internal/report"
	"github.com/Additional-Code/catalog/internal/seeder"
	servicecatalog "github.com/Additional-Code/catalog/internal/service/catalog"
)

const stopTimeout = 10 * time.Second

// NewRootCommand builds the root catalog CLI command.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "catalog",
		Short:         "Supplier catalog pipeline: ingest, orders and reports",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newIngestCmd())
	root.AddCommand(newOrdersCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newSeedCmd())
	root.AddCommand(newWorkerCmd())

	return root
}

// Execute runs the catalog CLI until it finishes or receives SIGINT/SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return err
	}
	return nil
}

func newRunCmd() *cobra.Command {
	var (
		opts   servicecatalog.RunOptions
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Ingest the configured feed, create sample orders and export the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				svc  *servicecatalog.Service
				feed ingest.Feed
			)
			return runWithApp(cmd.Context(), fx.Options(app.Core, fx.Populate(&svc, &feed)), func(ctx context.Context) error {
				opts.Feed = feed
				res, err := svc.Run(ctx, opts)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), res)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "run %s\n", res.RunID)
				fmt.Fprintf(out, "products: %d stored, %d skipped\n", res.Populate.Parsed, res.Populate.Skipped)
				fmt.Fprintf(out, "orders: %d created\n", len(res.Orders))
				fmt.Fprintf(out, "report: %s (%s, %d orders)\n", res.Report.Path, res.Report.Format, res.Report.Orders)
				return nil
			})
		},
	}
	addReportFlags(cmd, &opts.OutputPath, &opts.Format)
	cmd.Flags().BoolVar(&opts.SkipSampleOrders, "skip-orders", false, "Do not create sample orders")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the run summary as JSON")
	return cmd
}

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Fetch the configured feed and store its supplier and products",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				svc  *servicecatalog.Service
				feed ingest.Feed
			)
			return runWithApp(cmd.Context(), fx.Options(app.Core, fx.Populate(&svc, &feed)), func(ctx context.Context) error {
				res, err := svc.Populate(ctx, feed)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "supplier %d: %d products stored, %d listings skipped\n",
					res.SupplierID, res.Parsed, res.Skipped)
				for _, f := range res.Failures {
					fmt.Fprintf(cmd.ErrOrStderr(), "listing %d %q: %s\n", f.Index, f.Title, f.Reason)
				}
				return nil
			})
		},
	}
}

func newOrdersCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List orders joined with their products and suppliers",
		RunE: func(cmd *cobra.Command, args []string) error {
			var svc *servicecatalog.Service
			return runWithApp(cmd.Context(), fx.Options(app.Core, fx.Populate(&svc)), func(ctx context.Context) error {
				lines, err := svc.Orders(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), lines)
				}
				return report.WriteTable(cmd.OutOrStdout(), lines)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print orders as JSON")
	return cmd
}

func newReportCmd() *cobra.Command {
	var path, format string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Export the orders report",
		RunE: func(cmd *cobra.Command, args []string) error {
			var svc *servicecatalog.Service
			return runWithApp(cmd.Context(), fx.Options(app.Core, fx.Populate(&svc)), func(ctx context.Context) error {
				res, err := svc.ExportReport(ctx, path, format)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "report written to %s (%d orders)\n", res.Path, res.Orders)
				return nil
			})
		},
	}
	addReportFlags(cmd, &path, &format)
	return cmd
}

func addReportFlags(cmd *cobra.Command, path, format *string) {
	cmd.Flags().StringVarP(path, "output", "o", "", "Report path (default from REPORT_OUTPUT_PATH)")
	cmd.Flags().StringVarP(format, "format", "f", "", "Report format: odt or txt (default from REPORT_FORMAT)")
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Aliases: []string{"start"},
		Short:   "Run the HTTP and gRPC services",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUntilDone(cmd.Context(), app.Module)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			var mig *migration.Migrator
			opts := fx.Options(app.Infra, migration.Module, fx.Populate(&mig))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				if err := mig.Up(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	}

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Rollback migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			all, _ := cmd.Flags().GetBool("all")
			var mig *migration.Migrator
			opts := fx.Options(app.Infra, migration.Module, fx.Populate(&mig))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				if err := mig.Down(ctx, steps, all); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations rolled back")
				return nil
			})
		},
	}
	downCmd.Flags().Int("steps", 1, "Number of migration steps to rollback")
	downCmd.Flags().Bool("all", false, "Rollback all applied migrations")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			var mig *migration.Migrator
			opts := fx.Options(app.Infra, migration.Module, fx.Populate(&mig))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				version, err := mig.Version(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
				return nil
			})
		},
	}

	cmd.AddCommand(upCmd, downCmd, statusCmd)
	return cmd
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load a demo catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			var seed *seeder.Seeder
			opts := fx.Options(app.Core, seeder.Module, fx.Populate(&seed))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				res, err := seed.Catalog(ctx)
				if err != nil {
					return err
				}
				if res.Skipped {
					fmt.Fprintln(cmd.OutOrStdout(), "catalog already has products; nothing seeded")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d supplier, %d products, %d orders\n", res.Suppliers, res.Products, res.Orders)
				return nil
			})
		},
	}
}

func newWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Manage background workers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Consume order events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUntilDone(cmd.Context(), app.Worker)
		},
	})
	return cmd
}

func runUntilDone(ctx context.Context, opts fx.Option) error {
	application := fx.New(opts)
	if err := application.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return application.Stop(stopCtx)
}

func runWithApp(ctx context.Context, opts fx.Option, fn func(context.Context) error) error {
	application := fx.New(opts, fx.NopLogger)
	if err := application.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		_ = application.Stop(stopCtx)
	}()
	return fn(ctx)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
