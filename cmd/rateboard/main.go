package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/rateboard/internal/clock"
	"github.com/smallbiznis/rateboard/internal/config"
	"github.com/smallbiznis/rateboard/internal/heatmap"
	heatmapdomain "github.com/smallbiznis/rateboard/internal/heatmap/domain"
	"github.com/smallbiznis/rateboard/internal/migration"
	"github.com/smallbiznis/rateboard/internal/observability"
	"github.com/smallbiznis/rateboard/internal/ratemismatch"
	mismatchdomain "github.com/smallbiznis/rateboard/internal/ratemismatch/domain"
	"github.com/smallbiznis/rateboard/internal/ratemismatch/report"
	"github.com/smallbiznis/rateboard/internal/redis"
	"github.com/smallbiznis/rateboard/internal/security/vault"
	"github.com/smallbiznis/rateboard/internal/server"
	"github.com/smallbiznis/rateboard/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rateboard",
		Short:         "Hotel rate mismatch analysis and pickup heatmaps",
		Version:       readVersionFromEnv(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newAnalyzeCmd(), newHeatmapCmd(), newSecretCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run migrations, then serve the dashboard API",
		RunE: func(cmd *cobra.Command, args []string) error {
			runServe()
			return nil
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply app store migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd.Context(), nil, migration.Module)
		},
	}
}

func newAnalyzeCmd() *cobra.Command {
	var (
		refresh bool
		pdfPath string
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Classify rate mismatches and print the report as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			var svc mismatchdomain.Service
			return runOnce(cmd.Context(), func(ctx context.Context) error {
				resp, err := svc.Analyze(ctx, mismatchdomain.AnalyzeRequest{Refresh: refresh})
				if err != nil {
					return err
				}
				if pdfPath != "" {
					if err := writePDF(ctx, pdfPath, resp); err != nil {
						return err
					}
				}
				return printJSON(cmd.OutOrStdout(), resp)
			},
				migration.Module,
				clock.Module,
				ratemismatch.Module,
				fx.Populate(&svc),
			)
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "discard the snapshot and query the source database")
	cmd.Flags().StringVar(&pdfPath, "pdf", "", "also write the report as a PDF to this path")
	return cmd
}

func newHeatmapCmd() *cobra.Command {
	var (
		req        heatmapdomain.RenderRequest
		start, end string
		year       string
	)
	cmd := &cobra.Command{
		Use:   "heatmap",
		Short: "Build a heatmap render model and print it as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if req.Start, err = parseFlagDate("start", start); err != nil {
				return err
			}
			if req.End, err = parseFlagDate("end", end); err != nil {
				return err
			}
			req.Year = heatmapdomain.YearMode(strings.ToLower(year))

			var svc heatmapdomain.Service
			return runOnce(cmd.Context(), func(ctx context.Context) error {
				model, err := svc.Render(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), model)
			},
				heatmap.Module,
				fx.Populate(&svc),
			)
		},
	}
	cmd.Flags().StringVar(&req.Dataset, "dataset", "", "dataset id, e.g. pickup-data")
	cmd.Flags().StringVar(&start, "start", "", "first stay/report date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "last stay/report date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&req.ValueColumn, "value-column", "", "numeric column to plot")
	cmd.Flags().BoolVar(&req.Normalize, "normalize", false, "min-max normalize the grid")
	cmd.Flags().StringVar(&year, "year", string(heatmapdomain.YearCurrent), "current or previous")
	cmd.Flags().StringVar(&req.ColorScale, "color-scale", "", "color scale name")
	_ = cmd.MarkFlagRequired("dataset")
	return cmd
}

func newSecretCmd() *cobra.Command {
	secret := &cobra.Command{
		Use:   "secret",
		Short: "Manage encrypted configuration values",
	}
	secret.AddCommand(&cobra.Command{
		Use:   "encrypt [value]",
		Short: "Encrypt a value with VAULT_KEY; reads stdin when no value is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plaintext := ""
			if len(args) == 1 {
				plaintext = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return err
				}
				plaintext = strings.TrimRight(line, "\r\n")
			}
			if plaintext == "" {
				return errors.New("nothing to encrypt")
			}

			cfg := config.Load()
			provider, err := vault.NewFactory(vault.Config{Provider: cfg.Vault.Provider, Key: cfg.Vault.Key})
			if err != nil {
				return err
			}
			encrypted, err := vault.EncryptString(provider, plaintext)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), encrypted)
			return nil
		},
	})
	return secret
}

func runServe() {
	app := fx.New(
		infrastructure(),
		migration.Module,
		clock.Module,
		server.Module,
	)
	app.Run()
}

func infrastructure() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		vault.Module,
		db.Module,
		redis.Module,
	)
}

// runOnce starts an app, runs fn against the populated services and stops it.
func runOnce(parent context.Context, fn func(ctx context.Context) error, opts ...fx.Option) error {
	if parent == nil {
		parent = context.Background()
	}
	app := fx.New(
		infrastructure(),
		fx.Options(opts...),
		fx.NopLogger,
	)

	startCtx, cancel := context.WithTimeout(parent, 2*time.Minute)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("start failed: %w", err)
	}
	defer func() { _ = app.Stop(context.Background()) }()

	if fn == nil {
		return nil
	}
	return fn(parent)
}

func writePDF(ctx context.Context, path string, resp *mismatchdomain.Report) error {
	doc, err := report.Render(ctx, resp)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, doc); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseFlagDate(name, value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(time.DateOnly, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: expected YYYY-MM-DD", name)
	}
	return parsed, nil
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

func readVersionFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("APP_VERSION")); v != "" {
		return v
	}
	return "dev"
}
