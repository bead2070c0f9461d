package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"careline/internal/config"
	"careline/internal/db"
	"careline/internal/domain"
	"careline/internal/export"
	"careline/internal/migrate"
	"careline/internal/repo"
	"careline/internal/server"
	"careline/internal/sim"
)

var logger zerolog.Logger

var rootCmd = &cobra.Command{
	Use:   "cl",
	Short: "Careline CLI",
	Long: `Careline synthesizes a deterministic multi-month care journey: chat messages
between a member and their care team, the decisions the team makes, and the
lab panels that inform them. Same config + same seed produces byte-identical
output. Runs export to JSONL and can be archived in the workspace for the
viewer API.`,
}

func main() {
	cobra.OnInitialize(initEnv)
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initEnv() {
	viper.SetEnvPrefix("CARELINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(renderCmd())
	rootCmd.AddCommand(metricsCmd())
	rootCmd.AddCommand(rosterCmd())
	rootCmd.AddCommand(runsCmd())
	rootCmd.AddCommand(serveCmd())
}

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config into the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing config")
	return cmd
}

func validateCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgPath)
			if err != nil {
				return err
			}
			fmt.Printf("config ok: start %s, %d months, seed %d\n",
				cfg.Simulation.StartDate, cfg.Simulation.Months, cfg.Simulation.Seed)
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config file (default careline.yml in workspace)")
	return cmd
}

func runCmd() *cobra.Command {
	var cfgPath, outDir string
	var seed int64
	var archive bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate a journey and export artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seed") {
				cfg.Simulation.Seed = seed
			}
			started := time.Now()
			simulator, err := sim.New(cfg.Simulation)
			if err != nil {
				return err
			}
			res, err := simulator.Run()
			if err != nil {
				return err
			}
			logger.Info().
				Int("messages", res.Metrics.MessageCount).
				Int("decisions", res.Metrics.DecisionCount).
				Int("tests", res.Metrics.TestCount).
				Dur("elapsed", time.Since(started)).
				Msg("generation complete")

			if outDir == "" {
				outDir = filepath.Join(viper.GetString("workspace"), "generated")
			}
			if err := export.WriteDir(outDir, res); err != nil {
				return err
			}
			logger.Info().Str("dir", outDir).Msg("artifacts written")

			if archive {
				runID, err := archiveRun(cmd.Context(), cfg.Simulation, res)
				if err != nil {
					return err
				}
				logger.Info().Str("run_id", runID).Msg("run archived")
			}

			if viper.GetBool("json") {
				return printJSON(res.Metrics)
			}
			printMetricsTable(res.Metrics)
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config file (default careline.yml in workspace)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default <workspace>/generated)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "override configured seed")
	cmd.Flags().BoolVar(&archive, "archive", false, "also archive the run in the workspace database")
	return cmd
}

func renderCmd() *cobra.Command {
	var runID string
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the five-section journey text for an archived run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				id, err := resolveRunID(ctx, r, runID)
				if err != nil {
					return err
				}
				res, err := r.Result(ctx, id)
				if err != nil {
					return err
				}
				fmt.Print(export.Render(res))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "run id (default latest)")
	return cmd
}

func metricsCmd() *cobra.Command {
	var runID string
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Show operational metrics for an archived run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				id, err := resolveRunID(ctx, r, runID)
				if err != nil {
					return err
				}
				m, err := r.Metrics(ctx, id)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(m)
				}
				printMetricsTable(m)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "run id (default latest)")
	return cmd
}

func rosterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "roster",
		Short: "Show the fixed participant roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			participants := domain.DefaultRegistry().All()
			if viper.GetBool("json") {
				return printJSON(participants)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"ID", "Name", "Role"})
			for _, p := range participants {
				tw.AppendRow(table.Row{p.ID, p.Name, p.Role})
			}
			tw.Render()
			return nil
		},
	}
}

func runsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List archived runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				runs, err := r.ListRuns(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(runs)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Run", "Created", "Seed", "Start", "Months", "Msgs", "Decs", "Tests"})
				for _, run := range runs {
					tw.AppendRow(table.Row{run.ID, run.CreatedAt, run.Seed, run.StartDate, run.Months,
						run.MessageCount, run.DecisionCount, run.TestCount})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the run archive read-only over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := db.Open(db.Config{Workspace: viper.GetString("workspace")})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			handler := server.New(server.Config{
				Repo:      repo.Repo{DB: conn},
				BasePath:  basePath,
				JWTSecret: os.Getenv("CARELINE_JWT_SECRET"),
				Logger:    logger,
			})
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			logger.Info().Str("addr", addr).Str("base_path", basePath).Msg("serving archive API")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

// loadConfig reads the explicit config path, falling back to the workspace
// default. Extension picks the format (.json or YAML).
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load(viper.GetString("workspace"))
	}
	return config.FromFile(path)
}

// archiveRun stores a completed run in the workspace database.
func archiveRun(ctx context.Context, s config.Simulation, res *sim.Result) (string, error) {
	conn, err := db.Open(db.Config{Workspace: viper.GetString("workspace")})
	if err != nil {
		return "", err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return "", err
	}
	u := uuid.New()
	runID := fmt.Sprintf("RUN-%x", u[:4])
	summary := repo.RunSummary{
		ID:        runID,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Seed:      s.Seed,
		StartDate: s.StartDate,
		Months:    s.Months,
	}
	if err := (repo.Repo{DB: conn}).SaveRun(ctx, summary, res); err != nil {
		return "", err
	}
	return runID, nil
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	conn, err := db.Open(db.Config{Workspace: viper.GetString("workspace")})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

func resolveRunID(ctx context.Context, r repo.Repo, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	latest, err := r.LatestRun(ctx)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", fmt.Errorf("no archived runs; use cl run --archive first")
		}
		return "", err
	}
	return latest.ID, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func printMetricsTable(m sim.Metrics) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Role", "Hours"})
	for _, role := range domain.StaffRoles {
		tw.AppendRow(table.Row{role, fmt.Sprintf("%.1f", m.InternalHours[role])})
	}
	tw.AppendFooter(table.Row{"Messages", m.MessageCount})
	tw.AppendFooter(table.Row{"Decisions", m.DecisionCount})
	tw.AppendFooter(table.Row{"Tests", m.TestCount})
	tw.Render()
}
