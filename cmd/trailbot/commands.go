package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"trailbot/internal/app"
	"trailbot/internal/config"
	"trailbot/internal/eventlog"
	"trailbot/internal/logger"
	"trailbot/internal/store/gormstore"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	var cfgPath string
	root := &cobra.Command{
		Use:           "trailbot",
		Short:         "Single-symbol EMA crossover agent for Binance USDT-M futures",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAgent(cmd.Context(), cfgPath)
		},
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", defaultConfigPath(), "config file path (env TRAILBOT_CONFIG)")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Start the trading loop",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runAgent(cmd.Context(), cfgPath)
			},
		},
		newConfigCmd(&cfgPath),
		newEventsCmd(&cfgPath),
		&cobra.Command{
			Use:   "version",
			Short: "Show version information",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "trailbot %s\n", version)
			},
		},
	)
	return root
}

func runAgent(ctx context.Context, cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("读取配置失败: %w", err)
	}
	logFile, err := setupLogOutput(cfg.App.LogPath)
	if err != nil {
		return fmt.Errorf("初始化日志文件失败: %w", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	logger.SetFormat(cfg.App.LogFormat)
	logger.SetLevel(cfg.App.LogLevel)
	if cfg.Exchange.APIKey == "" || cfg.Exchange.APISecret == "" {
		logger.Warnf("API 凭证为空，请设置 %s / %s", config.EnvAPIKey, config.EnvAPISecret)
	}
	logger.Infof("✓ 配置加载成功（环境=%s，交易对=%s）", cfg.App.Env, cfg.Strategy.Symbol)

	a, err := app.NewApp(cfg, app.WithConfigPath(cfgPath))
	if err != nil {
		return fmt.Errorf("初始化应用失败: %w", err)
	}
	if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("运行失败: %w", err)
	}
	return nil
}

func newConfigCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or generate configuration",
	}
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file populated with defaults",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeDefaultConfig(*cfgPath, force)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the config file and print the effective values",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			cfg.Exchange.APIKey = mask(cfg.Exchange.APIKey)
			cfg.Exchange.APISecret = mask(cfg.Exchange.APISecret)
			cfg.Notify.TelegramBotToken = mask(cfg.Notify.TelegramBotToken)
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.AddCommand(initCmd, checkCmd)
	return cmd
}

func writeDefaultConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	out, err := yaml.Marshal(config.Default())
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, out, 0o644)
}

func newEventsCmd(cfgPath *string) *cobra.Command {
	var (
		kind  string
		limit int
		db    string
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show the latest recorded events",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if db == "" {
				cfg, err := config.Load(*cfgPath)
				if err != nil {
					return err
				}
				db = cfg.EventLog.DBPath
			}
			if db == "" {
				return fmt.Errorf("event database disabled (eventlog.db_path is empty)")
			}
			st, err := gormstore.NewGormStore(db)
			if err != nil {
				return err
			}
			defer st.Close()
			rows, err := st.ListEvents(cmd.Context(), time.Time{}, kind, limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tEVENT\tMESSAGE\tDETAILS")
			for i := len(rows) - 1; i >= 0; i-- {
				r := rows[i]
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					time.UnixMilli(r.CreatedAtUnix).UTC().Format(time.RFC3339),
					r.Kind, r.Message, eventlog.Summarize(r.Fields, 120))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "only show this event kind")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "number of events")
	cmd.Flags().StringVar(&db, "db", "", "database path (defaults to eventlog.db_path)")
	return cmd
}

func mask(s string) string {
	if len(s) <= 4 {
		if s == "" {
			return ""
		}
		return "****"
	}
	return s[:4] + "****"
}
