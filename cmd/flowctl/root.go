package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"lingua-flow-go/internal/config"
	"lingua-flow-go/internal/logger"
)

type commandContext struct {
	envFile  string
	logLevel string

	cfg *config.Config
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	if err := config.LoadEnvFile(c.envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	c.cfg = cfg
	return cfg, nil
}

// newLogger writes to stderr so stdout stays machine readable.
func (c *commandContext) newLogger(stderr io.Writer) *logger.Logger {
	env, level := "local", "warn"
	if c.cfg != nil {
		env, level = c.cfg.Environment, c.cfg.LogLevel
	}
	return logger.NewWith(env, level, stderr)
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "flowctl",
		Short:         "Run lingua-flow pipelines from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&ctx.envFile, "env-file", ".env", "Path to a .env file (ignored when missing)")
	rootCmd.PersistentFlags().StringVar(&ctx.logLevel, "log-level", "", "Override LOG_LEVEL")

	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newLanguagesCommand(ctx))
	rootCmd.AddCommand(newModesCommand())

	return rootCmd
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
