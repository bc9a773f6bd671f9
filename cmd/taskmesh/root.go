package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/taskmesh/config"
	"github.com/hupe1980/taskmesh/logging"
)

type cliFlags struct {
	configPath string
	input      string
	all        bool
	timeout    time.Duration
}

func newRootCommand() *cobra.Command {
	flags := &cliFlags{}

	root := &cobra.Command{
		Use:          "taskmesh",
		Short:        "Run jobs of LLM tasks defined in YAML",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", config.DefaultConfigFile, "path to the taskmesh config file")

	root.AddCommand(newRunCommand(flags), newValidateCommand(flags))

	return root
}

func newRunCommand(flags *cliFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <job.yaml>",
		Short: "Run a job file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFrom(flags.configPath)
			if err != nil {
				return err
			}

			jf, err := config.LoadJob(args[0])
			if err != nil {
				return err
			}

			input, err := readInput(flags.input, cmd.InOrStdin())
			if err != nil {
				return err
			}

			lc := cfg.LoggerConfig()
			lc.Output = cmd.ErrOrStderr()
			lc.Component = "taskmesh"

			b := newBuilder(cfg, logging.NewLogger(lc))
			defer b.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if flags.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, flags.timeout)
				defer cancel()
			}

			return runJob(ctx, b, jf, input, flags.all, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&flags.input, "input", "i", "-", `root input of the job; "-" reads stdin`)
	cmd.Flags().BoolVar(&flags.all, "all", false, "print the output of every task instead of the last one")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 0, "abort the run after this duration")

	return cmd
}

func newValidateCommand(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <job.yaml>",
		Short: "Check a config and job file without calling any provider",
		Long:  "Check a config and job file without calling any provider. Retrieve tasks that read a table also ping the configured database.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFrom(flags.configPath)
			if err != nil {
				return err
			}

			jf, err := config.LoadJob(args[0])
			if err != nil {
				return err
			}

			b := newBuilder(cfg, logging.NoOpLogger{})
			defer b.Close()

			if _, err := b.job(cmd.Context(), jf); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "ok: %s job with %d tasks\n", jf.Mode, len(jf.Tasks))

			return nil
		},
	}
}

func readInput(flag string, stdin io.Reader) (string, error) {
	if flag != "-" {
		return flag, nil
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}

	return strings.TrimRight(string(data), "\n"), nil
}
