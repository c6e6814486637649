package app

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/zjy-dev/defuzz-llvm/internal/config"
	"github.com/zjy-dev/defuzz-llvm/internal/logger"
	"github.com/zjy-dev/defuzz-llvm/internal/orchestrator"
)

// NewExistingCommand creates the "existing" subcommand: the directory-
// driven CLI contract (spec §6) — validator, optimizer-bin directory,
// tool-binary directory, test directory, integer trial count.
func NewExistingCommand() *cobra.Command {
	var workDir string

	cmd := &cobra.Command{
		Use:   "existing <validator-bin> <opt-bin-dir> <tool-bin-dir> <test-dir> <trial-count>",
		Short: "Fuzz a directory of existing optimizer test cases.",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			trialCount, err := strconv.Atoi(args[4])
			if err != nil {
				return fmt.Errorf("invalid trial count %q: %w", args[4], err)
			}

			cfg, err := config.Load(".")
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.LogDir != "" {
				if err := logger.InitWithFile(cfg.LogLevel, cfg.LogDir); err != nil {
					return fmt.Errorf("failed to initialize log file: %w", err)
				}
				defer logger.Close()
			} else {
				logger.Init(cfg.LogLevel)
			}

			opts := orchestrator.ExistingOptions{
				ValidatorBin: args[0],
				OptBinDir:    args[1],
				ToolBinDir:   args[2],
				TestDir:      args[3],
				TrialCount:   trialCount,
				WorkDir:      workDir,
				Cfg:          cfg,
			}

			code, err := orchestrator.RunExisting(cmd.Context(), opts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if code != 0 {
				os.Exit(code)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&workDir, "work-dir", "fuzz", "Scratch work directory, recreated fresh at startup")

	return cmd
}
