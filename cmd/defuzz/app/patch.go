package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zjy-dev/defuzz-llvm/internal/config"
	"github.com/zjy-dev/defuzz-llvm/internal/logger"
	"github.com/zjy-dev/defuzz-llvm/internal/orchestrator"
)

// NewPatchCommand creates the "patch" subcommand: the patch-driven CLI
// contract (spec §6) — validator, optimizer-bin directory, patched source
// tree root, tool-binary directory, patch file.
func NewPatchCommand() *cobra.Command {
	var workDir string

	cmd := &cobra.Command{
		Use:   "patch <validator-bin> <opt-bin-dir> <src-root> <tool-bin-dir> <patch-file>",
		Short: "Gatekeep, harvest seeds from, and fuzz a compiler patch.",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			opts := orchestrator.PatchOptions{
				ValidatorBin: args[0],
				OptBinDir:    args[1],
				SrcRoot:      args[2],
				ToolBinDir:   args[3],
				PatchFile:    args[4],
				WorkDir:      workDir,
				Cfg:          cfg,
			}

			code, err := orchestrator.RunPatch(cmd.Context(), opts, cmd.OutOrStdout())
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
