package app

import (
	"github.com/spf13/cobra"
)

// NewDefuzzCommand creates the root command for the defuzz tool.
func NewDefuzzCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "defuzz",
		Short: "A differential/metamorphic fuzzer for an LLVM mid-end optimization pass.",
		Long: `defuzz decides whether a compiler patch touches a pass it knows how to exercise,
harvests seed programs from the patch's own test-suite changes (or from a
directory of existing tests), and runs five mutate/optimize/oracle recipes
looking for unsound rewrites, commutation asymmetry, multi-use regressions,
lost instruction flags, and missed canonicalization.`,
	}

	cmd.AddCommand(NewPatchCommand())
	cmd.AddCommand(NewExistingCommand())

	return cmd
}
