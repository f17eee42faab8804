// Command simmips runs the functional or multicycle MIPS32 simulator.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"simmips/internal/board"
	"simmips/internal/cliflags"
)

func main() {
	var (
		common     cliflags.Common
		multicycle bool
	)

	cmd := &cobra.Command{
		Use:   "simmips [object-file]",
		Short: "Functional/multicycle MIPS32 instruction-set simulator",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var maxCycles uint64
			if common.CyclesStr != "" {
				v, err := board.ParseAtoiPostfix(common.CyclesStr)
				if err != nil {
					return fmt.Errorf("invalid -e value: %w", err)
				}
				maxCycles = v
			}

			cfg := board.Config{
				SettingsFile:   common.SettingsFile,
				MaxCycles:      maxCycles,
				DebugLevel:     common.DebugLevel,
				InstructionMix: common.Mix,
				Multicycle:     multicycle,
			}
			if len(args) == 1 {
				cfg.ObjectFile = args[0]
			}

			b, err := board.Bringup(cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			b.StartSignalHandling()
			b.Run()
			b.PrintResult(os.Stdout)
			return nil
		},
	}

	cliflags.AddCommonFlags(cmd.Flags(), &common)
	cmd.Flags().BoolVar(&multicycle, "multicycle", false, "use the multicycle timing model (-m)")

	cmd.SetArgs(cliflags.Preprocess(os.Args[1:]))
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
