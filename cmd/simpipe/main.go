// Command simpipe runs the 5-stage pipelined MIPS32 simulator, with
// optional forwarding, per-cycle pipe.log tracing, and a data cache.
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
		common  cliflags.Common
		forward bool
		pipelog bool

		cacheSizeKB    int
		cacheWays      int
		cacheLineBytes int
		cachePenalty   int
		cacheWriteback int
	)

	cmd := &cobra.Command{
		Use:   "simpipe [object-file]",
		Short: "Pipelined (5-stage, in-order) MIPS32 instruction-set simulator",
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

			cacheEnabled := cmd.Flags().Changed("dcache-size") ||
				cmd.Flags().Changed("dcache-way") ||
				cmd.Flags().Changed("dcache-line") ||
				cmd.Flags().Changed("dcache-penalty") ||
				cmd.Flags().Changed("dcache-writeback")

			cfg := board.Config{
				SettingsFile:   common.SettingsFile,
				MaxCycles:      maxCycles,
				DebugLevel:     common.DebugLevel,
				InstructionMix: common.Mix,
				Pipelined:      true,
				Forward:        forward,
				LogPipeline:    pipelog,
				CacheSizeKB:    cacheSizeKB,
				CacheWays:      cacheWays,
				CacheLineBytes: cacheLineBytes,
				CachePenalty:   cachePenalty,
				CacheWriteback: cacheWriteback != 0,
				CacheEnabled:   cacheEnabled,
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
	cmd.Flags().BoolVar(&forward, "forward", true, "enable EX/MEM forwarding (-f0/-f1)")
	cmd.Flags().BoolVar(&pipelog, "pipelog", false, "write pipe.log with per-cycle stage contents (-l)")
	cmd.Flags().IntVar(&cacheSizeKB, "dcache-size", 16, "data cache size in KB")
	cmd.Flags().IntVar(&cacheWays, "dcache-way", 2, "data cache associativity")
	cmd.Flags().IntVar(&cacheLineBytes, "dcache-line", 32, "data cache line size in bytes")
	cmd.Flags().IntVar(&cachePenalty, "dcache-penalty", 10, "data cache miss penalty in cycles")
	cmd.Flags().IntVar(&cacheWriteback, "dcache-writeback", 1, "1 for writeback, 0 for write-through")

	cmd.SetArgs(cliflags.Preprocess(os.Args[1:]))
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
