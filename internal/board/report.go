package board

import (
	"fmt"
	"io"
	"sort"

	"simmips/internal/mips32"
)

// PrintInstructionMix writes a descending-by-count breakdown of retired
// opcodes, enabled by the -i flag.
func PrintInstructionMix(w io.Writer, mix map[mips32.Op]uint64) {
	if len(mix) == 0 {
		return
	}
	type row struct {
		op    mips32.Op
		count uint64
	}
	rows := make([]row, 0, len(mix))
	var total uint64
	for op, n := range mix {
		rows = append(rows, row{op, n})
		total += n
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].count != rows[j].count {
			return rows[i].count > rows[j].count
		}
		return rows[i].op.String() < rows[j].op.String()
	})

	fmt.Fprintf(w, "instruction mix (%d retired):\n", total)
	for _, rr := range rows {
		pct := 100 * float64(rr.count) / float64(total)
		fmt.Fprintf(w, "  %-8s %8d  %5.1f%%\n", rr.op.String(), rr.count, pct)
	}
}
