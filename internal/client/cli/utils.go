package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/dmitrijs2005/lingopost/internal/common"
	"github.com/dmitrijs2005/lingopost/internal/netx"
)

// input indirections, swapped in tests
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
	getMultiline  = GetMultiline
)

func parseID(args []string, usage string) (int64, error) {
	if len(args) == 0 {
		return 0, common.Invalid("usage: %s", usage)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, common.Invalid("%q is not a valid id", args[0])
	}
	return id, nil
}

// progressPrinter renders a percentage on one terminal line.
func progressPrinter(w io.Writer, label string) netx.ProgressFunc {
	var (
		mu   sync.Mutex
		last = -1
	)
	return func(fraction float64) {
		pct := int(fraction * 100)
		mu.Lock()
		defer mu.Unlock()
		if pct == last {
			return
		}
		last = pct
		fmt.Fprintf(w, "\r%s %3d%%", label, pct)
		if pct >= 100 {
			fmt.Fprintln(w)
		}
	}
}

func humanBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func indent(s string) string {
	return "  " + strings.ReplaceAll(s, "\n", "\n  ")
}
