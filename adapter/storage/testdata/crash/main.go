// Command crash rewrites a datafile with many identical lines, so tests can
// kill it at any point of the crash-safe write.
package main

import (
	"fmt"
	"os"

	"github.com/Budskyman/BigData-Praktikum-2025/adapter/storage"
)

const total = 50000

func main() {
	lines := make([][]byte, total)
	for n := range total {
		lines[n] = fmt.Appendf(nil, "somedata_%s", os.Args[1])
	}

	if err := storage.NewStorage().CrashSafeWriteFileLines(os.Args[2], lines, 0o755, 0o644); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
