package report

import (
	"fmt"
	"os"
	"strings"
)

// headerReserve is the size of the blank region at the top of the report
// file. Blotter lines stream in below it during the run; the summary, known
// only after full replay, is written into the region afterwards without
// rewriting the file.
const headerReserve = 100000

// Writer is the report file. Create it before the run, Printf blotter lines
// while trading, then WriteSummary and Close.
type Writer struct {
	f *os.File
}

func NewWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating report file %s: %w", path, err)
	}
	if _, err := f.WriteString(strings.Repeat(" ", headerReserve) + "\n"); err != nil {
		f.Close()
		return nil, fmt.Errorf("reserving report header: %w", err)
	}
	return &Writer{f: f}, nil
}

// Printf appends a blotter line to the body of the report.
func (w *Writer) Printf(format string, args ...any) error {
	if _, err := fmt.Fprintf(w.f, format, args...); err != nil {
		return fmt.Errorf("writing report line: %w", err)
	}
	return nil
}

// WriteSummary writes the summary into the reserved header region.
func (w *Writer) WriteSummary(summary string) error {
	if len(summary) > headerReserve {
		return fmt.Errorf("summary of %d bytes exceeds the %d byte header region", len(summary), headerReserve)
	}
	if _, err := w.f.WriteAt([]byte(summary), 0); err != nil {
		return fmt.Errorf("writing report summary: %w", err)
	}
	return nil
}

func (w *Writer) Close() error {
	return w.f.Close()
}
