package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"
)

// WriteEquityCSV exports the equity curve with a net-value column (equity
// normalized by its first sample). When benchmark samples are supplied they
// are normalized the same way and written alongside for comparison; the
// benchmark must then cover the same axis.
func WriteEquityCSV(path string, points []Point, benchmark []Point) error {
	if len(points) == 0 {
		return fmt.Errorf("no equity points to export")
	}
	if benchmark != nil && len(benchmark) != len(points) {
		return fmt.Errorf("benchmark has %d samples, equity has %d", len(benchmark), len(points))
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating equity file %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"timestamp", "equity", "net_value"}
	if benchmark != nil {
		header = append(header, "benchmark")
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing equity header: %w", err)
	}

	base := points[0].Equity
	var benchBase float64
	if benchmark != nil {
		benchBase = benchmark[0].Equity
	}

	for i, p := range points {
		row := []string{
			p.Timestamp.Format(time.DateTime),
			strconv.FormatFloat(p.Equity, 'f', 2, 64),
			strconv.FormatFloat(netValue(p.Equity, base), 'f', 6, 64),
		}
		if benchmark != nil {
			row = append(row, strconv.FormatFloat(netValue(benchmark[i].Equity, benchBase), 'f', 6, 64))
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing equity row %d: %w", i, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing equity file: %w", err)
	}
	return nil
}

func netValue(v, base float64) float64 {
	if base == 0 {
		return 0
	}
	return v / base
}

// EquityRecord is the Parquet schema for equity-curve export.
type EquityRecord struct {
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Equity    float64 `parquet:"equity"`
	NetValue  float64 `parquet:"net_value"`
}

// WriteEquityParquet exports the equity curve as a Parquet file.
func WriteEquityParquet(path string, points []Point) error {
	if len(points) == 0 {
		return fmt.Errorf("no equity points to export")
	}

	base := points[0].Equity
	records := make([]EquityRecord, len(points))
	for i, p := range points {
		records[i] = EquityRecord{
			Timestamp: p.Timestamp.UnixMilli(),
			Equity:    p.Equity,
			NetValue:  netValue(p.Equity, base),
		}
	}
	if err := parquet.WriteFile(path, records); err != nil {
		return fmt.Errorf("writing equity parquet %s: %w", path, err)
	}
	return nil
}
