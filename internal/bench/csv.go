package bench

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

var csvHeader = []string{"lock", "mode", "workload", "repeat", "threads", "max_ms", "mean_ms", "calls"}

// WriteCSV saves results to path, one row per cell.
func WriteCSV(path string, results []Result) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("bench: create csv: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("bench: write csv header: %w", err)
	}
	for _, res := range results {
		row := []string{
			res.Lock,
			string(res.Mode),
			res.Workload,
			strconv.Itoa(res.Repeat),
			strconv.Itoa(res.Threads),
			strconv.FormatFloat(Millis(res.Max), 'f', 3, 64),
			strconv.FormatFloat(Millis(res.Mean), 'f', 3, 64),
			strconv.FormatInt(res.Calls, 10),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("bench: write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("bench: flush csv: %w", err)
	}
	return file.Close()
}
