package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type JSONExporter struct {
	OutputDir string
}

func NewJSONExporter(outputDir string) *JSONExporter {
	return &JSONExporter{OutputDir: outputDir}
}

// Export writes rows and statistics to filename inside the output directory.
func (e *JSONExporter) Export(rows []Row, stats map[string]any, filename string) error {
	if err := os.MkdirAll(e.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	data, err := json.MarshalIndent(map[string]any{
		"generated_at": time.Now().Format(time.RFC3339),
		"rows":         rows,
		"stats":        stats,
	}, "", "\t")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(e.OutputDir, filename), data, 0644)
}

// FormatSeconds renders a duration in seconds as 1h02m03s.
func FormatSeconds(seconds int) string {
	d := time.Duration(seconds) * time.Second
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
