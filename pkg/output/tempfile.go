package output

import (
	"encoding/json"
	"fmt"
	"os"
)

// TempFilePattern is the name pattern for persisted transcripts.
const TempFilePattern = "chatclean-*.json"

// WriteTempFile writes the report's records as a JSON array to a new temp
// file in dir and returns its path. An empty dir means os.TempDir().
func WriteTempFile(dir string, report *Report) (path string, err error) {
	f, err := os.CreateTemp(dir, TempFilePattern)
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing temp file: %w", cerr)
		}
		if err != nil {
			_ = os.Remove(f.Name())
			path = ""
		}
	}()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(report.Data); err != nil {
		return "", fmt.Errorf("writing temp file: %w", err)
	}

	return f.Name(), nil
}
