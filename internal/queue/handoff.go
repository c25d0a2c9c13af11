package queue

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vodforge/vodforge/internal/models"
	"github.com/vodforge/vodforge/internal/storage"
)

// Result is the outcome a conversion process writes before exiting. Exactly
// one of Metadata or Error is set.
type Result struct {
	Metadata *models.OutputMetadata `json:"metadata,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

// WriteRequestFile serializes the request into a temp file under the shared
// temp root and returns its path.
func WriteRequestFile(tempRoot string, req *models.ConversionRequest) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	f, err := os.CreateTemp(storage.TempRoot(tempRoot), storage.HandoffPrefix+"*.json")
	if err != nil {
		return "", fmt.Errorf("creating request file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("writing request file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("closing request file: %w", err)
	}
	return f.Name(), nil
}

// ReadRequestFile loads a request previously written by WriteRequestFile.
func ReadRequestFile(path string) (*models.ConversionRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading request file: %w", err)
	}

	var req models.ConversionRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decoding request file: %w", err)
	}
	return &req, nil
}

// ResultFilePath derives the result path for a request file.
func ResultFilePath(requestPath string) string {
	dir, base := filepath.Dir(requestPath), filepath.Base(requestPath)
	return filepath.Join(dir, base+".result")
}

// WriteResultFile persists the conversion outcome for the parent process.
func WriteResultFile(path string, result *Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing result file: %w", err)
	}
	return nil
}

// ReadResultFile loads the outcome written by the conversion process.
func ReadResultFile(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading result file: %w", err)
	}

	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decoding result file: %w", err)
	}
	return &result, nil
}
