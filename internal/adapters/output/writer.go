// Package output provides adapters for writing application output.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/clhore/combine-dependabot-pull-requests/internal/domain"
)

// Writer writes the run report as indented JSON.
type Writer struct {
	open func() (io.WriteCloser, error)
}

// NewFileWriter creates a Writer that truncates and writes the file at path.
func NewFileWriter(path string) *Writer {
	return &Writer{
		open: func() (io.WriteCloser, error) {
			return os.Create(path)
		},
	}
}

// NewWriterWithOutput creates a Writer with a custom output destination.
// This is useful for testing.
func NewWriterWithOutput(out io.Writer) *Writer {
	return &Writer{
		open: func() (io.WriteCloser, error) {
			return nopCloser{out}, nil
		},
	}
}

// WriteReport encodes report with two-space indentation.
func (w *Writer) WriteReport(report *domain.Report) (err error) {
	out, err := w.open()
	if err != nil {
		return fmt.Errorf("failed to open report destination: %w", err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close report destination: %w", closeErr)
		}
	}()

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
