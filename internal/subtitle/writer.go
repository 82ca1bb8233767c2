package subtitle

import (
	"fmt"
	"io"
	"os"
)

// Bytes renders the document as SRT bytes
func (d *Document) Bytes() []byte {
	if d == nil {
		return nil
	}
	return []byte(Serialize(d.Cues))
}

// Write renders the document to w
func Write(w io.Writer, doc *Document) error {
	if doc == nil {
		return fmt.Errorf("subtitle data is empty")
	}
	if _, err := io.WriteString(w, Serialize(doc.Cues)); err != nil {
		return fmt.Errorf("failed to write subtitle: %w", err)
	}
	return nil
}

// WriteFile writes the document to path
func WriteFile(path string, doc *Document) error {
	if doc == nil {
		return fmt.Errorf("subtitle data is empty")
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	return Write(file, doc)
}
