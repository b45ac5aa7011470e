package pdfmeta

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Counter reads the page count of PDF uploads. Other formats report 0.
type Counter struct{}

func New() *Counter {
	return &Counter{}
}

func (c *Counter) CountPages(filename string, data []byte) (pages int, err error) {
	if !isPDF(filename, data) {
		return 0, nil
	}
	// The parser panics on some malformed xref tables.
	defer func() {
		if r := recover(); r != nil {
			pages, err = 0, fmt.Errorf("parse pdf %s: %v", filename, r)
		}
	}()

	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("open pdf %s: %w", filename, err)
	}
	return doc.NumPage(), nil
}

func isPDF(filename string, data []byte) bool {
	if strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return true
	}
	return bytes.HasPrefix(data, []byte("%PDF-"))
}
