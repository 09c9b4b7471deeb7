// Package pdftext extracts plain text from PDF documents using pdfcpu.
// Fund disclosure documents are small (2-3 pages), so extraction goes through
// a temp file, which is what pdfcpu's API works with.
package pdftext

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog"
)

// Extractor extracts text content from PDF bytes.
type Extractor struct {
	tempDir string
	log     zerolog.Logger
}

// NewExtractor creates a new PDF text extractor.
func NewExtractor(log zerolog.Logger) *Extractor {
	tempDir := filepath.Join(os.TempDir(), "tickerwatch-pdf")
	_ = os.MkdirAll(tempDir, 0755)

	return &Extractor{
		tempDir: tempDir,
		log:     log.With().Str("component", "pdftext").Logger(),
	}
}

// ExtractText extracts all text from the given PDF content, pages joined
// in order with newlines.
func (e *Extractor) ExtractText(pdfContent []byte) (string, error) {
	tempFile, err := os.CreateTemp(e.tempDir, "extract_*.pdf")
	if err != nil {
		return "", fmt.Errorf("failed to create temp PDF file: %w", err)
	}
	tempPath := tempFile.Name()
	defer os.Remove(tempPath)

	if _, err := tempFile.Write(pdfContent); err != nil {
		tempFile.Close()
		return "", fmt.Errorf("failed to write temp PDF file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp PDF file: %w", err)
	}

	pdfCtx, err := api.ReadContextFile(tempPath)
	if err != nil {
		return "", fmt.Errorf("failed to read PDF context: %w", err)
	}

	outDir, err := os.MkdirTemp(e.tempDir, "pages_")
	if err != nil {
		return "", fmt.Errorf("failed to create page output dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	if err := api.ExtractContentFile(tempPath, outDir, nil, model.NewDefaultConfiguration()); err != nil {
		return "", fmt.Errorf("failed to extract PDF content: %w", err)
	}

	pageTexts := make(map[int]string)
	files, err := os.ReadDir(outDir)
	if err != nil {
		return "", fmt.Errorf("failed to read page output dir: %w", err)
	}
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		var pageNum int
		if _, err := fmt.Sscanf(file.Name(), "Content_page_%d", &pageNum); err != nil {
			continue
		}
		content, err := os.ReadFile(filepath.Join(outDir, file.Name()))
		if err != nil {
			e.log.Debug().Err(err).Str("file", file.Name()).Msg("Failed to read extracted page")
			continue
		}
		pageTexts[pageNum] = string(content)
	}

	pageNums := make([]int, 0, len(pageTexts))
	for n := range pageTexts {
		pageNums = append(pageNums, n)
	}
	sort.Ints(pageNums)

	var builder strings.Builder
	for _, n := range pageNums {
		if builder.Len() > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString(pageTexts[n])
	}

	e.log.Debug().
		Int("page_count", pdfCtx.PageCount).
		Int("pages_with_text", len(pageTexts)).
		Msg("Extracted PDF text")

	return builder.String(), nil
}
