package chunker

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/markdave123-py/officerag/internal/core"
)

// Format is the closed set of file families the dispatcher knows.
type Format int

const (
	FormatUnknown Format = iota
	FormatPDF
	FormatSpreadsheet
	FormatPresentation
	FormatLegacyWord
	FormatLegacyPresentation
)

func (f Format) String() string {
	switch f {
	case FormatPDF:
		return "pdf"
	case FormatSpreadsheet:
		return "spreadsheet"
	case FormatPresentation:
		return "presentation"
	case FormatLegacyWord:
		return "legacy_word"
	case FormatLegacyPresentation:
		return "legacy_presentation"
	default:
		return "unknown"
	}
}

// SupportedExtensions lists the accepted upload extensions.
var SupportedExtensions = []string{".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx"}

// DetectFormat maps a file extension to its Format.
func DetectFormat(name string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".pdf":
		return FormatPDF, nil
	case ".xls", ".xlsx":
		return FormatSpreadsheet, nil
	case ".pptx":
		return FormatPresentation, nil
	case ".doc", ".docx":
		return FormatLegacyWord, nil
	case ".ppt":
		return FormatLegacyPresentation, nil
	default:
		return FormatUnknown, fmt.Errorf("%w: %q", core.ErrUnsupportedFormat, ext)
	}
}
