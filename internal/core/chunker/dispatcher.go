package chunker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/markdave123-py/officerag/internal/core"
)

// Result is the output of one dispatch: the ordered chunk sequence of a file
// plus the counts recorded on its ledger row.
type Result struct {
	Format Format
	Chunks []Chunk
	Stats  Stats
}

// Dispatcher selects exactly one chunker per file, converting legacy formats first.
type Dispatcher struct {
	pdf          Chunker
	spreadsheet  Chunker
	presentation Chunker
	conv         core.Converter
	log          *slog.Logger
}

func NewDispatcher(pdf, spreadsheet, presentation Chunker, conv core.Converter) *Dispatcher {
	return &Dispatcher{
		pdf:          pdf,
		spreadsheet:  spreadsheet,
		presentation: presentation,
		conv:         conv,
		log:          slog.With("component", "dispatcher"),
	}
}

// Chunk chunks the file at path. Chunks are tagged with filename, the ledger
// name of the document, and numbered from zero. Converted artifacts are
// removed before Chunk returns.
func (d *Dispatcher) Chunk(ctx context.Context, path, filename string) (*Result, error) {
	format, err := DetectFormat(filename)
	if err != nil {
		return nil, err
	}

	var (
		chunks []Chunk
		stats  Stats
	)
	switch format {
	case FormatPDF:
		chunks, stats, err = d.pdf.Chunk(ctx, path)
	case FormatSpreadsheet:
		chunks, stats, err = d.spreadsheet.Chunk(ctx, path)
	case FormatPresentation:
		chunks, stats, err = d.presentation.Chunk(ctx, path)
	case FormatLegacyWord:
		chunks, stats, err = d.convertAndChunk(ctx, path, "pdf", d.pdf)
	case FormatLegacyPresentation:
		chunks, stats, err = d.convertAndChunk(ctx, path, "pptx", d.presentation)
	}
	if err != nil {
		return nil, err
	}

	for i := range chunks {
		chunks[i].Filename = filename
		chunks[i].Index = i
	}
	d.log.Info("file chunked", "filename", filename, "format", format.String(), "chunks", len(chunks))
	return &Result{Format: format, Chunks: chunks, Stats: stats}, nil
}

func (d *Dispatcher) convertAndChunk(ctx context.Context, path, target string, next Chunker) ([]Chunk, Stats, error) {
	if d.conv == nil {
		return nil, Stats{}, fmt.Errorf("%w: no converter configured for %s", core.ErrConversionFailure, target)
	}
	out, cleanup, err := d.conv.Convert(ctx, path, target)
	if cleanup != nil {
		defer cleanup()
	}
	if err != nil {
		return nil, Stats{}, err
	}
	return next.Chunk(ctx, out)
}
