package chunker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/markdave123-py/officerag/internal/core"
)

// Sheet is one worksheet. Rows[0] is the header row; data rows follow.
type Sheet struct {
	Name string
	Rows [][]string
}

// SpreadsheetChunker groups data rows into fixed-size, non-overlapping chunks.
type SpreadsheetChunker struct {
	rowsPerChunk int
	read         func(path string) ([]Sheet, error)
}

func NewSpreadsheetChunker(rowsPerChunk int) *SpreadsheetChunker {
	if rowsPerChunk < 1 {
		rowsPerChunk = 1
	}
	return &SpreadsheetChunker{rowsPerChunk: rowsPerChunk, read: ReadWorkbook}
}

func (c *SpreadsheetChunker) Chunk(ctx context.Context, path string) ([]Chunk, Stats, error) {
	sheets, err := c.read(path)
	if err != nil {
		return nil, Stats{}, err
	}

	var (
		out   []Chunk
		names = make([]string, 0, len(sheets))
	)
	for _, sh := range sheets {
		if err := ctx.Err(); err != nil {
			return nil, Stats{}, err
		}
		names = append(names, sh.Name)
		out = append(out, ChunkSheet(sh, c.rowsPerChunk)...)
	}
	return out, Stats{Sheets: names}, nil
}

// ChunkSheet emits one chunk per group of rowsPerChunk data rows. Data rows
// are numbered from 1 after the header. Sheets without data rows and groups
// whose text is blank produce nothing.
func ChunkSheet(sh Sheet, rowsPerChunk int) []Chunk {
	if len(sh.Rows) < 2 {
		return nil
	}
	data := sh.Rows[1:]

	width := 0
	for _, r := range sh.Rows {
		width = max(width, len(r))
	}

	var out []Chunk
	for start := 0; start < len(data); start += rowsPerChunk {
		end := min(start+rowsPerChunk, len(data))

		rows := make([]string, 0, end-start)
		for _, r := range data[start:end] {
			cells := make([]string, width)
			copy(cells, r)
			rows = append(rows, strings.Join(cells, " "))
		}
		text := strings.TrimSpace(strings.Join(rows, " "))
		if text == "" {
			continue
		}
		out = append(out, Chunk{
			Text:    text,
			Locator: SheetLocator{Sheet: sh.Name, StartRow: start + 1, EndRow: end},
		})
	}
	return out
}

// ReadWorkbook loads every sheet of an .xlsx or .xls file in workbook order.
func ReadWorkbook(path string) ([]Sheet, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return readXLSX(path)
	case ".xls":
		return readXLS(path)
	default:
		return nil, fmt.Errorf("%w: %s is not a spreadsheet", core.ErrUnsupportedFormat, filepath.Base(path))
	}
}

func readXLSX(path string) ([]Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", core.ErrExtractionFailure, path, err)
	}
	defer f.Close()

	var sheets []Sheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("%w: sheet %q: %w", core.ErrExtractionFailure, name, err)
		}
		sheets = append(sheets, Sheet{Name: name, Rows: trimTrailingEmpty(rows)})
	}
	return sheets, nil
}

func readXLS(path string) (sheets []Sheet, err error) {
	// the BIFF parser panics on truncated records and on rows it never saw
	defer func() {
		if r := recover(); r != nil {
			sheets, err = nil, fmt.Errorf("%w: read %s: %v", core.ErrExtractionFailure, path, r)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", core.ErrExtractionFailure, path, err)
	}
	defer f.Close()

	wb, err := xls.OpenReader(f, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", core.ErrExtractionFailure, path, err)
	}
	if wb == nil {
		return nil, fmt.Errorf("%w: %s has no workbook stream", core.ErrExtractionFailure, path)
	}

	for i := 0; i < wb.NumSheets(); i++ {
		ws := wb.GetSheet(i)
		if ws == nil {
			continue
		}
		var rows [][]string
		for r := 0; r <= int(ws.MaxRow); r++ {
			row := xlsRow(ws, r)
			if row == nil {
				rows = append(rows, nil)
				continue
			}
			cells := make([]string, row.LastCol())
			for c := row.FirstCol(); c < row.LastCol(); c++ {
				cells[c] = row.Col(c)
			}
			rows = append(rows, cells)
		}
		sheets = append(sheets, Sheet{Name: ws.Name, Rows: trimTrailingEmpty(rows)})
	}
	return sheets, nil
}

// xlsRow returns nil for rows the sheet has no record of.
func xlsRow(ws *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return ws.Row(i)
}

func trimTrailingEmpty(rows [][]string) [][]string {
	for len(rows) > 0 && strings.TrimSpace(strings.Join(rows[len(rows)-1], "")) == "" {
		rows = rows[:len(rows)-1]
	}
	return rows
}
