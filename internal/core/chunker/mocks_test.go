package chunker

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/officerag/internal/core"
	"github.com/markdave123-py/officerag/internal/core/ocr"
)

// scriptedEngine returns canned OCR lines keyed by image bytes.
type scriptedEngine map[string][]core.OCRLine

func (e scriptedEngine) Recognize(_ context.Context, image []byte) ([]core.OCRLine, error) {
	lines, ok := e[string(image)]
	if !ok {
		return nil, fmt.Errorf("%w: unknown image %q", core.ErrOCRFailure, image)
	}
	return lines, nil
}

func newTestOCR(e scriptedEngine) OCR {
	return ocr.NewAdapter(e)
}

// staticPages is a PageSource with fixed pages.
type staticPages struct {
	pages []Page
	err   error
}

func (s staticPages) Pages(context.Context, string) ([]Page, error) {
	return s.pages, s.err
}

// fakeConverter copies the input to a temp artifact so cleanup can be observed.
type fakeConverter struct {
	t         *testing.T
	err       error
	artifacts []string
	cleaned   int
}

func (c *fakeConverter) Convert(_ context.Context, path, target string) (string, func(), error) {
	dir := c.t.TempDir()
	out := filepath.Join(dir, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))+"."+target)
	require.NoError(c.t, os.WriteFile(out, []byte("converted"), 0o644))
	c.artifacts = append(c.artifacts, out)
	cleanup := func() {
		c.cleaned++
		_ = os.Remove(out)
	}
	if c.err != nil {
		return "", cleanup, c.err
	}
	return out, cleanup, nil
}

// recordingChunker remembers the paths it was asked to chunk.
type recordingChunker struct {
	chunks []Chunk
	stats  Stats
	err    error
	paths  []string
}

func (r *recordingChunker) Chunk(_ context.Context, path string) ([]Chunk, Stats, error) {
	r.paths = append(r.paths, path)
	out := make([]Chunk, len(r.chunks))
	copy(out, r.chunks)
	return out, r.stats, r.err
}

// pptxSlide describes one slide for buildPPTX.
type pptxSlide struct {
	texts  []string
	images [][]byte
}

// buildPPTX writes a minimal .pptx container to dir and returns its path.
func buildPPTX(t *testing.T, dir string, slides []pptxSlide) string {
	t.Helper()
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	write := func(name, body string) {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(body))
		require.NoError(t, err)
	}

	var ids, presRels strings.Builder
	for i, s := range slides {
		n := i + 1
		fmt.Fprintf(&ids, `<p:sldId id="%d" r:id="rId%d"/>`, 255+n, n)
		fmt.Fprintf(&presRels, `<Relationship Id="rId%d" Type="slide" Target="slides/slide%d.xml"/>`, n, n)

		var tree, rels strings.Builder
		for _, txt := range s.texts {
			var paras strings.Builder
			for _, line := range strings.Split(txt, "\n") {
				fmt.Fprintf(&paras, `<a:p><a:r><a:t>%s</a:t></a:r></a:p>`, line)
			}
			fmt.Fprintf(&tree, `<p:sp><p:nvSpPr><p:cNvPr id="2" name="Text"/></p:nvSpPr><p:txBody><a:bodyPr/>%s</p:txBody></p:sp>`, paras.String())
		}
		for j, img := range s.images {
			media := fmt.Sprintf("ppt/media/s%dimg%d.png", n, j)
			f, err := w.Create(media)
			require.NoError(t, err)
			_, err = f.Write(img)
			require.NoError(t, err)
			fmt.Fprintf(&rels, `<Relationship Id="rIdImg%d" Type="image" Target="../media/s%dimg%d.png"/>`, j, n, j)
			fmt.Fprintf(&tree, `<p:pic><p:nvPicPr><p:cNvPr id="3" name="Picture"/></p:nvPicPr><p:blipFill><a:blip r:embed="rIdImg%d"/></p:blipFill></p:pic>`, j)
		}

		write(fmt.Sprintf("ppt/slides/slide%d.xml", n), `<?xml version="1.0" encoding="UTF-8"?>`+
			`<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">`+
			`<p:cSld><p:spTree>`+tree.String()+`</p:spTree></p:cSld></p:sld>`)
		write(fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", n), `<?xml version="1.0" encoding="UTF-8"?>`+
			`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`+rels.String()+`</Relationships>`)
	}

	write("ppt/presentation.xml", `<?xml version="1.0" encoding="UTF-8"?>`+
		`<p:presentation xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">`+
		`<p:sldIdLst>`+ids.String()+`</p:sldIdLst></p:presentation>`)
	write("ppt/_rels/presentation.xml.rels", `<?xml version="1.0" encoding="UTF-8"?>`+
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`+presRels.String()+`</Relationships>`)

	require.NoError(t, w.Close())
	path := filepath.Join(dir, "deck.pptx")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}
