package chunker

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/markdave123-py/officerag/internal/core"
)

const (
	nsDrawingML = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsRelations = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
)

// Slide is one slide in deck order: trimmed non-empty shape texts and the
// bytes of every picture shape.
type Slide struct {
	Number int
	Texts  []string
	Images [][]byte
}

type presentationXML struct {
	SlideIDs []struct {
		RID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sldIdLst>sldId"`
}

type relationshipsXML struct {
	Rels []relationship `xml:"Relationship"`
}

type relationship struct {
	ID         string `xml:"Id,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"`
}

// ReadDeck opens a .pptx container and returns its slides in deck order.
func ReadDeck(p string) ([]Slide, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", core.ErrExtractionFailure, p, err)
	}
	defer zr.Close()

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	presData, err := readZipFile(files, "ppt/presentation.xml")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrExtractionFailure, err)
	}
	var pres presentationXML
	if err := xml.Unmarshal(presData, &pres); err != nil {
		return nil, fmt.Errorf("%w: parse presentation.xml: %w", core.ErrExtractionFailure, err)
	}
	presRels, err := readRels(files, "ppt/_rels/presentation.xml.rels")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrExtractionFailure, err)
	}

	slides := make([]Slide, 0, len(pres.SlideIDs))
	for i, sid := range pres.SlideIDs {
		rel, ok := presRels[sid.RID]
		if !ok {
			return nil, fmt.Errorf("%w: slide %d has no relationship %q", core.ErrExtractionFailure, i+1, sid.RID)
		}
		slidePath := resolvePart("ppt", rel.Target)

		data, err := readZipFile(files, slidePath)
		if err != nil {
			return nil, fmt.Errorf("%w: slide %d: %w", core.ErrExtractionFailure, i+1, err)
		}
		texts, blips, err := parseSlide(data)
		if err != nil {
			return nil, fmt.Errorf("%w: slide %d: %w", core.ErrExtractionFailure, i+1, err)
		}

		slide := Slide{Number: i + 1, Texts: texts}
		if len(blips) > 0 {
			dir := path.Dir(slidePath)
			slideRels, err := readRels(files, path.Join(dir, "_rels", path.Base(slidePath)+".rels"))
			if err != nil {
				return nil, fmt.Errorf("%w: slide %d: %w", core.ErrExtractionFailure, i+1, err)
			}
			for _, rid := range blips {
				r, ok := slideRels[rid]
				if !ok || strings.EqualFold(r.TargetMode, "External") {
					continue
				}
				img, err := readZipFile(files, resolvePart(dir, r.Target))
				if err != nil {
					// unreadable picture data is handed to OCR as empty and yields no text
					img = nil
				}
				slide.Images = append(slide.Images, img)
			}
		}
		slides = append(slides, slide)
	}
	return slides, nil
}

// parseSlide walks a slide part in document order. It returns the trimmed
// text of every shape that has any, and the relationship ids of the images
// referenced by picture shapes.
func parseSlide(data []byte) (texts, blips []string, err error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var (
		shapeDepth int
		picDepth   int
		inText     bool
		paras      []string
		cur        strings.Builder
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "sp":
				shapeDepth++
				if shapeDepth == 1 {
					paras = paras[:0]
				}
			case "p":
				if shapeDepth > 0 && t.Name.Space == nsDrawingML {
					cur.Reset()
				}
			case "t":
				inText = shapeDepth > 0
			case "br":
				if shapeDepth > 0 {
					cur.WriteString("\n")
				}
			case "pic":
				picDepth++
			case "blip":
				if picDepth > 0 {
					for _, a := range t.Attr {
						if a.Name.Local == "embed" && a.Name.Space == nsRelations {
							blips = append(blips, a.Value)
						}
					}
				}
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if shapeDepth > 0 && t.Name.Space == nsDrawingML {
					paras = append(paras, cur.String())
				}
			case "sp":
				shapeDepth--
				if shapeDepth == 0 {
					if s := strings.TrimSpace(strings.Join(paras, "\n")); s != "" {
						texts = append(texts, s)
					}
				}
			case "pic":
				picDepth--
			}
		}
	}
	return texts, blips, nil
}

func readRels(files map[string]*zip.File, name string) (map[string]relationship, error) {
	data, err := readZipFile(files, name)
	if err != nil {
		return nil, err
	}
	var rels relationshipsXML
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	out := make(map[string]relationship, len(rels.Rels))
	for _, r := range rels.Rels {
		out[r.ID] = r
	}
	return out, nil
}

func readZipFile(files map[string]*zip.File, name string) ([]byte, error) {
	f, ok := files[name]
	if !ok {
		return nil, fmt.Errorf("missing part %s", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// resolvePart resolves a relationship target against the directory of its source part.
func resolvePart(dir, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Clean(path.Join(dir, target))
}
