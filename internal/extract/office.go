package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	contentTypesPart   = "[Content_Types].xml"
	docxDefaultPart    = "word/document.xml"
	docxMainType       = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
	openDocContentPart = "content.xml"
)

var (
	wordText  = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)
	drawText  = regexp.MustCompile(`<a:t[^>]*>([^<]*)</a:t>`)
	odfPara   = regexp.MustCompile(`<text:p[^>]*>([^<]*)</text:p>`)
	odfSpan   = regexp.MustCompile(`<text:span[^>]*>([^<]*)</text:span>`)
	odfHead   = regexp.MustCompile(`<text:h[^>]*>([^<]*)</text:h>`)
	override  = regexp.MustCompile(`<Override\s[^>]*>`)
	partName  = regexp.MustCompile(`PartName="([^"]+)"`)
	slideName = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)
)

func openZip(content []byte) (*zip.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("not a zip archive: %w", err)
	}
	return zr, nil
}

// readPart returns the bytes of the named archive member.
func readPart(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		b, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return b, nil
	}
	return nil, fmt.Errorf("%s not found", name)
}

// collectText joins the first capture group of every match of each pattern,
// in pattern order.
func collectText(xml []byte, patterns ...*regexp.Regexp) string {
	var parts []string
	for _, re := range patterns {
		for _, m := range re.FindAllSubmatch(xml, -1) {
			if s := strings.TrimSpace(string(m[1])); s != "" {
				parts = append(parts, s)
			}
		}
	}
	return strings.Join(parts, " ")
}

// docxMainPart resolves the main document part from [Content_Types].xml,
// falling back to word/document.xml.
func docxMainPart(zr *zip.Reader) string {
	types, err := readPart(zr, contentTypesPart)
	if err != nil {
		return docxDefaultPart
	}
	for _, tag := range override.FindAll(types, -1) {
		if !bytes.Contains(tag, []byte(`ContentType="`+docxMainType+`"`)) {
			continue
		}
		if m := partName.FindSubmatch(tag); m != nil {
			return strings.TrimPrefix(string(m[1]), "/")
		}
	}
	return docxDefaultPart
}

func extractDOCX(content []byte) (string, error) {
	zr, err := openZip(content)
	if err != nil {
		return "", err
	}
	body, err := readPart(zr, docxMainPart(zr))
	if err != nil {
		return "", err
	}
	return collectText(body, wordText), nil
}

// extractPPTX reads slides in slide-number order.
func extractPPTX(content []byte) (string, error) {
	zr, err := openZip(content)
	if err != nil {
		return "", err
	}
	type slide struct {
		n    int
		name string
	}
	var slides []slide
	for _, f := range zr.File {
		if m := slideName.FindStringSubmatch(f.Name); m != nil {
			n, _ := strconv.Atoi(m[1])
			slides = append(slides, slide{n: n, name: f.Name})
		}
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].n < slides[j].n })

	var parts []string
	for _, s := range slides {
		xml, err := readPart(zr, s.name)
		if err != nil {
			return "", err
		}
		if text := collectText(xml, drawText); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}

func extractOpenDocument(content []byte, patterns ...*regexp.Regexp) (string, error) {
	zr, err := openZip(content)
	if err != nil {
		return "", err
	}
	xml, err := readPart(zr, openDocContentPart)
	if err != nil {
		return "", err
	}
	return collectText(xml, patterns...), nil
}

func extractODT(content []byte) (string, error) {
	return extractOpenDocument(content, odfHead, odfPara, odfSpan)
}

func extractODP(content []byte) (string, error) {
	return extractOpenDocument(content, odfPara, odfSpan, odfHead)
}

func extractODS(content []byte) (string, error) {
	return extractOpenDocument(content, odfPara, odfSpan)
}
