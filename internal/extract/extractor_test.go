package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestExtractBytes_plain(t *testing.T) {
	e := NewExtractor()
	tests := []struct {
		name    string
		content []byte
		ext     string
		want    string
	}{
		{"txt", []byte("Hello world\nLine 2"), ".txt", "Hello world\nLine 2"},
		{"markdown utf8", []byte("caf\xc3\xa9"), ".md", "café"},
		{"invalid utf8", []byte("hello\x80world"), ".txt", "hello\uFFFDworld"},
		{"upper-case extension", []byte("shout"), ".TXT", "shout"},
		{"no extension", []byte("bare"), "", "bare"},
		{"bom and crlf", []byte("\xef\xbb\xbfline 1\r\nline 2"), ".txt", "line 1\nline 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.ExtractBytes(tt.content, tt.ext)
			if err != nil {
				t.Fatalf("ExtractBytes: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtract_plainFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "resume.txt")
	if err := os.WriteFile(path, []byte("File content"), 0600); err != nil {
		t.Fatal(err)
	}

	got, err := NewExtractor().Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "File content" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_nonexistent(t *testing.T) {
	_, err := NewExtractor().Extract("/nonexistent/path/resume.txt")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestExtractBytes_unsupported(t *testing.T) {
	_, err := NewExtractor().ExtractBytes([]byte("raw"), ".xlsx")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestSupported(t *testing.T) {
	for path, want := range map[string]bool{
		"cv.pdf": true, "CV.DOCX": true, "cv.odt": true, "cv.rtf": true,
		"cv.txt": true, "cv.md": true, "cv.xlsx": false, "cv": false,
	} {
		if got := Supported(path); got != want {
			t.Errorf("Supported(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestExtractBytes_invalidPDF(t *testing.T) {
	if _, err := NewExtractor().ExtractBytes([]byte("not a pdf"), ".pdf"); !errors.Is(err, ErrUnreadable) {
		t.Errorf("expected ErrUnreadable for invalid PDF, got %v", err)
	}
}

const wNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

func docxZip(files map[string]string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, body := range files {
		fw, _ := w.Create(name)
		_, _ = fw.Write([]byte(body))
	}
	_ = w.Close()
	return buf.Bytes()
}

func documentXML(body string) string {
	return `<w:document ` + wNS + `><w:body>` + body + `</w:body></w:document>`
}

func contentTypesXML(override string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` + override + `</Types>`
}

func TestExtractBytes_docx(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  string
	}{
		{
			name:  "single paragraph",
			files: map[string]string{"word/document.xml": documentXML(`<w:p><w:r><w:t>Searchable docx content</w:t></w:r></w:p>`)},
			want:  "Searchable docx content",
		},
		{
			name: "runs and paragraphs",
			files: map[string]string{"word/document.xml": documentXML(
				`<w:p w:rsidR="00AB"><w:r><w:t>Pyth</w:t></w:r><w:r><w:t xml:space="preserve">on dev</w:t></w:r></w:p>` +
					`<w:p><w:r><w:t>5 years</w:t></w:r></w:p><w:p></w:p>`)},
			want: "Python dev\n5 years",
		},
		{
			name: "custom main part",
			files: map[string]string{
				"[Content_Types].xml": contentTypesXML(`<Override PartName="/word/document2.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>`),
				"word/document2.xml":  documentXML(`<w:p><w:r><w:t>Content from document2</w:t></w:r></w:p>`),
			},
			want: "Content from document2",
		},
		{
			name: "attribute order reversed",
			files: map[string]string{
				"[Content_Types].xml": contentTypesXML(`<Override ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml" PartName="/word/document3.xml"/>`),
				"word/document3.xml":  documentXML(`<w:p><w:r><w:t>Reversed order test</w:t></w:r></w:p>`),
			},
			want: "Reversed order test",
		},
		{
			name:  "deleted text ignored",
			files: map[string]string{"word/document.xml": documentXML(`<w:p><w:r><w:delText>old</w:delText><w:t>new</w:t></w:r></w:p>`)},
			want:  "new",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewExtractor().ExtractBytes(docxZip(tt.files), ".docx")
			if err != nil {
				t.Fatalf("ExtractBytes: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractBytes_docxErrors(t *testing.T) {
	e := NewExtractor()
	if _, err := e.ExtractBytes([]byte("not a zip"), ".docx"); err == nil {
		t.Error("expected error for non-zip content")
	}
	if _, err := e.ExtractBytes(docxZip(map[string]string{"other.xml": "<x/>"}), ".docx"); err == nil {
		t.Error("expected error when document.xml is missing")
	}
}
