package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestText_Passthrough(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"notes.txt", "README.md", "guide.markdown", "UPPER.TXT"} {
		got, err := Text(name, []byte("hello world"))
		if err != nil {
			t.Errorf("Text(%q): %v", name, err)
			continue
		}
		if got != "hello world" {
			t.Errorf("Text(%q) = %q, want passthrough", name, got)
		}
	}
}

func TestText_UnsupportedFormat(t *testing.T) {
	t.Parallel()

	_, err := Text("photo.png", []byte{0x89, 0x50})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("error = %v, want ErrUnsupportedFormat", err)
	}
	if Supported("photo.png") {
		t.Error("Supported(photo.png) = true")
	}
	if !Supported("policy.pdf") {
		t.Error("Supported(policy.pdf) = false")
	}
}

func TestText_Docx(t *testing.T) {
	t.Parallel()

	body := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Sick leave is capped at </w:t></w:r><w:r><w:t>10 days</w:t></w:r></w:p>
    <w:p><w:r><w:t>per calendar year.</w:t></w:r></w:p>
  </w:body>
</w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("zip create: %v", err)
	}
	if _, err := f.Write([]byte(body)); err != nil {
		t.Fatalf("zip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}

	got, err := Text("handbook.docx", buf.Bytes())
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if !strings.Contains(got, "Sick leave is capped at 10 days") {
		t.Errorf("runs within a paragraph not joined: %q", got)
	}
	if !strings.Contains(got, "\nper calendar year.") {
		t.Errorf("paragraph break missing: %q", got)
	}
}

func TestText_DocxMissingBody(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if _, err := zw.Create("word/styles.xml"); err != nil {
		t.Fatalf("zip create: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}

	if _, err := Text("broken.docx", buf.Bytes()); err == nil {
		t.Error("expected error for docx without word/document.xml")
	}
}

func TestText_CorruptPDF(t *testing.T) {
	t.Parallel()

	if _, err := Text("broken.pdf", []byte("not a pdf")); err == nil {
		t.Error("expected error for corrupt pdf")
	}
}
