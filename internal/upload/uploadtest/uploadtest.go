// Package uploadtest builds multipart file headers for tests.
package uploadtest

import (
	"bytes"
	"mime/multipart"
	"testing"
)

// Sample file contents whose leading bytes sniff as the named type.
var (
	PDF  = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n")
	JPEG = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01")
	PNG  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	DOCX = []byte("PK\x03\x04\x14\x00\x06\x00word/document.xml")
)

// FileHeader returns a header for a single file posted under field.
func FileHeader(t testing.TB, field, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	form, err := multipart.NewReader(body, w.Boundary()).ReadForm(int64(len(content)) + 1024)
	if err != nil {
		t.Fatalf("read form: %v", err)
	}
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File[field][0]
}
