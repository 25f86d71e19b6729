// Package upload validates multipart document uploads before they are stored.
package upload

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
)

const sniffLen = 512

// Rule accepts files by extension, sniffed content type and size.
type Rule struct {
	// Types maps an accepted extension (without the dot) to the content
	// types its bytes may sniff as.
	Types    map[string][]string
	MaxBytes int64
}

var (
	jpegTypes = []string{"image/jpeg"}
	pngTypes  = []string{"image/png"}
	pdfTypes  = []string{"application/pdf"}
	// Legacy .doc is an OLE container, which sniffs as opaque bytes.
	docTypes  = []string{"application/octet-stream", "application/msword"}
	docxTypes = []string{"application/zip", "application/octet-stream"}
)

// EvidenceRule accepts the CT part photos or scans: jpg, jpeg, png or pdf.
func EvidenceRule(maxBytes int64) Rule {
	return Rule{
		Types: map[string][]string{
			"jpg":  jpegTypes,
			"jpeg": jpegTypes,
			"png":  pngTypes,
			"pdf":  pdfTypes,
		},
		MaxBytes: maxBytes,
	}
}

// BAPRule accepts the BAP document as a PDF only.
func BAPRule(maxBytes int64) Rule {
	return Rule{Types: map[string][]string{"pdf": pdfTypes}, MaxBytes: maxBytes}
}

// CompletionBAPRule accepts the BAP document as PDF, DOC or DOCX.
func CompletionBAPRule(maxBytes int64) Rule {
	return Rule{
		Types: map[string][]string{
			"pdf":  pdfTypes,
			"doc":  docTypes,
			"docx": docxTypes,
		},
		MaxBytes: maxBytes,
	}
}

// Extensions lists the accepted extensions in sorted order.
func (r Rule) Extensions() []string {
	exts := make([]string, 0, len(r.Types))
	for ext := range r.Types {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Validate checks fh against the rule and returns the sniffed content type.
// The returned error message is suitable for a field-level validation error.
func (r Rule) Validate(fh *multipart.FileHeader) (string, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(fh.Filename)), ".")
	accepted, ok := r.Types[ext]
	if !ok {
		return "", fmt.Errorf("must be a file of type: %s", strings.Join(r.Extensions(), ", "))
	}
	if fh.Size <= 0 {
		return "", fmt.Errorf("must not be empty")
	}
	if r.MaxBytes > 0 && fh.Size > r.MaxBytes {
		return "", fmt.Errorf("must not be greater than %d kilobytes", r.MaxBytes/1024)
	}

	contentType, err := sniff(fh)
	if err != nil {
		return "", fmt.Errorf("could not be read")
	}
	for _, t := range accepted {
		if contentType == t {
			return contentType, nil
		}
	}
	return "", fmt.Errorf("content does not match a %s file", ext)
}

func sniff(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	contentType := http.DetectContentType(buf[:n])
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	return contentType, nil
}
