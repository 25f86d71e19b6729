// Package storage persists uploaded ticket documents and resolves their
// download URLs.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/field-ticket-service/internal/config"
)

// Directories documents are filed under.
const (
	DirCTBadParts  = "tickets/ct_bad_parts"
	DirCTGoodParts = "tickets/ct_good_parts"
	DirBAPFiles    = "tickets/bap_files"
)

// Object is a document to store.
type Object struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Storage is a document store addressed by opaque references.
type Storage interface {
	// Put stores obj under dir and returns its reference.
	Put(ctx context.Context, dir string, obj Object) (string, error)
	// URL resolves a reference into a URL a client can download from.
	URL(ctx context.Context, ref string) (string, error)
}

// New builds the driver selected by cfg.
func New(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (Storage, error) {
	switch cfg.Driver {
	case "minio":
		return NewMinIO(ctx, cfg, logger)
	case "local", "":
		return NewLocal(cfg.LocalDir, cfg.PublicURL)
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}

// objectKey names a new object as <dir>/<uuid><ext>, keeping the lowercased
// extension of the original file name.
func objectKey(dir, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return path.Join(dir, uuid.NewString()+ext)
}

// cleanRef rejects references that would escape the storage root.
func cleanRef(ref string) (string, error) {
	cleaned := path.Clean("/" + ref)[1:]
	if cleaned == "" || cleaned != ref {
		return "", fmt.Errorf("invalid storage reference %q", ref)
	}
	return cleaned, nil
}
