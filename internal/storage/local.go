package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Local stores documents on disk below Root. Files are served by the HTTP
// layer under PublicURL.
type Local struct {
	Root      string
	PublicURL string
}

// NewLocal creates root if needed.
func NewLocal(root, publicURL string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Local{Root: root, PublicURL: strings.TrimRight(publicURL, "/")}, nil
}

func (l *Local) Put(ctx context.Context, dir string, obj Object) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := objectKey(dir, obj.Filename)
	target := filepath.Join(l.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create storage dir: %w", err)
	}

	f, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", key, err)
	}
	if _, err := io.Copy(f, obj.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(target)
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(target)
		return "", fmt.Errorf("close %s: %w", key, err)
	}
	return key, nil
}

func (l *Local) URL(_ context.Context, ref string) (string, error) {
	cleaned, err := cleanRef(ref)
	if err != nil {
		return "", err
	}
	return l.PublicURL + "/" + cleaned, nil
}
