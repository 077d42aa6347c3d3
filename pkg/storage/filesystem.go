package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FilesystemStore is the local-filesystem backend: addresses are content
// hashes, stored as files under root (spec.md §4.4, §6 "a filesystem
// path").
type FilesystemStore struct {
	root  string
	index *index
}

// NewFilesystemStore opens (creating if absent) a filesystem-backed store
// rooted at dir.
func NewFilesystemStore(dir string) (*FilesystemStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &Error{Kind: ErrorBackend, Err: fmt.Errorf("create storage root %s: %w", dir, err)}
	}
	idx, err := openIndex(dir)
	if err != nil {
		return nil, &Error{Kind: ErrorBackend, Err: err}
	}
	return &FilesystemStore{root: dir, index: idx}, nil
}

func (s *FilesystemStore) Close() error { return s.index.Close() }

func (s *FilesystemStore) path(addr string) string {
	return filepath.Join(s.root, filepath.Base(addr))
}

func (s *FilesystemStore) Fetch(ctx context.Context, addr string, maxSize uint64) ([]byte, error) {
	size, err := s.Size(ctx, addr)
	if err != nil {
		return nil, err
	}
	if size > maxSize {
		return nil, &Error{Kind: ErrorSizeExceeded, Err: fmt.Errorf("%s is %d bytes, max %d", addr, size, maxSize)}
	}
	data, err := os.ReadFile(s.path(addr))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &Error{Kind: ErrorNotFound, Err: err}
		}
		return nil, &Error{Kind: ErrorBackend, Err: err}
	}
	return data, nil
}

func (s *FilesystemStore) FetchStream(ctx context.Context, addr string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(addr))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &Error{Kind: ErrorNotFound, Err: err}
		}
		return nil, &Error{Kind: ErrorBackend, Err: err}
	}
	return f, nil
}

func (s *FilesystemStore) Size(ctx context.Context, addr string) (uint64, error) {
	if size, ok, err := s.index.getSize(addr); err == nil && ok {
		return size, nil
	}
	info, err := os.Stat(s.path(addr))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, &Error{Kind: ErrorNotFound, Err: err}
		}
		return 0, &Error{Kind: ErrorBackend, Err: err}
	}
	return uint64(info.Size()), nil
}

func (s *FilesystemStore) Store(ctx context.Context, data []byte) (string, error) {
	addr := contentAddress(data)
	if err := os.WriteFile(s.path(addr), data, 0o644); err != nil {
		return "", &Error{Kind: ErrorBackend, Err: err}
	}
	if err := s.index.putSize(addr, uint64(len(data))); err != nil {
		return "", &Error{Kind: ErrorBackend, Err: err}
	}
	return addr, nil
}

func (s *FilesystemStore) StoreStream(ctx context.Context, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", &Error{Kind: ErrorBackend, Err: err}
	}
	return s.Store(ctx, data)
}

func contentAddress(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
