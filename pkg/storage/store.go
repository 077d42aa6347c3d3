/*
Package storage implements the content-addressed storage client (C4):
fetch and store of arbitrary blobs, polymorphic over a filesystem backend
(addresses are hex sha256 content hashes of files under a root
directory) and an IPFS-like backend (addresses are CID
strings), per spec.md §4.4.
*/
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrorKind classifies a storage failure uniformly across backends
// (spec.md §4.4 "Failure is surfaced as a single StorageError kind
// regardless of backend").
type ErrorKind int

const (
	ErrorUnknown ErrorKind = iota
	ErrorNotFound
	ErrorSizeExceeded
	ErrorBackend
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorNotFound:
		return "not_found"
	case ErrorSizeExceeded:
		return "size_exceeded"
	case ErrorBackend:
		return "backend"
	default:
		return "unknown"
	}
}

// Error wraps a backend failure with its StorageError kind.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("storage: %s: %v", e.Kind, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a storage.Error of kind ErrorNotFound.
func IsNotFound(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == ErrorNotFound
}

// FetchStorage retrieves previously stored blobs by address.
type FetchStorage interface {
	// Fetch returns addr's full contents, failing with ErrorSizeExceeded
	// if the blob is larger than maxSize.
	Fetch(ctx context.Context, addr string, maxSize uint64) ([]byte, error)
	// FetchStream returns a reader over addr's contents without buffering
	// the whole blob in memory.
	FetchStream(ctx context.Context, addr string) (io.ReadCloser, error)
	// Size returns addr's content length without fetching it.
	Size(ctx context.Context, addr string) (uint64, error)
}

// StoreStorage persists new blobs and returns their content address.
type StoreStorage interface {
	Store(ctx context.Context, data []byte) (addr string, err error)
	StoreStream(ctx context.Context, r io.Reader) (addr string, err error)
}

// Store is the full capability set a backend provides (spec.md §4.4
// "Polymorphic over the capability set {FetchStorage, StoreStorage}").
type Store interface {
	FetchStorage
	StoreStorage
	Close() error
}
