/*
Package storage implements Balthazar's content-addressed storage client
(C4, spec.md §4.4): fetching and storing program and argument blobs by
address, polymorphic over two backends.

# Backends

FilesystemStore addresses blobs by their sha256 content hash and keeps
the bytes as files under a root directory; a small bbolt index (adapted
from the teacher's bucket idiom) caches each blob's size.

IPFSStore addresses blobs by CID against an IPFS HTTP API, following
original_source's ipfs.rs client: Store POSTs to /api/v0/add, Fetch
POSTs to /api/v0/cat.

# Errors

Both backends report failure as a single storage.Error tagged with an
ErrorKind (not_found, size_exceeded, backend), so callers in pkg/node
don't need backend-specific error handling. The orchestrator's Worker
behaviour maps any fetch failure to TaskStatus.Error(Download) without
inspecting its kind.
*/
package storage
