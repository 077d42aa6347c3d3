package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/ipfs/go-cid"
)

func jsonDecode(r io.Reader, v any) error {
	return json.NewDecoder(r).Decode(v)
}

// IPFSStore is the content-addressed backend: addresses are CID strings
// resolved against an IPFS HTTP API, matching original_source's
// ipfs.rs client (spec.md §4.4, §6 "a content-hash reference
// (/ipfs/<cid>)").
type IPFSStore struct {
	apiURL string
	client *http.Client
}

// NewIPFSStore constructs a client against an IPFS HTTP API at apiURL
// (e.g. http://localhost:5001).
func NewIPFSStore(apiURL string) *IPFSStore {
	return &IPFSStore{apiURL: apiURL, client: http.DefaultClient}
}

func (s *IPFSStore) Close() error { return nil }

// parseAddr accepts either a bare CID or a "/ipfs/<cid>" path.
func parseAddr(addr string) (cid.Cid, error) {
	trimmed := addr
	if len(addr) > 6 && addr[:6] == "/ipfs/" {
		trimmed = addr[6:]
	}
	id, err := cid.Decode(trimmed)
	if err != nil {
		return cid.Cid{}, &Error{Kind: ErrorNotFound, Err: fmt.Errorf("parse cid %q: %w", addr, err)}
	}
	return id, nil
}

func (s *IPFSStore) Fetch(ctx context.Context, addr string, maxSize uint64) ([]byte, error) {
	r, err := s.FetchStream(ctx, addr)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	limited := io.LimitReader(r, int64(maxSize)+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, &Error{Kind: ErrorBackend, Err: err}
	}
	if uint64(len(data)) > maxSize {
		return nil, &Error{Kind: ErrorSizeExceeded, Err: fmt.Errorf("%s exceeds %d bytes", addr, maxSize)}
	}
	return data, nil
}

func (s *IPFSStore) FetchStream(ctx context.Context, addr string) (io.ReadCloser, error) {
	id, err := parseAddr(addr)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/api/v0/cat?arg=%s", s.apiURL, id.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return nil, &Error{Kind: ErrorBackend, Err: err}
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &Error{Kind: ErrorBackend, Err: err}
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, &Error{Kind: ErrorNotFound, Err: fmt.Errorf("%s not pinned", addr)}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &Error{Kind: ErrorBackend, Err: fmt.Errorf("ipfs cat: unexpected status %d", resp.StatusCode)}
	}
	return resp.Body, nil
}

func (s *IPFSStore) Size(ctx context.Context, addr string) (uint64, error) {
	id, err := parseAddr(addr)
	if err != nil {
		return 0, err
	}

	url := fmt.Sprintf("%s/api/v0/files/stat?arg=/ipfs/%s", s.apiURL, id.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return 0, &Error{Kind: ErrorBackend, Err: err}
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, &Error{Kind: ErrorBackend, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, &Error{Kind: ErrorNotFound, Err: fmt.Errorf("stat %s: status %d", addr, resp.StatusCode)}
	}

	var stat struct {
		Size uint64 `json:"Size"`
	}
	if err := jsonDecode(resp.Body, &stat); err != nil {
		return 0, &Error{Kind: ErrorBackend, Err: err}
	}
	return stat.Size, nil
}

func (s *IPFSStore) Store(ctx context.Context, data []byte) (string, error) {
	return s.StoreStream(ctx, bytes.NewReader(data))
}

func (s *IPFSStore) StoreStream(ctx context.Context, r io.Reader) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "blob")
	if err != nil {
		return "", &Error{Kind: ErrorBackend, Err: err}
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", &Error{Kind: ErrorBackend, Err: err}
	}
	if err := writer.Close(); err != nil {
		return "", &Error{Kind: ErrorBackend, Err: err}
	}

	url := fmt.Sprintf("%s/api/v0/add", s.apiURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", &Error{Kind: ErrorBackend, Err: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return "", &Error{Kind: ErrorBackend, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &Error{Kind: ErrorBackend, Err: fmt.Errorf("ipfs add: status %d", resp.StatusCode)}
	}

	var added struct {
		Hash string `json:"Hash"`
	}
	if err := jsonDecode(resp.Body, &added); err != nil {
		return "", &Error{Kind: ErrorBackend, Err: err}
	}
	return "/ipfs/" + added.Hash, nil
}
