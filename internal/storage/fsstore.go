package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// FSStore is a local-filesystem ObjectStore for development and tests.
// Objects live at {root}/{bucket}/{key}.zst, zstd-compressed at rest.
//
// Writes go through a temp file and a rename so a blob is either fully
// present or absent; a crashed upload never leaves a readable partial.
type FSStore struct {
	root    string
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

const fsObjectSuffix = ".zst"

// NewFSStore creates the store rooted at dir, creating it if needed.
func NewFSStore(dir string) (*FSStore, error) {
	dir = filepath.Clean(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &UnavailableError{Op: "init", Err: err}
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, &UnavailableError{Op: "init", Err: err}
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, &UnavailableError{Op: "init", Err: err}
	}
	return &FSStore{root: dir, encoder: enc, decoder: dec}, nil
}

func (s *FSStore) objectPath(bucket, key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.root, bucket, filepath.FromSlash(key)+fsObjectSuffix), nil
}

// validateKey rejects keys that would escape the bucket directory.
func validateKey(key string) error {
	if key == "" {
		return errors.New("empty object key")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return errors.New("invalid object key")
	}
	return nil
}

// Put stores data compressed under bucket/key. The contentType is not
// persisted by this driver; the run registry is the system of record for it.
func (s *FSStore) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	path, err := s.objectPath(bucket, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &UnavailableError{Op: "put", Err: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return &UnavailableError{Op: "put", Err: err}
	}
	defer os.Remove(tmp.Name())

	compressed := s.encoder.EncodeAll(data, nil)
	if _, err := tmp.Write(compressed); err != nil {
		tmp.Close()
		return &UnavailableError{Op: "put", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &UnavailableError{Op: "put", Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return &UnavailableError{Op: "put", Err: err}
	}
	return nil
}

// Get reads and decompresses the object at bucket/key.
func (s *FSStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	path, err := s.objectPath(bucket, key)
	if err != nil {
		return nil, err
	}
	compressed, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, &UnavailableError{Op: "get", Err: err}
	}
	data, err := s.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, &UnavailableError{Op: "get", Err: err}
	}
	return data, nil
}

// List walks the bucket directory and returns objects under prefix.
func (s *FSStore) List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	bucketDir := filepath.Join(s.root, bucket)
	var infos []ObjectInfo

	err := filepath.WalkDir(bucketDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, fsObjectSuffix) {
			return nil
		}
		rel, err := filepath.Rel(bucketDir, path)
		if err != nil {
			return err
		}
		key := strings.TrimSuffix(filepath.ToSlash(rel), fsObjectSuffix)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		infos = append(infos, ObjectInfo{
			Key:          key,
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, &UnavailableError{Op: "list", Err: err}
	}
	return infos, nil
}
