package blobstore

import (
	"bytes"
	"context"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec compresses and decompresses blob payloads. The snapshot file
// format itself is never compressed; codecs only apply to blobs in
// transit to and from a Store.
type Codec interface {
	// Name identifies the codec, e.g. "zstd".
	Name() string

	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// ZstdCodec implements Codec with Zstandard.
type ZstdCodec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewZstdCodec creates a ZstdCodec at the default compression level.
func NewZstdCodec() (*ZstdCodec, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}

	return &ZstdCodec{enc: enc, dec: dec}, nil
}

// Name identifies the codec.
func (c *ZstdCodec) Name() string { return "zstd" }

// Compress returns the zstd frame for data.
func (c *ZstdCodec) Compress(data []byte) ([]byte, error) {
	return c.enc.EncodeAll(data, nil), nil
}

// Decompress decodes a zstd frame.
func (c *ZstdCodec) Decompress(data []byte) ([]byte, error) {
	return c.dec.DecodeAll(data, nil)
}

// LZ4Codec implements Codec with the LZ4 frame format.
type LZ4Codec struct{}

// NewLZ4Codec creates an LZ4Codec.
func NewLZ4Codec() *LZ4Codec { return &LZ4Codec{} }

// Name identifies the codec.
func (c *LZ4Codec) Name() string { return "lz4" }

// Compress returns the lz4 frame for data.
func (c *LZ4Codec) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decompress decodes an lz4 frame.
func (c *LZ4Codec) Decompress(data []byte) ([]byte, error) {
	return io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
}

// CompressedStore wraps a Store so blobs are stored compressed and
// transparently decompressed on open.
type CompressedStore struct {
	inner Store
	codec Codec
}

// NewCompressedStore creates a CompressedStore using the given codec.
func NewCompressedStore(inner Store, codec Codec) *CompressedStore {
	return &CompressedStore{inner: inner, codec: codec}
}

// Put compresses data and writes it through.
func (s *CompressedStore) Put(ctx context.Context, name string, data []byte) error {
	compressed, err := s.codec.Compress(data)
	if err != nil {
		return err
	}
	return s.inner.Put(ctx, name, compressed)
}

// Open fetches the blob and decompresses it into memory.
func (s *CompressedStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	compressed, err := ReadAll(b)
	if err != nil {
		return nil, err
	}

	data, err := s.codec.Decompress(compressed)
	if err != nil {
		return nil, err
	}

	return newMemoryBlob(data), nil
}

// Delete delegates to the backend.
func (s *CompressedStore) Delete(ctx context.Context, name string) error {
	return s.inner.Delete(ctx, name)
}

// List delegates to the backend.
func (s *CompressedStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}
