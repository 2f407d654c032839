package persistence

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/featherdb/feather/metadata"
	"github.com/featherdb/feather/vectorstore"
)

// Encode writes the store as a version-2 snapshot.
func Encode(w io.Writer, store *vectorstore.Store) error {
	bw := newBinaryWriter(w)

	bw.write(Magic[:])
	bw.Uint32(Version2)
	bw.Uint32(uint32(store.Dimension()))

	err := store.ForEach(func(_ uint32, r *vectorstore.Record) error {
		bw.Uint64(r.ID)
		bw.Float32s(r.Vector)

		bw.Int64(r.Meta.Timestamp)
		bw.Float32(r.Meta.Importance)
		bw.Uint32(uint32(r.Meta.Type))
		bw.Bytes([]byte(r.Meta.Source))
		bw.Bytes([]byte(r.Meta.Content))

		tags := r.Meta.Tags
		if tags == nil {
			tags = []string{}
		}
		encoded, err := json.Marshal(tags)
		if err != nil {
			return err
		}
		bw.Bytes(encoded)

		return bw.Err()
	})
	if err != nil {
		return err
	}

	return bw.Err()
}

// Decode reads a snapshot and reconstructs the record store. The store is
// complete or the error is non-nil, never both.
func Decode(r io.Reader) (*vectorstore.Store, error) {
	br := newBinaryReader(r)

	var magic [4]byte
	if err := br.read(magic[:]); err != nil {
		return nil, &ErrCorruptFile{Reason: "missing header"}
	}

	// The reversed magic comes from an endianness bug in an early writer;
	// those files are otherwise well-formed.
	if magic != Magic && magic != legacyMagic {
		return nil, &ErrCorruptFile{Reason: fmt.Sprintf("bad magic %q", magic[:])}
	}

	version, err := br.Uint32()
	if err != nil {
		return nil, &ErrCorruptFile{Reason: "missing version"}
	}

	if version != Version1 && version != Version2 {
		return nil, &ErrUnsupportedVersion{Version: version}
	}

	dim, err := br.Uint32()
	if err != nil {
		return nil, &ErrCorruptFile{Reason: "missing dimension"}
	}

	store := vectorstore.New(int(dim))

	for {
		id, err := br.Uint64()
		if err == io.EOF {
			return store, nil
		}
		if err != nil {
			return nil, truncated(err)
		}

		vector, err := br.Float32s(int(dim))
		if err != nil {
			return nil, truncated(err)
		}

		meta := metadata.Metadata{Importance: 0.5}
		if version == Version2 {
			if meta, err = readMetadata(br); err != nil {
				return nil, truncated(err)
			}
		}

		if _, err := store.Append(id, vector, meta); err != nil {
			return nil, &ErrCorruptFile{Reason: err.Error()}
		}
	}
}

func readMetadata(br *binaryReader) (metadata.Metadata, error) {
	var meta metadata.Metadata
	var err error

	if meta.Timestamp, err = br.Int64(); err != nil {
		return meta, err
	}
	if meta.Importance, err = br.Float32(); err != nil {
		return meta, err
	}

	typ, err := br.Uint32()
	if err != nil {
		return meta, err
	}
	meta.Type = metadata.Type(typ)

	source, err := br.Bytes()
	if err != nil {
		return meta, err
	}
	meta.Source = string(source)

	content, err := br.Bytes()
	if err != nil {
		return meta, err
	}
	meta.Content = string(content)

	tags, err := br.Bytes()
	if err != nil {
		return meta, err
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &meta.Tags); err != nil {
			return meta, &ErrCorruptFile{Reason: "malformed tags field"}
		}
	}

	return meta, nil
}

func truncated(err error) error {
	var corrupt *ErrCorruptFile
	if errors.As(err, &corrupt) {
		return err
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &ErrCorruptFile{Reason: "truncated record"}
	}

	return err
}

// SaveToFile writes the store to path atomically: the snapshot goes to a
// temp file in the same directory, is fsynced, then renamed over path.
func SaveToFile(path string, store *vectorstore.Store) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	bw := bufio.NewWriter(tmp)
	if err := Encode(bw, store); err != nil {
		cleanup()
		return err
	}

	if err := bw.Flush(); err != nil {
		cleanup()
		return err
	}

	if err := tmp.Sync(); err != nil {
		cleanup()
		return err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}

	return syncDir(dir)
}

// LoadFromFile reads a snapshot from path.
func LoadFromFile(path string) (*vectorstore.Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Decode(bufio.NewReader(f))
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()

	return d.Sync()
}
