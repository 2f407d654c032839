package feather

import (
	"bytes"
	"context"
	"time"

	"github.com/featherdb/feather/blobstore"
	"github.com/featherdb/feather/metadata"
	"github.com/featherdb/feather/persistence"
	"github.com/featherdb/feather/vectorstore"
)

// SaveToBlobStore writes the DB state as a blob. The payload is the same
// binary snapshot Save writes to disk; any compression or rate limiting
// comes from wrapping the store.
func (db *DB) SaveToBlobStore(ctx context.Context, store blobstore.Store, name string) error {
	start := time.Now()

	err := func() error {
		db.mu.RLock()
		defer db.mu.RUnlock()

		if db.closed {
			return ErrClosed
		}

		var buf bytes.Buffer
		if err := persistence.Encode(&buf, db.store); err != nil {
			return err
		}

		return store.Put(ctx, name, buf.Bytes())
	}()

	err = translateError(err)
	db.opts.metricsCollector.RecordSave(time.Since(start), err)
	db.opts.logger.LogSave(ctx, name, db.Len(), err)

	return err
}

// LoadFromBlobStore opens a snapshot blob and reconstructs a DB from it.
// The returned DB has no snapshot file path; bind one by saving through
// a LocalStore or use it in memory.
func LoadFromBlobStore(ctx context.Context, store blobstore.Store, name string, optFns ...Option) (*DB, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	start := time.Now()

	db, err := loadFromBlobStore(ctx, store, name, opts)

	err = translateError(err)
	opts.metricsCollector.RecordLoad(time.Since(start), err)

	count := 0
	if db != nil {
		count = db.Len()
	}
	opts.logger.LogLoad(ctx, name, count, err)

	if err != nil {
		return nil, err
	}
	return db, nil
}

func loadFromBlobStore(ctx context.Context, store blobstore.Store, name string, opts options) (*DB, error) {
	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer blob.Close()

	data, err := blobstore.ReadAll(blob)
	if err != nil {
		return nil, err
	}

	recordStore, err := persistence.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	db := &DB{
		store:     recordStore,
		index:     newIndex(recordStore.Dimension(), recordStore, opts),
		metaIndex: metadata.NewIndex(),
		opts:      opts,
	}

	err = recordStore.ForEach(func(pos uint32, r *vectorstore.Record) error {
		if _, err := db.index.Insert(r.Vector); err != nil {
			return err
		}
		db.metaIndex.Add(pos, &r.Meta)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return db, nil
}
