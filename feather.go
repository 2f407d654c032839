package feather

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/featherdb/feather/hnsw"
	"github.com/featherdb/feather/metadata"
	"github.com/featherdb/feather/persistence"
	"github.com/featherdb/feather/scoring"
	"github.com/featherdb/feather/vectorstore"
)

// SearchResult is a single query hit.
type SearchResult struct {
	// ID is the caller-assigned record id.
	ID uint64

	// Distance is the squared L2 distance to the query.
	Distance float32

	// Score is the blended relevance score. Zero unless the query carried
	// a scoring config.
	Score float64

	// Meta is the record's metadata.
	Meta metadata.Metadata
}

// SearchOptions refine a search beyond plain nearest-neighbor lookup.
type SearchOptions struct {
	// Filter restricts results to records whose metadata matches.
	// Nil means no filtering.
	Filter *metadata.Filter

	// Scoring re-ranks results by blended similarity/recency score.
	// Nil means plain distance ordering.
	Scoring *scoring.Config

	// EFSearch overrides the beam width for this query. Zero derives it.
	EFSearch int

	// Oversample overrides the candidate over-fetch factor for this query.
	// Zero uses the DB default.
	Oversample int

	// Now is the reference time for recency scoring as Unix seconds.
	// Zero means the current time.
	Now int64
}

// DB is a persistent approximate nearest-neighbor database. A DB is bound
// to one snapshot file; concurrent searches are allowed, writes are
// serialized through an internal lock. Nothing is written to disk until
// Save is called.
type DB struct {
	mu sync.RWMutex

	path      string
	store     *vectorstore.Store
	index     *hnsw.Index
	metaIndex *metadata.Index

	dirty  bool
	closed bool

	opts options
}

// New creates an in-memory DB with the given vector dimension. Save
// requires a path and fails on a DB created this way; use OpenOrCreate
// for a persistent one.
func New(dimension int, optFns ...Option) *DB {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	store := vectorstore.New(dimension)

	return &DB{
		store:     store,
		index:     newIndex(dimension, store, opts),
		metaIndex: metadata.NewIndex(),
		opts:      opts,
	}
}

// OpenOrCreate opens the snapshot at path, or creates an empty DB bound
// to path when the file does not exist. The graph is rebuilt from the
// stored records, so opening cost scales with record count.
func OpenOrCreate(path string, dimension int, optFns ...Option) (*DB, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	db := &DB{
		path:      path,
		metaIndex: metadata.NewIndex(),
		opts:      opts,
	}

	start := time.Now()

	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}

		db.store = vectorstore.New(dimension)
		db.index = newIndex(dimension, db.store, opts)
		return db, nil
	}

	store, err := persistence.LoadFromFile(path)
	if err != nil {
		opts.metricsCollector.RecordLoad(time.Since(start), err)
		opts.logger.LogLoad(context.Background(), path, 0, err)
		return nil, translateError(err)
	}

	if store.Dimension() != dimension {
		err := &ErrDimensionMismatch{Expected: dimension, Actual: store.Dimension()}
		opts.logger.LogLoad(context.Background(), path, 0, err)
		return nil, err
	}

	db.store = store
	db.index = newIndex(dimension, store, opts)

	// Replay inserts in file order to rebuild the graph. Positions match
	// because both the store and the graph assign them densely.
	err = store.ForEach(func(pos uint32, r *vectorstore.Record) error {
		if _, err := db.index.Insert(r.Vector); err != nil {
			return err
		}
		db.metaIndex.Add(pos, &r.Meta)
		return nil
	})
	if err != nil {
		opts.metricsCollector.RecordLoad(time.Since(start), err)
		opts.logger.LogLoad(context.Background(), path, 0, err)
		return nil, translateError(err)
	}

	opts.metricsCollector.RecordLoad(time.Since(start), nil)
	opts.logger.LogLoad(context.Background(), path, store.Len(), nil)

	return db, nil
}

func newIndex(dimension int, store *vectorstore.Store, opts options) *hnsw.Index {
	return hnsw.New(dimension, store, func(o *hnsw.Options) {
		o.M = opts.m
		o.EFConstruction = opts.efConstruction
		o.Heuristic = opts.heuristic
		o.RandomSeed = opts.randomSeed
	})
}

// Add stores a vector under a caller-assigned id with default metadata.
func (db *DB) Add(id uint64, vector []float32) error {
	return db.AddWithMetadata(id, vector, metadata.Default(time.Now().Unix()))
}

// AddWithMetadata stores a vector with explicit metadata. The record is
// immediately visible to searches; it is not persisted until Save. On
// error the DB is unchanged.
func (db *DB) AddWithMetadata(id uint64, vector []float32, meta metadata.Metadata) error {
	start := time.Now()

	err := func() error {
		db.mu.Lock()
		defer db.mu.Unlock()

		if db.closed {
			return ErrClosed
		}

		pos, err := db.store.Append(id, vector, meta)
		if err != nil {
			return err
		}

		if _, err := db.index.Insert(vector); err != nil {
			return err
		}

		db.metaIndex.Add(pos, &meta)
		db.dirty = true
		return nil
	}()

	err = translateError(err)
	db.opts.metricsCollector.RecordAdd(time.Since(start), err)
	db.opts.logger.LogAdd(context.Background(), id, len(vector), err)

	return err
}

// Search returns the k nearest records to the query by vector distance.
func (db *DB) Search(query []float32, k int) ([]SearchResult, error) {
	return db.SearchWithOptions(query, k, SearchOptions{})
}

// SearchWithOptions runs the full query pipeline: over-fetch candidates,
// drop those failing the filter, re-rank by score when a scoring config is
// present, truncate to k. The over-fetch is a single pass; a highly
// selective filter can yield fewer than k results even when k matching
// records exist.
func (db *DB) SearchWithOptions(query []float32, k int, opts SearchOptions) ([]SearchResult, error) {
	start := time.Now()

	results, err := db.searchWithOptions(query, k, opts)

	err = translateError(err)
	db.opts.metricsCollector.RecordSearch(k, time.Since(start), err)
	db.opts.logger.LogSearch(context.Background(), k, len(results), err)

	return results, err
}

func (db *DB) searchWithOptions(query []float32, k int, opts SearchOptions) ([]SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidK, k)
	}

	if opts.Scoring != nil {
		if err := opts.Scoring.Validate(); err != nil {
			return nil, err
		}
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.closed {
		return nil, ErrClosed
	}

	fetch := k
	if opts.Filter != nil || opts.Scoring != nil {
		oversample := opts.Oversample
		if oversample <= 0 {
			oversample = db.opts.oversample
		}
		if k*oversample > fetch {
			fetch = k * oversample
		}
	}

	ef := opts.EFSearch
	if ef <= 0 {
		ef = db.opts.efSearch
	}
	if ef <= 0 {
		ef = 2 * k
		if ef < 64 {
			ef = 64
		}
	}
	if ef < fetch {
		ef = fetch
	}

	candidates, err := db.index.Search(query, fetch, ef)
	if err != nil {
		return nil, err
	}

	bitmap := db.metaIndex.Candidates(opts.Filter)

	results := make([]SearchResult, 0, min(len(candidates), k))

	for _, c := range candidates {
		if bitmap != nil && !bitmap.Contains(c.Pos) {
			continue
		}

		record := db.store.Record(c.Pos)
		if !opts.Filter.Matches(&record.Meta) {
			continue
		}

		results = append(results, SearchResult{
			ID:       record.ID,
			Distance: c.Distance,
			Meta:     record.Meta,
		})
	}

	if opts.Scoring != nil {
		now := opts.Now
		if now == 0 {
			now = time.Now().Unix()
		}

		for i := range results {
			r := &results[i]
			r.Score = opts.Scoring.Score(r.Distance, now, r.Meta.Timestamp, r.Meta.Importance)
		}

		sort.SliceStable(results, func(i, j int) bool {
			if results[i].Score != results[j].Score {
				return results[i].Score > results[j].Score
			}
			return results[i].Distance < results[j].Distance
		})
	}

	if len(results) > k {
		results = results[:k]
	}

	return results, nil
}

// Save writes the full state to the DB's snapshot file atomically.
func (db *DB) Save() error {
	start := time.Now()

	err := func() error {
		db.mu.Lock()
		defer db.mu.Unlock()

		if db.closed {
			return ErrClosed
		}

		if db.path == "" {
			return errors.New("no snapshot path configured")
		}

		if err := persistence.SaveToFile(db.path, db.store); err != nil {
			return err
		}

		db.dirty = false
		return nil
	}()

	err = translateError(err)
	db.opts.metricsCollector.RecordSave(time.Since(start), err)
	db.opts.logger.LogSave(context.Background(), db.path, db.Len(), err)

	return err
}

// Close marks the DB closed. Close never saves; unsaved records are
// discarded unless Save was called first. Closing twice is not an error.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.closed = true
	return nil
}

// Len returns the number of records.
func (db *DB) Len() int {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.store == nil {
		return 0
	}
	return db.store.Len()
}

// Dimension returns the fixed vector dimension.
func (db *DB) Dimension() int {
	return db.store.Dimension()
}

// Dirty reports whether there are unsaved records.
func (db *DB) Dirty() bool {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.dirty
}

// Stats returns structural statistics of the underlying graph.
func (db *DB) Stats() hnsw.Stats {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.index.Stats()
}
