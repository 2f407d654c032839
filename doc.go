// Package feather is a persistent, embedded approximate nearest-neighbor
// database. It stores fixed-dimension float32 vectors with caller-assigned
// ids and per-record metadata, answers k-nearest-neighbor queries through
// an HNSW graph, and optionally filters and re-ranks results by metadata
// predicates and an importance-weighted recency score.
//
// State lives in memory; Save writes the full database to a single binary
// snapshot file atomically and OpenOrCreate rebuilds the graph from it.
// Close never saves.
//
//	db, err := feather.OpenOrCreate("memories.feather", 128)
//	if err != nil { ... }
//
//	_ = db.Add(1, vec)
//	hits, _ := db.Search(query, 5)
//
//	_ = db.Save()
//	_ = db.Close()
package feather
