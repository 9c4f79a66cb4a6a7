// Package store implements the Price State Store.
//
// The store keeps one AssetBestRecord per tracked asset. The key set is fixed
// at construction. Every read and merge holds the single store mutex for the
// whole operation, so callers never observe a partially written record.
package store
