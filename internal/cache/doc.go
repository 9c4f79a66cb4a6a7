// Package cache mirrors best-price records and opportunities into Redis.
//
// The mirror is write-only: records are stored as hashes under
// {prefix}best:{asset} and opportunities are published as JSON on a
// pub/sub channel. Nothing is read back into the price store.
package cache
