package proto

import "github.com/go-faster/city"

// CityHash128 computes the 128-bit CityHash v1.0.2 of data, the exact
// historical variant ClickHouse uses for its compressed-block checksum.
// Modern CityHash revisions (CityHash v1.1+) produce different digests
// for the same input, so this depends directly on go-faster/city rather
// than the standard library's hash/maphash or any newer hash package.
func CityHash128(data []byte) (low, high uint64) {
	h := city.CH128(data)
	return h.Low, h.High
}
