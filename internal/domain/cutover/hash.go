package cutover

import (
	"encoding/binary"
	"math/bits"
)

// CohortBucketCount is the number of buckets for consistent hashing (0-99)
const CohortBucketCount = 100

// ComputeCohortBucket computes a consistent hash bucket for the given
// operation and subject key. Uses MurmurHash3 to produce a bucket between 0
// and 99. The same (operation, subjectKey) pair always lands in the same
// bucket, so a subject never flip-flops between the legacy and the modern
// side while a canary is running.
func ComputeCohortBucket(operation, subjectKey string) int {
	h := murmur3Hash32([]byte(operation+":"+subjectKey), 0)
	return int(h % CohortBucketCount)
}

// IsInCohort checks if a subject falls within the canary cohort for an
// operation. percentage should be 0-100.
func IsInCohort(operation, subjectKey string, percentage int) bool {
	if percentage <= 0 {
		return false
	}
	if percentage >= 100 {
		return true
	}
	return ComputeCohortBucket(operation, subjectKey) < percentage
}

// murmur3Hash32 is a pure Go MurmurHash3 32-bit implementation, kept
// in-tree so bucket assignments stay identical across platforms.
func murmur3Hash32(data []byte, seed uint32) uint32 {
	const (
		c1 = 0xcc9e2d51
		c2 = 0x1b873593
	)

	h := seed
	p := data
	for len(p) >= 4 {
		k := binary.LittleEndian.Uint32(p)
		k *= c1
		k = bits.RotateLeft32(k, 15)
		k *= c2

		h ^= k
		h = bits.RotateLeft32(h, 13)
		h = h*5 + 0xe6546b64
		p = p[4:]
	}

	var k1 uint32
	switch len(p) {
	case 3:
		k1 ^= uint32(p[2]) << 16
		fallthrough
	case 2:
		k1 ^= uint32(p[1]) << 8
		fallthrough
	case 1:
		k1 ^= uint32(p[0])
		k1 *= c1
		k1 = bits.RotateLeft32(k1, 15)
		k1 *= c2
		h ^= k1
	}

	// Finalization mix forces all bits of the hash to avalanche
	h ^= uint32(len(data))
	h ^= h >> 16
	h *= 0x85ebca6b
	h ^= h >> 13
	h *= 0xc2b2ae35
	h ^= h >> 16
	return h
}
