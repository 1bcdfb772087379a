package hash

import "hash/fnv"

// FNV maps key to a partition in [0, nParts).
func FNV(key string, nParts int) int {
	if nParts <= 1 {
		return 0
	}

	h := fnv.New32a()
	h.Write([]byte(key))

	// mask with 0x7fffffff to ensure non-negative number before mod
	return int(h.Sum32()&0x7fffffff) % nParts
}
