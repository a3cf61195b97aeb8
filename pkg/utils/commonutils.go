package utils

import (
	"strconv"

	"github.com/spaolacci/murmur3"
)

// IsEnabledForKey buckets key into [0, 100) and reports whether it falls under percentage.
// The bucket of a key never changes, so every shadow decision for one care request agrees.
func IsEnabledForKey(key string, percentage int) bool {
	if percentage >= 100 {
		return true
	}
	if percentage <= 0 {
		return false
	}
	return int(murmur3.Sum32([]byte(key))%100) < percentage
}

func IsEnabledForID(id int64, percentage int) bool {
	return IsEnabledForKey(strconv.FormatInt(id, 10), percentage)
}

// PartitionSlice splits ids into consecutive batches of at most batchSize.
func PartitionSlice[T any](ids []T, batchSize int) [][]T {
	if batchSize <= 0 {
		batchSize = len(ids)
	}
	var batches [][]T
	for i := 0; i < len(ids); i += batchSize {
		end := i + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		batches = append(batches, ids[i:end])
	}
	return batches
}
