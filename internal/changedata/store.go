package changedata

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// PartitionWriter receives the serialized lines of one partition. Nothing
// written becomes visible to readers before Commit returns.
type PartitionWriter interface {
	io.Writer
	Commit() error
	Abort() error
}

// Store keeps persisted change data, one object per completed partition
type Store interface {
	Create(ctx context.Context, id string, partition int) (PartitionWriter, error)
	Open(ctx context.Context, id string, partition int) (io.ReadCloser, error)
	// Partitions lists the committed partitions of a change data id
	Partitions(ctx context.Context, id string) ([]int, error)
	Delete(ctx context.Context, id string) error
}

const partitionPrefix = "part-"

// PartitionFileSuffix is appended to committed partition names by stores
// that compress their content
const PartitionFileSuffix = ".gz"

// PartitionName returns the object name of a partition, without suffix
func PartitionName(partition int) string {
	return fmt.Sprintf("%s%05d", partitionPrefix, partition)
}

// ParsePartitionName extracts the partition index from an object name. It
// returns false for names that are not committed partitions.
func ParsePartitionName(name string) (int, bool) {
	if !strings.HasPrefix(name, partitionPrefix) || !strings.HasSuffix(name, PartitionFileSuffix) {
		return 0, false
	}
	digits := strings.TrimSuffix(strings.TrimPrefix(name, partitionPrefix), PartitionFileSuffix)
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
