// Package storage implements the write surface consumed by the import
// pipeline: idempotent table upserts keyed by (partition, row), JSON blob
// snapshots, and the subscription dispatch queue.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// Structural violations are surfaced distinctly from transient I/O
// failures so callers can tell "storage preconditions unmet" apart from
// "write failed".
var (
	ErrMissingPartitionKey = errors.New("missing_partition_key")
	ErrMissingRowKey       = errors.New("missing_row_key")
)

// Entity is a row addressed by a composite (partition, row) key.
type Entity interface {
	TableName() string
	Keys() (partition string, row string)
}

// Tables writes entities with insert-or-replace semantics. A write for an
// existing (partition, row) pair replaces the stored entity.
type Tables interface {
	Upsert(ctx context.Context, entity Entity) error
}

// Blobs stores JSON-serialized snapshots under container-scoped names.
type Blobs interface {
	Put(ctx context.Context, container, name string, item any) error
}

// Queue carries JSON-encoded messages with at-least-once consumption
// delegated to the backing infrastructure.
type Queue interface {
	Enqueue(ctx context.Context, queue string, item any) error

	// Dequeue blocks up to the implementation's poll interval. ok is false
	// when no message was available.
	Dequeue(ctx context.Context, queue string) (payload []byte, ok bool, err error)
}

func validateKeys(entity Entity) error {
	partition, row := entity.Keys()
	if partition == "" {
		return fmt.Errorf("table %s: %w", entity.TableName(), ErrMissingPartitionKey)
	}
	if row == "" {
		return fmt.Errorf("table %s: %w", entity.TableName(), ErrMissingRowKey)
	}
	return nil
}
