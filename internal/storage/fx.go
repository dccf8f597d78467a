package storage

import (
	"go.uber.org/fx"
)

// Module wires the storage sink: tables, blobs, and the dispatch queue.
var Module = fx.Module("storage",
	fx.Provide(NewDB),
	fx.Provide(NewTables),
	fx.Provide(NewRedisClient),
	fx.Provide(NewQueue),
	fx.Provide(NewBlobClient),
	fx.Provide(NewBlobs),
	fx.Provide(NewCleaner),
)
