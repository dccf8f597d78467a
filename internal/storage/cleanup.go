package storage

import (
	"context"

	"github.com/peekbilling/importer/internal/config"
	"github.com/peekbilling/importer/internal/record"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Containers used for JSON snapshots.
const (
	UsageContainerName   = "usage"
	LicenseContainerName = "license"
)

// PoisonQueueSuffix is appended to a queue name to hold messages that
// failed deserialization.
const PoisonQueueSuffix = "-poison"

// Cleaner resets every storage surface. It refuses to run outside
// development because the operations are irreversible.
type Cleaner struct {
	cfg   config.Config
	db    *gorm.DB
	queue *redisQueue
	blobs *blobStore
	log   *zap.Logger
}

// NewCleaner wires the development-mode storage reset.
func NewCleaner(cfg config.Config, db *gorm.DB, queue Queue, blobs Blobs, log *zap.Logger) *Cleaner {
	c := &Cleaner{cfg: cfg, db: db, log: log.Named("storage.cleanup")}
	if rq, ok := queue.(*redisQueue); ok {
		c.queue = rq
	}
	if bs, ok := blobs.(*blobStore); ok {
		c.blobs = bs
	}
	return c
}

// Reset truncates the four tables, drops the dispatch queues, and deletes
// the snapshot blob prefixes. No-op outside development.
func (c *Cleaner) Reset(ctx context.Context) error {
	if !c.cfg.IsDevelopment() {
		return nil
	}

	c.log.Warn("development mode cleanup: resetting storage surfaces")

	for _, model := range []any{
		&record.Customer{},
		&record.Subscription{},
		&record.Usage{},
		&record.LicenseSku{},
	} {
		if err := c.db.WithContext(ctx).Where("1 = 1").Delete(model).Error; err != nil {
			return err
		}
	}

	if c.queue != nil {
		queueName := c.cfg.SubscriptionsQueueName
		if err := c.queue.Purge(ctx, queueName, queueName+PoisonQueueSuffix); err != nil {
			return err
		}
	}

	if c.blobs != nil {
		for _, container := range []string{UsageContainerName, LicenseContainerName} {
			if err := c.blobs.DeletePrefix(ctx, container); err != nil {
				return err
			}
		}
	}

	return nil
}
