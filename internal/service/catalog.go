package service

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/admissions-portal/portal/internal/model"
	"github.com/admissions-portal/portal/internal/repository"
)

// Mock occupancy bounds for ProgramView.ActiveStudents.
const (
	minActiveStudents = 50
	maxActiveStudents = 300
)

// ProgramView decorates a program for display. ActiveStudents is a mock
// figure drawn per call; it is never stored or cached.
type ProgramView struct {
	model.Program
	ActiveStudents int
}

// CacheOptions configures the Redis program cache.
type CacheOptions struct {
	TTL    time.Duration
	Prefix string
}

// Catalog reads programs through an optional Redis cache.
type Catalog struct {
	store repository.Store
	rdb   *redis.Client // nil disables caching
	opts  CacheOptions
	log   *zap.Logger

	intn func(n int) int
}

func NewCatalog(store repository.Store, rdb *redis.Client, opts CacheOptions, log *zap.Logger) *Catalog {
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Minute
	}
	if opts.Prefix == "" {
		opts.Prefix = "catalog"
	}
	return &Catalog{store: store, rdb: rdb, opts: opts, log: log, intn: rand.IntN}
}

func (c *Catalog) cacheKey() string {
	return c.opts.Prefix + ":" + c.store.Backend() + ":programs"
}

// Programs returns the program reference data ordered by name.
func (c *Catalog) Programs(ctx context.Context) ([]model.Program, error) {
	if c.rdb != nil {
		if bs, err := c.rdb.Get(ctx, c.cacheKey()).Bytes(); err == nil {
			var cached []model.Program
			if err := json.Unmarshal(bs, &cached); err == nil {
				return cached, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			c.log.Debug("catalog cache read failed", zap.Error(err))
		}
	}

	programs, err := c.store.Programs(ctx)
	if err != nil {
		return nil, err
	}
	if c.rdb != nil {
		if bs, err := json.Marshal(programs); err == nil {
			if err := c.rdb.Set(ctx, c.cacheKey(), bs, c.opts.TTL).Err(); err != nil {
				c.log.Debug("catalog cache write failed", zap.Error(err))
			}
		}
	}
	return programs, nil
}

// ListPrograms returns every program with a freshly drawn mock
// ActiveStudents value in [50, 300].
func (c *Catalog) ListPrograms(ctx context.Context) ([]ProgramView, error) {
	programs, err := c.Programs(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ProgramView, len(programs))
	for i, p := range programs {
		out[i] = ProgramView{
			Program:        p,
			ActiveStudents: minActiveStudents + c.intn(maxActiveStudents-minActiveStudents+1),
		}
	}
	return out, nil
}

// Invalidate drops the cached program list.
func (c *Catalog) Invalidate(ctx context.Context) error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, c.cacheKey()).Err()
}
