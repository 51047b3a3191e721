package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// Fixed is a fixed-window limiter backed by ulule/limiter.
type Fixed struct {
	limiter *limiter.Limiter
}

// New builds a limiter from a formatted rate such as "30-M". When client is
// nil counters live in process memory.
func New(formatted, prefix string, client *redis.Client) (*Fixed, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("parse rate %q: %w", formatted, err)
	}
	opts := limiter.StoreOptions{Prefix: prefix, CleanUpInterval: time.Minute}

	var store limiter.Store
	if client != nil {
		store, err = sredis.NewStoreWithOptions(client, opts)
		if err != nil {
			return nil, fmt.Errorf("redis limiter store: %w", err)
		}
	} else {
		store = memory.NewStoreWithOptions(opts)
	}
	return &Fixed{limiter: limiter.New(store, rate)}, nil
}

// Check consumes one token for key.
func (f *Fixed) Check(ctx context.Context, key string) (Result, error) {
	lctx, err := f.limiter.Get(ctx, key)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Limit:     lctx.Limit,
		Remaining: lctx.Remaining,
		Reset:     time.Unix(lctx.Reset, 0),
		Reached:   lctx.Reached,
	}, nil
}
