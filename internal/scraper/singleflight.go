package scraper

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Deduper collapses concurrent scrapes of the same key into a single
// request so overlapping populate or refresh runs never hit a program
// page twice at once.
type Deduper struct {
	group singleflight.Group
}

// NewDeduper creates an empty deduper.
func NewDeduper() *Deduper {
	return &Deduper{}
}

// Do executes fn for key, sharing the result with every concurrent caller
// that asked for the same key while fn was running.
func (d *Deduper) Do(ctx context.Context, key string, fn func() (any, error)) (any, error) {
	result, err, _ := d.group.Do(key, func() (any, error) {
		// A caller that arrives with a dead context should not trigger work
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		return fn()
	})

	return result, err
}

// Forget removes a key, letting the next caller execute fn again.
func (d *Deduper) Forget(key string) {
	d.group.Forget(key)
}
