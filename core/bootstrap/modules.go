package bootstrap

import (
	"context"
	"fmt"
)

// Seeder loads reference data into a storage implementation.
type Seeder[S any] interface {
	Seed(ctx context.Context, storage S) error
}

// SeederFunc adapts a bare function to the Seeder interface.
type SeederFunc[S any] func(ctx context.Context, storage S) error

// Seed executes the underlying function.
func (f SeederFunc[S]) Seed(ctx context.Context, storage S) error {
	return f(ctx, storage)
}

// Seed runs the seeders in order and stops at the first failure.
func Seed[S any](ctx context.Context, storage S, seeders ...Seeder[S]) error {
	for i, s := range seeders {
		if s == nil {
			continue
		}
		if err := s.Seed(ctx, storage); err != nil {
			return fmt.Errorf("bootstrap: seeder %d: %w", i, err)
		}
	}
	return nil
}
