package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/assocbot/core/config"
	coredatabase "github.com/m3rciful/assocbot/core/database"
)

func TestRunSkipsDatabase(t *testing.T) {
	connected := false
	res, err := Run(context.Background(), Options{
		Config:       &coreconfig.Config{},
		SkipDatabase: true,
		LoggerInit:   func(*coreconfig.Config) error { return nil },
		Connect: func(context.Context, coredatabase.Config) (*sqlx.DB, error) {
			connected = true
			return nil, nil
		},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if connected || res.DB != nil {
		t.Fatalf("database must not be touched")
	}
	if err := res.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestRunConnectError(t *testing.T) {
	boom := errors.New("down")
	_, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		LoggerInit: func(*coreconfig.Config) error { return nil },
		Connect: func(context.Context, coredatabase.Config) (*sqlx.DB, error) {
			return nil, boom
		},
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected connect error, got %v", err)
	}
	if _, err := Run(context.Background(), Options{}); err == nil {
		t.Fatalf("nil config must fail")
	}
}

func TestSeedOrder(t *testing.T) {
	var order []string
	add := func(name string) Seeder[*[]string] {
		return SeederFunc[*[]string](func(_ context.Context, s *[]string) error {
			*s = append(*s, name)
			return nil
		})
	}
	fail := SeederFunc[*[]string](func(context.Context, *[]string) error { return errors.New("nope") })

	if err := Seed(context.Background(), &order, add("a"), nil, add("b")); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("order = %v", order)
	}
	if err := Seed[*[]string](context.Background(), &order, fail, add("c")); err == nil {
		t.Fatalf("expected seeder failure")
	}
	if len(order) != 2 {
		t.Fatalf("seeding must stop at the failure: %v", order)
	}
}
