package featureflags

import (
	"context"
	"errors"
)

// ErrFlagNotFound is returned when no override is stored for a key.
var ErrFlagNotFound = errors.New("feature flag not found")

// Reader loads stored flag overrides.
type Reader interface {
	GetFlag(ctx context.Context, key string) (*Flag, error)
	GetAllFlags(ctx context.Context) (map[string]*Flag, error)
}

// Writer changes stored flag overrides. SetFlags writes all flags or none.
// DeleteFlag returns ErrFlagNotFound when nothing was stored for key.
type Writer interface {
	SetFlag(ctx context.Context, flag *Flag) error
	SetFlags(ctx context.Context, flags []*Flag) error
	DeleteFlag(ctx context.Context, key string) error
}

// Repository stores flag overrides. Keys without an override fall back to
// the service defaults.
type Repository interface {
	Reader
	Writer
}
