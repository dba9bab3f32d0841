package featureflags_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/weatherlens/weatherlens/internal/featureflags"
)

func newService(repo featureflags.Repository, defaults featureflags.Defaults) *featureflags.Service {
	return featureflags.NewService(featureflags.ServiceConfig{
		Repository: repo,
		Logger:     zerolog.Nop(),
		CacheTTL:   time.Minute,
		Defaults:   defaults,
	})
}

func TestService_DefaultsFromConfig(t *testing.T) {
	service := newService(featureflags.NewInMemoryRepository(), featureflags.Defaults{
		AutoLoadLastCity: true,
	})
	ctx := context.Background()

	if !service.AutoLoadLastCity(ctx) {
		t.Error("expected auto_load_last_city to default to true")
	}
	if service.IgnoreWhileLoading(ctx) {
		t.Error("expected ignore_while_loading to default to false")
	}
}

func TestService_NilRepositoryServesDefaults(t *testing.T) {
	service := newService(nil, featureflags.Defaults{IgnoreWhileLoading: true})
	ctx := context.Background()

	if !service.IgnoreWhileLoading(ctx) {
		t.Error("expected default value without a repository")
	}
	if got := len(service.GetAllFlags(ctx)); got != 2 {
		t.Errorf("expected 2 flags, got %d", got)
	}

	err := service.SetFlag(ctx, &featureflags.Flag{Key: featureflags.FlagIgnoreWhileLoading, Value: false})
	if !errors.Is(err, featureflags.ErrNoRepository) {
		t.Errorf("expected ErrNoRepository, got %v", err)
	}
}

func TestService_SetFlag(t *testing.T) {
	service := newService(featureflags.NewInMemoryRepository(), featureflags.Defaults{})
	ctx := context.Background()

	err := service.SetFlag(ctx, &featureflags.Flag{
		Key:   featureflags.FlagIgnoreWhileLoading,
		Value: true,
	})
	if err != nil {
		t.Fatalf("failed to set flag: %v", err)
	}

	if !service.IgnoreWhileLoading(ctx) {
		t.Error("expected ignore_while_loading to be true after update")
	}
}

func TestService_SetFlags(t *testing.T) {
	service := newService(featureflags.NewInMemoryRepository(), featureflags.Defaults{})
	ctx := context.Background()

	err := service.SetFlags(ctx, []*featureflags.Flag{
		{Key: featureflags.FlagIgnoreWhileLoading, Value: true},
		{Key: featureflags.FlagAutoLoadLastCity, Value: true},
	})
	if err != nil {
		t.Fatalf("failed to set flags: %v", err)
	}

	if !service.IgnoreWhileLoading(ctx) || !service.AutoLoadLastCity(ctx) {
		t.Error("expected both flags to be enabled")
	}
}

func TestService_GetAllFlags_MergesRepositoryOverDefaults(t *testing.T) {
	repo := featureflags.NewInMemoryRepositoryWithFlags(map[string]*featureflags.Flag{
		featureflags.FlagAutoLoadLastCity: {Key: featureflags.FlagAutoLoadLastCity, Value: true},
		"experimental":                    {Key: "experimental", Value: "on"},
	})
	service := newService(repo, featureflags.Defaults{})

	flags := service.GetAllFlags(context.Background())
	if len(flags) != 3 {
		t.Fatalf("expected 3 flags, got %d", len(flags))
	}
	if !flags[featureflags.FlagAutoLoadLastCity].BoolValue(false) {
		t.Error("expected repository value to override the default")
	}
	if flags["experimental"] == nil || flags["experimental"].Value != "on" {
		t.Error("expected extra repository flag to be present")
	}
}

func TestService_InvalidateCache(t *testing.T) {
	repo := featureflags.NewInMemoryRepositoryWithFlags(featureflags.DefaultFlags(featureflags.Defaults{}))
	service := featureflags.NewService(featureflags.ServiceConfig{
		Repository: repo,
		Logger:     zerolog.Nop(),
		CacheTTL:   time.Hour,
	})
	ctx := context.Background()

	// Populate the cache, then update the repository behind the service.
	_ = service.GetFlag(ctx, featureflags.FlagIgnoreWhileLoading)
	_ = repo.SetFlag(ctx, &featureflags.Flag{Key: featureflags.FlagIgnoreWhileLoading, Value: true})

	if service.IgnoreWhileLoading(ctx) {
		t.Error("expected cached value before invalidation")
	}

	service.InvalidateCache()

	if !service.IgnoreWhileLoading(ctx) {
		t.Error("expected updated value after cache invalidation")
	}
}

type failingRepository struct {
	featureflags.InMemoryRepository
}

func (failingRepository) GetFlag(context.Context, string) (*featureflags.Flag, error) {
	return nil, errors.New("connection refused")
}

func (failingRepository) GetAllFlags(context.Context) (map[string]*featureflags.Flag, error) {
	return nil, errors.New("connection refused")
}

func TestService_RepositoryFailureFallsBackToDefaults(t *testing.T) {
	service := newService(&failingRepository{}, featureflags.Defaults{AutoLoadLastCity: true})
	ctx := context.Background()

	if !service.AutoLoadLastCity(ctx) {
		t.Error("expected default value on repository failure")
	}
	if got := len(service.GetAllFlags(ctx)); got != 2 {
		t.Errorf("expected defaults only, got %d flags", got)
	}
	if service.GetFlag(ctx, "unknown") != nil {
		t.Error("expected nil for unknown flag")
	}
}

func TestFlag_ValueHelpers(t *testing.T) {
	tests := []struct {
		name     string
		value    interface{}
		wantBool bool
	}{
		{name: "boolean true", value: true, wantBool: true},
		{name: "boolean false", value: false, wantBool: false},
		{name: "string value", value: "hello", wantBool: false},
		{name: "non-zero number from JSON", value: float64(1), wantBool: true},
		{name: "zero number from JSON", value: float64(0), wantBool: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := &featureflags.Flag{Key: "test", Value: tt.value}

			if got := flag.BoolValue(false); got != tt.wantBool {
				t.Errorf("BoolValue() = %v, want %v", got, tt.wantBool)
			}
		})
	}
}

func TestFlag_NilFlag(t *testing.T) {
	var flag *featureflags.Flag

	if flag.BoolValue(true) != true {
		t.Error("expected default value for nil flag")
	}
	if flag.BoolValue(false) != false {
		t.Error("expected default value for nil flag")
	}
}

func TestInMemoryRepository_DeleteFlag(t *testing.T) {
	repo := featureflags.NewInMemoryRepositoryWithFlags(featureflags.DefaultFlags(featureflags.Defaults{}))
	ctx := context.Background()

	if err := repo.DeleteFlag(ctx, featureflags.FlagAutoLoadLastCity); err != nil {
		t.Fatalf("failed to delete flag: %v", err)
	}

	_, err := repo.GetFlag(ctx, featureflags.FlagAutoLoadLastCity)
	if !errors.Is(err, featureflags.ErrFlagNotFound) {
		t.Errorf("expected ErrFlagNotFound after delete, got %v", err)
	}

	err = repo.DeleteFlag(ctx, "nonexistent")
	if !errors.Is(err, featureflags.ErrFlagNotFound) {
		t.Errorf("expected ErrFlagNotFound for non-existent flag, got %v", err)
	}
}

func TestInMemoryRepository_ReturnsCopies(t *testing.T) {
	repo := featureflags.NewInMemoryRepository()
	ctx := context.Background()

	_ = repo.SetFlag(ctx, &featureflags.Flag{Key: "k", Value: true})
	got, _ := repo.GetFlag(ctx, "k")
	got.Value = false

	again, _ := repo.GetFlag(ctx, "k")
	if !again.BoolValue(false) {
		t.Error("expected stored flag to be unaffected by caller mutation")
	}
}

func TestService_ResetFlag(t *testing.T) {
	service := newService(featureflags.NewInMemoryRepository(), featureflags.Defaults{AutoLoadLastCity: true})
	ctx := context.Background()

	if err := service.SetFlag(ctx, &featureflags.Flag{Key: featureflags.FlagAutoLoadLastCity, Value: false}); err != nil {
		t.Fatalf("SetFlag() error = %v", err)
	}
	if service.AutoLoadLastCity(ctx) {
		t.Fatal("expected override to be served from cache")
	}

	if err := service.ResetFlag(ctx, featureflags.FlagAutoLoadLastCity); err != nil {
		t.Fatalf("ResetFlag() error = %v", err)
	}
	if !service.AutoLoadLastCity(ctx) {
		t.Error("expected default after reset")
	}

	if err := service.ResetFlag(ctx, featureflags.FlagAutoLoadLastCity); !errors.Is(err, featureflags.ErrFlagNotFound) {
		t.Errorf("second ResetFlag() error = %v, want ErrFlagNotFound", err)
	}
}

func TestService_ResetFlag_NoRepository(t *testing.T) {
	service := newService(nil, featureflags.Defaults{})

	if err := service.ResetFlag(context.Background(), "x"); !errors.Is(err, featureflags.ErrNoRepository) {
		t.Errorf("ResetFlag() error = %v, want ErrNoRepository", err)
	}
}
