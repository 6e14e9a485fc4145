package featureflags_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohealth/prohealth/internal/featureflags"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newService(repo featureflags.Repository, c *clock) *featureflags.Service {
	cfg := featureflags.ServiceConfig{
		Repository: repo,
		Logger:     zerolog.Nop(),
		CacheTTL:   time.Minute,
	}
	if c != nil {
		cfg.Now = c.now
	}
	return featureflags.NewService(cfg)
}

func TestService_DefaultsWhenNothingStored(t *testing.T) {
	service := newService(featureflags.NewInMemoryRepository(), nil)
	ctx := context.Background()

	assert.False(t, service.IsRemoteAdviceDisabled(ctx))
	assert.False(t, service.IsHistoryRecordingDisabled(ctx))
	assert.False(t, service.Enabled(ctx, "unknown_flag"))
	assert.Empty(t, service.Active(ctx))

	flags := service.List(ctx)
	require.Len(t, flags, 2)
	assert.Equal(t, featureflags.FlagDisableHistoryRecording, flags[0].Key)
	assert.Equal(t, featureflags.FlagDisableRemoteAdvice, flags[1].Key)
	assert.Nil(t, flags[1].UpdatedAt)
	assert.NotEmpty(t, flags[1].Description)
}

func TestService_SetRecordsActorAndReason(t *testing.T) {
	c := &clock{t: time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)}
	repo := featureflags.NewInMemoryRepository()
	service := newService(repo, c)
	ctx := context.Background()

	require.NoError(t, service.Set(ctx, map[string]bool{
		featureflags.FlagDisableRemoteAdvice: true,
	}, "ops@prohealth.app", "provider outage"))

	assert.True(t, service.IsRemoteAdviceDisabled(ctx))
	assert.False(t, service.IsHistoryRecordingDisabled(ctx))
	assert.Equal(t, []string{featureflags.FlagDisableRemoteAdvice}, service.Active(ctx))

	stored, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "ops@prohealth.app", stored[0].UpdatedBy)
	assert.Equal(t, "provider outage", stored[0].Reason)
	assert.Equal(t, c.t, stored[0].UpdatedAt)

	flag := service.List(ctx)[1]
	require.NotNil(t, flag.UpdatedAt)
	assert.Equal(t, c.t, *flag.UpdatedAt)
}

func TestService_SetRejectsUnknownKeys(t *testing.T) {
	repo := featureflags.NewInMemoryRepository()
	service := newService(repo, nil)

	err := service.Set(context.Background(), map[string]bool{
		featureflags.FlagDisableRemoteAdvice: true,
		"enable_time_travel":                 true,
	}, "ops", "x")

	assert.ErrorIs(t, err, featureflags.ErrUnknownFlag)
	stored, _ := repo.List(context.Background())
	assert.Empty(t, stored, "nothing written")
}

type countingRepository struct {
	*featureflags.InMemoryRepository
	lists atomic.Int32
	err   error
}

func (r *countingRepository) List(ctx context.Context) ([]featureflags.State, error) {
	r.lists.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	return r.InMemoryRepository.List(ctx)
}

func TestService_CachesUntilTTL(t *testing.T) {
	c := &clock{t: time.Now()}
	repo := &countingRepository{InMemoryRepository: featureflags.NewInMemoryRepository()}
	service := newService(repo, c)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		service.IsRemoteAdviceDisabled(ctx)
	}
	assert.Equal(t, int32(1), repo.lists.Load())

	// A write that bypasses the service is invisible until the TTL passes.
	require.NoError(t, repo.Upsert(ctx, []featureflags.State{{Key: featureflags.FlagDisableRemoteAdvice, Enabled: true}}))
	assert.False(t, service.IsRemoteAdviceDisabled(ctx))

	c.advance(2 * time.Minute)
	assert.True(t, service.IsRemoteAdviceDisabled(ctx))
	assert.Equal(t, int32(2), repo.lists.Load())
}

func TestService_InvalidateCache(t *testing.T) {
	repo := featureflags.NewInMemoryRepository()
	service := newService(repo, nil)
	ctx := context.Background()

	require.NoError(t, service.Set(ctx, map[string]bool{featureflags.FlagDisableRemoteAdvice: true}, "ops", "x"))
	assert.True(t, service.IsRemoteAdviceDisabled(ctx))

	require.NoError(t, repo.Upsert(ctx, []featureflags.State{{Key: featureflags.FlagDisableRemoteAdvice, Enabled: false}}))
	assert.True(t, service.IsRemoteAdviceDisabled(ctx))

	service.InvalidateCache()
	assert.False(t, service.IsRemoteAdviceDisabled(ctx))
}

func TestService_RepositoryErrorKeepsLastKnownState(t *testing.T) {
	c := &clock{t: time.Now()}
	repo := &countingRepository{InMemoryRepository: featureflags.NewInMemoryRepository(
		featureflags.State{Key: featureflags.FlagDisableHistoryRecording, Enabled: true},
	)}
	service := newService(repo, c)
	ctx := context.Background()

	assert.True(t, service.IsHistoryRecordingDisabled(ctx))

	repo.err = errors.New("connection reset")
	c.advance(2 * time.Minute)
	assert.True(t, service.IsHistoryRecordingDisabled(ctx))

	// No retry storm: the failed reload is cached for a TTL too.
	service.IsHistoryRecordingDisabled(ctx)
	assert.Equal(t, int32(2), repo.lists.Load())
}

func TestService_RepositoryErrorFallsBackToDefaults(t *testing.T) {
	repo := &countingRepository{
		InMemoryRepository: featureflags.NewInMemoryRepository(),
		err:                errors.New("connection reset"),
	}
	service := newService(repo, nil)

	assert.False(t, service.IsRemoteAdviceDisabled(context.Background()))
	assert.Len(t, service.List(context.Background()), 2)
}

func TestService_NilServiceIsPermissive(t *testing.T) {
	var service *featureflags.Service
	ctx := context.Background()

	assert.False(t, service.IsRemoteAdviceDisabled(ctx))
	assert.False(t, service.IsHistoryRecordingDisabled(ctx))
	assert.Len(t, service.List(ctx), 2)
	assert.Empty(t, service.Active(ctx))
}

func TestDefinitions(t *testing.T) {
	defs := featureflags.Definitions()
	require.Len(t, defs, 2)
	assert.Less(t, defs[0].Key, defs[1].Key)

	defs[0].Key = "changed"
	assert.True(t, featureflags.IsKnown(featureflags.FlagDisableHistoryRecording))
	assert.True(t, featureflags.IsKnown(featureflags.FlagDisableRemoteAdvice))
	assert.False(t, featureflags.IsKnown("enable_time_travel"))
}
