package sysconfig

import (
	"context"
	"prompt-manager/internal/audit"
	"prompt-manager/internal/crud"
	"prompt-manager/internal/db/dbtest"
	"prompt-manager/internal/domain"
	"prompt-manager/internal/errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) Service {
	return NewService(crud.NewService(dbtest.Open(t), Schema(), audit.Nop))
}

func TestDefaults_Parse(t *testing.T) {
	defaults, err := Defaults()
	require.NoError(t, err)

	keys := map[string]domain.ConfigType{}
	for _, d := range defaults {
		require.NoError(t, validateConfig(&d), d.ConfigKey)
		keys[d.ConfigKey] = d.ConfigType
	}
	assert.Equal(t, domain.ConfigBoolean, keys["registration_enabled"])
	assert.Equal(t, domain.ConfigJSON, keys["supported_languages"])
}

func TestSeed_Idempotent(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	n, err := svc.Seed(ctx)
	require.NoError(t, err)
	assert.Greater(t, n, 0)

	_, err = svc.Set(ctx, "registration_enabled", SetInput{Value: false})
	require.NoError(t, err)

	n, err = svc.Seed(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.False(t, svc.Flag(ctx, "registration_enabled", true))
}

func TestPublicValuesAreTyped(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()
	_, err := svc.Seed(ctx)
	require.NoError(t, err)

	public, err := svc.Public(ctx)
	require.NoError(t, err)
	assert.Equal(t, true, public["registration_enabled"])
	assert.Equal(t, int64(50000), public["max_prompt_length"])
	assert.Equal(t, []any{"zh-CN", "en-US"}, public["supported_languages"])
	assert.NotContains(t, public, "max_versions_per_prompt")
}

func TestSet(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	created, err := svc.Set(ctx, "welcome", SetInput{Value: "hi", Description: "greeting"})
	require.NoError(t, err)
	assert.Equal(t, domain.ConfigString, created.ConfigType)
	assert.False(t, created.IsPublic)

	ratio, err := svc.Set(ctx, "ratio", SetInput{Value: 0.5})
	require.NoError(t, err)
	assert.Equal(t, domain.ConfigNumber, ratio.ConfigType)

	_, err = svc.Set(ctx, "ratio", SetInput{Value: "lots"})
	assert.True(t, errors.HasCode(err, errors.CodeValidationFailed))

	_, err = svc.Set(ctx, "ratio", SetInput{Value: true, Type: domain.ConfigBoolean})
	assert.True(t, errors.HasCode(err, errors.CodeInvalidState))

	_, err = svc.Set(ctx, "limits", SetInput{Value: map[string]any{"max": 3}})
	require.NoError(t, err)
	v, err := svc.Value(ctx, "limits")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"max": float64(3)}, v)

	_, err = svc.Set(ctx, "empty", SetInput{})
	assert.True(t, errors.HasCode(err, errors.CodeValidationFailed))
}

func TestFlagFallbacks(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	assert.True(t, svc.Flag(ctx, "missing", true))

	_, err := svc.Set(ctx, "name", SetInput{Value: "x"})
	require.NoError(t, err)
	assert.True(t, svc.Flag(ctx, "name", true))

	_, err = svc.Set(ctx, "on", SetInput{Value: "yes", Type: domain.ConfigBoolean})
	require.NoError(t, err)
	assert.True(t, svc.Flag(ctx, "on", false))
}

func TestDelete(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()
	_, err := svc.Set(ctx, "temp", SetInput{Value: "x"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "temp"))
	_, err = svc.Get(ctx, "temp")
	assert.True(t, errors.HasCode(err, errors.CodeRecordNotFound))
	assert.True(t, errors.HasCode(svc.Delete(ctx, "temp"), errors.CodeRecordNotFound))
}
