package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/phrazzld/aiorch/internal/config"
	"github.com/phrazzld/aiorch/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret-that-is-long-enough-for-testing"

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("auth:\n  jwt_secret: "+secret+"\n"), 0o600))
	return path
}

func TestMint(t *testing.T) {
	token, err := mint(writeConfig(t), "user-7")
	require.NoError(t, err)

	svc, err := auth.NewJWTService(config.AuthConfig{JWTSecret: secret, TokenLifetimeMinutes: 60})
	require.NoError(t, err)
	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-7", claims.Subject)
}

func TestMintRequiresUser(t *testing.T) {
	_, err := mint(writeConfig(t), "")
	assert.ErrorIs(t, err, auth.ErrEmptyUserID)
}

func TestMintRequiresConfigFile(t *testing.T) {
	_, err := mint(filepath.Join(t.TempDir(), "nope.yaml"), "user-7")
	assert.Error(t, err)
}
