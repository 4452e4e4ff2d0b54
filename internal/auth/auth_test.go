package auth

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/Makepad-fr/tarefas/internal/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) string { return "" }

func TestToken_NoneAnywhere(t *testing.T) {
	s := &Source{Store: kv.NewMemory(), Getenv: noEnv}

	_, err := s.Token(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)

	bearer, err := s.Bearer(context.Background())
	require.NoError(t, err)
	assert.Empty(t, bearer)
}

func TestToken_EnvWins(t *testing.T) {
	store := kv.NewMemory()
	require.NoError(t, store.Set(context.Background(), kv.TokenKey, []byte("stored")))
	s := &Source{Store: store, Getenv: func(k string) string {
		if k == EnvVar {
			return "Bearer from-env"
		}
		return ""
	}}

	ti, err := s.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "from-env", ti.Token)
	assert.Equal(t, "env", ti.Source)
}

func TestSetDelete_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	s := &Source{Store: store, Getenv: noEnv}

	require.NoError(t, s.Set(ctx, "  bearer abc  "))
	raw, err := store.Get(ctx, kv.TokenKey)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(raw), "stored as the bare credential")

	ti, err := s.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", ti.Token)
	assert.Equal(t, "store", ti.Source)
	assert.Nil(t, ti.ExpiresAt)

	require.NoError(t, s.Delete(ctx))
	_, err = s.Token(ctx)
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestSet_RejectsEmpty(t *testing.T) {
	s := &Source{Store: kv.NewMemory(), Getenv: noEnv}
	for _, in := range []string{"", "   ", "Bearer ", "Bearer", "bearer\t ", " BEARER "} {
		assert.Error(t, s.Set(context.Background(), in), "input %q", in)
	}
	_, err := s.Token(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestStripBearer(t *testing.T) {
	tests := []struct{ in, want string }{
		{"abc", "abc"},
		{"Bearer abc", "abc"},
		{"bearer\tabc ", "abc"},
		{"  BEARER   abc", "abc"},
		{"Bearer", ""},
		{"Bearerabc", "Bearerabc"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripBearer(tt.in), "input %q", tt.in)
	}
}

func TestToken_BareSchemeIsNoToken(t *testing.T) {
	store := kv.NewMemory()
	require.NoError(t, store.Set(context.Background(), kv.TokenKey, []byte("Bearer")))
	s := &Source{Store: store, Getenv: func(string) string { return "Bearer" }}

	_, err := s.Token(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)

	bearer, err := s.Bearer(context.Background())
	require.NoError(t, err)
	assert.Empty(t, bearer)
}

func TestJWT_ExpiryIsExtracted(t *testing.T) {
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"u1","exp":1700000000}`))
	jwt := "eyJhbGciOiJub25lIn0." + payload + ".sig"

	got, err := JWTPayload(jwt)
	require.NoError(t, err)
	assert.JSONEq(t, `{"sub":"u1","exp":1700000000}`, got)

	ti := newInfo(jwt, "env")
	require.NotNil(t, ti.ExpiresAt)
	assert.Equal(t, int64(1700000000), ti.ExpiresAt.Unix())
}

func TestJWTPayload_Opaque(t *testing.T) {
	_, err := JWTPayload("opaque-token")
	assert.Error(t, err)
}
