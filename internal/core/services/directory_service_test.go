package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neon-kni6ht/social-media-api/internal/core/domain"
	"github.com/neon-kni6ht/social-media-api/internal/core/ports"
)

func TestRegister_DuplicateHandleKeepsFirstUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	first := f.register(t, "alice")[0]

	_, err := f.dir.Register(ctx, ports.RegisterCmd{Username: "alice", Password: "other", Email: "new@example.com"})
	require.ErrorIs(t, err, domain.ErrAlreadyRegistered)

	got, err := f.dir.Resolve(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, first.PasswordHash, got.PasswordHash)
	assert.Len(t, f.events.Users(), 1)
}

func TestRegister_Validation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.register(t, "taken")

	tests := []struct {
		name string
		cmd  ports.RegisterCmd
		want error
	}{
		{"empty password", ports.RegisterCmd{Username: "bob", Email: "bob@example.com"}, domain.ErrInvalidInput},
		{"empty username", ports.RegisterCmd{Password: "x", Email: "bob@example.com"}, domain.ErrInvalidInput},
		{"padded username", ports.RegisterCmd{Username: " bob", Password: "x", Email: "bob@example.com"}, domain.ErrInvalidInput},
		{"malformed email", ports.RegisterCmd{Username: "bob", Password: "x", Email: "nope"}, domain.ErrInvalidInput},
		{"email taken", ports.RegisterCmd{Username: "bob", Password: "x", Email: "taken@example.com"}, domain.ErrAlreadyRegistered},
		{"email taken behind display name", ports.RegisterCmd{Username: "bob", Password: "x", Email: "Bob <taken@example.com>"}, domain.ErrAlreadyRegistered},
		{"email taken other case", ports.RegisterCmd{Username: "bob", Password: "x", Email: "TAKEN@Example.com"}, domain.ErrAlreadyRegistered},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.dir.Register(context.Background(), tt.cmd)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRegister_StoresBareLowercaseEmail(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	u, err := f.dir.Register(context.Background(), ports.RegisterCmd{Username: "bob", Password: "x", Email: " Bob <Bob@Example.COM> "})
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", u.Email)

	got, err := f.dir.Resolve(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", got.Email)
}

func TestRegister_HandlesAreCaseSensitive(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	lower := f.register(t, "alice")[0]
	upper, err := f.dir.Register(context.Background(), ports.RegisterCmd{Username: "Alice", Password: "secret", Email: "alice2@example.com"})
	require.NoError(t, err)
	assert.NotEqual(t, lower.ID, upper.ID)
}

func TestRegister_PublishFailureDoesNotFail(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.events.Fail = errors.New("broker down")

	u := f.register(t, "alice")[0]
	got, err := f.dir.Resolve(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestResolve(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.dir.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.dir.Resolve(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	alice := f.register(t, "alice")[0]

	got, err := f.dir.Authenticate(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	_, err = f.dir.Authenticate(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = f.dir.Authenticate(ctx, "ghost", "secret")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}
