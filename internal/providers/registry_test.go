package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saascore/internal/autherrors"
)

func fakeFactory(name string) Factory {
	return func(cfg Config) (Provider, error) {
		return NewStub(name), nil
	}
}

func TestRegistryRegisterAndCreate(t *testing.T) {
	r := NewRegistry()
	r.Register("fake", fakeFactory("fake"))

	assert.True(t, r.IsRegistered("fake"))
	assert.False(t, r.IsRegistered("missing"))

	p, err := r.Create("fake", Config{})
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestRegistryUnknownNameFallsBackToStub(t *testing.T) {
	r := NewRegistry()

	p, err := r.Create("auth0", Config{})
	require.NoError(t, err)

	// The stub answers every call with ProviderNotConfigured instead of
	// crashing boot on a misconfigured name.
	_, err = p.Authenticate(context.Background(), "a@b.c", "pw")
	assert.True(t, autherrors.IsKind(err, autherrors.KindProviderNotConfigured))

	_, err = p.ValidateToken(context.Background(), "token")
	assert.True(t, autherrors.IsKind(err, autherrors.KindProviderNotConfigured))
}

func TestRegistryOverwriteIsSilent(t *testing.T) {
	r := NewRegistry()
	r.Register("fake", fakeFactory("first"))
	r.Register("fake", func(cfg Config) (Provider, error) {
		return NewStub("second"), nil
	})

	p, err := r.Create("fake", Config{})
	require.NoError(t, err)
	assert.Equal(t, "second", p.Capabilities().Name)
}

func TestRegistryAvailableSorted(t *testing.T) {
	r := NewRegistry()
	r.Register("zeta", fakeFactory("zeta"))
	r.Register("alpha", fakeFactory("alpha"))
	r.Register("mid", fakeFactory("mid"))

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, r.Available())
}
