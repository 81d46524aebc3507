package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/rolegate/internal/domain/auth"
)

func TestMockIdentityProvider_ExchangeDefaults(t *testing.T) {
	provider := NewMockIdentityProvider()
	st := &domainauth.SessionState{ID: "s1"}

	tok, err := provider.ExchangeCode(context.Background(), st, "abc", "scope-a")

	require.NoError(t, err)
	assert.Equal(t, "access-abc", tok)
	assert.Equal(t, "refresh-abc", st.RefreshToken)
	assert.Equal(t, "scope-a", st.UserCurrentScope)
	assert.Equal(t, []string{"abc"}, provider.Exchanges())
}

func TestMockIdentityProvider_AppTokenRequiresLogin(t *testing.T) {
	provider := NewMockIdentityProvider()
	st := &domainauth.SessionState{ID: "s1"}

	_, err := provider.AppToken(context.Background(), st, "storage")
	require.ErrorIs(t, err, domainauth.ErrNotAuthenticated)

	st.LoggedIn = true
	tok, err := provider.AppToken(context.Background(), st, "storage")
	require.NoError(t, err)
	assert.Equal(t, "app-token", tok)
	assert.Equal(t, 2, provider.AppTokenCalls())
}

func TestMemorySessionStore_RoundTrip(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	st := domainauth.SessionState{ID: "s1", ADGroups: []string{"g1"}}
	require.NoError(t, store.Save(ctx, st))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"g1"}, got.ADGroups)

	require.NoError(t, store.Delete(ctx, "s1"))
	_, err = store.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStaticDirectory_ReturnsCopy(t *testing.T) {
	dir := StaticDirectory{DisplayName: "Jane", Groups: []string{"Engineers"}}
	name, groups, err := dir.FetchProfileAndGroups(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "Jane", name)
	groups[0] = "changed"
	assert.Equal(t, "Engineers", dir.Groups[0])
}
