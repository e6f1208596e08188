package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer_IssueValidate(t *testing.T) {
	ti, err := NewTokenIssuer(GenerateSecureSecret(), time.Hour)
	require.NoError(t, err)

	token, err := ti.Issue(42, "steve")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(token, "."))

	claims, err := ti.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.PlayerID)
	assert.Equal(t, "steve", claims.Name)
}

func TestTokenIssuer_RejectsInvalid(t *testing.T) {
	ti, err := NewTokenIssuer("", 0)
	require.NoError(t, err)

	for _, tok := range []string{
		"",
		"invalid.token.here",
		"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.invalid.signature",
	} {
		_, err := ti.Validate(tok)
		assert.ErrorIs(t, err, ErrInvalidToken, "токен %q", tok)
	}
}

func TestTokenIssuer_OtherSecret(t *testing.T) {
	a, err := NewTokenIssuer(GenerateSecureSecret(), time.Hour)
	require.NoError(t, err)
	b, err := NewTokenIssuer(GenerateSecureSecret(), time.Hour)
	require.NoError(t, err)

	token, err := a.Issue(1, "alex")
	require.NoError(t, err)
	_, err = b.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_Expired(t *testing.T) {
	ti, err := NewTokenIssuer(GenerateSecureSecret(), time.Minute)
	require.NoError(t, err)

	start := time.Now()
	ti.now = func() time.Time { return start }
	token, err := ti.Issue(1, "alex")
	require.NoError(t, err)

	ti.now = func() time.Time { return start.Add(2 * time.Minute) }
	_, err = ti.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewTokenIssuer_BadSecret(t *testing.T) {
	_, err := NewTokenIssuer("not base64!!", time.Hour)
	assert.Error(t, err)
	_, err = NewTokenIssuer("c2hvcnQ=", time.Hour)
	assert.Error(t, err)
}

func TestPlayerRegistry(t *testing.T) {
	r := NewPlayerRegistry()

	id1, err := r.Resolve("Steve")
	require.NoError(t, err)
	id2, err := r.Resolve("steve")
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
	assert.Equal(t, uint64(1), id1)

	id3, err := r.Resolve("alex")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), id3)

	name, ok := r.Name(id1)
	assert.True(t, ok)
	assert.Equal(t, "Steve", name)

	_, err = r.Resolve("   ")
	assert.ErrorIs(t, err, ErrEmptyName)
	assert.Equal(t, 2, r.Len())
}
