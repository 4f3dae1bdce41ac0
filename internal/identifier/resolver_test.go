package identifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemLongestPrefix(t *testing.T) {
	res := NewResolver("tok", []string{"core", "core-api", "payments"})

	tests := map[string]struct {
		token string
		want  string
	}{
		"shallow system":          {token: "tok-core-req-login", want: "core"},
		"nested system wins":      {token: "tok-core-api-req-login", want: "core-api"},
		"sibling system":          {token: "tok-payments-adr-0005", want: "payments"},
		"case insensitive match":  {token: "TOK-Core-API-REQ-Login", want: "core-api"},
		"nested with deeper slug": {token: "tok-core-api-req-login-retry", want: "core-api"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := res.System(tc.token)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSystemUnknown(t *testing.T) {
	res := NewResolver("tok", []string{"core"})

	_, err := res.System("tok-edge-req-login")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownSystem)

	_, err = res.System("other-core-req-login")
	assert.ErrorIs(t, err, ErrUnknownSystem)
}

func TestSystemAmbiguous(t *testing.T) {
	// Two distinct registrations matching the token head at the same length
	// cannot be told apart, so resolution refuses to guess.
	res := NewResolver("tok", []string{"core", "Core"})

	_, err := res.System("tok-core-req-login")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAmbiguousSystem)

	res = NewResolver("tok", []string{"ab", "ab-cd", "ab-ce"})
	got, err := res.System("tok-ab-cd-req-x")
	require.NoError(t, err)
	assert.Equal(t, "ab-cd", got)
}

func TestResolveSimple(t *testing.T) {
	res := NewResolver("tok", []string{"core", "core-api"})

	p, err := res.Resolve("tok-core-api-req-login", "req")
	require.NoError(t, err)
	assert.Equal(t, "core-api", p.System)
	assert.Equal(t, "req", p.Kind)
	assert.Equal(t, "login", p.Slug)
	assert.False(t, p.IsComposite())

	p, err = res.Resolve("tok-core-req-login-retry", "req")
	require.NoError(t, err)
	assert.Equal(t, "login-retry", p.Slug)
}

func TestResolveComposite(t *testing.T) {
	res := NewResolver("tok", []string{"sys"})

	p, err := res.Resolve("tok-sys-spec-auth-algo-hash", "algo")
	require.NoError(t, err)
	assert.Equal(t, "sys", p.System)
	assert.Equal(t, "algo", p.Kind)
	assert.Equal(t, "hash", p.Slug)
	assert.Equal(t, "tok-sys-spec-auth", p.ParentID)
	assert.True(t, p.IsComposite())
}

func TestResolveFirstKindPrecedence(t *testing.T) {
	res := NewResolver("tok", []string{"sys"})

	// The leading kind segment wins over the composite search: asked for
	// "spec", the token is read as the spec identifier tok-sys-spec-auth
	// carrying a trailing child pair, so the slug stops at "auth".
	p, err := res.Resolve("tok-sys-spec-auth-algo-hash", "spec")
	require.NoError(t, err)
	assert.Equal(t, "spec", p.Kind)
	assert.Equal(t, "auth", p.Slug)
	assert.False(t, p.IsComposite())

	// A remainder too short to embed a child pair is taken whole.
	p, err = res.Resolve("tok-sys-spec-auth-flow", "spec")
	require.NoError(t, err)
	assert.Equal(t, "auth-flow", p.Slug)
}

func TestResolveParentGate(t *testing.T) {
	res := NewResolver("tok", []string{"sys"})
	res.Exists = func(id string) bool { return id == "tok-sys-spec-auth" }

	p, err := res.Resolve("tok-sys-spec-auth-algo-hash", "algo")
	require.NoError(t, err)
	assert.Equal(t, "tok-sys-spec-auth", p.ParentID)

	_, err = res.Resolve("tok-sys-spec-other-algo-hash", "algo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown parent")
}

func TestResolveErrors(t *testing.T) {
	res := NewResolver("tok", []string{"sys"})

	tests := map[string]struct {
		token string
		kind  string
		want  string
	}{
		"missing kind segment": {token: "tok-sys-", kind: "req", want: "no kind segment"},
		"missing slug":         {token: "tok-sys-req", kind: "req", want: "no slug"},
		"kind absent":          {token: "tok-sys-adr-0005", kind: "req", want: `does not contain kind "req"`},
		"composite no slug":    {token: "tok-sys-spec-auth-algo-", kind: "algo", want: "no slug"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := res.Resolve(tc.token, tc.kind)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestResolveAny(t *testing.T) {
	res := NewResolver("tok", []string{"sys"})

	p, err := res.ResolveAny("tok-sys-adr-0005")
	require.NoError(t, err)
	assert.Equal(t, "adr", p.Kind)
	assert.Equal(t, "0005", p.Slug)

	_, err = res.ResolveAny("tok-sys-adr")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no slug")
}
