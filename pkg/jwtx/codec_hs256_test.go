package jwtx_test

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/passage/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testIssuer = "passage-test"

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newCodec(t *testing.T) *jwtx.HS256Codec {
	t.Helper()
	c, err := jwtx.NewHS256Codec(testSecret, testIssuer, 15*time.Minute)
	require.NoError(t, err)
	return c
}

func TestNewHS256Codec_RejectsWeakSecret(t *testing.T) {
	for _, secret := range [][]byte{nil, []byte("short"), testSecret[:jwtx.MinSecretLength-1]} {
		_, err := jwtx.NewHS256Codec(secret, testIssuer, time.Minute)
		require.ErrorIs(t, err, jwtx.ErrWeakSecret)
	}

	_, err := jwtx.NewHS256Codec(testSecret, testIssuer, 0)
	require.Error(t, err)
}

func TestIssueAndVerify(t *testing.T) {
	c := newCodec(t)

	token, err := c.Issue("user-1", "ana@test.com")
	require.NoError(t, err)
	require.Len(t, strings.Split(token, "."), 3)

	claims, err := c.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID())
	require.Equal(t, "ana@test.com", claims.Email)
	require.Equal(t, testIssuer, claims.Issuer)
	require.NotEmpty(t, claims.ID)
	require.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt.Time, 2*time.Second)
}

func TestIssue_DistinctTokensSameInstant(t *testing.T) {
	c := newCodec(t)
	now := time.Now()

	a, err := c.IssueAt("user-1", "ana@test.com", now)
	require.NoError(t, err)
	b, err := c.IssueAt("user-1", "ana@test.com", now)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestIssue_RequiresSubject(t *testing.T) {
	_, err := newCodec(t).Issue("", "ana@test.com")
	require.ErrorIs(t, err, jwtx.ErrInvalidClaim)
}

func TestVerify_Expired(t *testing.T) {
	c := newCodec(t)

	token, err := c.IssueAt("user-1", "ana@test.com", time.Now().Add(-time.Hour))
	require.NoError(t, err)

	_, err = c.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrExpired)
}

func TestVerify_TamperedPayload(t *testing.T) {
	c := newCodec(t)
	token, err := c.Issue("user-1", "ana@test.com")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(raw, &payload))
	payload["sub"] = "user-2"
	forged, err := json.Marshal(payload)
	require.NoError(t, err)

	parts[1] = base64.RawURLEncoding.EncodeToString(forged)
	_, err = c.Verify(strings.Join(parts, "."))
	require.ErrorIs(t, err, jwtx.ErrInvalidSig)
}

func TestVerify_TamperedSignature(t *testing.T) {
	c := newCodec(t)
	token, err := c.Issue("user-1", "ana@test.com")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	require.NoError(t, err)
	sig[0] ^= 0xFF
	parts[2] = base64.RawURLEncoding.EncodeToString(sig)

	_, err = c.Verify(strings.Join(parts, "."))
	require.ErrorIs(t, err, jwtx.ErrInvalidSig)
}

func TestVerify_OtherSecret(t *testing.T) {
	token, err := newCodec(t).Issue("user-1", "ana@test.com")
	require.NoError(t, err)

	other, err := jwtx.NewHS256Codec([]byte(strings.Repeat("z", 32)), testIssuer, time.Minute)
	require.NoError(t, err)

	_, err = other.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrInvalidSig)
}

func TestVerify_RejectsNoneAlgorithm(t *testing.T) {
	claims := jwtx.NewAccessClaims("user-1", "ana@test.com", testIssuer, time.Minute, time.Now())
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newCodec(t).Verify(token)
	require.Error(t, err)
}

func TestVerify_WrongIssuer(t *testing.T) {
	other, err := jwtx.NewHS256Codec(testSecret, "someone-else", time.Minute)
	require.NoError(t, err)
	token, err := other.Issue("user-1", "ana@test.com")
	require.NoError(t, err)

	_, err = newCodec(t).Verify(token)
	require.ErrorIs(t, err, jwtx.ErrIssuer)
}

func TestVerify_Malformed(t *testing.T) {
	c := newCodec(t)
	for _, token := range []string{"", "abc", "a.b", "a.b.c"} {
		_, err := c.Verify(token)
		require.Error(t, err, "token %q", token)
	}
}

func TestParseSecret(t *testing.T) {
	raw := []byte("0123456789abcdef0123456789abcdef")

	parse := func(s string) []byte {
		b, err := jwtx.ParseSecret(s)
		require.NoError(t, err)
		return b
	}

	require.Equal(t, raw, parse("base64:"+base64.StdEncoding.EncodeToString(raw)))
	require.Equal(t, raw, parse("base64:"+base64.RawURLEncoding.EncodeToString(raw)))
	require.Equal(t, raw, parse(string(raw)), "unprefixed secrets are raw even if they look like base64")

	_, err := jwtx.ParseSecret("base64:not base64!")
	require.Error(t, err)
}
