package jwt

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-signing-secret"

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNewIssuerValidation(t *testing.T) {
	_, err := NewIssuer("", time.Minute)
	assert.Error(t, err)

	_, err = NewIssuer(testSecret, 0)
	assert.Error(t, err)

	i, err := NewIssuer(testSecret, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, i.TTL())
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	i, err := NewIssuer(testSecret, 15*time.Minute, WithIssuer("bookmarks-test"))
	require.NoError(t, err)

	token, err := i.Issue("user-1", "a@x.io")
	require.NoError(t, err)

	claims, err := i.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "a@x.io", claims.Email)
	assert.Equal(t, "bookmarks-test", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, claims.IssuedAt.Add(15*time.Minute), claims.ExpiresAt.Time, time.Second)
}

func TestIssueRequiresSubject(t *testing.T) {
	i, err := NewIssuer(testSecret, time.Minute)
	require.NoError(t, err)

	_, err = i.Issue("  ", "a@x.io")
	assert.Error(t, err)
}

func TestVerifyExpired(t *testing.T) {
	issuedAt := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	signer, err := NewIssuer(testSecret, time.Minute, WithClock(fixedClock(issuedAt)))
	require.NoError(t, err)
	token, err := signer.Issue("user-1", "a@x.io")
	require.NoError(t, err)

	later, err := NewIssuer(testSecret, time.Minute, WithClock(fixedClock(issuedAt.Add(2*time.Minute))))
	require.NoError(t, err)

	_, err = later.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.NotErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyWrongSecret(t *testing.T) {
	signer, err := NewIssuer("secret-a", time.Minute)
	require.NoError(t, err)
	verifier, err := NewIssuer("secret-b", time.Minute)
	require.NoError(t, err)

	token, err := signer.Issue("user-1", "a@x.io")
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyTamperedPayload(t *testing.T) {
	i, err := NewIssuer(testSecret, time.Minute)
	require.NoError(t, err)
	tokenA, err := i.Issue("user-a", "a@x.io")
	require.NoError(t, err)
	tokenB, err := i.Issue("user-b", "b@x.io")
	require.NoError(t, err)

	partsA := strings.Split(tokenA, ".")
	partsB := strings.Split(tokenB, ".")
	forged := strings.Join([]string{partsA[0], partsB[1], partsA[2]}, ".")

	_, err = i.Verify(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsForeignAlgorithms(t *testing.T) {
	i, err := NewIssuer(testSecret, time.Minute)
	require.NoError(t, err)

	now := time.Now()
	claims := Claims{RegisteredClaims: jwtlib.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    DefaultIssuer,
		ExpiresAt: jwtlib.NewNumericDate(now.Add(time.Minute)),
	}}

	hs512, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = i.Verify(hs512)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none, err := jwtlib.NewWithClaims(jwtlib.SigningMethodNone, claims).SignedString(jwtlib.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = i.Verify(none)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyMissingSubjectOrIssuer(t *testing.T) {
	i, err := NewIssuer(testSecret, time.Minute)
	require.NoError(t, err)
	exp := jwtlib.NewNumericDate(time.Now().Add(time.Minute))

	noSubject, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, Claims{RegisteredClaims: jwtlib.RegisteredClaims{
		Issuer: DefaultIssuer, ExpiresAt: exp,
	}}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = i.Verify(noSubject)
	assert.ErrorIs(t, err, ErrInvalidToken)

	otherIssuer, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, Claims{RegisteredClaims: jwtlib.RegisteredClaims{
		Subject: "user-1", Issuer: "someone-else", ExpiresAt: exp,
	}}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = i.Verify(otherIssuer)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyGarbage(t *testing.T) {
	i, err := NewIssuer(testSecret, time.Minute)
	require.NoError(t, err)

	for _, token := range []string{"", "abc", "a.b.c"} {
		_, err := i.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken, "token %q", token)
	}
}

func TestIssuerLogValueRedactsSecret(t *testing.T) {
	i, err := NewIssuer(testSecret, time.Minute)
	require.NoError(t, err)

	var buf bytes.Buffer
	slog.New(slog.NewJSONHandler(&buf, nil)).Info("issuer ready", "issuer", i)

	assert.NotContains(t, buf.String(), testSecret)
	assert.Contains(t, buf.String(), "[redacted]")
}
