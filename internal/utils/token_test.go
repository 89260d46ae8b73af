package utils

import (
    "testing"
    "time"

    "github.com/golang-jwt/jwt/v5"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

const testSecret = "portal-test-secret"

func TestPortalToken_RoundTrip(t *testing.T) {
    tok, err := NewPortalToken(testSecret, 42, "AA:BB:CC:DD:EE:01", 30)
    require.NoError(t, err)
    require.NotEmpty(t, tok.Token)
    assert.WithinDuration(t, time.Now().UTC().Add(30*time.Minute), tok.Exp, 5*time.Second)

    sid, dev, err := ParsePortalToken(testSecret, tok.Token)
    require.NoError(t, err)
    assert.Equal(t, uint64(42), sid)
    assert.Equal(t, "AA:BB:CC:DD:EE:01", dev)
}

func TestParsePortalToken_WrongSecret(t *testing.T) {
    tok, err := NewPortalToken(testSecret, 42, "AA:BB:CC:DD:EE:01", 30)
    require.NoError(t, err)

    _, _, err = ParsePortalToken("some-other-secret", tok.Token)
    require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParsePortalToken_Expired(t *testing.T) {
    tok, err := NewPortalToken(testSecret, 42, "AA:BB:CC:DD:EE:01", -1)
    require.NoError(t, err)

    _, _, err = ParsePortalToken(testSecret, tok.Token)
    require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParsePortalToken_Garbage(t *testing.T) {
    _, _, err := ParsePortalToken(testSecret, "not-a-jwt")
    require.ErrorIs(t, err, ErrInvalidToken)
}

// Unsigned tokens must never pass, even with otherwise valid claims.
func TestParsePortalToken_RejectsNoneAlgorithm(t *testing.T) {
    unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
        "sid": 42,
        "dev": "AA:BB:CC:DD:EE:01",
        "exp": time.Now().Add(time.Hour).Unix(),
    })
    raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
    require.NoError(t, err)

    _, _, err = ParsePortalToken(testSecret, raw)
    require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParsePortalToken_MissingSessionClaim(t *testing.T) {
    tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
        "dev": "AA:BB:CC:DD:EE:01",
        "exp": time.Now().Add(time.Hour).Unix(),
    })
    raw, err := tok.SignedString([]byte(testSecret))
    require.NoError(t, err)

    _, _, err = ParsePortalToken(testSecret, raw)
    require.ErrorIs(t, err, ErrInvalidToken)
}

func TestHashAndVerifyPassword(t *testing.T) {
    hash, err := HashPassword("hunter2", 4)
    require.NoError(t, err)
    assert.True(t, VerifyPassword(hash, "hunter2"))
    assert.False(t, VerifyPassword(hash, "hunter3"))
}
