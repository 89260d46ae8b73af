package utils // package utils provides helper functions for token creation and password checks

import (
    "errors"
    "time"

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
    "github.com/google/uuid"       // uuid supplies the token's jti claim
)

// PortalToken represents a signed JWT handed to a device after it
// opens a session.  The Token field contains the JWT string; Exp
// stores the expiration as a time.Time.  The captive portal sends the
// token in the Authorization header on validity checks so the server
// can locate the session without a device re-supplying transaction
// details.
type PortalToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// ErrInvalidToken is returned when a portal token fails signature or
// claim validation.
var ErrInvalidToken = errors.New("invalid portal token")

// NewPortalToken builds and signs an HS256 JWT for a session.  It
// takes the signing secret, the session ID, the device identifier and
// a TTL in minutes.  The JWT carries the session ID as subject (sid),
// the device as dev, a unique jti, plus exp and iat.  Note the token
// TTL bounds how long a device may go between validity checks; the
// session itself expires with its transaction.
func NewPortalToken(secret string, sessionID uint64, deviceID string, ttlMin int) (PortalToken, error) {
    now := time.Now().UTC()
    exp := now.Add(time.Duration(ttlMin) * time.Minute)
    claims := jwt.MapClaims{
        "sid": sessionID,
        "dev": deviceID,
        "jti": uuid.NewString(),
        "exp": exp.Unix(),
        "iat": now.Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return PortalToken{}, err
    }
    return PortalToken{Token: signed, Exp: exp}, nil
}

// ParsePortalToken validates a portal token and returns the session ID
// and device identifier it carries.  Tokens signed with another method
// or secret, expired tokens and tokens with malformed claims all yield
// ErrInvalidToken.
func ParsePortalToken(secret, raw string) (uint64, string, error) {
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, ErrInvalidToken
        }
        return []byte(secret), nil
    })
    if err != nil || !tok.Valid {
        return 0, "", ErrInvalidToken
    }
    claims, ok := tok.Claims.(jwt.MapClaims)
    if !ok {
        return 0, "", ErrInvalidToken
    }
    sid, ok := claims["sid"].(float64)
    if !ok || sid < 1 {
        return 0, "", ErrInvalidToken
    }
    dev, _ := claims["dev"].(string)
    return uint64(sid), dev, nil
}
