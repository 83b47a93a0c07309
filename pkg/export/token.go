package export

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

var (
	// ErrTokenInvalid is returned for malformed or tampered download tokens.
	ErrTokenInvalid = errors.New("export: invalid download token")
	// ErrTokenExpired is returned for tokens past their expiry.
	ErrTokenExpired = errors.New("export: download token expired")
)

// DownloadToken grants time-limited access to a stored artifact.
type DownloadToken struct {
	Key      string `msgpack:"k"`
	Filename string `msgpack:"f"`
	Expires  int64  `msgpack:"e"`
}

// TokenSigner issues and verifies signed download tokens. Tokens are visible
// (msgpack, base64) but tamper-proof.
type TokenSigner struct {
	key []byte
	now func() time.Time
}

// NewTokenSigner derives a signing key from secret.
func NewTokenSigner(secret []byte) *TokenSigner {
	sum := sha256.Sum256(secret)
	return &TokenSigner{key: sum[:], now: time.Now}
}

// Sign returns a token for key valid for ttl.
func (s *TokenSigner) Sign(key, filename string, ttl time.Duration) (string, error) {
	packed, err := msgpack.Marshal(DownloadToken{
		Key:      key,
		Filename: filename,
		Expires:  s.now().Add(ttl).Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("pack token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(packed) + "." + base64.RawURLEncoding.EncodeToString(s.mac(packed)), nil
}

// Verify checks the signature and expiry and returns the token contents.
func (s *TokenSigner) Verify(token string) (DownloadToken, error) {
	body, sigPart, ok := strings.Cut(token, ".")
	if !ok {
		return DownloadToken{}, ErrTokenInvalid
	}
	data, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return DownloadToken{}, ErrTokenInvalid
	}
	sig, err := base64.RawURLEncoding.DecodeString(sigPart)
	if err != nil || !hmac.Equal(sig, s.mac(data)) {
		return DownloadToken{}, ErrTokenInvalid
	}
	var tok DownloadToken
	if err := msgpack.Unmarshal(data, &tok); err != nil {
		return DownloadToken{}, ErrTokenInvalid
	}
	if s.now().Unix() > tok.Expires {
		return DownloadToken{}, ErrTokenExpired
	}
	return tok, nil
}

func (s *TokenSigner) mac(data []byte) []byte {
	m := hmac.New(sha256.New, s.key)
	m.Write(data)
	return m.Sum(nil)
}
