package services

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/pulseloop-backend/internal/platform/logger"
)

const defaultAuthority = "https://login.microsoftonline.com"

// EntraConfig configures access-token verification for one Entra ID tenant.
type EntraConfig struct {
	TenantID  string   `mapstructure:"tenant_id"`
	Audiences []string `mapstructure:"audiences"`
	// Authority defaults to the public Microsoft login host.
	Authority   string        `mapstructure:"authority"`
	DefaultRole string        `mapstructure:"default_role"`
	KeysTTL     time.Duration `mapstructure:"keys_ttl"`
	// DevUserExternalID enables the local identity bypass when no tenant is configured.
	DevUserExternalID string `mapstructure:"dev_user_external_id"`
}

func (c EntraConfig) Enabled() bool {
	return strings.TrimSpace(c.TenantID) != ""
}

func (c EntraConfig) issuer() string {
	authority := strings.TrimRight(strings.TrimSpace(c.Authority), "/")
	if authority == "" {
		authority = defaultAuthority
	}
	return authority + "/" + c.TenantID + "/v2.0"
}

// TokenVerifier validates a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (jwt.MapClaims, error)
}

type entraVerifier struct {
	log       *logger.Logger
	http      *resty.Client
	issuer    string
	audiences []string
	keys      *signingKeys

	discoveryMu sync.Mutex
	jwksURI     string
}

func NewEntraVerifier(cfg EntraConfig, log *logger.Logger) (TokenVerifier, error) {
	if !cfg.Enabled() {
		return nil, errors.New("entra tenant id is required")
	}
	if len(cfg.Audiences) == 0 {
		return nil, errors.New("at least one entra audience is required")
	}
	ttl := cfg.KeysTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	hc := resty.New().SetTimeout(5 * time.Second).SetRetryCount(1)
	return &entraVerifier{
		log:       log.With("service", "EntraVerifier"),
		http:      hc,
		issuer:    cfg.issuer(),
		audiences: cfg.Audiences,
		keys:      &signingKeys{ttl: ttl, byKid: map[string]any{}},
	}, nil
}

func (v *entraVerifier) Verify(ctx context.Context, token string) (jwt.MapClaims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("token missing")
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256", "ES256"}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(v.issuer),
		jwt.WithLeeway(30*time.Second),
	)
	claims := jwt.MapClaims{}
	tok, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if strings.TrimSpace(kid) == "" {
			return nil, errors.New("token missing key identifier (kid)")
		}
		return v.key(ctx, kid)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if tok == nil || !tok.Valid {
		return nil, errors.New("invalid token")
	}
	if !audienceAllowed(claims["aud"], v.audiences) {
		return nil, errors.New("token audience not allowed")
	}
	return claims, nil
}

func (v *entraVerifier) key(ctx context.Context, kid string) (any, error) {
	if k := v.keys.get(kid); k != nil {
		return k, nil
	}
	uri, err := v.discover(ctx)
	if err != nil {
		return nil, err
	}
	// Unknown kid usually means a key rollover: refresh once.
	if v.keys.recentlyFetched(30 * time.Second) {
		return nil, fmt.Errorf("signing key not found for kid %s", kid)
	}
	if err := v.keys.refresh(ctx, v.http, uri); err != nil {
		if k := v.keys.getStale(kid); k != nil {
			v.log.Warn("jwks refresh failed, using cached key", "error", err)
			return k, nil
		}
		return nil, err
	}
	if k := v.keys.getStale(kid); k != nil {
		return k, nil
	}
	return nil, fmt.Errorf("signing key not found for kid %s", kid)
}

type openIDConfiguration struct {
	Issuer  string `json:"issuer"`
	JWKSURI string `json:"jwks_uri"`
}

func (v *entraVerifier) discover(ctx context.Context) (string, error) {
	v.discoveryMu.Lock()
	defer v.discoveryMu.Unlock()
	if v.jwksURI != "" {
		return v.jwksURI, nil
	}
	var cfg openIDConfiguration
	resp, err := v.http.R().SetContext(ctx).SetResult(&cfg).Get(v.issuer + "/.well-known/openid-configuration")
	if err != nil {
		return "", fmt.Errorf("openid configuration: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("openid configuration: %s", resp.Status())
	}
	if strings.TrimSpace(cfg.JWKSURI) == "" {
		return "", errors.New("openid configuration missing jwks_uri")
	}
	v.jwksURI = cfg.JWKSURI
	return v.jwksURI, nil
}

func audienceAllowed(aud any, allowed []string) bool {
	var got []string
	switch v := aud.(type) {
	case string:
		got = []string{v}
	case []any:
		for _, it := range v {
			if s, ok := it.(string); ok {
				got = append(got, s)
			}
		}
	case []string:
		got = v
	}
	for _, a := range got {
		for _, want := range allowed {
			if a == want {
				return true
			}
		}
	}
	return false
}

// ----- signing keys (RSA + EC) -----

type signingKeys struct {
	mu        sync.RWMutex
	byKid     map[string]any
	fetchedAt time.Time
	ttl       time.Duration
}

type jwkSet struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

// get returns a key only while the set is fresh.
func (s *signingKeys) get(kid string) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if time.Since(s.fetchedAt) > s.ttl {
		return nil
	}
	return s.byKid[kid]
}

func (s *signingKeys) getStale(kid string) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byKid[kid]
}

func (s *signingKeys) recentlyFetched(window time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.fetchedAt.IsZero() && time.Since(s.fetchedAt) < window
}

func (s *signingKeys) refresh(ctx context.Context, hc *resty.Client, uri string) error {
	resp, err := hc.R().SetContext(ctx).Get(uri)
	if err != nil {
		return fmt.Errorf("jwks fetch: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("jwks fetch: %s", resp.Status())
	}
	var set jwkSet
	if err := json.Unmarshal(resp.Body(), &set); err != nil {
		return fmt.Errorf("jwks decode: %w", err)
	}
	next := map[string]any{}
	for _, k := range set.Keys {
		if strings.TrimSpace(k.Kid) == "" {
			continue
		}
		switch k.Kty {
		case "RSA":
			if pub, err := rsaFromModExp(k.N, k.E); err == nil {
				next[k.Kid] = pub
			}
		case "EC":
			if pub, err := ecdsaFromXY(k.Crv, k.X, k.Y); err == nil {
				next[k.Kid] = pub
			}
		}
	}
	if len(next) == 0 {
		return errors.New("jwks contained no usable keys")
	}
	s.mu.Lock()
	s.byKid = next
	s.fetchedAt = time.Now()
	s.mu.Unlock()
	return nil
}

func rsaFromModExp(nB64, eB64 string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(nB64)
	if err != nil {
		return nil, err
	}
	eb, err := base64.RawURLEncoding.DecodeString(eB64)
	if err != nil {
		return nil, err
	}
	e := 0
	for _, b := range eb {
		e = e<<8 + int(b)
	}
	if e == 0 {
		return nil, errors.New("invalid exponent")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: e}, nil
}

func ecdsaFromXY(crv, xB64, yB64 string) (*ecdsa.PublicKey, error) {
	if crv != "P-256" {
		return nil, fmt.Errorf("unsupported curve: %s", crv)
	}
	xb, err := base64.RawURLEncoding.DecodeString(xB64)
	if err != nil {
		return nil, err
	}
	yb, err := base64.RawURLEncoding.DecodeString(yB64)
	if err != nil {
		return nil, err
	}
	x, y := new(big.Int).SetBytes(xb), new(big.Int).SetBytes(yb)
	curve := elliptic.P256()
	if !curve.IsOnCurve(x, y) {
		return nil, errors.New("invalid EC point")
	}
	return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
}

func claimString(c jwt.MapClaims, keys ...string) string {
	for _, k := range keys {
		switch v := c[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func claimStrings(c jwt.MapClaims, key string) []string {
	switch v := c[key].(type) {
	case string:
		if v != "" {
			return []string{v}
		}
	case []any:
		out := make([]string, 0, len(v))
		for _, it := range v {
			if s, ok := it.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
