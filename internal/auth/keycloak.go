package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/onboarding"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultAgencyClaim 默认的机构 claim 名
const DefaultAgencyClaim = "agency_id"

// KeycloakClaims Keycloak JWT 声明
type KeycloakClaims struct {
	Sub               string `json:"sub"`
	Email             string `json:"email"`
	PreferredUsername string `json:"preferred_username"`
	Name              string `json:"name"`
	RealmAccess       struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
	jwt.RegisteredClaims
}

// KeycloakTokenValidator Keycloak Token 验证器，实现 IdentityResolver
type KeycloakTokenValidator struct {
	issuer      string
	jwksURL     string
	agencyClaim string
	jwksCache   *sync.Map
	httpClient  *http.Client
}

// NewKeycloakTokenValidator 创建 Keycloak Token 验证器
// jwksURL 为空时使用 issuer 的标准证书地址
func NewKeycloakTokenValidator(issuer, jwksURL, agencyClaim string) *KeycloakTokenValidator {
	if jwksURL == "" {
		jwksURL = fmt.Sprintf("%s/protocol/openid-connect/certs", strings.TrimRight(issuer, "/"))
	}
	if agencyClaim == "" {
		agencyClaim = DefaultAgencyClaim
	}
	return &KeycloakTokenValidator{
		issuer:      issuer,
		jwksURL:     jwksURL,
		agencyClaim: agencyClaim,
		jwksCache:   &sync.Map{},
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

// ValidateToken 验证签名、issuer 和过期时间
func (v *KeycloakTokenValidator) ValidateToken(tokenString string) (*KeycloakClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	)

	token, err := parser.ParseWithClaims(tokenString, &KeycloakClaims{}, func(token *jwt.Token) (interface{}, error) {
		kid, ok := token.Header["kid"].(string)
		if !ok {
			return nil, errors.New("missing kid in token header")
		}
		return v.GetPublicKey(kid)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to validate token: %w", err)
	}

	claims, ok := token.Claims.(*KeycloakClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Sub == "" {
		claims.Sub = claims.Subject
	}
	return claims, nil
}

// Resolve 验证 token 并转换为 Actor，任何错误都返回 ErrUnauthorized
func (v *KeycloakTokenValidator) Resolve(ctx context.Context, tokenString string) (onboarding.Actor, error) {
	claims, err := v.ValidateToken(tokenString)
	if err != nil {
		return onboarding.Actor{}, fmt.Errorf("%w: %v", onboarding.ErrUnauthorized, err)
	}
	return ActorFromClaims(claims, v.agencyFromToken(tokenString))
}

// agencyFromToken 读取可配置名称的机构 claim，签名已在 ValidateToken 中验证
func (v *KeycloakTokenValidator) agencyFromToken(tokenString string) string {
	mapClaims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, mapClaims); err != nil {
		return ""
	}
	agency, _ := mapClaims[v.agencyClaim].(string)
	return agency
}

// ActorFromClaims 按 admin > recruiter > candidate 的优先级确定角色
func ActorFromClaims(claims *KeycloakClaims, agencyID string) (onboarding.Actor, error) {
	if claims == nil || claims.Sub == "" {
		return onboarding.Actor{}, fmt.Errorf("%w: missing subject", onboarding.ErrUnauthorized)
	}

	roles := make(map[string]bool, len(claims.RealmAccess.Roles))
	for _, r := range claims.RealmAccess.Roles {
		roles[r] = true
	}

	actor := onboarding.Actor{ID: claims.Sub, AgencyID: agencyID}
	switch {
	case roles[string(onboarding.RoleAdmin)]:
		actor.Role = onboarding.RoleAdmin
	case roles[string(onboarding.RoleRecruiter)]:
		actor.Role = onboarding.RoleRecruiter
	case roles[string(onboarding.RoleCandidate)]:
		actor.Role = onboarding.RoleCandidate
	default:
		return onboarding.Actor{}, fmt.Errorf("%w: no onboarding role", onboarding.ErrUnauthorized)
	}
	return actor, nil
}

// GetPublicKey 获取公钥 (从 JWKS 或缓存)
func (v *KeycloakTokenValidator) GetPublicKey(kid string) (*rsa.PublicKey, error) {
	if cached, ok := v.jwksCache.Load(kid); ok {
		return cached.(*rsa.PublicKey), nil
	}

	resp, err := v.httpClient.Get(v.jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	var jwks struct {
		Keys []struct {
			Kid string `json:"kid"`
			Kty string `json:"kty"`
			Use string `json:"use"`
			N   string `json:"n"`
			E   string `json:"e"`
		} `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return nil, fmt.Errorf("failed to decode JWKS: %w", err)
	}

	for _, key := range jwks.Keys {
		if key.Kid != kid || key.Kty != "RSA" {
			continue
		}
		publicKey, err := parseRSAPublicKey(key.N, key.E)
		if err != nil {
			return nil, fmt.Errorf("failed to parse RSA public key: %w", err)
		}
		v.jwksCache.Store(kid, publicKey)
		return publicKey, nil
	}

	return nil, fmt.Errorf("key not found in JWKS: %s", kid)
}

// parseRSAPublicKey 解析 RSA 公钥
func parseRSAPublicKey(nStr, eStr string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(nStr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode n: %w", err)
	}

	eBytes, err := base64.RawURLEncoding.DecodeString(eStr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode e: %w", err)
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(new(big.Int).SetBytes(eBytes).Int64()),
	}, nil
}
