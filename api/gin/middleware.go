package deskgin

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pilab-dev/reviewdesk/config"
	"github.com/pilab-dev/reviewdesk/domain"
	"github.com/pilab-dev/reviewdesk/internal/audit"
	"github.com/pilab-dev/reviewdesk/internal/tenant"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
)

// Request metadata used to resolve the tenant when header resolution is on.
const (
	HeaderBusinessID = "X-Business-Id"
	HeaderUserID     = "X-User-Id"
	HeaderUserRole   = "X-User-Role"
	QueryBusinessID  = "businessId"

	defaultActorID = "1"
)

var ErrInvalidToken = errors.New("invalid JWT token")

// TenantClaims are the claims of a dashboard session token.
type TenantClaims struct {
	BusinessID string `json:"business_id"`
	Role       string `json:"role"`
	jwt.RegisteredClaims
}

// NewTenantToken signs an HS256 session token for the given identity.
func NewTenantToken(secret, businessID, actorID string, role domain.Role, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := TenantClaims{
		BusinessID: businessID,
		Role:       string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actorID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseClaims validates an HS256 session token and returns its claims.
func ParseClaims(secret, tokenString string) (*TenantClaims, error) {
	claims := &TenantClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid || claims.BusinessID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// extractJWTFromHeader extracts the JWT from the Authorization header.
func extractJWTFromHeader(bearerToken string) (string, error) {
	const prefix = "Bearer "
	if strings.HasPrefix(bearerToken, prefix) {
		return strings.TrimPrefix(bearerToken, prefix), nil
	}
	return "", errors.New("invalid bearer token")
}

// TenantMiddleware gives every request its own BusinessContext and fills it
// from a bearer session token or, when allowed, from request headers. The
// context is cleared once the handler chain returns. Requests without any
// tenant metadata pass through with an empty context.
func TenantMiddleware(cfg config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		bc := tenant.New()
		c.Request = c.Request.WithContext(tenant.WithBusinessContext(c.Request.Context(), bc))
		defer bc.Clear()

		if authHeader := c.GetHeader("Authorization"); authHeader != "" && cfg.JWTSecret != "" {
			ctx, span := otel.Tracer("").Start(c.Request.Context(), "TenantMiddleware.ParseClaims")

			jwtToken, err := extractJWTFromHeader(authHeader)
			var claims *TenantClaims
			if err == nil {
				claims, err = ParseClaims(cfg.JWTSecret, jwtToken)
			}
			if err != nil {
				span.RecordError(err)
				span.End()
				log.Ctx(ctx).Warn().Err(err).Msg("rejected session token")

				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error":   "invalid_token",
					"message": "Invalid session token",
				})
				return
			}
			span.End()

			bc.Set(claims.BusinessID, claims.Subject, domain.ParseRole(claims.Role))
			c.Next()
			return
		}

		if cfg.AllowHeaderTenant {
			businessID := c.GetHeader(HeaderBusinessID)
			if businessID == "" {
				businessID = c.Query(QueryBusinessID)
			}
			if businessID != "" {
				actorID := c.GetHeader(HeaderUserID)
				if actorID == "" {
					actorID = defaultActorID
				}
				role := domain.RoleOwner
				if h := c.GetHeader(HeaderUserRole); h != "" {
					role = domain.ParseRole(h)
				}
				bc.Set(businessID, actorID, role)
			}
		}

		c.Next()
	}
}

// RequireRole aborts requests without a tenant (400) or whose role is below
// required (403).
func RequireRole(required domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		bc := tenant.FromContext(c.Request.Context())

		if _, err := bc.RequireTenant("auth.require_role"); err != nil {
			writeError(c, err)
			c.Abort()
			return
		}
		if !bc.HasPermission(required) {
			audit.Log(c.Request.Context(), audit.ActionDenied, c.FullPath(), fmt.Errorf("requires role %s", required))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "insufficient_role",
				"message": fmt.Sprintf("This action requires the %s role.", required),
			})
			return
		}

		c.Next()
	}
}
