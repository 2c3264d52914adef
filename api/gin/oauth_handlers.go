package deskgin

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/pilab-dev/reviewdesk/domain"
	"github.com/pilab-dev/reviewdesk/internal/audit"
	"github.com/pilab-dev/reviewdesk/internal/federation"
	"github.com/pilab-dev/reviewdesk/internal/tenant"
	"github.com/rs/zerolog/log"
)

// callbackActor identifies the browser redirect as the actor of a connect.
const callbackActor = "oauth-callback"

// OAuthAPI serves the provider connection endpoints of the dashboard.
type OAuthAPI struct {
	providers    *federation.Registry
	dashboardURL string
}

// NewOAuthAPI creates an OAuthAPI. dashboardURL is where the browser lands
// after the provider callback.
func NewOAuthAPI(providers *federation.Registry, dashboardURL string) *OAuthAPI {
	return &OAuthAPI{providers: providers, dashboardURL: dashboardURL}
}

// RegisterRoutes registers the OAuth routes below rg.
func (api *OAuthAPI) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/oauth/:provider")
	{
		g.GET("/authorize", api.AuthorizeHandler)
		g.GET("/callback", api.CallbackHandler)
		g.POST("/refresh", RequireRole(domain.RoleManager), api.RefreshHandler)
		g.POST("/revoke", RequireRole(domain.RoleManager), api.RevokeHandler)
		g.GET("/status", api.StatusHandler)
		g.DELETE("/token", RequireRole(domain.RoleOwner), api.DeleteTokenHandler)
	}
}

// lifecycle resolves the provider path parameter, answering 404 when unknown.
func (api *OAuthAPI) lifecycle(c *gin.Context) (*federation.Lifecycle, bool) {
	l, err := api.providers.Get(c.Param("provider"))
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return l, true
}

func requestTenant(c *gin.Context, op string) (string, bool) {
	tenantID, err := tenant.TenantID(c.Request.Context(), op)
	if err != nil {
		writeError(c, err)
		return "", false
	}
	return tenantID, true
}

// AuthorizeHandler returns the provider consent URL for the current tenant.
// The state carries the tenant id and a fresh random nonce.
func (api *OAuthAPI) AuthorizeHandler(c *gin.Context) {
	l, ok := api.lifecycle(c)
	if !ok {
		return
	}
	tenantID, ok := requestTenant(c, "oauth.authorize")
	if !ok {
		return
	}

	nonce, err := federation.NewStateNonce()
	if err != nil {
		log.Ctx(c.Request.Context()).Error().Err(err).Msg("failed to generate state nonce")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	authURL, err := l.AuthorizationURL(tenantID, nonce)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"authorizationUrl": authURL})
}

// CallbackHandler completes the consent round trip. The tenant is recovered
// from the state parameter; the browser is sent back to the dashboard with
// oauth=success or oauth=error.
func (api *OAuthAPI) CallbackHandler(c *gin.Context) {
	l, ok := api.lifecycle(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if providerErr := c.Query("error"); providerErr != "" {
		log.Ctx(ctx).Warn().Str("provider", l.Provider()).Str("error", providerErr).Msg("provider returned an error on callback")
		api.redirectToDashboard(c, "error", providerErr)
		return
	}

	code := c.Query("code")
	tenantID, _, err := federation.ParseState(c.Query("state"))
	if err != nil || code == "" {
		log.Ctx(ctx).Warn().Err(err).Msg("invalid oauth callback parameters")
		api.redirectToDashboard(c, "error", "invalid_request")
		return
	}

	tenant.FromContext(ctx).Set(tenantID, callbackActor, domain.RoleOwner)

	_, err = l.ExchangeCode(ctx, tenantID, code)
	audit.Log(ctx, audit.ActionConnect, l.Provider(), err)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("tenant_id", tenantID).Msg("code exchange failed")
		api.redirectToDashboard(c, "error", "exchange_failed")
		return
	}

	api.redirectToDashboard(c, "success", "")
}

func (api *OAuthAPI) redirectToDashboard(c *gin.Context, outcome, reason string) {
	target, err := url.Parse(api.dashboardURL)
	if err != nil || api.dashboardURL == "" {
		c.JSON(http.StatusOK, gin.H{"oauth": outcome, "reason": reason})
		return
	}

	q := target.Query()
	q.Set("oauth", outcome)
	if reason != "" {
		q.Set("reason", reason)
	}
	target.RawQuery = q.Encode()

	c.Redirect(http.StatusFound, target.String())
}

// RefreshHandler refreshes the tenant's access token on demand.
func (api *OAuthAPI) RefreshHandler(c *gin.Context) {
	l, ok := api.lifecycle(c)
	if !ok {
		return
	}
	tenantID, ok := requestTenant(c, "oauth.refresh")
	if !ok {
		return
	}

	tok, err := l.Refresh(c.Request.Context(), tenantID)
	audit.Log(c.Request.Context(), audit.ActionRefresh, l.Provider(), err)
	if err != nil {
		if federation.IsReconnectRequired(err) {
			c.JSON(http.StatusConflict, gin.H{
				"error":   "reconnect_required",
				"message": "The connection must be re-authorized.",
			})
			return
		}
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"expiresAt": tok.ExpiresAt,
		"scope":     tok.Scope,
	})
}

// RevokeHandler revokes the tenant's token at the provider and locally.
func (api *OAuthAPI) RevokeHandler(c *gin.Context) {
	l, ok := api.lifecycle(c)
	if !ok {
		return
	}
	tenantID, ok := requestTenant(c, "oauth.revoke")
	if !ok {
		return
	}

	if !l.Revoke(c.Request.Context(), tenantID) {
		audit.Log(c.Request.Context(), audit.ActionRevoke, l.Provider(), errRevokeFailed)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "No token to revoke or revocation failed.",
		})
		return
	}

	audit.Log(c.Request.Context(), audit.ActionRevoke, l.Provider(), nil)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Token revoked successfully."})
}

// StatusHandler reports the tenant's connection state.
func (api *OAuthAPI) StatusHandler(c *gin.Context) {
	l, ok := api.lifecycle(c)
	if !ok {
		return
	}
	tenantID, ok := requestTenant(c, "oauth.status")
	if !ok {
		return
	}

	c.JSON(http.StatusOK, l.Status(c.Request.Context(), tenantID))
}

// DeleteTokenHandler removes the tenant's token row. Owner only.
func (api *OAuthAPI) DeleteTokenHandler(c *gin.Context) {
	l, ok := api.lifecycle(c)
	if !ok {
		return
	}
	tenantID, ok := requestTenant(c, "oauth.delete")
	if !ok {
		return
	}

	found, err := l.Delete(c.Request.Context(), tenantID)
	audit.Log(c.Request.Context(), audit.ActionDelete, l.Provider(), err)
	if err != nil {
		writeError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "token_not_found", "message": "No token stored for this business."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
