// Package audit records who changed a tenant's provider connection.
package audit

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/pilab-dev/reviewdesk/internal/tenant"
	"github.com/rs/zerolog"
)

// Actions recorded for provider connections.
const (
	ActionConnect = "oauth.connect"
	ActionRefresh = "oauth.refresh"
	ActionRevoke  = "oauth.revoke"
	ActionDelete  = "oauth.delete_token"
	ActionIngest  = "reviews.ingest"
	ActionApprove = "reviews.approve"
	ActionDenied  = "access.denied"
)

const serviceName = "reviewdesk"

// Event represents an audit log event.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Action    string    `json:"action"`
	TenantID  string    `json:"tenant_id,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	Role      string    `json:"role,omitempty"`
	Target    string    `json:"target,omitempty"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

var (
	mu          sync.RWMutex
	auditLogger = zerolog.New(os.Stdout)
)

// SetOutput redirects audit events, e.g. to a dedicated file.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	auditLogger = zerolog.New(w)
}

// Log records an audit event for the tenant and actor resolved in ctx.
// target names the affected resource, typically the provider.
func Log(ctx context.Context, action, target string, err error) {
	event := Event{
		Timestamp: time.Now().UTC(),
		Service:   serviceName,
		Action:    action,
		Target:    target,
		Success:   err == nil,
	}
	if tc, ok := tenant.FromContext(ctx).Current(); ok {
		event.TenantID = tc.TenantID
		event.Actor = tc.ActorID
		event.Role = string(tc.Role)
	}
	if err != nil {
		event.Error = err.Error()
	}

	mu.RLock()
	l := auditLogger
	mu.RUnlock()

	l.Log().Interface("audit_event", event).Msg("")
}
