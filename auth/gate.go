package auth

import (
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/gurre/awsgate/envelope"
	"github.com/sirupsen/logrus"
)

// Policy classifies request paths. Entries ending in "/**" match the prefix
// itself and everything below it; other entries match exactly. Paths that are
// neither public nor admin-only require any authenticated principal.
type Policy struct {
	Public    []string
	AdminOnly []string
}

// DefaultPolicy returns the route policy of the service.
func DefaultPolicy() Policy {
	return Policy{
		Public:    []string{"/api/health", "/api/info"},
		AdminOnly: []string{"/api/test", "/api/sqs/**"},
	}
}

// IsPublic reports whether p may be served without credentials.
func (pol Policy) IsPublic(p string) bool {
	return matchAny(pol.Public, cleanPath(p))
}

// RequiresAdmin reports whether p is restricted to RoleAdmin.
func (pol Policy) RequiresAdmin(p string) bool {
	return matchAny(pol.AdminOnly, cleanPath(p))
}

func matchAny(patterns []string, p string) bool {
	for _, pattern := range patterns {
		if prefix, ok := strings.CutSuffix(pattern, "/**"); ok {
			if p == prefix || strings.HasPrefix(p, prefix+"/") {
				return true
			}
			continue
		}
		if p == pattern {
			return true
		}
	}
	return false
}

// cleanPath collapses dot segments and duplicate slashes so that
// "/api/health/../sqs/send" is judged as "/api/sqs/send".
func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	return path.Clean("/" + p)
}

// Gate enforces a Policy against a Table.
type Gate struct {
	table  *Table
	policy Policy
	realm  string
	logger logrus.FieldLogger
}

// NewGate creates a Gate. realm is sent in the WWW-Authenticate challenge.
func NewGate(table *Table, policy Policy, realm string, logger logrus.FieldLogger) *Gate {
	return &Gate{table: table, policy: policy, realm: realm, logger: logger}
}

// Middleware authenticates and authorises every request before it reaches
// next. Rejections are written as failure envelopes: 401 with a Basic
// challenge for missing or wrong credentials, 403 for a principal lacking the
// admin role. The authenticated principal is available to next through
// PrincipalFrom.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := cleanPath(r.URL.Path)
		if g.policy.IsPublic(p) {
			next.ServeHTTP(w, r)
			return
		}

		name, password, ok := r.BasicAuth()
		if !ok {
			g.challenge(w, r, &envelope.AuthError{Reason: "Full authentication is required to access this resource"})
			return
		}
		principal, ok := g.table.Authenticate(name, password)
		if !ok {
			g.challenge(w, r, &envelope.AuthError{Reason: "Bad credentials"})
			return
		}

		if g.policy.RequiresAdmin(p) && principal.Role != RoleAdmin {
			err := &envelope.AccessDeniedError{Principal: principal.Name, Required: string(RoleAdmin)}
			g.logger.WithFields(logrus.Fields{"principal": principal.Name, "path": p}).Warn("access denied")
			if _, werr := envelope.WriteFailure(w, "Access denied", err); werr != nil {
				g.logger.WithError(werr).Error("failed to write response")
			}
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

func (g *Gate) challenge(w http.ResponseWriter, r *http.Request, err *envelope.AuthError) {
	g.logger.WithFields(logrus.Fields{"path": r.URL.Path, "reason": err.Reason}).Debug("authentication failed")
	w.Header().Set("WWW-Authenticate", fmt.Sprintf("Basic realm=%q", g.realm))
	if _, werr := envelope.WriteFailure(w, "Unauthorized", err); werr != nil {
		g.logger.WithError(werr).Error("failed to write response")
	}
}
