package observability

import (
	"context"
	"strings"

	"github.com/swiftbasket/api/internal/platform/auth"
)

// Length caps for request log values. Anything longer is noise or an
// injection attempt, not a value worth indexing.
const (
	maxMethodLen = 10
	maxRouteLen  = 180
	maxActorLen  = 64
	maxAddrLen   = 64
)

// logSafe caps the value and masks control characters so a crafted header or
// identifier cannot forge extra log lines.
func logSafe(value string, max int) string {
	runes := []rune(value)
	if len(runes) > max {
		runes = runes[:max]
	}
	for i, r := range runes {
		if r < 0x20 || r == 0x7f {
			runes[i] = '_'
		}
	}
	return string(runes)
}

func logMethod(method string) string {
	return logSafe(method, maxMethodLen)
}

func logRoute(route string) string {
	if strings.TrimSpace(route) == "" {
		return "/"
	}
	return logSafe(route, maxRouteLen)
}

// logActor resolves the authenticated identity for log fields. Only the
// opaque uid ever reaches the logs, never profile data.
func logActor(ctx context.Context) string {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil {
		return ""
	}
	return logSafe(identity.UID, maxActorLen)
}
