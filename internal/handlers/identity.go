package handlers

import (
	"context"
	"strings"

	"github.com/swiftbasket/api/internal/platform/auth"
)

func identityUID(ctx context.Context) (string, bool) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil {
		return "", false
	}
	uid := strings.TrimSpace(identity.UID)
	if uid == "" {
		return "", false
	}
	return uid, true
}
