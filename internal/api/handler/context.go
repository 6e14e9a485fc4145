package handler

import (
	"context"

	"github.com/prohealth/prohealth/internal/api/middleware"
)

// AdminSubject retrieves the authenticated admin subject from the context.
// This is a convenience wrapper around middleware.GetAdminSubject.
func AdminSubject(ctx context.Context) string {
	return middleware.GetAdminSubject(ctx)
}
