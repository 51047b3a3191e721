package auth

import (
	"net/http"

	"github.com/noah-isme/checkout-api/internal/common"
)

// ProfileHandler handles GET /api/profile.
func ProfileHandler(w http.ResponseWriter, r *http.Request) {
	profile, ok := ProfileFromContext(r.Context())
	if !ok {
		common.WriteError(w, common.Unauthenticated("missing or invalid token", nil))
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": profile})
}
