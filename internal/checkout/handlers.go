package checkout

import (
	"encoding/json"
	"net/http"

	"github.com/noah-isme/checkout-api/internal/common"
)

type Handler struct {
	Svc *Service
}

// Create serves POST /api/create-checkout-session.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "checkout service not configured", nil)
		return
	}
	userID, ok := common.UserID(r.Context())
	if !ok || userID == "" {
		common.WriteError(w, common.Unauthenticated("authentication required", nil))
		return
	}
	var payload Input
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.WriteError(w, common.InvalidRequest("invalid payload", nil))
		return
	}
	out, err := h.Svc.Create(r.Context(), Shopper{ID: userID, Email: common.Email(r.Context())}, payload)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, out)
}
