package order

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/checkout-api/internal/common"
	"github.com/noah-isme/checkout-api/internal/db"
	dbgen "github.com/noah-isme/checkout-api/internal/db/gen"
)

// Reader is the read side of the order tables.
type Reader interface {
	CountOrdersByUser(ctx context.Context, userID pgtype.UUID) (int64, error)
	ListOrdersByUser(ctx context.Context, arg dbgen.ListOrdersByUserParams) ([]dbgen.ListOrdersByUserRow, error)
	GetOrderBySessionForUser(ctx context.Context, arg dbgen.GetOrderBySessionForUserParams) (dbgen.GetOrderBySessionForUserRow, error)
	ListOrderItems(ctx context.Context, orderID pgtype.UUID) ([]dbgen.ListOrderItemsRow, error)
}

type Handler struct {
	Q Reader
}

// Item is an order line as returned to the storefront.
type Item struct {
	ID        string `json:"id"`
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Quantity  int32  `json:"quantity"`
	Price     string `json:"price"`
}

// View is an order as returned to the storefront.
type View struct {
	ID              string          `json:"id"`
	Status          string          `json:"status"`
	Total           string          `json:"total"`
	Subtotal        string          `json:"subtotal"`
	Tax             string          `json:"tax"`
	ShippingCost    string          `json:"shippingCost"`
	SessionID       string          `json:"stripeSessionId"`
	PaymentStatus   string          `json:"paymentStatus"`
	ShippingDetails json.RawMessage `json:"shippingDetails,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	Items           []Item          `json:"items"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "order queries not configured", nil)
		return
	}
	uID, ok := h.user(w, r)
	if !ok {
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	if perPage > 100 {
		perPage = 100
	}
	if page-1 > math.MaxInt32/perPage {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidRequest, "page out of range", nil)
		return
	}
	offset := int32((page - 1) * perPage)
	total, err := h.Q.CountOrdersByUser(r.Context(), uID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "failed to count orders", nil)
		return
	}
	rows, err := h.Q.ListOrdersByUser(r.Context(), dbgen.ListOrdersByUserParams{UserID: uID, Limit: int32(perPage), Offset: offset})
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "failed to list orders", nil)
		return
	}
	views := make([]View, 0, len(rows))
	for _, row := range rows {
		view, err := h.view(r.Context(), row)
		if err != nil {
			common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "failed to load order items", nil)
			return
		}
		views = append(views, view)
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	common.JSON(w, http.StatusOK, map[string]any{
		"data": views,
		"pagination": common.Pagination{
			Page:       page,
			PerPage:    perPage,
			TotalItems: int(total),
		},
	})
}

// BySession serves the storefront success page, which only knows the session id.
func (h *Handler) BySession(w http.ResponseWriter, r *http.Request) {
	if h.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "order queries not configured", nil)
		return
	}
	uID, ok := h.user(w, r)
	if !ok {
		return
	}
	sessionID := strings.TrimSpace(chi.URLParam(r, "sessionId"))
	if sessionID == "" {
		common.WriteError(w, common.InvalidRequest("session id is required", nil))
		return
	}
	row, err := h.Q.GetOrderBySessionForUser(r.Context(), dbgen.GetOrderBySessionForUserParams{StripeSessionID: sessionID, UserID: uID})
	if err != nil {
		if db.IsNotFound(err) {
			// the webhook may not have landed yet; clients poll
			common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "order not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "failed to load order", nil)
		return
	}
	view, err := h.view(r.Context(), dbgen.ListOrdersByUserRow(row))
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "failed to load order items", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

func (h *Handler) user(w http.ResponseWriter, r *http.Request) (pgtype.UUID, bool) {
	userID, ok := common.UserID(r.Context())
	if !ok || userID == "" {
		common.WriteError(w, common.Unauthenticated("authentication required", nil))
		return pgtype.UUID{}, false
	}
	uID, err := db.ParseUUID(userID)
	if err != nil {
		common.WriteError(w, common.Unauthenticated("invalid user id", nil))
		return pgtype.UUID{}, false
	}
	return uID, true
}

func (h *Handler) view(ctx context.Context, row dbgen.ListOrdersByUserRow) (View, error) {
	items, err := h.Q.ListOrderItems(ctx, row.ID)
	if err != nil {
		return View{}, err
	}
	out := View{
		ID:            db.UUIDString(row.ID),
		Status:        row.Status,
		Total:         row.Total,
		Subtotal:      row.Subtotal,
		Tax:           row.Tax,
		ShippingCost:  row.ShippingCost,
		SessionID:     row.StripeSessionID,
		PaymentStatus: row.PaymentStatus,
		CreatedAt:     row.CreatedAt.Time,
		Items:         make([]Item, 0, len(items)),
	}
	if len(row.ShippingDetails) > 0 {
		out.ShippingDetails = json.RawMessage(row.ShippingDetails)
	}
	for _, it := range items {
		out.Items = append(out.Items, Item{
			ID:        db.UUIDString(it.ID),
			ProductID: db.UUIDString(it.ProductID),
			Name:      it.Name,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}
	return out, nil
}
