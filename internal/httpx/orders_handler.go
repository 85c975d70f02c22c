package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	kafkax "github.com/ariefcatur/go-inventory-orders/internal/kafka"
	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Publisher interface {
	Publish(ctx context.Context, key, value []byte, headers ...kafkago.Header) error
}

// ReportCache stores reports per generation. Get returns the current
// generation; Set under a generation that Invalidate has since moved past
// must never be served.
type ReportCache interface {
	Get(ctx context.Context) (rep orders.Report, gen int64, ok bool)
	Set(ctx context.Context, gen int64, rep orders.Report)
	Invalidate(ctx context.Context)
}

// OrdersHandler serves the inventory endpoints. Producer and Reports are
// optional.
type OrdersHandler struct {
	Placer   *orders.Placer
	Catalog  *orders.Catalog
	Producer Publisher
	Reports  ReportCache
	Service  string
	Log      *zap.Logger
}

type AddProductResp struct {
	Message   string `json:"message"`
	ProductID int64  `json:"product_id"`
}

type PlaceOrderResp struct {
	Message string `json:"message"`
	OrderID int64  `json:"order_id"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/add_product", h.addProduct)
	r.Post("/place_order", h.placeOrder)
	r.Get("/report", h.report)
	r.Get("/orders/{id}", h.getOrder)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// decode rejects empty, null and malformed bodies.
func decode(r *http.Request, v any) bool {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return false
	}
	if string(raw) == "null" {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

func (h *OrdersHandler) addProduct(w http.ResponseWriter, r *http.Request) {
	var req orders.CreateProductInput
	if !decode(r, &req) {
		writeError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, err := h.Catalog.CreateProduct(ctx, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.invalidateReport(ctx)
	writeJSON(w, http.StatusCreated, AddProductResp{Message: "Product added", ProductID: id})
}

func (h *OrdersHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req orders.PlaceOrderRequest
	if !decode(r, &req) {
		writeError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	// The placer applies its own bound on gate wait and transaction time.
	placed, err := h.Placer.PlaceOrder(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.invalidateReport(r.Context())
	h.publishPlaced(r, *placed)
	writeJSON(w, http.StatusCreated, PlaceOrderResp{Message: "Order placed", OrderID: placed.OrderID})
}

func (h *OrdersHandler) report(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var gen int64 = -1
	if h.Reports != nil {
		rep, g, ok := h.Reports.Get(ctx)
		if ok {
			writeJSON(w, http.StatusOK, rep)
			return
		}
		gen = g
	}
	rep, err := h.Catalog.Report(ctx)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if h.Reports != nil {
		h.Reports.Set(ctx, gen, rep)
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Catalog.GetOrder(ctx, id)
	if errors.Is(err, orders.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if orders.IsClientError(err) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.Log.Error("request failed",
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("path", r.URL.Path),
		zap.Error(err))
	writeError(w, http.StatusInternalServerError, err.Error())
}

func (h *OrdersHandler) invalidateReport(ctx context.Context) {
	if h.Reports != nil {
		h.Reports.Invalidate(ctx)
	}
}

func (h *OrdersHandler) publishPlaced(r *http.Request, p orders.PlacedOrder) {
	if h.Producer == nil {
		return
	}
	env := orders.NewEnvelope(orders.EventOrderPlaced, h.Service,
		middleware.GetReqID(r.Context()), strconv.FormatInt(p.OrderID, 10),
		kafkax.MustMarshal(orders.NewOrderPlacedPayload(p)))

	ctx, cancel := context.WithTimeout(r.Context(), time.Second)
	defer cancel()
	if err := h.Producer.Publish(ctx, orders.PartitionKey(p.OrderID), kafkax.MustMarshal(env), kafkax.EnvelopeHeaders(env)...); err != nil {
		h.Log.Warn("publish order placed", zap.Int64("order_id", p.OrderID), zap.Error(err))
	}
}
