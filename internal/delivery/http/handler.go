package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/azizikri/coupon-registry/internal/domain"
	"github.com/azizikri/coupon-registry/internal/usecase"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type CreateCouponRequest struct {
	Code           string          `json:"code"`
	Description    string          `json:"description"`
	DiscountValue  decimal.Decimal `json:"discount_value"`
	ExpirationDate time.Time       `json:"expiration_date"`
	Published      bool            `json:"published"`
}

type ErrorResponse struct {
	Status    int       `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type Handler struct {
	gateway usecase.CouponGateway
}

func NewHandler(gateway usecase.CouponGateway) *Handler {
	return &Handler{gateway: gateway}
}

func (h *Handler) Routes(r chi.Router) {
	r.Route("/api/v1/coupons", func(r chi.Router) {
		r.Get("/", h.ListCoupons)
		r.Post("/", h.CreateCoupon)
		r.Delete("/{id}", h.DeleteCoupon)
	})
}

func (h *Handler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.gateway.ListCoupons(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, coupons)
}

func (h *Handler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req CreateCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	coupon, err := h.gateway.CreateCoupon(r.Context(), usecase.CreateCouponInput{
		Code:           req.Code,
		Description:    req.Description,
		DiscountValue:  req.DiscountValue,
		ExpirationDate: req.ExpirationDate,
		Published:      req.Published,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, coupon)
}

func (h *Handler) DeleteCoupon(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid coupon id")
		return
	}

	coupon, found, err := h.gateway.DeleteCoupon(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !found {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, coupon)
}

func statusFor(err error) int {
	switch {
	case domain.IsValidation(err):
		return http.StatusBadRequest
	case domain.IsConflict(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).WithField("path", r.URL.Path).Error("coupon request failed")
		writeMessage(w, status, "internal server error")
		return
	}
	writeMessage(w, status, err.Error())
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{
		Status:    status,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Warn("failed to encode response")
	}
}
