package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Totarae/YotpoBridge/internal/apperr"
	"github.com/Totarae/YotpoBridge/internal/job"
	"github.com/Totarae/YotpoBridge/internal/locale"
	"github.com/Totarae/YotpoBridge/internal/middleware"
	"github.com/Totarae/YotpoBridge/internal/model"
	"github.com/Totarae/YotpoBridge/internal/pipeline"
)

const defaultRunsLimit = 20

// Pinger проверяет доступность хранилища.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler: HTTP-обработчики витрины и административных маршрутов.
type Handler struct {
	pipeline *pipeline.Pipeline
	platform Platform
	runner   *job.Runner
	db       Pinger
	logger   *zap.Logger
	validate *validator.Validate
}

// NewHandler создаёт Handler. db может быть nil вне режима database.
func NewHandler(p *pipeline.Pipeline, platform Platform, runner *job.Runner, db Pinger, logger *zap.Logger) *Handler {
	return &Handler{
		pipeline: p,
		platform: platform,
		runner:   runner,
		db:       db,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// RouteResponse: ответ маршрута витрины.
type RouteResponse struct {
	Route string         `json:"route"`
	View  map[string]any `json:"view"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type addItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=1,lte=99"`
}

type couponRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}

type couponResponse struct {
	Code   string                 `json:"code"`
	Status model.CouponStatusCode `json:"status"`
}

type customerRequest struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError отвечает кодом по виду ошибки. Текст ошибки в ответ не попадает.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("uri", r.RequestURI),
			zap.String("request_id", middleware.RequestID(r.Context())),
			zap.String("error_kind", apperr.Kind(err)),
			zap.Error(err),
		)
	}
	writeJSON(w, status, errorResponse{Error: http.StatusText(status)})
}

// requestLocale: локаль из параметра locale или заголовка Accept-Language.
func requestLocale(r *http.Request) string {
	if l := r.URL.Query().Get("locale"); l != "" {
		return l
	}
	return locale.FromAcceptLanguage(r.Header.Get("Accept-Language"))
}

// Route возвращает обработчик маршрута витрины.
func (h *Handler) Route(route string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := pipeline.NewState(r, requestLocale(r))
		if err := h.pipeline.Run(r.Context(), route, s); err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, s.StatusCode(), RouteResponse{Route: route, View: s.View})
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: verrs.Error()})
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request"})
		return false
	}
	return true
}

// AddToBasket добавляет товар в корзину.
func (h *Handler) AddToBasket(w http.ResponseWriter, r *http.Request) {
	id, err := customerID(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req addItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	b, err := h.platform.AddToBasket(r.Context(), id, req.ProductID, req.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// ApplyCoupon применяет купон к корзине.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	id, err := customerID(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req couponRequest
	if !h.decode(w, r, &req) {
		return
	}
	status, err := h.platform.ApplyCoupon(r.Context(), id, req.Code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	code := http.StatusOK
	if !status.IsApplied() {
		code = http.StatusUnprocessableEntity
	}
	writeJSON(w, code, couponResponse{Code: req.Code, Status: status})
}

// UpdateCustomer сохраняет контактные данные покупателя.
func (h *Handler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := customerID(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req customerRequest
	if !h.decode(w, r, &req) {
		return
	}
	c := &model.Customer{ID: id, Email: req.Email, FirstName: req.FirstName, LastName: req.LastName}
	if err := h.platform.UpdateCustomer(r.Context(), c); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// RunJob запускает задание вручную. Статус запуска возвращается в теле.
func (h *Handler) RunJob(w http.ResponseWriter, r *http.Request) {
	run, err := h.runner.Run(r.Context(), chi.URLParam(r, "jobID"), nil)
	if err != nil && run == nil {
		h.writeError(w, r, err)
		return
	}
	if err != nil {
		h.logger.Error("Job run not saved", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, run)
}

// JobRuns возвращает историю запусков задания.
func (h *Handler) JobRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid limit"})
			return
		}
		limit = n
	}
	runs, err := h.runner.Runs(r.Context(), chi.URLParam(r, "jobID"), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if runs == nil {
		runs = []*model.JobRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// Ping проверяет соединение с БД.
func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	if err := h.db.Ping(r.Context()); err != nil {
		h.logger.Error("Database ping failed", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}
