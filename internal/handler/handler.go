package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/iurnickita/vouchermart/internal/auth"
	"github.com/iurnickita/vouchermart/internal/gzip"
	"github.com/iurnickita/vouchermart/internal/handler/config"
	"github.com/iurnickita/vouchermart/internal/logger"
	"github.com/iurnickita/vouchermart/internal/model"
	"github.com/iurnickita/vouchermart/internal/service"
	"go.uber.org/zap"
)

func Serve(cfg config.Config, auth auth.Auth, service service.Service, zaplog *zap.Logger) error {
	h := newHandler(auth, service, cfg.ServerAddr, zaplog)
	router := h.newRouter()

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: router,
	}

	return srv.ListenAndServe()
}

type handler struct {
	auth     auth.Auth
	service  service.Service
	baseaddr string
	zaplog   *zap.Logger
}

func newHandler(auth auth.Auth, service service.Service, baseaddr string, zaplog *zap.Logger) *handler {
	return &handler{
		auth:     auth,
		service:  service,
		baseaddr: baseaddr,
		zaplog:   zaplog,
	}
}

func (h *handler) newRouter() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/orders", h.mdlw(h.PostOrder))
	mux.HandleFunc("GET /api/orders", h.mdlw(h.GetOrders))
	mux.HandleFunc("GET /api/orders/{number}", h.mdlw(h.GetOrder))
	mux.HandleFunc("POST /api/orders/{number}/process", h.mdlw(h.ProcessOrder))
	mux.HandleFunc("POST /api/orders/{number}/retry", h.mdlw(h.RetryOrder))
	mux.HandleFunc("POST /api/orders/{number}/cancel", h.mdlw(h.CancelOrder))
	mux.HandleFunc("POST /api/orders/{number}/publish", h.mdlw(h.PublishOrder))
	mux.HandleFunc("GET /api/products", h.mdlw(h.GetProducts))
	mux.HandleFunc("GET /api/balance", h.mdlw(h.GetBalance))
	mux.HandleFunc("POST /api/pricing/refresh", h.mdlw(h.RefreshPricing))

	return mux
}

func (h *handler) mdlw(next http.HandlerFunc) http.HandlerFunc {
	return gzip.GzipMiddleware(logger.RequestLogMdlw(h.auth.Middleware(next), h.zaplog))
}

func (h *handler) serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInsufficientData):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrInvalidStatus):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, service.ErrInsufficientFunds):
		http.Error(w, err.Error(), http.StatusPaymentRequired)
	case errors.Is(err, service.ErrAlreadyExists):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *handler) writeJSON(w http.ResponseWriter, statusCode int, v any) {
	responseJSON, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(responseJSON)
}

type OrderJSONResponse struct {
	Number                string    `json:"number"`
	Status                string    `json:"status"`
	TotalWholesale        float32   `json:"total_wholesale"`
	BalanceBefore         float32   `json:"balance_before"`
	BalanceAfter          float32   `json:"balance_after"`
	GeneratedCount        int       `json:"generated_count"`
	FailedCount           int       `json:"failed_count"`
	ErrorMessage          string    `json:"error_message,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
	ProcessingStartedAt   time.Time `json:"processing_started_at,omitempty"`
	ProcessingCompletedAt time.Time `json:"processing_completed_at,omitempty"`
}

func orderJSON(order model.PurchaseOrder) OrderJSONResponse {
	return OrderJSONResponse{
		Number:                order.Number,
		Status:                order.Data.Status,
		TotalWholesale:        amountOutput(order.Data.TotalWholesale),
		BalanceBefore:         amountOutput(order.Data.BalanceBefore),
		BalanceAfter:          amountOutput(order.Data.BalanceAfter),
		GeneratedCount:        order.Data.GeneratedCount,
		FailedCount:           order.Data.FailedCount,
		ErrorMessage:          order.Data.ErrorMessage,
		CreatedAt:             order.Data.CreatedAt,
		ProcessingStartedAt:   order.Data.ProcessingStartedAt,
		ProcessingCompletedAt: order.Data.ProcessingCompletedAt,
	}
}

type PostOrderJSONRequest struct {
	Items []struct {
		OptionCode string `json:"option_code"`
		Quantity   int    `json:"quantity"`
	} `json:"items"`
}

func (h *handler) PostOrder(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	_, err := buf.ReadFrom(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var orderJSONReq PostOrderJSONRequest
	err = json.Unmarshal(buf.Bytes(), &orderJSONReq)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	storeCode := r.Header.Get(auth.HeaderStoreCodeKey)

	var lines []service.OrderLine
	for _, item := range orderJSONReq.Items {
		lines = append(lines, service.OrderLine{
			OptionCode: item.OptionCode,
			Quantity:   item.Quantity,
		})
	}

	order, err := h.service.CreateOrder(r.Context(), storeCode, lines)
	if err != nil {
		if errors.Is(err, service.ErrDuplicateRequest) {
			w.WriteHeader(http.StatusOK)
			return
		}
		h.serviceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, orderJSON(order))
}

func (h *handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	storeCode := r.Header.Get(auth.HeaderStoreCodeKey)

	orders, err := h.service.GetOrders(r.Context(), storeCode)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	if len(orders) == 0 {
		http.Error(w, "", http.StatusNoContent)
		return
	}

	var ordersJSON []OrderJSONResponse
	for _, order := range orders {
		ordersJSON = append(ordersJSON, orderJSON(order))
	}
	h.writeJSON(w, http.StatusOK, ordersJSON)
}

type OrderItemJSONResponse struct {
	Pos            int     `json:"pos"`
	OptionCode     string  `json:"option_code"`
	Quantity       int     `json:"quantity"`
	UnitFaceValue  float32 `json:"unit_face_value"`
	UnitWholesale  float32 `json:"unit_wholesale"`
	TotalWholesale float32 `json:"total_wholesale"`
}

type VoucherUnitJSONResponse struct {
	ExternalID   string  `json:"external_id"`
	ItemPos      int     `json:"item_pos"`
	OptionCode   string  `json:"option_code"`
	Status       string  `json:"status"`
	SerialNumber string  `json:"serial_number,omitempty"`
	RedeemURL    string  `json:"redeem_url,omitempty"`
	FailureText  string  `json:"failure_text,omitempty"`
	RetryCount   int     `json:"retry_count"`
	LatencyMS    int64   `json:"latency_ms"`
	SallaSynced  bool    `json:"salla_synced"`
	FaceValue    float32 `json:"face_value"`
}

type OrderDetailJSONResponse struct {
	Order OrderJSONResponse         `json:"order"`
	Items []OrderItemJSONResponse   `json:"items"`
	Units []VoucherUnitJSONResponse `json:"units"`
}

func (h *handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	storeCode := r.Header.Get(auth.HeaderStoreCodeKey)
	number := r.PathValue("number")

	detail, err := h.service.GetOrder(r.Context(), storeCode, number)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	response := OrderDetailJSONResponse{Order: orderJSON(detail.Order)}
	for _, item := range detail.Items {
		response.Items = append(response.Items, OrderItemJSONResponse{
			Pos:            item.Pos,
			OptionCode:     item.Data.OptionCode,
			Quantity:       item.Data.Quantity,
			UnitFaceValue:  amountOutput(item.Data.UnitFaceValue),
			UnitWholesale:  amountOutput(item.Data.UnitWholesale),
			TotalWholesale: amountOutput(item.Data.TotalWholesale),
		})
	}
	for _, unit := range detail.Units {
		response.Units = append(response.Units, VoucherUnitJSONResponse{
			ExternalID:   unit.ExternalID,
			ItemPos:      unit.Data.ItemPos,
			OptionCode:   unit.Data.OptionCode,
			Status:       unit.Data.Status,
			SerialNumber: unit.Data.SerialNumber,
			RedeemURL:    unit.Data.RedeemURL,
			FailureText:  unit.Data.FailureText,
			RetryCount:   unit.Data.RetryCount,
			LatencyMS:    unit.Data.LatencyMS,
			SallaSynced:  unit.Data.SallaSynced,
			FaceValue:    amountOutput(unit.Data.FaceValue),
		})
	}

	h.writeJSON(w, http.StatusOK, response)
}

func (h *handler) ProcessOrder(w http.ResponseWriter, r *http.Request) {
	storeCode := r.Header.Get(auth.HeaderStoreCodeKey)
	number := r.PathValue("number")

	order, err := h.service.ProcessOrder(r.Context(), storeCode, number)
	if err != nil && !errors.Is(err, service.ErrInsufficientFunds) {
		h.serviceError(w, err)
		return
	}
	// при нехватке баланса возвращаем заказ со статусом FAILED
	// и кодом 402: тело показывает причину
	statusCode := http.StatusOK
	if errors.Is(err, service.ErrInsufficientFunds) {
		statusCode = http.StatusPaymentRequired
	}

	h.writeJSON(w, statusCode, orderJSON(order))
}

func (h *handler) RetryOrder(w http.ResponseWriter, r *http.Request) {
	storeCode := r.Header.Get(auth.HeaderStoreCodeKey)
	number := r.PathValue("number")

	order, err := h.service.RetryOrder(r.Context(), storeCode, number)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, orderJSON(order))
}

func (h *handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	storeCode := r.Header.Get(auth.HeaderStoreCodeKey)
	number := r.PathValue("number")

	if err := h.service.CancelOrder(r.Context(), storeCode, number); err != nil {
		h.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *handler) PublishOrder(w http.ResponseWriter, r *http.Request) {
	storeCode := r.Header.Get(auth.HeaderStoreCodeKey)
	number := r.PathValue("number")

	if err := h.service.PublishOrder(r.Context(), storeCode, number); err != nil {
		h.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type ProductJSONResponse struct {
	OptionCode     string  `json:"option_code"`
	FaceValue      float32 `json:"face_value"`
	Wholesale      float32 `json:"wholesale"`
	SallaProductID string  `json:"salla_product_id"`
	Stock          int     `json:"stock"`
}

func (h *handler) GetProducts(w http.ResponseWriter, r *http.Request) {
	storeCode := r.Header.Get(auth.HeaderStoreCodeKey)

	products, err := h.service.GetProducts(r.Context(), storeCode)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	if len(products) == 0 {
		http.Error(w, "", http.StatusNoContent)
		return
	}

	var productsJSON []ProductJSONResponse
	for _, product := range products {
		productsJSON = append(productsJSON, ProductJSONResponse{
			OptionCode:     product.Option.Code,
			FaceValue:      amountOutput(product.Option.Data.FaceValue),
			Wholesale:      amountOutput(product.Option.Data.Wholesale),
			SallaProductID: product.Option.Data.SallaProductID,
			Stock:          product.Stock,
		})
	}
	h.writeJSON(w, http.StatusOK, productsJSON)
}

type GetBalanceJSONResponse struct {
	Balance float32 `json:"balance"`
}

func (h *handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	storeCode := r.Header.Get(auth.HeaderStoreCodeKey)

	balance, err := h.service.GetBalance(r.Context(), storeCode)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, GetBalanceJSONResponse{Balance: amountOutput(balance)})
}

func (h *handler) RefreshPricing(w http.ResponseWriter, r *http.Request) {
	storeCode := r.Header.Get(auth.HeaderStoreCodeKey)

	if err := h.service.RefreshPricing(r.Context(), storeCode); err != nil {
		h.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func amountOutput(minor int64) float32 {
	return float32(minor) / 100
}
