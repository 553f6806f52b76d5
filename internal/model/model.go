package model

import "time"

// Заказы на выпуск ваучеров

type PurchaseOrder struct {
	Number string
	Data   PurchaseOrderData
}
type PurchaseOrderData struct {
	StoreCode             string
	Status                string
	TotalWholesale        int64 // в минорных единицах
	BalanceBefore         int64
	BalanceAfter          int64
	GeneratedCount        int
	FailedCount           int
	ErrorMessage          string
	CreatedAt             time.Time
	ProcessingStartedAt   time.Time
	ProcessingCompletedAt time.Time
}

const (
	PurchaseOrderStatusDraft              = "DRAFT"
	PurchaseOrderStatusPending            = "PENDING"
	PurchaseOrderStatusProcessing         = "PROCESSING"
	PurchaseOrderStatusCompleted          = "COMPLETED"
	PurchaseOrderStatusPartiallyCompleted = "PARTIALLY_COMPLETED"
	PurchaseOrderStatusFailed             = "FAILED"
	PurchaseOrderStatusCancelled          = "CANCELLED"
)

// Позиции заказа. Одна строка на вариант продукта

type PurchaseOrderItem struct {
	OrderNumber string
	Pos         int
	Data        PurchaseOrderItemData
}
type PurchaseOrderItemData struct {
	OptionCode     string
	Quantity       int
	UnitFaceValue  int64
	UnitWholesale  int64
	TotalWholesale int64
}

// Единицы выпуска. Одна строка на каждую единицу количества позиции

type VoucherUnit struct {
	ExternalID string // ключ идемпотентности для эмитента
	Data       VoucherUnitData
}
type VoucherUnitData struct {
	OrderNumber           string
	ItemPos               int
	OptionCode            string
	FaceValue             int64
	Status                string
	RequestAt             time.Time
	ResponseAt            time.Time
	LatencyMS             int64
	RawResponse           string
	SerialNumber          string
	TransactionID         string
	ProviderTransactionID string
	Reference             string
	RedeemURL             string
	ResponseAmount        int64
	AmountWholesale       int64
	FailureText           string
	RetryCount            int
	SallaSynced           bool
	SallaSyncedAt         time.Time
}

const (
	VoucherUnitStatusPending    = "PENDING"
	VoucherUnitStatusProcessing = "PROCESSING"
	VoucherUnitStatusGenerated  = "GENERATED"
	VoucherUnitStatusFailed     = "FAILED"
)

// Магазины и их учетные данные у эмитента

type StoreAccount struct {
	Code string
	Data StoreAccountData
}
type StoreAccountData struct {
	IssuerEmail        string
	IssuerPassword     string
	IssuerSecurityCode string
	Sandbox            bool
	SallaToken         string
	SallaStoreID       string
}

// Варианты продукта эмитента с привязкой к товару витрины

type ProductOption struct {
	Code string
	Data ProductOptionData
}
type ProductOptionData struct {
	StoreCode      string
	FaceValue      int64
	Wholesale      int64
	SallaProductID string
	Stock          int
}
