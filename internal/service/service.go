package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iurnickita/vouchermart/internal/executor"
	"github.com/iurnickita/vouchermart/internal/issuerclient"
	"github.com/iurnickita/vouchermart/internal/model"
	"github.com/iurnickita/vouchermart/internal/ordernum"
	"github.com/iurnickita/vouchermart/internal/publisher"
	"github.com/iurnickita/vouchermart/internal/retry"
	"github.com/iurnickita/vouchermart/internal/sallaclient"
	"github.com/iurnickita/vouchermart/internal/service/config"
	"github.com/iurnickita/vouchermart/internal/stockcache"
	"github.com/iurnickita/vouchermart/internal/store"
	"github.com/iurnickita/vouchermart/internal/throttle"
	"github.com/iurnickita/vouchermart/internal/verifier"
)

// Координатор жизненного цикла заказа:
// DRAFT -> PENDING -> PROCESSING -> {COMPLETED | PARTIALLY_COMPLETED | FAILED},
// CANCELLED допустим только из DRAFT/PENDING

type Service interface {
	CreateOrder(ctx context.Context, storeCode string, lines []OrderLine) (model.PurchaseOrder, error)
	CancelOrder(ctx context.Context, storeCode string, orderNumber string) error
	ProcessOrder(ctx context.Context, storeCode string, orderNumber string) (model.PurchaseOrder, error)
	RetryOrder(ctx context.Context, storeCode string, orderNumber string) (model.PurchaseOrder, error)
	GetOrder(ctx context.Context, storeCode string, orderNumber string) (OrderDetail, error)
	GetOrders(ctx context.Context, storeCode string) ([]model.PurchaseOrder, error)
	GetProducts(ctx context.Context, storeCode string) ([]ProductStock, error)
	GetBalance(ctx context.Context, storeCode string) (int64, error)
	RefreshPricing(ctx context.Context, storeCode string) error
	PublishOrder(ctx context.Context, storeCode string, orderNumber string) error
}

type OrderLine struct {
	OptionCode string
	Quantity   int
}

type OrderDetail struct {
	Order model.PurchaseOrder
	Items []model.PurchaseOrderItem
	Units []model.VoucherUnit
}

type ProductStock struct {
	Option model.ProductOption
	Stock  int
}

var (
	ErrInsufficientData  = errors.New("insufficient data")
	ErrNotFound          = errors.New("order not found")
	ErrInvalidStatus     = errors.New("invalid order status")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAlreadyExists     = errors.New("already exists")
	ErrDuplicateRequest  = errors.New("duplicate request")
)

type service struct {
	cfg         config.Config
	store       store.Store
	issuer      issuerclient.IssuerClient
	verifier    verifier.Verifier
	executor    executor.Executor
	publisher   publisher.Publisher
	stock       stockcache.Cache
	retry       retry.Policy
	newThrottle func() throttle.Throttle
	zaplog      *zap.Logger

	// сериализация заказов одного магазина: две параллельные проверки
	// баланса одного счета могли бы одобрить суммарный перерасход
	storeMu    sync.Mutex
	storeLocks map[string]*sync.Mutex
}

func NewService(cfg config.Config, store store.Store, zaplog *zap.Logger) Service {
	issuer := issuerclient.NewIssuerClient(cfg.IssuerAddr, cfg.IssuerSandboxAddr, cfg.ClientTimeout)
	salla := sallaclient.NewSallaClient(cfg.SallaAddr, cfg.ClientTimeout)

	var stock stockcache.Cache
	if cfg.RedisAddr != "" {
		stock = stockcache.NewRedisCache(cfg.RedisAddr)
	} else {
		stock = stockcache.NewNoop()
	}

	policy := retry.DefaultPolicy()
	if cfg.RetryDelay > 0 {
		policy.Delay = cfg.RetryDelay
	}

	newThrottle := func() throttle.Throttle {
		return throttle.NewCounting(cfg.ThrottleEvery, cfg.ThrottlePause)
	}

	return newService(cfg, store, issuer, salla, stock, policy, newThrottle, zaplog)
}

func newService(cfg config.Config, store store.Store, issuer issuerclient.IssuerClient,
	salla sallaclient.SallaClient, stock stockcache.Cache, policy retry.Policy,
	newThrottle func() throttle.Throttle, zaplog *zap.Logger) Service {

	return &service{
		cfg:         cfg,
		store:       store,
		issuer:      issuer,
		verifier:    verifier.NewVerifier(store, issuer, zaplog),
		executor:    executor.NewExecutor(store, issuer, zaplog),
		publisher:   publisher.NewPublisher(store, salla, stock, zaplog),
		stock:       stock,
		retry:       policy,
		newThrottle: newThrottle,
		zaplog:      zaplog,
		storeLocks:  make(map[string]*sync.Mutex),
	}
}

func (service *service) storeLock(storeCode string) *sync.Mutex {
	service.storeMu.Lock()
	defer service.storeMu.Unlock()

	mutex, ok := service.storeLocks[storeCode]
	if !ok {
		mutex = &sync.Mutex{}
		service.storeLocks[storeCode] = mutex
	}
	return mutex
}

// orderGetOwned читает заказ и проверяет принадлежность магазину
func (service *service) orderGetOwned(ctx context.Context, storeCode string, orderNumber string) (model.PurchaseOrder, error) {
	order, err := service.store.PurchaseOrderGet(ctx, orderNumber)
	if err != nil {
		if err == store.ErrNoRows {
			return model.PurchaseOrder{}, ErrNotFound
		}
		return model.PurchaseOrder{}, err
	}
	if order.Data.StoreCode != storeCode {
		return model.PurchaseOrder{}, ErrNotFound
	}
	return order, nil
}

func (service *service) CreateOrder(ctx context.Context, storeCode string, lines []OrderLine) (model.PurchaseOrder, error) {
	if storeCode == "" || len(lines) == 0 {
		return model.PurchaseOrder{}, ErrInsufficientData
	}

	// Снимок цен для позиций из сохраненных вариантов
	var items []model.PurchaseOrderItem
	var total int64
	for i, line := range lines {
		if line.OptionCode == "" || line.Quantity <= 0 {
			return model.PurchaseOrder{}, ErrInsufficientData
		}
		option, err := service.store.ProductOptionGet(ctx, line.OptionCode)
		if err != nil {
			if err == store.ErrNoRows {
				return model.PurchaseOrder{}, fmt.Errorf("%w: unknown option %s", ErrInsufficientData, line.OptionCode)
			}
			return model.PurchaseOrder{}, err
		}
		if option.Data.StoreCode != storeCode {
			return model.PurchaseOrder{}, fmt.Errorf("%w: unknown option %s", ErrInsufficientData, line.OptionCode)
		}

		item := model.PurchaseOrderItem{
			Pos: i + 1,
			Data: model.PurchaseOrderItemData{
				OptionCode:     line.OptionCode,
				Quantity:       line.Quantity,
				UnitFaceValue:  option.Data.FaceValue,
				UnitWholesale:  option.Data.Wholesale,
				TotalWholesale: int64(line.Quantity) * option.Data.Wholesale,
			},
		}
		total += item.Data.TotalWholesale
		items = append(items, item)
	}

	var newOrder model.PurchaseOrder
	newOrder.Number = ordernum.Generate()
	newOrder.Data.StoreCode = storeCode
	newOrder.Data.Status = model.PurchaseOrderStatusDraft
	newOrder.Data.TotalWholesale = total
	newOrder.Data.CreatedAt = time.Now()

	err := service.store.PurchaseOrderPost(ctx, newOrder)
	if err != nil {
		switch err {
		case store.ErrAlreadyExists:
			return model.PurchaseOrder{}, ErrAlreadyExists
		case store.ErrDuplicateRequest:
			return model.PurchaseOrder{}, ErrDuplicateRequest
		default:
			return model.PurchaseOrder{}, err
		}
	}

	for _, item := range items {
		item.OrderNumber = newOrder.Number
		if err := service.store.PurchaseOrderItemPost(ctx, item); err != nil {
			return model.PurchaseOrder{}, err
		}
	}

	return newOrder, nil
}

func (service *service) CancelOrder(ctx context.Context, storeCode string, orderNumber string) error {
	order, err := service.orderGetOwned(ctx, storeCode, orderNumber)
	if err != nil {
		return err
	}
	if order.Data.Status != model.PurchaseOrderStatusDraft &&
		order.Data.Status != model.PurchaseOrderStatusPending {
		return ErrInvalidStatus
	}

	order.Data.Status = model.PurchaseOrderStatusCancelled
	return service.store.PurchaseOrderPut(ctx, order)
}

// ProcessOrder выполняет конвейер заказа целиком:
// проверка -> развертывание единиц -> выпуск -> итог -> публикация.
// Запущенный конвейер не отменяется, он доводит все единицы до исхода
func (service *service) ProcessOrder(ctx context.Context, storeCode string, orderNumber string) (model.PurchaseOrder, error) {
	order, err := service.orderGetOwned(ctx, storeCode, orderNumber)
	if err != nil {
		return model.PurchaseOrder{}, err
	}
	switch order.Data.Status {
	case model.PurchaseOrderStatusDraft,
		model.PurchaseOrderStatusPending,
		model.PurchaseOrderStatusProcessing, // дозапуск после прерванного прохода
		model.PurchaseOrderStatusFailed:
	default:
		return order, ErrInvalidStatus
	}

	mutex := service.storeLock(storeCode)
	mutex.Lock()
	defer mutex.Unlock()

	// Предполетная проверка: баланс и актуализация цен.
	// Ее сбой — единственный, который поднимается к вызывающему
	check, err := service.verifier.CheckOrder(ctx, orderNumber)
	if err != nil {
		return order, fmt.Errorf("pre-flight check: %w", err)
	}
	order, err = service.store.PurchaseOrderGet(ctx, orderNumber)
	if err != nil {
		return model.PurchaseOrder{}, err
	}

	order.Data.BalanceBefore = check.Balance
	if !check.Sufficient {
		order.Data.Status = model.PurchaseOrderStatusFailed
		order.Data.ErrorMessage = fmt.Sprintf("%s: balance %d, required %d",
			verifier.BalanceShortfallMsg, check.Balance, check.TotalCost)
		if err := service.store.PurchaseOrderPut(ctx, order); err != nil {
			return order, err
		}
		return order, ErrInsufficientFunds
	}

	order.Data.Status = model.PurchaseOrderStatusProcessing
	order.Data.ProcessingStartedAt = time.Now()
	order.Data.ErrorMessage = ""
	if err := service.store.PurchaseOrderPut(ctx, order); err != nil {
		return order, err
	}

	if err := service.expandUnits(ctx, order); err != nil {
		return order, err
	}

	acct, err := service.store.StoreAccountGet(ctx, order.Data.StoreCode)
	if err != nil {
		return order, err
	}
	pending, err := service.store.VoucherUnitsGetPending(ctx, orderNumber)
	if err != nil {
		return order, err
	}

	// Последовательный выпуск с паузой после каждых N успешных вызовов
	th := service.newThrottle()
	for _, unit := range pending {
		done, err := service.executor.Execute(ctx, acct, unit)
		if err != nil {
			service.zaplog.Error("voucher unit persistence failed",
				zap.String("external_id", unit.ExternalID),
				zap.Error(err))
			continue
		}
		if done.Data.Status == model.VoucherUnitStatusGenerated {
			th.Tick(ctx)
		}
	}

	order, err = service.finish(ctx, order, acct)
	if err != nil {
		return order, err
	}

	if order.Data.GeneratedCount > 0 {
		// коды уже выпущены: сбой публикации не меняет итог заказа
		if err := service.publisher.PublishOrder(ctx, orderNumber); err != nil {
			service.zaplog.Warn("publish after processing failed",
				zap.String("order", orderNumber),
				zap.Error(err))
		}
	}

	return order, nil
}

// RetryOrder повторяет только проваленные единицы с незакрытым лимитом
// попыток. Баланс и цены повторно не проверяются
func (service *service) RetryOrder(ctx context.Context, storeCode string, orderNumber string) (model.PurchaseOrder, error) {
	order, err := service.orderGetOwned(ctx, storeCode, orderNumber)
	if err != nil {
		return model.PurchaseOrder{}, err
	}
	switch order.Data.Status {
	case model.PurchaseOrderStatusPartiallyCompleted,
		model.PurchaseOrderStatusFailed:
	default:
		return order, ErrInvalidStatus
	}

	mutex := service.storeLock(storeCode)
	mutex.Lock()
	defer mutex.Unlock()

	failed, err := service.store.VoucherUnitsGetFailed(ctx, orderNumber)
	if err != nil {
		return order, err
	}
	// единицы с исчерпанным лимитом попыток не повторяются
	var retryable []model.VoucherUnit
	for _, unit := range failed {
		if service.retry.Exhausted(unit.Data.RetryCount) {
			continue
		}
		retryable = append(retryable, unit)
	}
	if len(retryable) == 0 {
		return order, nil
	}

	acct, err := service.store.StoreAccountGet(ctx, order.Data.StoreCode)
	if err != nil {
		return order, err
	}

	th := service.newThrottle()
	for _, unit := range retryable {
		service.retry.Wait(ctx)
		done, err := service.executor.Execute(ctx, acct, unit)
		if err != nil {
			service.zaplog.Error("voucher unit persistence failed",
				zap.String("external_id", unit.ExternalID),
				zap.Error(err))
			continue
		}
		if done.Data.Status == model.VoucherUnitStatusGenerated {
			th.Tick(ctx)
		}
	}

	order, err = service.finish(ctx, order, acct)
	if err != nil {
		return order, err
	}

	if order.Data.GeneratedCount > 0 {
		if err := service.publisher.PublishOrder(ctx, orderNumber); err != nil {
			service.zaplog.Warn("publish after retry failed",
				zap.String("order", orderNumber),
				zap.Error(err))
		}
	}

	return order, nil
}

// expandUnits разворачивает позиции в единицы выпуска: по одной на каждую
// единицу количества. Повторный вызов не создает дублей
func (service *service) expandUnits(ctx context.Context, order model.PurchaseOrder) error {
	items, err := service.store.PurchaseOrderItemsGet(ctx, order.Number)
	if err != nil {
		return err
	}
	units, err := service.store.VoucherUnitsGet(ctx, order.Number)
	if err != nil {
		return err
	}

	existing := make(map[int]int)
	for _, unit := range units {
		existing[unit.Data.ItemPos]++
	}

	for _, item := range items {
		for i := existing[item.Pos]; i < item.Data.Quantity; i++ {
			unit := model.VoucherUnit{
				ExternalID: uuid.NewString(),
				Data: model.VoucherUnitData{
					OrderNumber: order.Number,
					ItemPos:     item.Pos,
					OptionCode:  item.Data.OptionCode,
					FaceValue:   item.Data.UnitFaceValue,
					Status:      model.VoucherUnitStatusPending,
				},
			}
			if err := service.store.VoucherUnitPost(ctx, unit); err != nil {
				return err
			}
		}
	}

	return nil
}

// finish сводит итоги: агрегаты, конечный статус, снимок баланса после прохода
func (service *service) finish(ctx context.Context, order model.PurchaseOrder, acct model.StoreAccount) (model.PurchaseOrder, error) {
	units, err := service.store.VoucherUnitsGet(ctx, order.Number)
	if err != nil {
		return order, err
	}

	var generated, failed int
	for _, unit := range units {
		switch unit.Data.Status {
		case model.VoucherUnitStatusGenerated:
			generated++
		case model.VoucherUnitStatusFailed:
			failed++
		}
	}

	order.Data.GeneratedCount = generated
	order.Data.FailedCount = failed
	switch {
	case generated == 0:
		order.Data.Status = model.PurchaseOrderStatusFailed
		order.Data.ErrorMessage = "all voucher units failed"
	case failed == 0:
		order.Data.Status = model.PurchaseOrderStatusCompleted
		order.Data.ErrorMessage = ""
	default:
		order.Data.Status = model.PurchaseOrderStatusPartiallyCompleted
		order.Data.ErrorMessage = fmt.Sprintf("%d of %d voucher units failed", failed, generated+failed)
	}
	order.Data.ProcessingCompletedAt = time.Now()

	// Снимок баланса после прохода. Сбой не критичен для итога
	auth, err := service.issuer.Authenticate(ctx, acct)
	if err != nil {
		service.zaplog.Warn("post-run balance snapshot failed",
			zap.String("order", order.Number),
			zap.Error(err))
	} else {
		order.Data.BalanceAfter = int64(auth.Plafond)
	}

	if err := service.store.PurchaseOrderPut(ctx, order); err != nil {
		return order, err
	}
	return order, nil
}

func (service *service) GetOrder(ctx context.Context, storeCode string, orderNumber string) (OrderDetail, error) {
	if !ordernum.Valid(orderNumber) {
		return OrderDetail{}, ErrNotFound
	}
	order, err := service.orderGetOwned(ctx, storeCode, orderNumber)
	if err != nil {
		return OrderDetail{}, err
	}
	items, err := service.store.PurchaseOrderItemsGet(ctx, orderNumber)
	if err != nil {
		return OrderDetail{}, err
	}
	units, err := service.store.VoucherUnitsGet(ctx, orderNumber)
	if err != nil {
		return OrderDetail{}, err
	}

	return OrderDetail{Order: order, Items: items, Units: units}, nil
}

func (service *service) GetOrders(ctx context.Context, storeCode string) ([]model.PurchaseOrder, error) {
	if storeCode == "" {
		return nil, ErrInsufficientData
	}

	return service.store.PurchaseOrderGetByStore(ctx, storeCode)
}

// GetProducts возвращает варианты магазина с остатками. Остаток читается
// из кэша, при промахе берется из хранилища с прогревом кэша
func (service *service) GetProducts(ctx context.Context, storeCode string) ([]ProductStock, error) {
	if storeCode == "" {
		return nil, ErrInsufficientData
	}

	options, err := service.store.ProductOptionGetByStore(ctx, storeCode)
	if err != nil {
		return nil, err
	}

	var products []ProductStock
	for _, option := range options {
		stock := option.Data.Stock
		cached, ok, err := service.stock.Get(ctx, option.Data.SallaProductID)
		switch {
		case err != nil:
			service.zaplog.Warn("stock cache read failed",
				zap.String("salla_product", option.Data.SallaProductID),
				zap.Error(err))
		case ok:
			stock = cached
		default:
			if err := service.stock.Set(ctx, option.Data.SallaProductID, stock); err != nil {
				service.zaplog.Warn("stock cache warmup failed",
					zap.String("salla_product", option.Data.SallaProductID),
					zap.Error(err))
			}
		}
		products = append(products, ProductStock{Option: option, Stock: stock})
	}

	return products, nil
}

func (service *service) GetBalance(ctx context.Context, storeCode string) (int64, error) {
	acct, err := service.store.StoreAccountGet(ctx, storeCode)
	if err != nil {
		if err == store.ErrNoRows {
			return 0, ErrNotFound
		}
		return 0, err
	}

	auth, err := service.issuer.Authenticate(ctx, acct)
	if err != nil {
		return 0, err
	}
	return int64(auth.Plafond), nil
}

func (service *service) RefreshPricing(ctx context.Context, storeCode string) error {
	return service.verifier.RefreshAllPricing(ctx, storeCode)
}

// PublishOrder — отдельный проход публикации для единиц, не попавших
// на витрину с прошлого раза
func (service *service) PublishOrder(ctx context.Context, storeCode string, orderNumber string) error {
	if _, err := service.orderGetOwned(ctx, storeCode, orderNumber); err != nil {
		return err
	}
	return service.publisher.PublishOrder(ctx, orderNumber)
}
