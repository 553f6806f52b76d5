package verifier

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/iurnickita/vouchermart/internal/issuerclient"
	"github.com/iurnickita/vouchermart/internal/model"
	"github.com/iurnickita/vouchermart/internal/store"
)

// Проверка баланса и актуализация цен перед выпуском.
// Закупочная цена всегда берется как минимум диапазона эмитента:
// расхождение минимума и максимума — аномалия данных поставщика,
// она фиксируется в логе, но никогда не усредняется

type Verifier interface {
	CheckOrder(ctx context.Context, orderNumber string) (CheckResult, error)
	RefreshAllPricing(ctx context.Context, storeCode string) error
}

type CheckResult struct {
	Balance    int64
	TotalCost  int64
	Sufficient bool
}

// Текст ошибки заказа при нехватке баланса. По нему же распознается,
// что прошлый сбой был именно балансовым
const BalanceShortfallMsg = "insufficient issuer balance"

type verifier struct {
	store  store.Store
	issuer issuerclient.IssuerClient
	zaplog *zap.Logger
}

func NewVerifier(store store.Store, issuer issuerclient.IssuerClient, zaplog *zap.Logger) Verifier {
	return &verifier{
		store:  store,
		issuer: issuer,
		zaplog: zaplog,
	}
}

func (v *verifier) CheckOrder(ctx context.Context, orderNumber string) (CheckResult, error) {
	order, err := v.store.PurchaseOrderGet(ctx, orderNumber)
	if err != nil {
		return CheckResult{}, err
	}
	acct, err := v.store.StoreAccountGet(ctx, order.Data.StoreCode)
	if err != nil {
		return CheckResult{}, err
	}

	// Текущий баланс у эмитента
	auth, err := v.issuer.Authenticate(ctx, acct)
	if err != nil {
		return CheckResult{}, fmt.Errorf("issuer auth: %w", err)
	}
	// Plafond уже в минорных единицах
	balance := int64(auth.Plafond)

	items, err := v.store.PurchaseOrderItemsGet(ctx, orderNumber)
	if err != nil {
		return CheckResult{}, err
	}

	// Актуальная закупочная цена по каждому варианту из заказа.
	// Здесь, в предполетной проверке, ошибка цены любого варианта
	// прерывает проверку целиком
	wholesale := make(map[string]int64)
	for _, item := range items {
		if _, ok := wholesale[item.Data.OptionCode]; ok {
			continue
		}
		price, err := v.optionWholesale(ctx, acct, auth.Token, item.Data.OptionCode)
		if err != nil {
			return CheckResult{}, fmt.Errorf("option %s pricing: %w", item.Data.OptionCode, err)
		}
		wholesale[item.Data.OptionCode] = price

		if err := v.store.ProductOptionPutPrice(ctx, item.Data.OptionCode, price); err != nil {
			return CheckResult{}, err
		}
	}

	// Пересчет позиций и итога заказа
	var total int64
	for _, item := range items {
		item.Data.UnitWholesale = wholesale[item.Data.OptionCode]
		item.Data.TotalWholesale = int64(item.Data.Quantity) * item.Data.UnitWholesale
		if err := v.store.PurchaseOrderItemPutPricing(ctx, item); err != nil {
			return CheckResult{}, err
		}
		total += item.Data.TotalWholesale
	}

	result := CheckResult{
		Balance:    balance,
		TotalCost:  total,
		Sufficient: balance >= total,
	}

	order.Data.TotalWholesale = total
	// Успешная повторная проверка снимает прошлый балансовый сбой
	if result.Sufficient &&
		order.Data.Status == model.PurchaseOrderStatusFailed &&
		strings.HasPrefix(order.Data.ErrorMessage, BalanceShortfallMsg) {
		order.Data.Status = model.PurchaseOrderStatusPending
		order.Data.ErrorMessage = ""
	}
	if err := v.store.PurchaseOrderPut(ctx, order); err != nil {
		return CheckResult{}, err
	}

	return result, nil
}

// RefreshAllPricing корректирует сохраненные цены всех вариантов магазина.
// В отличие от предполетной проверки, сбой по одному варианту
// не прерывает общий проход: цена остается прежней
func (v *verifier) RefreshAllPricing(ctx context.Context, storeCode string) error {
	acct, err := v.store.StoreAccountGet(ctx, storeCode)
	if err != nil {
		return err
	}
	auth, err := v.issuer.Authenticate(ctx, acct)
	if err != nil {
		return fmt.Errorf("issuer auth: %w", err)
	}

	options, err := v.store.ProductOptionGetByStore(ctx, storeCode)
	if err != nil {
		return err
	}
	for _, option := range options {
		price, err := v.optionWholesale(ctx, acct, auth.Token, option.Code)
		if err != nil {
			v.zaplog.Warn("pricing refresh skipped",
				zap.String("option", option.Code),
				zap.Error(err))
			continue
		}
		if err := v.store.ProductOptionPutPrice(ctx, option.Code, price); err != nil {
			return err
		}
	}

	return nil
}

func (v *verifier) optionWholesale(ctx context.Context, acct model.StoreAccount, issuerToken string, optionCode string) (int64, error) {
	detail, err := v.issuer.GetOptionDetail(ctx, acct, issuerToken, optionCode)
	if err != nil {
		return 0, err
	}

	band := detail.AvailableProductOption.MinMaxRangeValue
	if band.MinWholesaleValue != band.MaxWholesaleValue {
		v.zaplog.Warn("provider wholesale range is not fixed",
			zap.String("option", optionCode),
			zap.Float64("min", band.MinWholesaleValue),
			zap.Float64("max", band.MaxWholesaleValue))
	}

	return issuerclient.AmountIn(band.MinWholesaleValue), nil
}
