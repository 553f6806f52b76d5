package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iurnickita/vouchermart/internal/issuerclient"
	"github.com/iurnickita/vouchermart/internal/model"
	"github.com/iurnickita/vouchermart/internal/retry"
	"github.com/iurnickita/vouchermart/internal/sallaclient"
	"github.com/iurnickita/vouchermart/internal/service/config"
	"github.com/iurnickita/vouchermart/internal/store"
	"github.com/iurnickita/vouchermart/internal/throttle"
)

// Сценарные тесты конвейера на хранилище в памяти
// с подставными клиентами эмитента и витрины

type fakeIssuer struct {
	plafond   float64
	wholesale map[string]float64
	outcomes  []bool // последовательность исходов DoTransaction, по умолчанию успех
	txCalls   int
}

func (f *fakeIssuer) Authenticate(ctx context.Context, acct model.StoreAccount) (issuerclient.AuthAnswer, error) {
	return issuerclient.AuthAnswer{OperationSucceeded: true, Token: "token", Plafond: f.plafond}, nil
}

func (f *fakeIssuer) GetOptionDetail(ctx context.Context, acct model.StoreAccount, issuerToken string, optionCode string) (issuerclient.OptionDetailAnswer, error) {
	price, ok := f.wholesale[optionCode]
	if !ok {
		return issuerclient.OptionDetailAnswer{}, errors.New("unknown option")
	}
	var answer issuerclient.OptionDetailAnswer
	answer.OperationSucceeded = true
	answer.AvailableProductOption.MinMaxRangeValue.MinWholesaleValue = price
	answer.AvailableProductOption.MinMaxRangeValue.MaxWholesaleValue = price
	return answer, nil
}

func (f *fakeIssuer) DoTransaction(ctx context.Context, acct model.StoreAccount, request issuerclient.TransactionRequest) (issuerclient.TransactionAnswer, string, error) {
	idx := f.txCalls
	f.txCalls++

	ok := true
	if idx < len(f.outcomes) {
		ok = f.outcomes[idx]
	}
	if !ok {
		return issuerclient.TransactionAnswer{
			OperationSucceeded: false,
			ErrorText:          "issuer declined",
		}, `{"OperationSucceeded":false}`, nil
	}
	return issuerclient.TransactionAnswer{
		OperationSucceeded: true,
		PaymentResultData: &issuerclient.PaymentResultData{
			Quantity:     1,
			SerialNumber: fmt.Sprintf("SN-%d", f.txCalls),
			RedeemURL:    fmt.Sprintf("https://redeem/%d", f.txCalls),
		},
	}, `{"OperationSucceeded":true}`, nil
}

type fakeSalla struct {
	fail  bool
	calls map[string][][]string
}

func newFakeSalla() *fakeSalla {
	return &fakeSalla{calls: make(map[string][][]string)}
}

func (f *fakeSalla) AttachCodes(ctx context.Context, acct model.StoreAccount, sallaProductID string, codes []string) (sallaclient.AttachCodesAnswer, error) {
	if f.fail {
		return sallaclient.AttachCodesAnswer{}, errors.New("salla attach codes status: 500")
	}
	f.calls[sallaProductID] = append(f.calls[sallaProductID], codes)
	var answer sallaclient.AttachCodesAnswer
	answer.Status = 201
	answer.Success = true
	return answer, nil
}

type fakeStock struct {
	values map[string]int
}

func newFakeStock() *fakeStock {
	return &fakeStock{values: make(map[string]int)}
}

func (f *fakeStock) Get(ctx context.Context, sallaProductID string) (int, bool, error) {
	value, ok := f.values[sallaProductID]
	return value, ok, nil
}

func (f *fakeStock) Set(ctx context.Context, sallaProductID string, stock int) error {
	f.values[sallaProductID] = stock
	return nil
}

func newTestService(t *testing.T, issuer *fakeIssuer, salla *fakeSalla) (Service, store.Store, *fakeStock) {
	s := store.NewMemStore()
	ctx := context.Background()

	require.NoError(t, s.StoreAccountPost(ctx, model.StoreAccount{Code: "store-1"}))
	require.NoError(t, s.ProductOptionPost(ctx, model.ProductOption{
		Code: "OPT-10",
		Data: model.ProductOptionData{
			StoreCode:      "store-1",
			FaceValue:      1000,
			Wholesale:      900,
			SallaProductID: "prod-1",
		},
	}))

	stock := newFakeStock()
	svc := newService(config.Config{}, s, issuer, salla, stock,
		retry.Policy{MaxAttempts: 3},
		func() throttle.Throttle { return throttle.NewNoop() },
		zap.NewNop())

	return svc, s, stock
}

func TestCreateOrder(t *testing.T) {
	issuer := &fakeIssuer{plafond: 100000, wholesale: map[string]float64{"OPT-10": 9}}
	svc, s, _ := newTestService(t, issuer, newFakeSalla())
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, "store-1", []OrderLine{{OptionCode: "OPT-10", Quantity: 3}})
	require.NoError(t, err)
	require.Equal(t, model.PurchaseOrderStatusDraft, order.Data.Status)
	require.Equal(t, int64(2700), order.Data.TotalWholesale)

	items, err := s.PurchaseOrderItemsGet(ctx, order.Number)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 3, items[0].Data.Quantity)
	require.Equal(t, int64(1000), items[0].Data.UnitFaceValue)

	// итог заказа равен сумме позиций
	var total int64
	for _, item := range items {
		total += item.Data.TotalWholesale
	}
	require.Equal(t, order.Data.TotalWholesale, total)

	// заказ чужого магазина недоступен
	_, err = svc.GetOrder(ctx, "store-2", order.Number)
	require.ErrorIs(t, err, ErrNotFound)

	// неизвестный вариант
	_, err = svc.CreateOrder(ctx, "store-1", []OrderLine{{OptionCode: "OPT-99", Quantity: 1}})
	require.ErrorIs(t, err, ErrInsufficientData)
}

func TestProcessOrderCompleted(t *testing.T) {
	issuer := &fakeIssuer{plafond: 100000, wholesale: map[string]float64{"OPT-10": 9}}
	salla := newFakeSalla()
	svc, s, stock := newTestService(t, issuer, salla)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, "store-1", []OrderLine{{OptionCode: "OPT-10", Quantity: 3}})
	require.NoError(t, err)

	order, err = svc.ProcessOrder(ctx, "store-1", order.Number)
	require.NoError(t, err)
	require.Equal(t, model.PurchaseOrderStatusCompleted, order.Data.Status)
	require.Equal(t, 3, order.Data.GeneratedCount)
	require.Zero(t, order.Data.FailedCount)
	require.Empty(t, order.Data.ErrorMessage)
	require.Equal(t, int64(100000), order.Data.BalanceBefore)
	require.False(t, order.Data.ProcessingStartedAt.IsZero())
	require.False(t, order.Data.ProcessingCompletedAt.IsZero())

	// ровно по одной единице на каждую единицу количества
	units, err := s.VoucherUnitsGet(ctx, order.Number)
	require.NoError(t, err)
	require.Len(t, units, 3)
	for _, unit := range units {
		require.Equal(t, model.VoucherUnitStatusGenerated, unit.Data.Status)
		require.True(t, unit.Data.SallaSynced)
		require.NotEmpty(t, unit.Data.SerialNumber)
	}

	// коды опубликованы, остаток увеличен на 3
	require.Len(t, salla.calls["prod-1"], 1)
	require.Len(t, salla.calls["prod-1"][0], 3)
	option, err := s.ProductOptionGet(ctx, "OPT-10")
	require.NoError(t, err)
	require.Equal(t, 3, option.Data.Stock)
	require.Equal(t, 3, stock.values["prod-1"])
}

func TestProcessOrderInsufficientBalance(t *testing.T) {
	// Plafond 2000 минорных единиц (20.00), заказ на 2700 (27.00)
	issuer := &fakeIssuer{plafond: 2000, wholesale: map[string]float64{"OPT-10": 9}}
	svc, s, _ := newTestService(t, issuer, newFakeSalla())
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, "store-1", []OrderLine{{OptionCode: "OPT-10", Quantity: 3}})
	require.NoError(t, err)

	order, err = svc.ProcessOrder(ctx, "store-1", order.Number)
	require.ErrorIs(t, err, ErrInsufficientFunds)
	require.Equal(t, model.PurchaseOrderStatusFailed, order.Data.Status)
	require.NotEmpty(t, order.Data.ErrorMessage)
	require.Equal(t, int64(2000), order.Data.BalanceBefore)

	// ни одна единица не создана и не отправлена
	units, err := s.VoucherUnitsGet(ctx, order.Number)
	require.NoError(t, err)
	require.Empty(t, units)
	require.Zero(t, issuer.txCalls)

	// после пополнения баланса заказ проходит
	issuer.plafond = 100000
	order, err = svc.ProcessOrder(ctx, "store-1", order.Number)
	require.NoError(t, err)
	require.Equal(t, model.PurchaseOrderStatusCompleted, order.Data.Status)
}

func TestProcessOrderPartialThenRetry(t *testing.T) {
	issuer := &fakeIssuer{
		plafond:   100000,
		wholesale: map[string]float64{"OPT-10": 9},
		outcomes:  []bool{false, true}, // первый вызов падает, второй проходит
	}
	salla := newFakeSalla()
	svc, s, _ := newTestService(t, issuer, salla)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, "store-1", []OrderLine{{OptionCode: "OPT-10", Quantity: 2}})
	require.NoError(t, err)

	order, err = svc.ProcessOrder(ctx, "store-1", order.Number)
	require.NoError(t, err)
	require.Equal(t, model.PurchaseOrderStatusPartiallyCompleted, order.Data.Status)
	require.Equal(t, 1, order.Data.GeneratedCount)
	require.Equal(t, 1, order.Data.FailedCount)

	units, err := s.VoucherUnitsGet(ctx, order.Number)
	require.NoError(t, err)
	require.Len(t, units, 2)

	// повтор: эмитент теперь отвечает успехом
	order, err = svc.RetryOrder(ctx, "store-1", order.Number)
	require.NoError(t, err)
	require.Equal(t, model.PurchaseOrderStatusCompleted, order.Data.Status)
	require.Equal(t, 2, order.Data.GeneratedCount)
	require.Zero(t, order.Data.FailedCount)

	// все коды дошли до витрины
	unpublished, err := s.VoucherUnitsGetUnpublished(ctx, order.Number)
	require.NoError(t, err)
	require.Empty(t, unpublished)
}

func TestProcessOrderAllFailedNoDuplicates(t *testing.T) {
	issuer := &fakeIssuer{
		plafond:   100000,
		wholesale: map[string]float64{"OPT-10": 9},
		outcomes:  []bool{false, false, false},
	}
	svc, s, _ := newTestService(t, issuer, newFakeSalla())
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, "store-1", []OrderLine{{OptionCode: "OPT-10", Quantity: 3}})
	require.NoError(t, err)

	order, err = svc.ProcessOrder(ctx, "store-1", order.Number)
	require.NoError(t, err)
	require.Equal(t, model.PurchaseOrderStatusFailed, order.Data.Status)
	require.Zero(t, order.Data.GeneratedCount)
	require.Equal(t, 3, order.Data.FailedCount)

	// повторный запуск не плодит новых единиц
	_, err = svc.ProcessOrder(ctx, "store-1", order.Number)
	require.NoError(t, err)

	units, err := s.VoucherUnitsGet(ctx, order.Number)
	require.NoError(t, err)
	require.Len(t, units, 3)
}

func TestRetryOrderExhausted(t *testing.T) {
	issuer := &fakeIssuer{plafond: 100000, wholesale: map[string]float64{"OPT-10": 9}}
	svc, s, _ := newTestService(t, issuer, newFakeSalla())
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, "store-1", []OrderLine{{OptionCode: "OPT-10", Quantity: 1}})
	require.NoError(t, err)

	// единица с исчерпанным лимитом попыток
	require.NoError(t, s.VoucherUnitPost(ctx, model.VoucherUnit{
		ExternalID: "exhausted",
		Data: model.VoucherUnitData{
			OrderNumber: order.Number,
			ItemPos:     1,
			OptionCode:  "OPT-10",
			FaceValue:   1000,
			Status:      model.VoucherUnitStatusFailed,
			RetryCount:  3,
		},
	}))
	order.Data.Status = model.PurchaseOrderStatusFailed
	order.Data.FailedCount = 1
	require.NoError(t, s.PurchaseOrderPut(ctx, order))

	order, err = svc.RetryOrder(ctx, "store-1", order.Number)
	require.NoError(t, err)

	// эмитент не вызывался, единица осталась проваленной
	require.Zero(t, issuer.txCalls)
	units, err := s.VoucherUnitsGet(ctx, order.Number)
	require.NoError(t, err)
	require.Equal(t, model.VoucherUnitStatusFailed, units[0].Data.Status)
	require.Equal(t, 3, units[0].Data.RetryCount)
}

func TestProcessOrderPublisherFailure(t *testing.T) {
	issuer := &fakeIssuer{plafond: 100000, wholesale: map[string]float64{"OPT-10": 9}}
	salla := newFakeSalla()
	salla.fail = true
	svc, s, _ := newTestService(t, issuer, salla)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, "store-1", []OrderLine{{OptionCode: "OPT-10", Quantity: 2}})
	require.NoError(t, err)

	// сбой публикации не меняет итог заказа
	order, err = svc.ProcessOrder(ctx, "store-1", order.Number)
	require.NoError(t, err)
	require.Equal(t, model.PurchaseOrderStatusCompleted, order.Data.Status)

	unpublished, err := s.VoucherUnitsGetUnpublished(ctx, order.Number)
	require.NoError(t, err)
	require.Len(t, unpublished, 2)

	// отдельный проход публикации добирает единицы
	salla.fail = false
	require.NoError(t, svc.PublishOrder(ctx, "store-1", order.Number))

	unpublished, err = s.VoucherUnitsGetUnpublished(ctx, order.Number)
	require.NoError(t, err)
	require.Empty(t, unpublished)

	option, err := s.ProductOptionGet(ctx, "OPT-10")
	require.NoError(t, err)
	require.Equal(t, 2, option.Data.Stock)
}

func TestCancelOrder(t *testing.T) {
	issuer := &fakeIssuer{plafond: 100000, wholesale: map[string]float64{"OPT-10": 9}}
	svc, _, _ := newTestService(t, issuer, newFakeSalla())
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, "store-1", []OrderLine{{OptionCode: "OPT-10", Quantity: 1}})
	require.NoError(t, err)

	// отмена черновика
	require.NoError(t, svc.CancelOrder(ctx, "store-1", order.Number))

	// отмененный заказ не обрабатывается и не отменяется повторно
	_, err = svc.ProcessOrder(ctx, "store-1", order.Number)
	require.ErrorIs(t, err, ErrInvalidStatus)
	err = svc.CancelOrder(ctx, "store-1", order.Number)
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestCancelCompletedOrder(t *testing.T) {
	issuer := &fakeIssuer{plafond: 100000, wholesale: map[string]float64{"OPT-10": 9}}
	svc, _, _ := newTestService(t, issuer, newFakeSalla())
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, "store-1", []OrderLine{{OptionCode: "OPT-10", Quantity: 1}})
	require.NoError(t, err)
	order, err = svc.ProcessOrder(ctx, "store-1", order.Number)
	require.NoError(t, err)
	require.Equal(t, model.PurchaseOrderStatusCompleted, order.Data.Status)

	err = svc.CancelOrder(ctx, "store-1", order.Number)
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestGetBalance(t *testing.T) {
	// Plafond приходит в минорных единицах и не пересчитывается
	issuer := &fakeIssuer{plafond: 12345, wholesale: map[string]float64{"OPT-10": 9}}
	svc, _, _ := newTestService(t, issuer, newFakeSalla())

	balance, err := svc.GetBalance(context.Background(), "store-1")
	require.NoError(t, err)
	require.Equal(t, int64(12345), balance)

	_, err = svc.GetBalance(context.Background(), "store-2")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetProducts(t *testing.T) {
	issuer := &fakeIssuer{plafond: 100000, wholesale: map[string]float64{"OPT-10": 9}}
	svc, _, stock := newTestService(t, issuer, newFakeSalla())
	ctx := context.Background()

	// кэш пуст: остаток из хранилища, кэш прогревается
	products, err := svc.GetProducts(ctx, "store-1")
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.Equal(t, "OPT-10", products[0].Option.Code)
	require.Zero(t, products[0].Stock)
	_, ok := stock.values["prod-1"]
	require.True(t, ok)

	order, err := svc.CreateOrder(ctx, "store-1", []OrderLine{{OptionCode: "OPT-10", Quantity: 2}})
	require.NoError(t, err)
	_, err = svc.ProcessOrder(ctx, "store-1", order.Number)
	require.NoError(t, err)

	// после публикации остаток отдается из кэша
	products, err = svc.GetProducts(ctx, "store-1")
	require.NoError(t, err)
	require.Equal(t, 2, products[0].Stock)
	require.Equal(t, 2, stock.values["prod-1"])
}
