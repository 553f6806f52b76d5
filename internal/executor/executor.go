package executor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iurnickita/vouchermart/internal/issuerclient"
	"github.com/iurnickita/vouchermart/internal/model"
	"github.com/iurnickita/vouchermart/internal/store"
)

// Выпуск единицы: один вызов эмитента — ровно один ваучер.
// Любой исход фиксируется на единице; сбой никогда не выходит
// за ее границу и не роняет заказ

type Executor interface {
	Execute(ctx context.Context, acct model.StoreAccount, unit model.VoucherUnit) (model.VoucherUnit, error)
}

type executor struct {
	store  store.Store
	issuer issuerclient.IssuerClient
	zaplog *zap.Logger
}

func NewExecutor(store store.Store, issuer issuerclient.IssuerClient, zaplog *zap.Logger) Executor {
	return &executor{
		store:  store,
		issuer: issuer,
		zaplog: zaplog,
	}
}

// Execute возвращает единицу в конечном для этой попытки состоянии.
// Ошибка возвращается только при сбое записи в хранилище
func (e *executor) Execute(ctx context.Context, acct model.StoreAccount, unit model.VoucherUnit) (model.VoucherUnit, error) {
	unit.Data.Status = model.VoucherUnitStatusProcessing
	unit.Data.RequestAt = time.Now()
	if err := e.store.VoucherUnitPut(ctx, unit); err != nil {
		return unit, err
	}

	auth, err := e.issuer.Authenticate(ctx, acct)
	if err != nil {
		return e.fail(ctx, unit, "", err.Error())
	}

	answer, raw, err := e.issuer.DoTransaction(ctx, acct, issuerclient.TransactionRequest{
		Token:             auth.Token,
		ExternalID:        unit.ExternalID,
		ProductTypeCode:   issuerclient.ProductTypeCodeVoucher,
		ProductOptionCode: unit.Data.OptionCode,
		// сумма запроса — номинал, не закупочная цена
		Amount:   issuerclient.AmountOut(unit.Data.FaceValue),
		Quantity: 1,
	})
	if err != nil {
		// транспортный сбой или не-2xx
		return e.fail(ctx, unit, raw, err.Error())
	}
	if !answer.OperationSucceeded {
		// отказ эмитента
		return e.fail(ctx, unit, raw, answer.ErrorText)
	}

	unit.Data.Status = model.VoucherUnitStatusGenerated
	unit.Data.ResponseAt = time.Now()
	unit.Data.LatencyMS = unit.Data.ResponseAt.Sub(unit.Data.RequestAt).Milliseconds()
	unit.Data.RawResponse = raw
	unit.Data.FailureText = ""
	if result := answer.PaymentResultData; result != nil {
		unit.Data.SerialNumber = result.SerialNumber
		unit.Data.TransactionID = result.TransactionID
		unit.Data.ProviderTransactionID = result.ProviderTransactionID
		unit.Data.Reference = result.Reference
		unit.Data.RedeemURL = result.RedeemURL
		unit.Data.ResponseAmount = issuerclient.AmountIn(result.ResponseAmount)
		unit.Data.AmountWholesale = issuerclient.AmountIn(result.AmountWholesale)
	}
	if err := e.store.VoucherUnitPut(ctx, unit); err != nil {
		return unit, err
	}

	e.zaplog.Info("voucher generated",
		zap.String("external_id", unit.ExternalID),
		zap.String("order", unit.Data.OrderNumber),
		zap.Int64("latency_ms", unit.Data.LatencyMS))

	return unit, nil
}

func (e *executor) fail(ctx context.Context, unit model.VoucherUnit, raw string, failureText string) (model.VoucherUnit, error) {
	unit.Data.Status = model.VoucherUnitStatusFailed
	unit.Data.ResponseAt = time.Now()
	unit.Data.LatencyMS = unit.Data.ResponseAt.Sub(unit.Data.RequestAt).Milliseconds()
	unit.Data.RawResponse = raw
	unit.Data.FailureText = failureText
	unit.Data.RetryCount++
	if err := e.store.VoucherUnitPut(ctx, unit); err != nil {
		return unit, err
	}

	e.zaplog.Warn("voucher issuance failed",
		zap.String("external_id", unit.ExternalID),
		zap.String("order", unit.Data.OrderNumber),
		zap.Int("retry_count", unit.Data.RetryCount),
		zap.String("failure", failureText))

	return unit, nil
}
