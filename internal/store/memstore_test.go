package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iurnickita/vouchermart/internal/model"
)

func TestMemStorePurchaseOrder(t *testing.T) {
	const (
		storeCode = "store-1"
		number    = "1000000009"
	)

	store := NewMemStore()
	ctx := context.Background()

	// Создание заказа
	var order model.PurchaseOrder
	order.Number = number
	order.Data.StoreCode = storeCode
	order.Data.Status = model.PurchaseOrderStatusDraft
	order.Data.CreatedAt = time.Now().UTC()
	err := store.PurchaseOrderPost(ctx, order)
	require.NoError(t, err)

	// Повторная запись того же магазина — дубль запроса
	err = store.PurchaseOrderPost(ctx, order)
	require.ErrorIs(t, err, ErrDuplicateRequest)

	// Тот же номер от другого магазина — уже существует
	foreign := order
	foreign.Data.StoreCode = "store-2"
	err = store.PurchaseOrderPost(ctx, foreign)
	require.ErrorIs(t, err, ErrAlreadyExists)

	// Чтение заказа
	dbOrder, err := store.PurchaseOrderGet(ctx, number)
	require.NoError(t, err)
	require.Equal(t, order, dbOrder)

	// Обновление заказа
	order.Data.Status = model.PurchaseOrderStatusCompleted
	order.Data.GeneratedCount = 3
	err = store.PurchaseOrderPut(ctx, order)
	require.NoError(t, err)

	dbOrder, err = store.PurchaseOrderGet(ctx, number)
	require.NoError(t, err)
	require.Equal(t, model.PurchaseOrderStatusCompleted, dbOrder.Data.Status)
	require.Equal(t, 3, dbOrder.Data.GeneratedCount)

	// Неизвестный номер
	_, err = store.PurchaseOrderGet(ctx, "0")
	require.ErrorIs(t, err, ErrNoRows)
}

func TestMemStoreVoucherUnitFilters(t *testing.T) {
	const number = "1000000009"

	store := NewMemStore()
	ctx := context.Background()

	post := func(externalID string, status string, retryCount int, synced bool) {
		err := store.VoucherUnitPost(ctx, model.VoucherUnit{
			ExternalID: externalID,
			Data: model.VoucherUnitData{
				OrderNumber: number,
				ItemPos:     1,
				Status:      status,
				RetryCount:  retryCount,
				SallaSynced: synced,
			},
		})
		require.NoError(t, err)
	}

	post("u1", model.VoucherUnitStatusPending, 0, false)
	post("u2", model.VoucherUnitStatusGenerated, 0, false)
	post("u3", model.VoucherUnitStatusGenerated, 0, true)
	post("u4", model.VoucherUnitStatusFailed, 1, false)
	post("u5", model.VoucherUnitStatusFailed, 3, false)

	units, err := store.VoucherUnitsGet(ctx, number)
	require.NoError(t, err)
	require.Len(t, units, 5)

	pending, err := store.VoucherUnitsGetPending(ctx, number)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "u1", pending[0].ExternalID)

	// отбираются все проваленные, лимит попыток решает координатор
	failed, err := store.VoucherUnitsGetFailed(ctx, number)
	require.NoError(t, err)
	require.Len(t, failed, 2)
	require.Equal(t, "u4", failed[0].ExternalID)
	require.Equal(t, "u5", failed[1].ExternalID)

	unpublished, err := store.VoucherUnitsGetUnpublished(ctx, number)
	require.NoError(t, err)
	require.Len(t, unpublished, 1)
	require.Equal(t, "u2", unpublished[0].ExternalID)
}

func TestMemStoreProductOptionStock(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	err := store.ProductOptionPost(ctx, model.ProductOption{
		Code: "OPT-10",
		Data: model.ProductOptionData{
			StoreCode:      "store-1",
			FaceValue:      1000,
			Wholesale:      900,
			SallaProductID: "prod-1",
			Stock:          2,
		},
	})
	require.NoError(t, err)

	stock, err := store.ProductOptionStockIncrease(ctx, "prod-1", 3)
	require.NoError(t, err)
	require.Equal(t, 5, stock)

	option, err := store.ProductOptionGet(ctx, "OPT-10")
	require.NoError(t, err)
	require.Equal(t, 5, option.Data.Stock)

	_, err = store.ProductOptionStockIncrease(ctx, "prod-unknown", 1)
	require.ErrorIs(t, err, ErrNoRows)
}
