package publisher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iurnickita/vouchermart/internal/model"
	"github.com/iurnickita/vouchermart/internal/sallaclient"
	"github.com/iurnickita/vouchermart/internal/store"
)

type fakeSalla struct {
	failFor map[string]bool
	calls   map[string][][]string
}

func newFakeSalla() *fakeSalla {
	return &fakeSalla{
		failFor: make(map[string]bool),
		calls:   make(map[string][][]string),
	}
}

func (f *fakeSalla) AttachCodes(ctx context.Context, acct model.StoreAccount, sallaProductID string, codes []string) (sallaclient.AttachCodesAnswer, error) {
	if f.failFor[sallaProductID] {
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

func setup(t *testing.T) store.Store {
	s := store.NewMemStore()
	ctx := context.Background()

	require.NoError(t, s.StoreAccountPost(ctx, model.StoreAccount{Code: "store-1"}))
	require.NoError(t, s.ProductOptionPost(ctx, model.ProductOption{
		Code: "OPT-10",
		Data: model.ProductOptionData{StoreCode: "store-1", SallaProductID: "prod-1"},
	}))
	require.NoError(t, s.ProductOptionPost(ctx, model.ProductOption{
		Code: "OPT-20",
		Data: model.ProductOptionData{StoreCode: "store-1", SallaProductID: "prod-2"},
	}))
	require.NoError(t, s.PurchaseOrderPost(ctx, model.PurchaseOrder{
		Number: "1000000009",
		Data:   model.PurchaseOrderData{StoreCode: "store-1", Status: model.PurchaseOrderStatusCompleted},
	}))

	post := func(externalID string, optionCode string, serial string) {
		require.NoError(t, s.VoucherUnitPost(ctx, model.VoucherUnit{
			ExternalID: externalID,
			Data: model.VoucherUnitData{
				OrderNumber:  "1000000009",
				ItemPos:      1,
				OptionCode:   optionCode,
				Status:       model.VoucherUnitStatusGenerated,
				SerialNumber: serial,
			},
		}))
	}
	post("u1", "OPT-10", "SN-1")
	post("u2", "OPT-10", "SN-2")
	post("u3", "OPT-20", "SN-3")

	return s
}

func TestPublishOrderGroupsByProduct(t *testing.T) {
	s := setup(t)
	ctx := context.Background()

	salla := newFakeSalla()
	stock := newFakeStock()
	p := NewPublisher(s, salla, stock, zap.NewNop())

	require.NoError(t, p.PublishOrder(ctx, "1000000009"))

	// коды сгруппированы по товару витрины
	require.Len(t, salla.calls["prod-1"], 1)
	require.ElementsMatch(t, []string{"SN-1", "SN-2"}, salla.calls["prod-1"][0])
	require.Len(t, salla.calls["prod-2"], 1)
	require.ElementsMatch(t, []string{"SN-3"}, salla.calls["prod-2"][0])

	// единицы помечены, остатки увеличены
	units, err := s.VoucherUnitsGet(ctx, "1000000009")
	require.NoError(t, err)
	for _, unit := range units {
		require.True(t, unit.Data.SallaSynced)
		require.False(t, unit.Data.SallaSyncedAt.IsZero())
	}
	option, err := s.ProductOptionGet(ctx, "OPT-10")
	require.NoError(t, err)
	require.Equal(t, 2, option.Data.Stock)
	require.Equal(t, 2, stock.values["prod-1"])
	require.Equal(t, 1, stock.values["prod-2"])

	// повторный вызов ничего не публикует заново
	require.NoError(t, p.PublishOrder(ctx, "1000000009"))
	require.Len(t, salla.calls["prod-1"], 1)
	require.Equal(t, 2, option.Data.Stock)
}

func TestPublishOrderPartialFailure(t *testing.T) {
	s := setup(t)
	ctx := context.Background()

	salla := newFakeSalla()
	salla.failFor["prod-1"] = true
	stock := newFakeStock()
	p := NewPublisher(s, salla, stock, zap.NewNop())

	// сбой по одной группе не мешает другой и не возвращает ошибку
	require.NoError(t, p.PublishOrder(ctx, "1000000009"))

	unpublished, err := s.VoucherUnitsGetUnpublished(ctx, "1000000009")
	require.NoError(t, err)
	require.Len(t, unpublished, 2)

	// следующий проход добирает оставшиеся единицы
	salla.failFor["prod-1"] = false
	require.NoError(t, p.PublishOrder(ctx, "1000000009"))

	unpublished, err = s.VoucherUnitsGetUnpublished(ctx, "1000000009")
	require.NoError(t, err)
	require.Empty(t, unpublished)

	option, err := s.ProductOptionGet(ctx, "OPT-10")
	require.NoError(t, err)
	require.Equal(t, 2, option.Data.Stock)
}
