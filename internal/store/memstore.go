package store

import (
	"context"
	"sort"
	"sync"

	"github.com/iurnickita/vouchermart/internal/model"
)

// Хранилище в памяти: для тестов конвейера и локального запуска без БД

type memStore struct {
	mu       sync.Mutex
	accounts map[string]model.StoreAccount
	options  map[string]model.ProductOption
	orders   map[string]model.PurchaseOrder
	items    map[string][]model.PurchaseOrderItem
	units    map[string]model.VoucherUnit
}

func NewMemStore() Store {
	return &memStore{
		accounts: make(map[string]model.StoreAccount),
		options:  make(map[string]model.ProductOption),
		orders:   make(map[string]model.PurchaseOrder),
		items:    make(map[string][]model.PurchaseOrderItem),
		units:    make(map[string]model.VoucherUnit),
	}
}

func (m *memStore) StoreAccountPost(ctx context.Context, acct model.StoreAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[acct.Code]; ok {
		return ErrAlreadyExists
	}
	m.accounts[acct.Code] = acct
	return nil
}

func (m *memStore) StoreAccountGet(ctx context.Context, code string) (model.StoreAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	acct, ok := m.accounts[code]
	if !ok {
		return model.StoreAccount{}, ErrNoRows
	}
	return acct, nil
}

func (m *memStore) ProductOptionPost(ctx context.Context, option model.ProductOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.options[option.Code]; ok {
		return ErrAlreadyExists
	}
	m.options[option.Code] = option
	return nil
}

func (m *memStore) ProductOptionGet(ctx context.Context, code string) (model.ProductOption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	option, ok := m.options[code]
	if !ok {
		return model.ProductOption{}, ErrNoRows
	}
	return option, nil
}

func (m *memStore) ProductOptionGetByStore(ctx context.Context, storeCode string) ([]model.ProductOption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var options []model.ProductOption
	for _, option := range m.options {
		if option.Data.StoreCode == storeCode {
			options = append(options, option)
		}
	}
	sort.Slice(options, func(i, j int) bool { return options[i].Code < options[j].Code })
	return options, nil
}

func (m *memStore) ProductOptionPutPrice(ctx context.Context, code string, wholesale int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	option, ok := m.options[code]
	if !ok {
		return ErrNoRows
	}
	option.Data.Wholesale = wholesale
	m.options[code] = option
	return nil
}

func (m *memStore) ProductOptionStockIncrease(ctx context.Context, sallaProductID string, qty int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for code, option := range m.options {
		if option.Data.SallaProductID == sallaProductID {
			option.Data.Stock += qty
			m.options[code] = option
			return option.Data.Stock, nil
		}
	}
	return 0, ErrNoRows
}

func (m *memStore) PurchaseOrderPost(ctx context.Context, order model.PurchaseOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.orders[order.Number]; ok {
		if existing.Data.StoreCode != order.Data.StoreCode {
			return ErrAlreadyExists
		}
		return ErrDuplicateRequest
	}
	m.orders[order.Number] = order
	return nil
}

func (m *memStore) PurchaseOrderPut(ctx context.Context, order model.PurchaseOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.orders[order.Number]
	if !ok {
		return ErrNoRows
	}
	order.Data.CreatedAt = existing.Data.CreatedAt
	m.orders[order.Number] = order
	return nil
}

func (m *memStore) PurchaseOrderGet(ctx context.Context, number string) (model.PurchaseOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[number]
	if !ok {
		return model.PurchaseOrder{}, ErrNoRows
	}
	return order, nil
}

func (m *memStore) PurchaseOrderGetByStore(ctx context.Context, storeCode string) ([]model.PurchaseOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var orders []model.PurchaseOrder
	for _, order := range m.orders {
		if order.Data.StoreCode == storeCode {
			orders = append(orders, order)
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].Data.CreatedAt.Before(orders[j].Data.CreatedAt)
	})
	return orders, nil
}

func (m *memStore) PurchaseOrderItemPost(ctx context.Context, item model.PurchaseOrderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.items[item.OrderNumber] {
		if existing.Pos == item.Pos {
			return ErrAlreadyExists
		}
	}
	m.items[item.OrderNumber] = append(m.items[item.OrderNumber], item)
	return nil
}

func (m *memStore) PurchaseOrderItemsGet(ctx context.Context, orderNumber string) ([]model.PurchaseOrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := append([]model.PurchaseOrderItem(nil), m.items[orderNumber]...)
	sort.Slice(items, func(i, j int) bool { return items[i].Pos < items[j].Pos })
	return items, nil
}

func (m *memStore) PurchaseOrderItemPutPricing(ctx context.Context, item model.PurchaseOrderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := m.items[item.OrderNumber]
	for i, existing := range items {
		if existing.Pos == item.Pos {
			existing.Data.UnitWholesale = item.Data.UnitWholesale
			existing.Data.TotalWholesale = item.Data.TotalWholesale
			items[i] = existing
			return nil
		}
	}
	return ErrNoRows
}

func (m *memStore) VoucherUnitPost(ctx context.Context, unit model.VoucherUnit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.units[unit.ExternalID]; ok {
		return ErrAlreadyExists
	}
	m.units[unit.ExternalID] = unit
	return nil
}

func (m *memStore) VoucherUnitPut(ctx context.Context, unit model.VoucherUnit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.units[unit.ExternalID]; !ok {
		return ErrNoRows
	}
	m.units[unit.ExternalID] = unit
	return nil
}

func (m *memStore) voucherUnitsSelect(orderNumber string, match func(model.VoucherUnit) bool) []model.VoucherUnit {
	var units []model.VoucherUnit
	for _, unit := range m.units {
		if unit.Data.OrderNumber == orderNumber && match(unit) {
			units = append(units, unit)
		}
	}
	sort.Slice(units, func(i, j int) bool {
		if units[i].Data.ItemPos != units[j].Data.ItemPos {
			return units[i].Data.ItemPos < units[j].Data.ItemPos
		}
		return units[i].ExternalID < units[j].ExternalID
	})
	return units
}

func (m *memStore) VoucherUnitsGet(ctx context.Context, orderNumber string) ([]model.VoucherUnit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.voucherUnitsSelect(orderNumber, func(model.VoucherUnit) bool { return true }), nil
}

func (m *memStore) VoucherUnitsGetPending(ctx context.Context, orderNumber string) ([]model.VoucherUnit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.voucherUnitsSelect(orderNumber, func(u model.VoucherUnit) bool {
		return u.Data.Status == model.VoucherUnitStatusPending
	}), nil
}

func (m *memStore) VoucherUnitsGetFailed(ctx context.Context, orderNumber string) ([]model.VoucherUnit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.voucherUnitsSelect(orderNumber, func(u model.VoucherUnit) bool {
		return u.Data.Status == model.VoucherUnitStatusFailed
	}), nil
}

func (m *memStore) VoucherUnitsGetUnpublished(ctx context.Context, orderNumber string) ([]model.VoucherUnit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.voucherUnitsSelect(orderNumber, func(u model.VoucherUnit) bool {
		return u.Data.Status == model.VoucherUnitStatusGenerated && !u.Data.SallaSynced
	}), nil
}
