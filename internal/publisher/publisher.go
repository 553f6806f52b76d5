package publisher

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iurnickita/vouchermart/internal/model"
	"github.com/iurnickita/vouchermart/internal/sallaclient"
	"github.com/iurnickita/vouchermart/internal/stockcache"
	"github.com/iurnickita/vouchermart/internal/store"
)

// Публикация кодов на витрину и обновление локальных остатков.
// Повторный вызов безопасен: уже опубликованные единицы не отбираются

type Publisher interface {
	PublishOrder(ctx context.Context, orderNumber string) error
}

type publisher struct {
	store  store.Store
	salla  sallaclient.SallaClient
	stock  stockcache.Cache
	zaplog *zap.Logger
}

func NewPublisher(store store.Store, salla sallaclient.SallaClient, stock stockcache.Cache, zaplog *zap.Logger) Publisher {
	return &publisher{
		store:  store,
		salla:  salla,
		stock:  stock,
		zaplog: zaplog,
	}
}

type productGroup struct {
	units []model.VoucherUnit
	codes []string
}

func (p *publisher) PublishOrder(ctx context.Context, orderNumber string) error {
	order, err := p.store.PurchaseOrderGet(ctx, orderNumber)
	if err != nil {
		return err
	}
	acct, err := p.store.StoreAccountGet(ctx, order.Data.StoreCode)
	if err != nil {
		return err
	}

	units, err := p.store.VoucherUnitsGetUnpublished(ctx, orderNumber)
	if err != nil {
		return err
	}
	if len(units) == 0 {
		return nil
	}

	// Группировка кодов по товару витрины
	groups := make(map[string]*productGroup)
	for _, unit := range units {
		option, err := p.store.ProductOptionGet(ctx, unit.Data.OptionCode)
		if err != nil {
			p.zaplog.Warn("publish: option without storefront link",
				zap.String("option", unit.Data.OptionCode),
				zap.Error(err))
			continue
		}
		group, ok := groups[option.Data.SallaProductID]
		if !ok {
			group = &productGroup{}
			groups[option.Data.SallaProductID] = group
		}
		group.units = append(group.units, unit)
		group.codes = append(group.codes, unit.Data.SerialNumber)
	}

	for sallaProductID, group := range groups {
		answer, err := p.salla.AttachCodes(ctx, acct, sallaProductID, group.codes)
		if err != nil {
			// коды уже выпущены, откат не выполняется: единицы
			// остаются неопубликованными до следующего прохода
			p.zaplog.Warn("publish: attach codes failed",
				zap.String("salla_product", sallaProductID),
				zap.Error(err))
			continue
		}
		if !answer.Success {
			p.zaplog.Warn("publish: attach codes rejected",
				zap.String("salla_product", sallaProductID),
				zap.String("message", answer.Data.Message))
			continue
		}

		now := time.Now()
		for _, unit := range group.units {
			unit.Data.SallaSynced = true
			unit.Data.SallaSyncedAt = now
			if err := p.store.VoucherUnitPut(ctx, unit); err != nil {
				return err
			}
		}

		stock, err := p.store.ProductOptionStockIncrease(ctx, sallaProductID, len(group.codes))
		if err != nil {
			return err
		}
		// кэш остатков не критичен: сбой только в лог
		if err := p.stock.Set(ctx, sallaProductID, stock); err != nil {
			p.zaplog.Warn("publish: stock cache update failed",
				zap.String("salla_product", sallaProductID),
				zap.Error(err))
		}

		p.zaplog.Info("codes published",
			zap.String("order", orderNumber),
			zap.String("salla_product", sallaProductID),
			zap.Int("codes", len(group.codes)),
			zap.Int("stock", stock))
	}

	return nil
}
