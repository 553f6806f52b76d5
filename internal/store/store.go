package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/iurnickita/vouchermart/internal/model"
	"github.com/iurnickita/vouchermart/internal/store/config"
)

type Store interface {
	StoreAccountPost(ctx context.Context, acct model.StoreAccount) error
	StoreAccountGet(ctx context.Context, code string) (model.StoreAccount, error)

	ProductOptionPost(ctx context.Context, option model.ProductOption) error
	ProductOptionGet(ctx context.Context, code string) (model.ProductOption, error)
	ProductOptionGetByStore(ctx context.Context, storeCode string) ([]model.ProductOption, error)
	ProductOptionPutPrice(ctx context.Context, code string, wholesale int64) error
	ProductOptionStockIncrease(ctx context.Context, sallaProductID string, qty int) (int, error)

	PurchaseOrderPost(ctx context.Context, order model.PurchaseOrder) error
	PurchaseOrderPut(ctx context.Context, order model.PurchaseOrder) error
	PurchaseOrderGet(ctx context.Context, number string) (model.PurchaseOrder, error)
	PurchaseOrderGetByStore(ctx context.Context, storeCode string) ([]model.PurchaseOrder, error)

	PurchaseOrderItemPost(ctx context.Context, item model.PurchaseOrderItem) error
	PurchaseOrderItemsGet(ctx context.Context, orderNumber string) ([]model.PurchaseOrderItem, error)
	PurchaseOrderItemPutPricing(ctx context.Context, item model.PurchaseOrderItem) error

	VoucherUnitPost(ctx context.Context, unit model.VoucherUnit) error
	VoucherUnitPut(ctx context.Context, unit model.VoucherUnit) error
	VoucherUnitsGet(ctx context.Context, orderNumber string) ([]model.VoucherUnit, error)
	VoucherUnitsGetPending(ctx context.Context, orderNumber string) ([]model.VoucherUnit, error)
	VoucherUnitsGetFailed(ctx context.Context, orderNumber string) ([]model.VoucherUnit, error)
	VoucherUnitsGetUnpublished(ctx context.Context, orderNumber string) ([]model.VoucherUnit, error)
}

var (
	ErrNoRows           = errors.New("no rows")
	ErrAlreadyExists    = errors.New("already exists")
	ErrDuplicateRequest = errors.New("duplicate request")
)

type store struct {
	database *sql.DB
}

func NewStore(cfg config.Config) (Store, error) {
	db, err := sql.Open("pgx", cfg.DBDsn)
	if err != nil {
		return nil, err
	}

	// Таблица магазинов и их учетных данных у эмитента
	_, err = db.Exec(
		"CREATE TABLE IF NOT EXISTS store_account (" +
			" code VARCHAR (20) PRIMARY KEY," +
			" issuer_email VARCHAR (100) NOT NULL," +
			" issuer_password VARCHAR (100) NOT NULL," +
			" issuer_security_code VARCHAR (100) NOT NULL," +
			" sandbox BOOLEAN NOT NULL," +
			" salla_token VARCHAR (2000) NOT NULL," +
			" salla_store_id VARCHAR (20) NOT NULL" +
			" );")
	if err != nil {
		return nil, err
	}

	// Таблица вариантов продукта с привязкой к товару витрины
	// и локальным остатком кодов
	_, err = db.Exec(
		"CREATE TABLE IF NOT EXISTS product_option (" +
			" code VARCHAR (20) PRIMARY KEY," +
			" store_code VARCHAR (20) NOT NULL," +
			" face_value BIGINT NOT NULL," +
			" wholesale BIGINT NOT NULL," +
			" salla_product VARCHAR (20) NOT NULL," +
			" stock INTEGER NOT NULL" +
			" );")
	if err != nil {
		return nil, err
	}

	// Таблица заказов на выпуск.
	// Создается одна строка на заказ, после чего меняются статус и агрегаты
	_, err = db.Exec(
		"CREATE TABLE IF NOT EXISTS purchase_order (" +
			" number VARCHAR (10) PRIMARY KEY," +
			" store_code VARCHAR (20) NOT NULL," +
			" status VARCHAR (20) NOT NULL," +
			" total_wholesale BIGINT NOT NULL," +
			" balance_before BIGINT NOT NULL," +
			" balance_after BIGINT NOT NULL," +
			" generated_count INTEGER NOT NULL," +
			" failed_count INTEGER NOT NULL," +
			" error_message VARCHAR (500) NOT NULL," +
			" created_at TIMESTAMP NOT NULL," +
			" processing_started_at TIMESTAMP NOT NULL," +
			" processing_completed_at TIMESTAMP NOT NULL" +
			" );")
	if err != nil {
		return nil, err
	}

	// Таблица позиций заказа
	_, err = db.Exec(
		"CREATE TABLE IF NOT EXISTS purchase_order_item (" +
			" order_number VARCHAR (10)," +
			" pos INTEGER," +
			" option_code VARCHAR (20) NOT NULL," +
			" quantity INTEGER NOT NULL," +
			" unit_face_value BIGINT NOT NULL," +
			" unit_wholesale BIGINT NOT NULL," +
			" total_wholesale BIGINT NOT NULL," +
			" PRIMARY KEY (order_number, pos)" +
			" );")
	if err != nil {
		return nil, err
	}

	// Таблица единиц выпуска.
	// Представляет собой журнал: каждая попытка выпуска фиксируется
	// на своей строке вместе с сырым ответом эмитента
	_, err = db.Exec(
		"CREATE TABLE IF NOT EXISTS voucher_unit (" +
			" external_id VARCHAR (36) PRIMARY KEY," +
			" order_number VARCHAR (10) NOT NULL," +
			" item_pos INTEGER NOT NULL," +
			" option_code VARCHAR (20) NOT NULL," +
			" face_value BIGINT NOT NULL," +
			" status VARCHAR (10) NOT NULL," +
			" request_at TIMESTAMP NOT NULL," +
			" response_at TIMESTAMP NOT NULL," +
			" latency_ms BIGINT NOT NULL," +
			" raw_response VARCHAR (4000) NOT NULL," +
			" serial_number VARCHAR (100) NOT NULL," +
			" transaction_id VARCHAR (100) NOT NULL," +
			" provider_transaction_id VARCHAR (100) NOT NULL," +
			" reference VARCHAR (100) NOT NULL," +
			" redeem_url VARCHAR (500) NOT NULL," +
			" response_amount BIGINT NOT NULL," +
			" amount_wholesale BIGINT NOT NULL," +
			" failure_text VARCHAR (500) NOT NULL," +
			" retry_count INTEGER NOT NULL," +
			" salla_synced BOOLEAN NOT NULL," +
			" salla_synced_at TIMESTAMP NOT NULL" +
			" );")
	if err != nil {
		return nil, err
	}

	return &store{
		database: db,
	}, nil
}

func (store *store) StoreAccountPost(ctx context.Context, acct model.StoreAccount) error {
	_, err := store.database.ExecContext(ctx,
		"INSERT INTO store_account (code, issuer_email, issuer_password, issuer_security_code, sandbox, salla_token, salla_store_id)"+
			" VALUES ($1, $2, $3, $4, $5, $6, $7)",
		acct.Code,
		acct.Data.IssuerEmail,
		acct.Data.IssuerPassword,
		acct.Data.IssuerSecurityCode,
		acct.Data.Sandbox,
		acct.Data.SallaToken,
		acct.Data.SallaStoreID)
	if err != nil {
		// Проверка: уже существует
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" {
				return ErrAlreadyExists
			}
		}
		return err
	}
	return nil
}

func (store *store) StoreAccountGet(ctx context.Context, code string) (model.StoreAccount, error) {
	var acct model.StoreAccount
	row := store.database.QueryRowContext(ctx,
		"SELECT code, issuer_email, issuer_password, issuer_security_code, sandbox, salla_token, salla_store_id"+
			" FROM store_account"+
			" WHERE code = $1",
		code)
	err := row.Scan(&acct.Code,
		&acct.Data.IssuerEmail,
		&acct.Data.IssuerPassword,
		&acct.Data.IssuerSecurityCode,
		&acct.Data.Sandbox,
		&acct.Data.SallaToken,
		&acct.Data.SallaStoreID)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.StoreAccount{}, ErrNoRows
		}
		return model.StoreAccount{}, err
	}
	return acct, nil
}

func (store *store) ProductOptionPost(ctx context.Context, option model.ProductOption) error {
	_, err := store.database.ExecContext(ctx,
		"INSERT INTO product_option (code, store_code, face_value, wholesale, salla_product, stock)"+
			" VALUES ($1, $2, $3, $4, $5, $6)",
		option.Code,
		option.Data.StoreCode,
		option.Data.FaceValue,
		option.Data.Wholesale,
		option.Data.SallaProductID,
		option.Data.Stock)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" {
				return ErrAlreadyExists
			}
		}
		return err
	}
	return nil
}

func (store *store) ProductOptionGet(ctx context.Context, code string) (model.ProductOption, error) {
	var option model.ProductOption
	row := store.database.QueryRowContext(ctx,
		"SELECT code, store_code, face_value, wholesale, salla_product, stock"+
			" FROM product_option"+
			" WHERE code = $1",
		code)
	err := row.Scan(&option.Code,
		&option.Data.StoreCode,
		&option.Data.FaceValue,
		&option.Data.Wholesale,
		&option.Data.SallaProductID,
		&option.Data.Stock)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.ProductOption{}, ErrNoRows
		}
		return model.ProductOption{}, err
	}
	return option, nil
}

func (store *store) ProductOptionGetByStore(ctx context.Context, storeCode string) ([]model.ProductOption, error) {
	rows, err := store.database.QueryContext(ctx,
		"SELECT code, store_code, face_value, wholesale, salla_product, stock"+
			" FROM product_option"+
			" WHERE store_code = $1",
		storeCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var options []model.ProductOption
	for rows.Next() {
		var option model.ProductOption
		err := rows.Scan(&option.Code,
			&option.Data.StoreCode,
			&option.Data.FaceValue,
			&option.Data.Wholesale,
			&option.Data.SallaProductID,
			&option.Data.Stock)
		if err != nil {
			return nil, err
		}
		options = append(options, option)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return options, nil
}

func (store *store) ProductOptionPutPrice(ctx context.Context, code string, wholesale int64) error {
	_, err := store.database.ExecContext(ctx,
		"UPDATE product_option"+
			" SET wholesale = $1"+
			" WHERE code = $2",
		wholesale,
		code)
	return err
}

func (store *store) ProductOptionStockIncrease(ctx context.Context, sallaProductID string, qty int) (int, error) {
	row := store.database.QueryRowContext(ctx,
		"UPDATE product_option"+
			" SET stock = stock + $1"+
			" WHERE salla_product = $2"+
			" RETURNING stock",
		qty,
		sallaProductID)
	var stock int
	err := row.Scan(&stock)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, ErrNoRows
		}
		return 0, err
	}
	return stock, nil
}

func (store *store) PurchaseOrderPost(ctx context.Context, order model.PurchaseOrder) error {
	// Запись нового заказа
	_, err := store.database.ExecContext(ctx,
		"INSERT INTO purchase_order (number, store_code, status, total_wholesale, balance_before, balance_after,"+
			" generated_count, failed_count, error_message, created_at, processing_started_at, processing_completed_at)"+
			" VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)",
		order.Number,
		order.Data.StoreCode,
		order.Data.Status,
		order.Data.TotalWholesale,
		order.Data.BalanceBefore,
		order.Data.BalanceAfter,
		order.Data.GeneratedCount,
		order.Data.FailedCount,
		order.Data.ErrorMessage,
		order.Data.CreatedAt,
		order.Data.ProcessingStartedAt,
		order.Data.ProcessingCompletedAt)
	if err != nil {
		// Проверка: уже существует
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" {
				row := store.database.QueryRowContext(ctx,
					"SELECT store_code FROM purchase_order"+
						" WHERE number = $1",
					order.Number)
				var storeCode string
				err = row.Scan(&storeCode)
				if err == nil {
					if storeCode != order.Data.StoreCode {
						return ErrAlreadyExists
					}
				}
				return ErrDuplicateRequest
			}
		}
		return err
	}
	return nil
}

func (store *store) PurchaseOrderPut(ctx context.Context, order model.PurchaseOrder) error {
	// Обновление статуса и агрегатов заказа
	_, err := store.database.ExecContext(ctx,
		"UPDATE purchase_order"+
			" SET status = $1,"+
			"     total_wholesale = $2,"+
			"     balance_before = $3,"+
			"     balance_after = $4,"+
			"     generated_count = $5,"+
			"     failed_count = $6,"+
			"     error_message = $7,"+
			"     processing_started_at = $8,"+
			"     processing_completed_at = $9"+
			" WHERE number = $10",
		order.Data.Status,
		order.Data.TotalWholesale,
		order.Data.BalanceBefore,
		order.Data.BalanceAfter,
		order.Data.GeneratedCount,
		order.Data.FailedCount,
		order.Data.ErrorMessage,
		order.Data.ProcessingStartedAt,
		order.Data.ProcessingCompletedAt,
		order.Number)
	if err != nil {
		return err
	}
	return nil
}

func (store *store) PurchaseOrderGet(ctx context.Context, number string) (model.PurchaseOrder, error) {
	var order model.PurchaseOrder
	row := store.database.QueryRowContext(ctx,
		"SELECT number, store_code, status, total_wholesale, balance_before, balance_after,"+
			" generated_count, failed_count, error_message, created_at, processing_started_at, processing_completed_at"+
			" FROM purchase_order"+
			" WHERE number = $1",
		number)
	err := row.Scan(&order.Number,
		&order.Data.StoreCode,
		&order.Data.Status,
		&order.Data.TotalWholesale,
		&order.Data.BalanceBefore,
		&order.Data.BalanceAfter,
		&order.Data.GeneratedCount,
		&order.Data.FailedCount,
		&order.Data.ErrorMessage,
		&order.Data.CreatedAt,
		&order.Data.ProcessingStartedAt,
		&order.Data.ProcessingCompletedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.PurchaseOrder{}, ErrNoRows
		}
		return model.PurchaseOrder{}, err
	}
	return order, nil
}

func (store *store) PurchaseOrderGetByStore(ctx context.Context, storeCode string) ([]model.PurchaseOrder, error) {
	rows, err := store.database.QueryContext(ctx,
		"SELECT number, store_code, status, total_wholesale, balance_before, balance_after,"+
			" generated_count, failed_count, error_message, created_at, processing_started_at, processing_completed_at"+
			" FROM purchase_order"+
			" WHERE store_code = $1"+
			" ORDER BY created_at",
		storeCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []model.PurchaseOrder
	for rows.Next() {
		var order model.PurchaseOrder
		err := rows.Scan(&order.Number,
			&order.Data.StoreCode,
			&order.Data.Status,
			&order.Data.TotalWholesale,
			&order.Data.BalanceBefore,
			&order.Data.BalanceAfter,
			&order.Data.GeneratedCount,
			&order.Data.FailedCount,
			&order.Data.ErrorMessage,
			&order.Data.CreatedAt,
			&order.Data.ProcessingStartedAt,
			&order.Data.ProcessingCompletedAt)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

func (store *store) PurchaseOrderItemPost(ctx context.Context, item model.PurchaseOrderItem) error {
	_, err := store.database.ExecContext(ctx,
		"INSERT INTO purchase_order_item (order_number, pos, option_code, quantity, unit_face_value, unit_wholesale, total_wholesale)"+
			" VALUES ($1, $2, $3, $4, $5, $6, $7)",
		item.OrderNumber,
		item.Pos,
		item.Data.OptionCode,
		item.Data.Quantity,
		item.Data.UnitFaceValue,
		item.Data.UnitWholesale,
		item.Data.TotalWholesale)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" {
				return ErrAlreadyExists
			}
		}
		return err
	}
	return nil
}

func (store *store) PurchaseOrderItemsGet(ctx context.Context, orderNumber string) ([]model.PurchaseOrderItem, error) {
	rows, err := store.database.QueryContext(ctx,
		"SELECT order_number, pos, option_code, quantity, unit_face_value, unit_wholesale, total_wholesale"+
			" FROM purchase_order_item"+
			" WHERE order_number = $1"+
			" ORDER BY pos",
		orderNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []model.PurchaseOrderItem
	for rows.Next() {
		var item model.PurchaseOrderItem
		err := rows.Scan(&item.OrderNumber,
			&item.Pos,
			&item.Data.OptionCode,
			&item.Data.Quantity,
			&item.Data.UnitFaceValue,
			&item.Data.UnitWholesale,
			&item.Data.TotalWholesale)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

// PurchaseOrderItemPutPricing обновляет только ценовые поля позиции.
// Количество и вариант после выхода заказа из черновика не меняются
func (store *store) PurchaseOrderItemPutPricing(ctx context.Context, item model.PurchaseOrderItem) error {
	_, err := store.database.ExecContext(ctx,
		"UPDATE purchase_order_item"+
			" SET unit_wholesale = $1,"+
			"     total_wholesale = $2"+
			" WHERE order_number = $3"+
			"   AND pos = $4",
		item.Data.UnitWholesale,
		item.Data.TotalWholesale,
		item.OrderNumber,
		item.Pos)
	return err
}

func (store *store) VoucherUnitPost(ctx context.Context, unit model.VoucherUnit) error {
	_, err := store.database.ExecContext(ctx,
		"INSERT INTO voucher_unit (external_id, order_number, item_pos, option_code, face_value, status,"+
			" request_at, response_at, latency_ms, raw_response, serial_number, transaction_id, provider_transaction_id,"+
			" reference, redeem_url, response_amount, amount_wholesale, failure_text, retry_count, salla_synced, salla_synced_at)"+
			" VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)",
		unit.ExternalID,
		unit.Data.OrderNumber,
		unit.Data.ItemPos,
		unit.Data.OptionCode,
		unit.Data.FaceValue,
		unit.Data.Status,
		unit.Data.RequestAt,
		unit.Data.ResponseAt,
		unit.Data.LatencyMS,
		unit.Data.RawResponse,
		unit.Data.SerialNumber,
		unit.Data.TransactionID,
		unit.Data.ProviderTransactionID,
		unit.Data.Reference,
		unit.Data.RedeemURL,
		unit.Data.ResponseAmount,
		unit.Data.AmountWholesale,
		unit.Data.FailureText,
		unit.Data.RetryCount,
		unit.Data.SallaSynced,
		unit.Data.SallaSyncedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" {
				return ErrAlreadyExists
			}
		}
		return err
	}
	return nil
}

func (store *store) VoucherUnitPut(ctx context.Context, unit model.VoucherUnit) error {
	_, err := store.database.ExecContext(ctx,
		"UPDATE voucher_unit"+
			" SET status = $1,"+
			"     request_at = $2,"+
			"     response_at = $3,"+
			"     latency_ms = $4,"+
			"     raw_response = $5,"+
			"     serial_number = $6,"+
			"     transaction_id = $7,"+
			"     provider_transaction_id = $8,"+
			"     reference = $9,"+
			"     redeem_url = $10,"+
			"     response_amount = $11,"+
			"     amount_wholesale = $12,"+
			"     failure_text = $13,"+
			"     retry_count = $14,"+
			"     salla_synced = $15,"+
			"     salla_synced_at = $16"+
			" WHERE external_id = $17",
		unit.Data.Status,
		unit.Data.RequestAt,
		unit.Data.ResponseAt,
		unit.Data.LatencyMS,
		unit.Data.RawResponse,
		unit.Data.SerialNumber,
		unit.Data.TransactionID,
		unit.Data.ProviderTransactionID,
		unit.Data.Reference,
		unit.Data.RedeemURL,
		unit.Data.ResponseAmount,
		unit.Data.AmountWholesale,
		unit.Data.FailureText,
		unit.Data.RetryCount,
		unit.Data.SallaSynced,
		unit.Data.SallaSyncedAt,
		unit.ExternalID)
	return err
}

const voucherUnitFields = "external_id, order_number, item_pos, option_code, face_value, status," +
	" request_at, response_at, latency_ms, raw_response, serial_number, transaction_id, provider_transaction_id," +
	" reference, redeem_url, response_amount, amount_wholesale, failure_text, retry_count, salla_synced, salla_synced_at"

func (store *store) voucherUnitsQuery(ctx context.Context, query string, args ...any) ([]model.VoucherUnit, error) {
	rows, err := store.database.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var units []model.VoucherUnit
	for rows.Next() {
		var unit model.VoucherUnit
		err := rows.Scan(&unit.ExternalID,
			&unit.Data.OrderNumber,
			&unit.Data.ItemPos,
			&unit.Data.OptionCode,
			&unit.Data.FaceValue,
			&unit.Data.Status,
			&unit.Data.RequestAt,
			&unit.Data.ResponseAt,
			&unit.Data.LatencyMS,
			&unit.Data.RawResponse,
			&unit.Data.SerialNumber,
			&unit.Data.TransactionID,
			&unit.Data.ProviderTransactionID,
			&unit.Data.Reference,
			&unit.Data.RedeemURL,
			&unit.Data.ResponseAmount,
			&unit.Data.AmountWholesale,
			&unit.Data.FailureText,
			&unit.Data.RetryCount,
			&unit.Data.SallaSynced,
			&unit.Data.SallaSyncedAt)
		if err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return units, nil
}

func (store *store) VoucherUnitsGet(ctx context.Context, orderNumber string) ([]model.VoucherUnit, error) {
	return store.voucherUnitsQuery(ctx,
		"SELECT "+voucherUnitFields+
			" FROM voucher_unit"+
			" WHERE order_number = $1"+
			" ORDER BY item_pos, external_id",
		orderNumber)
}

func (store *store) VoucherUnitsGetPending(ctx context.Context, orderNumber string) ([]model.VoucherUnit, error) {
	return store.voucherUnitsQuery(ctx,
		"SELECT "+voucherUnitFields+
			" FROM voucher_unit"+
			" WHERE order_number = $1"+
			"   AND status = $2"+
			" ORDER BY item_pos, external_id",
		orderNumber,
		model.VoucherUnitStatusPending)
}

func (store *store) VoucherUnitsGetFailed(ctx context.Context, orderNumber string) ([]model.VoucherUnit, error) {
	return store.voucherUnitsQuery(ctx,
		"SELECT "+voucherUnitFields+
			" FROM voucher_unit"+
			" WHERE order_number = $1"+
			"   AND status = $2"+
			" ORDER BY item_pos, external_id",
		orderNumber,
		model.VoucherUnitStatusFailed)
}

func (store *store) VoucherUnitsGetUnpublished(ctx context.Context, orderNumber string) ([]model.VoucherUnit, error) {
	return store.voucherUnitsQuery(ctx,
		"SELECT "+voucherUnitFields+
			" FROM voucher_unit"+
			" WHERE order_number = $1"+
			"   AND status = $2"+
			"   AND salla_synced = FALSE"+
			" ORDER BY item_pos, external_id",
		orderNumber,
		model.VoucherUnitStatusGenerated)
}
