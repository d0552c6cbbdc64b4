package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/rl1809/catalog-cart/internal/core/domain"
)

type inventoryRow struct {
	Key       string    `db:"inv_key"`
	ItemID    string    `db:"item_id"`
	Stock     int       `db:"stock"`
	Reserved  int       `db:"reserved"`
	Version   int       `db:"version"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r inventoryRow) toDomain() domain.Inventory {
	return domain.Inventory{
		Key:       r.Key,
		ItemID:    r.ItemID,
		Stock:     r.Stock,
		Reserved:  r.Reserved,
		Version:   r.Version,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type orderRow struct {
	ID           string    `db:"id"`
	CatalogKey   string    `db:"catalog_key"`
	Status       string    `db:"status"`
	Items        []byte    `db:"items"`
	Customer     []byte    `db:"customer"`
	Subtotal     int64     `db:"subtotal"`
	DeliveryCost int64     `db:"delivery_cost"`
	Total        int64     `db:"total"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	ExpiresAt    time.Time `db:"expires_at"`
}

func (r orderRow) toDomain() (domain.Order, error) {
	o := domain.Order{
		ID:           r.ID,
		CatalogKey:   r.CatalogKey,
		Status:       domain.OrderStatus(r.Status),
		Subtotal:     r.Subtotal,
		DeliveryCost: r.DeliveryCost,
		Total:        r.Total,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		ExpiresAt:    r.ExpiresAt,
	}
	if err := json.Unmarshal(r.Items, &o.Items); err != nil {
		return o, errors.Wrapf(err, "decode items of order %s", r.ID)
	}
	if err := json.Unmarshal(r.Customer, &o.Customer); err != nil {
		return o, errors.Wrapf(err, "decode customer of order %s", r.ID)
	}
	return o, nil
}

type priceRow struct {
	ItemID        string    `db:"item_id"`
	Price         int64     `db:"price"`
	OriginalPrice int64     `db:"original_price"`
	ItemName      string    `db:"item_name"`
	UpdatedAt     time.Time `db:"updated_at"`
}

const inventoryColumns = `inv_key, item_id, stock, reserved, version, created_at, updated_at`

// MySQLAdapter stores inventory and orders of one catalog.
type MySQLAdapter struct {
	db         *sqlx.DB
	catalogKey string
}

func NewMySQLAdapter(db *sqlx.DB, catalogKey string) *MySQLAdapter {
	return &MySQLAdapter{db: db, catalogKey: catalogKey}
}

func (m *MySQLAdapter) GetInventory(ctx context.Context, key string) (*domain.Inventory, error) {
	return m.getInventory(ctx, m.db, key)
}

func (m *MySQLAdapter) getInventory(ctx context.Context, q sqlx.QueryerContext, key string) (*domain.Inventory, error) {
	var row inventoryRow
	err := sqlx.GetContext(ctx, q, &row, `
		SELECT `+inventoryColumns+`
		FROM inventory WHERE catalog_key = ? AND inv_key = ?`, m.catalogKey, key)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "query inventory")
	}

	inv := row.toDomain()
	return &inv, nil
}

func (m *MySQLAdapter) ListInventory(ctx context.Context) ([]domain.Inventory, error) {
	var rows []inventoryRow
	err := m.db.SelectContext(ctx, &rows, `
		SELECT `+inventoryColumns+`
		FROM inventory WHERE catalog_key = ? ORDER BY inv_key`, m.catalogKey)
	if err != nil {
		return nil, errors.Wrap(err, "list inventory")
	}
	items := make([]domain.Inventory, 0, len(rows))
	for _, r := range rows {
		items = append(items, r.toDomain())
	}
	return items, nil
}

// Reserve inserts the record when absent, otherwise increments reserved
// only while stock - reserved still covers quantity.
func (m *MySQLAdapter) Reserve(ctx context.Context, key, itemID string, quantity int) (domain.Inventory, domain.ReserveOutcome, error) {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Inventory{}, 0, errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx, `
		INSERT IGNORE INTO inventory (catalog_key, inv_key, item_id, stock, reserved, version, created_at, updated_at)
		VALUES (?, ?, ?, 0, ?, 1, ?, ?)`,
		m.catalogKey, key, itemID, quantity, now, now,
	)
	if err != nil {
		return domain.Inventory{}, 0, errors.Wrap(err, "insert inventory")
	}
	outcome := domain.ReserveCreated
	if rows, _ := result.RowsAffected(); rows == 0 {
		result, err = tx.ExecContext(ctx, `
			UPDATE inventory
			SET reserved = reserved + ?, version = version + 1, updated_at = ?
			WHERE catalog_key = ? AND inv_key = ? AND stock - reserved >= ?`,
			quantity, now, m.catalogKey, key, quantity,
		)
		if err != nil {
			return domain.Inventory{}, 0, errors.Wrap(err, "update inventory")
		}
		outcome = domain.ReserveApplied
		if rows, _ := result.RowsAffected(); rows == 0 {
			outcome = domain.ReserveInsufficient
		}
	}

	inv, err := m.getInventory(ctx, tx, key)
	if err != nil {
		return domain.Inventory{}, 0, err
	}
	if inv == nil {
		return domain.Inventory{}, 0, errors.Wrapf(domain.ErrInventoryNotFound, "key %s", key)
	}
	if err := tx.Commit(); err != nil {
		return domain.Inventory{}, 0, errors.Wrap(err, "commit")
	}
	return *inv, outcome, nil
}

// update runs an UPDATE on one record and returns it afterwards, or nil
// when no record matched. version always changes so a matched row is
// always reported as affected.
func (m *MySQLAdapter) update(ctx context.Context, key, set string, args ...interface{}) (*domain.Inventory, error) {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	args = append(args, time.Now().UTC(), m.catalogKey, key)
	result, err := tx.ExecContext(ctx, `
		UPDATE inventory
		SET `+set+`, version = version + 1, updated_at = ?
		WHERE catalog_key = ? AND inv_key = ?`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "update inventory")
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return nil, nil
	}

	inv, err := m.getInventory(ctx, tx, key)
	if err != nil {
		return nil, err
	}
	return inv, errors.Wrap(tx.Commit(), "commit")
}

func (m *MySQLAdapter) Release(ctx context.Context, key string, quantity int) (*domain.Inventory, error) {
	return m.update(ctx, key, `reserved = GREATEST(reserved - ?, 0)`, quantity)
}

func (m *MySQLAdapter) Consume(ctx context.Context, key string, quantity int) (*domain.Inventory, error) {
	return m.update(ctx, key, `stock = GREATEST(stock - ?, 0), reserved = GREATEST(reserved - ?, 0)`, quantity, quantity)
}

func (m *MySQLAdapter) AdjustStock(ctx context.Context, key string, delta int) (*domain.Inventory, error) {
	return m.update(ctx, key, `stock = GREATEST(stock + ?, 0)`, delta)
}

func (m *MySQLAdapter) SetReserved(ctx context.Context, key string, reserved int) error {
	inv, err := m.update(ctx, key, `reserved = ?`, reserved)
	if err != nil {
		return err
	}
	if inv == nil {
		return errors.Wrapf(domain.ErrInventoryNotFound, "key %s", key)
	}
	return nil
}

func (m *MySQLAdapter) SetStock(ctx context.Context, key, itemID string, stock int) (domain.Inventory, error) {
	now := time.Now().UTC()
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO inventory (catalog_key, inv_key, item_id, stock, reserved, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, 1, ?, ?)
		ON DUPLICATE KEY UPDATE item_id = VALUES(item_id), stock = VALUES(stock),
			version = version + 1, updated_at = VALUES(updated_at)`,
		m.catalogKey, key, itemID, stock, now, now,
	)
	if err != nil {
		return domain.Inventory{}, errors.Wrap(err, "upsert inventory")
	}
	inv, err := m.GetInventory(ctx, key)
	if err != nil {
		return domain.Inventory{}, err
	}
	if inv == nil {
		return domain.Inventory{}, errors.Wrapf(domain.ErrInventoryNotFound, "key %s", key)
	}
	return *inv, nil
}

func (m *MySQLAdapter) CreateOrder(ctx context.Context, order domain.Order) error {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return errors.Wrap(err, "encode items")
	}
	customer, err := json.Marshal(order.Customer)
	if err != nil {
		return errors.Wrap(err, "encode customer")
	}
	catalogKey := order.CatalogKey
	if catalogKey == "" {
		catalogKey = m.catalogKey
	}

	_, err = m.db.NamedExecContext(ctx, `
		INSERT INTO orders (id, catalog_key, status, items, customer, subtotal, delivery_cost, total, created_at, updated_at, expires_at)
		VALUES (:id, :catalog_key, :status, :items, :customer, :subtotal, :delivery_cost, :total, :created_at, :updated_at, :expires_at)`,
		orderRow{
			ID:           order.ID,
			CatalogKey:   catalogKey,
			Status:       string(order.Status),
			Items:        items,
			Customer:     customer,
			Subtotal:     order.Subtotal,
			DeliveryCost: order.DeliveryCost,
			Total:        order.Total,
			CreatedAt:    order.CreatedAt,
			UpdatedAt:    order.UpdatedAt,
			ExpiresAt:    order.ExpiresAt,
		})
	return errors.Wrap(err, "insert order")
}

const orderColumns = `id, catalog_key, status, items, customer, subtotal, delivery_cost, total, created_at, updated_at, expires_at`

func (m *MySQLAdapter) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	var row orderRow
	err := m.db.GetContext(ctx, &row, `
		SELECT `+orderColumns+` FROM orders WHERE id = ? AND catalog_key = ?`, id, m.catalogKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "query order")
	}
	o, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (m *MySQLAdapter) ListOrders(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE catalog_key = ?`
	args := []interface{}{m.catalogKey}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at`

	var rows []orderRow
	if err := m.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	orders := make([]domain.Order, 0, len(rows))
	for _, r := range rows {
		o, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func (m *MySQLAdapter) TransitionOrder(ctx context.Context, id string, from, to domain.OrderStatus) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE orders SET status = ?, updated_at = ?
		WHERE id = ? AND catalog_key = ? AND status = ?`,
		string(to), time.Now().UTC(), id, m.catalogKey, string(from),
	)
	if err != nil {
		return errors.Wrap(err, "update order status")
	}
	if rows, _ := result.RowsAffected(); rows > 0 {
		return nil
	}

	var exists int
	err = m.db.GetContext(ctx, &exists, `SELECT COUNT(*) FROM orders WHERE id = ? AND catalog_key = ?`, id, m.catalogKey)
	if err != nil {
		return errors.Wrap(err, "query order")
	}
	if exists == 0 {
		return errors.Wrapf(domain.ErrOrderNotFound, "order %s", id)
	}
	return errors.Wrapf(domain.ErrOrderStatusConflict, "order %s is not %s", id, from)
}

func (m *MySQLAdapter) SetPrice(ctx context.Context, o domain.PriceOverride) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO price_overrides (catalog_key, item_id, price, original_price, item_name, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE price = VALUES(price), original_price = VALUES(original_price),
			item_name = VALUES(item_name), updated_at = VALUES(updated_at)`,
		m.catalogKey, o.ItemID, o.Price, o.OriginalPrice, o.ItemName, o.UpdatedAt.UTC())
	return errors.Wrap(err, "upsert price override")
}

func (m *MySQLAdapter) DeletePrice(ctx context.Context, itemID string) error {
	_, err := m.db.ExecContext(ctx, `
		DELETE FROM price_overrides WHERE catalog_key = ? AND item_id = ?`, m.catalogKey, itemID)
	return errors.Wrap(err, "delete price override")
}

func (m *MySQLAdapter) ListPrices(ctx context.Context) ([]domain.PriceOverride, error) {
	var rows []priceRow
	err := m.db.SelectContext(ctx, &rows, `
		SELECT item_id, price, original_price, item_name, updated_at
		FROM price_overrides WHERE catalog_key = ? ORDER BY item_id`, m.catalogKey)
	if err != nil {
		return nil, errors.Wrap(err, "list price overrides")
	}
	out := make([]domain.PriceOverride, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.PriceOverride{
			ItemID:        r.ItemID,
			Price:         r.Price,
			OriginalPrice: r.OriginalPrice,
			ItemName:      r.ItemName,
			UpdatedAt:     r.UpdatedAt,
		})
	}
	return out, nil
}
