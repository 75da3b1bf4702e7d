package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/PharmaUz/Uz-Pharma-Bot/internal/config"
	"github.com/PharmaUz/Uz-Pharma-Bot/internal/domain"
)

//go:embed schema.sql
var schema string

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// Postgres хранилище на sqlx; транзакция передаётся через context
type Postgres struct {
	db *sqlx.DB
}

func NewPostgres(cfg config.Config) (*Postgres, error) {
	db, err := sqlx.Connect("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	return &Postgres{db: db}, nil
}

// NewPostgresFromDB оборачивает уже открытое соединение
func NewPostgresFromDB(db *sqlx.DB) *Postgres { return &Postgres{db: db} }

// Migrate применяет schema.sql (идемпотентно)
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) Repositories() Repositories {
	return Repositories{
		Drugs:      &pgDrugs{p},
		Pharmacies: &pgPharmacies{p},
		Stock:      &pgStock{p},
		Carts:      &pgCarts{p},
		Orders:     &pgOrders{p},
		Tx:         p,
	}
}

type pgTxKey struct{}

// conn текущая транзакция из контекста или пул соединений
func (p *Postgres) conn(ctx context.Context) sqlx.ExtContext {
	if tx, ok := ctx.Value(pgTxKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return p.db
}

func (p *Postgres) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(pgTxKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()
	if err := fn(context.WithValue(ctx, pgTxKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("rollback failed")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// mapError переводит ошибки драйвера в ошибки репозитория
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Constraint)
		case pqForeignKeyViolation:
			return ErrNotFound
		}
	}
	return err
}

type pgDrugs struct{ p *Postgres }

const drugColumns = `id, name, manufacturer, dosage_form, strength, price, prescription_required, category, image_url, thumbnail_url`

func (r *pgDrugs) Save(ctx context.Context, d *domain.Drug) error {
	q := r.p.conn(ctx)
	if d.ID == 0 {
		err := sqlx.GetContext(ctx, q, &d.ID, `
			INSERT INTO drugs (name, manufacturer, dosage_form, strength, price, prescription_required, category, image_url, thumbnail_url)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id`,
			d.Name, d.Manufacturer, d.DosageForm, d.Strength, d.Price, d.PrescriptionRequired, d.Category, d.ImageURL, d.ThumbnailURL)
		return mapError(err)
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO drugs (`+drugColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, manufacturer = EXCLUDED.manufacturer, dosage_form = EXCLUDED.dosage_form,
			strength = EXCLUDED.strength, price = EXCLUDED.price, prescription_required = EXCLUDED.prescription_required,
			category = EXCLUDED.category, image_url = EXCLUDED.image_url, thumbnail_url = EXCLUDED.thumbnail_url`,
		d.ID, d.Name, d.Manufacturer, d.DosageForm, d.Strength, d.Price, d.PrescriptionRequired, d.Category, d.ImageURL, d.ThumbnailURL)
	if err != nil {
		return mapError(err)
	}
	return syncSequence(ctx, q, "drugs")
}

func (r *pgDrugs) GetByID(ctx context.Context, id int64) (*domain.Drug, error) {
	var d domain.Drug
	err := sqlx.GetContext(ctx, r.p.conn(ctx), &d, `SELECT `+drugColumns+` FROM drugs WHERE id = $1`, id)
	if err != nil {
		return nil, mapError(err)
	}
	return &d, nil
}

func (r *pgDrugs) UpdatePrice(ctx context.Context, id int64, price int64) error {
	res, err := r.p.conn(ctx).ExecContext(ctx, `UPDATE drugs SET price = $1 WHERE id = $2`, price, id)
	if err != nil {
		return mapError(err)
	}
	return expectRows(res)
}

func (r *pgDrugs) Search(ctx context.Context, f DrugFilter) ([]domain.Drug, error) {
	drugs := make([]domain.Drug, 0)
	pattern := "%" + f.Query + "%"
	err := sqlx.SelectContext(ctx, r.p.conn(ctx), &drugs, `
		SELECT `+drugColumns+` FROM drugs
		WHERE name ILIKE $1 OR category ILIKE $1 OR manufacturer ILIKE $1
		ORDER BY id
		LIMIT $2`, pattern, f.limit())
	return drugs, mapError(err)
}

type pgPharmacies struct{ p *Postgres }

const pharmacyColumns = `id, name, address, phone, latitude, longitude, active, operator_contact`

func (r *pgPharmacies) Save(ctx context.Context, ph *domain.Pharmacy) error {
	q := r.p.conn(ctx)
	if ph.ID == 0 {
		err := sqlx.GetContext(ctx, q, &ph.ID, `
			INSERT INTO pharmacies (name, address, phone, latitude, longitude, active, operator_contact)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`,
			ph.Name, ph.Address, ph.Phone, ph.Latitude, ph.Longitude, ph.Active, ph.OperatorContact)
		return mapError(err)
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO pharmacies (`+pharmacyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, address = EXCLUDED.address, phone = EXCLUDED.phone,
			latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude, active = EXCLUDED.active,
			operator_contact = EXCLUDED.operator_contact`,
		ph.ID, ph.Name, ph.Address, ph.Phone, ph.Latitude, ph.Longitude, ph.Active, ph.OperatorContact)
	if err != nil {
		return mapError(err)
	}
	return syncSequence(ctx, q, "pharmacies")
}

func (r *pgPharmacies) GetByID(ctx context.Context, id int64) (*domain.Pharmacy, error) {
	var ph domain.Pharmacy
	err := sqlx.GetContext(ctx, r.p.conn(ctx), &ph, `SELECT `+pharmacyColumns+` FROM pharmacies WHERE id = $1`, id)
	if err != nil {
		return nil, mapError(err)
	}
	return &ph, nil
}

func (r *pgPharmacies) ListActive(ctx context.Context) ([]domain.Pharmacy, error) {
	out := make([]domain.Pharmacy, 0)
	err := sqlx.SelectContext(ctx, r.p.conn(ctx), &out,
		`SELECT `+pharmacyColumns+` FROM pharmacies WHERE active ORDER BY id`)
	return out, mapError(err)
}

type pgStock struct{ p *Postgres }

func (r *pgStock) Upsert(ctx context.Context, s domain.PharmacyStock) error {
	_, err := r.p.conn(ctx).ExecContext(ctx, `
		INSERT INTO pharmacy_stock (pharmacy_id, drug_id, price, residual)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (pharmacy_id, drug_id) DO UPDATE SET price = EXCLUDED.price, residual = EXCLUDED.residual`,
		s.PharmacyID, s.DrugID, s.Price, s.Residual)
	return mapError(err)
}

func (r *pgStock) Get(ctx context.Context, pharmacyID, drugID int64) (*domain.PharmacyStock, error) {
	var s domain.PharmacyStock
	err := sqlx.GetContext(ctx, r.p.conn(ctx), &s, `
		SELECT pharmacy_id, drug_id, price, residual FROM pharmacy_stock
		WHERE pharmacy_id = $1 AND drug_id = $2`, pharmacyID, drugID)
	if err != nil {
		return nil, mapError(err)
	}
	return &s, nil
}

func (r *pgStock) ListAvailable(ctx context.Context, drugIDs []int64) ([]domain.PharmacyStock, error) {
	out := make([]domain.PharmacyStock, 0)
	err := sqlx.SelectContext(ctx, r.p.conn(ctx), &out, `
		SELECT pharmacy_id, drug_id, price, residual FROM pharmacy_stock
		WHERE drug_id = ANY($1) AND residual > 0
		ORDER BY pharmacy_id, drug_id`, pq.Array(drugIDs))
	return out, mapError(err)
}

// Decrement уменьшает residual, только если остатка хватает
func (r *pgStock) Decrement(ctx context.Context, pharmacyID, drugID, qty int64) (bool, error) {
	res, err := r.p.conn(ctx).ExecContext(ctx, `
		UPDATE pharmacy_stock SET residual = residual - $1
		WHERE pharmacy_id = $2 AND drug_id = $3 AND residual >= $1`, qty, pharmacyID, drugID)
	if err != nil {
		return false, fmt.Errorf("error updating stock for drug %d at pharmacy %d: %w", drugID, pharmacyID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error getting rows affected for drug %d: %w", drugID, err)
	}
	return n == 1, nil
}

func (r *pgStock) Increment(ctx context.Context, pharmacyID, drugID, qty int64) error {
	res, err := r.p.conn(ctx).ExecContext(ctx, `
		UPDATE pharmacy_stock SET residual = residual + $1
		WHERE pharmacy_id = $2 AND drug_id = $3`, qty, pharmacyID, drugID)
	if err != nil {
		return mapError(err)
	}
	return expectRows(res)
}

type pgCarts struct{ p *Postgres }

const cartColumns = `id, user_id, drug_id, quantity, created_at, updated_at`

func (r *pgCarts) Add(ctx context.Context, userID, drugID int64) (*domain.CartItem, error) {
	var it domain.CartItem
	err := sqlx.GetContext(ctx, r.p.conn(ctx), &it, `
		INSERT INTO cart_items (user_id, drug_id, quantity) VALUES ($1, $2, 1)
		ON CONFLICT (user_id, drug_id) DO UPDATE SET quantity = cart_items.quantity + 1, updated_at = now()
		RETURNING `+cartColumns, userID, drugID)
	if err != nil {
		return nil, mapError(err)
	}
	return &it, nil
}

func (r *pgCarts) GetByID(ctx context.Context, id int64) (*domain.CartItem, error) {
	var it domain.CartItem
	err := sqlx.GetContext(ctx, r.p.conn(ctx), &it, `SELECT `+cartColumns+` FROM cart_items WHERE id = $1`, id)
	if err != nil {
		return nil, mapError(err)
	}
	return &it, nil
}

func (r *pgCarts) AdjustQuantity(ctx context.Context, id, userID, delta int64) (*domain.CartItem, error) {
	q := r.p.conn(ctx)
	var it domain.CartItem
	err := sqlx.GetContext(ctx, q, &it, `
		UPDATE cart_items SET quantity = quantity + $1, updated_at = now()
		WHERE id = $2 AND user_id = $3 AND quantity + $1 >= 1
		RETURNING `+cartColumns, delta, id, userID)
	if err == nil {
		return &it, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, mapError(err)
	}
	// последняя единица: строка удаляется
	res, err := q.ExecContext(ctx, `
		DELETE FROM cart_items WHERE id = $1 AND user_id = $2 AND quantity + $3 < 1`, id, userID, delta)
	if err != nil {
		return nil, mapError(err)
	}
	return nil, expectRows(res)
}

func (r *pgCarts) Delete(ctx context.Context, id int64) error {
	res, err := r.p.conn(ctx).ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	return expectRows(res)
}

type cartLineRow struct {
	domain.CartItem
	Drug domain.Drug `db:"drug"`
}

func (r *pgCarts) ListLines(ctx context.Context, userID int64) ([]domain.CartLine, error) {
	return r.listLines(ctx, userID, "")
}

// LockLines держит строки корзины до конца транзакции: параллельный finalize
// той же корзины ждёт и после commit видит её пустой.
func (r *pgCarts) LockLines(ctx context.Context, userID int64) ([]domain.CartLine, error) {
	return r.listLines(ctx, userID, " FOR UPDATE OF c")
}

func (r *pgCarts) listLines(ctx context.Context, userID int64, lock string) ([]domain.CartLine, error) {
	rows := make([]cartLineRow, 0)
	err := sqlx.SelectContext(ctx, r.p.conn(ctx), &rows, `
		SELECT c.id, c.user_id, c.drug_id, c.quantity, c.created_at, c.updated_at,
		       d.id AS "drug.id", d.name AS "drug.name", d.manufacturer AS "drug.manufacturer",
		       d.dosage_form AS "drug.dosage_form", d.strength AS "drug.strength", d.price AS "drug.price",
		       d.prescription_required AS "drug.prescription_required", d.category AS "drug.category",
		       d.image_url AS "drug.image_url", d.thumbnail_url AS "drug.thumbnail_url"
		FROM cart_items c
		JOIN drugs d ON d.id = c.drug_id
		WHERE c.user_id = $1
		ORDER BY c.id`+lock, userID)
	if err != nil {
		return nil, mapError(err)
	}
	lines := make([]domain.CartLine, len(rows))
	for i, row := range rows {
		lines[i] = domain.CartLine{Item: row.CartItem, Drug: row.Drug}
	}
	return lines, nil
}

func (r *pgCarts) Clear(ctx context.Context, userID int64) (int64, error) {
	res, err := r.p.conn(ctx).ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	if err != nil {
		return 0, mapError(err)
	}
	return res.RowsAffected()
}

type pgOrders struct{ p *Postgres }

const orderColumns = `id, user_id, pharmacy_id, total_amount, delivery_mode, pickup_code, status, payment_status, created_at, updated_at, completed_at`

func (r *pgOrders) Create(ctx context.Context, o *domain.Order) error {
	q := r.p.conn(ctx)
	row := struct {
		ID        int64        `db:"id"`
		CreatedAt sql.NullTime `db:"created_at"`
	}{}
	err := sqlx.GetContext(ctx, q, &row, `
		INSERT INTO orders (user_id, pharmacy_id, total_amount, delivery_mode, pickup_code, status, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		o.UserID, o.PharmacyID, o.TotalAmount, o.DeliveryMode, o.PickupCode, o.Status, o.PaymentStatus)
	if err != nil {
		return mapError(err)
	}
	o.ID = row.ID
	o.CreatedAt = row.CreatedAt.Time
	o.UpdatedAt = o.CreatedAt
	for i := range o.Items {
		it := &o.Items[i]
		it.OrderID = o.ID
		err := sqlx.GetContext(ctx, q, &it.ID, `
			INSERT INTO order_items (order_id, drug_id, quantity, price, backordered)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`, it.OrderID, it.DrugID, it.Quantity, it.Price, it.Backordered)
		if err != nil {
			return mapError(err)
		}
	}
	return nil
}

func (r *pgOrders) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

func (r *pgOrders) GetByPickupCode(ctx context.Context, code string) (*domain.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE pickup_code = $1`, code)
}

func (r *pgOrders) getOne(ctx context.Context, query string, arg any) (*domain.Order, error) {
	var o domain.Order
	if err := sqlx.GetContext(ctx, r.p.conn(ctx), &o, query, arg); err != nil {
		return nil, mapError(err)
	}
	orders := []domain.Order{o}
	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *pgOrders) UpdateStatus(ctx context.Context, o *domain.Order) error {
	var updated sql.NullTime
	err := sqlx.GetContext(ctx, r.p.conn(ctx), &updated, `
		UPDATE orders SET status = $1, payment_status = $2, completed_at = $3, updated_at = now()
		WHERE id = $4
		RETURNING updated_at`, o.Status, o.PaymentStatus, o.CompletedAt, o.ID)
	if err != nil {
		return mapError(err)
	}
	o.UpdatedAt = updated.Time
	return nil
}

func (r *pgOrders) ListByUser(ctx context.Context, userID int64, limit int) ([]domain.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY id DESC LIMIT $2`, userID, limit)
}

func (r *pgOrders) ListByPharmacy(ctx context.Context, pharmacyID int64, status domain.OrderStatus, limit int) ([]domain.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE pharmacy_id = $1 AND ($3::text = '' OR status = $3::text)
		ORDER BY id DESC LIMIT $2`, pharmacyID, limit, string(status))
}

func (r *pgOrders) PharmacyStats(ctx context.Context, pharmacyID int64) (*domain.PharmacyStats, error) {
	st := domain.PharmacyStats{PharmacyID: pharmacyID}
	err := sqlx.GetContext(ctx, r.p.conn(ctx), &st, `
		SELECT $1::bigint AS pharmacy_id,
		       COUNT(*) AS total,
		       COUNT(*) FILTER (WHERE status = 'pending') AS pending,
		       COUNT(*) FILTER (WHERE status = 'confirmed') AS confirmed,
		       COUNT(*) FILTER (WHERE status = 'ready') AS ready,
		       COUNT(*) FILTER (WHERE status = 'completed') AS completed,
		       COUNT(*) FILTER (WHERE status = 'cancelled') AS cancelled,
		       COALESCE(SUM(total_amount) FILTER (WHERE status = 'completed'), 0) AS revenue
		FROM orders WHERE pharmacy_id = $1`, pharmacyID)
	if err != nil {
		return nil, mapError(err)
	}
	return &st, nil
}

// list: первый аргумент владелец, второй limit (0 значит без ограничения)
func (r *pgOrders) list(ctx context.Context, query string, owner int64, limit int, extra ...any) ([]domain.Order, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}
	args := append([]any{owner, lim}, extra...)
	orders := make([]domain.Order, 0)
	if err := sqlx.SelectContext(ctx, r.p.conn(ctx), &orders, query, args...); err != nil {
		return nil, mapError(err)
	}
	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// loadItems одним запросом подтягивает позиции для набора заказов
func (r *pgOrders) loadItems(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, len(orders))
	byID := make(map[int64]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = i
		orders[i].Items = make([]domain.OrderItem, 0)
	}
	items := make([]domain.OrderItem, 0)
	err := sqlx.SelectContext(ctx, r.p.conn(ctx), &items, `
		SELECT id, order_id, drug_id, quantity, price, backordered FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY id`, pq.Array(ids))
	if err != nil {
		return mapError(err)
	}
	for _, it := range items {
		i := byID[it.OrderID]
		orders[i].Items = append(orders[i].Items, it)
	}
	return nil
}

func expectRows(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// syncSequence двигает BIGSERIAL после вставки с явным id
func syncSequence(ctx context.Context, q sqlx.ExtContext, table string) error {
	_, err := q.ExecContext(ctx, fmt.Sprintf(
		`SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), GREATEST((SELECT MAX(id) FROM %[1]s), 1))`, table))
	return mapError(err)
}
