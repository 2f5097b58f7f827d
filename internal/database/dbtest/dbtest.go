// Package dbtest starts a disposable PostgreSQL for integration tests.
package dbtest

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"kartcore/internal/database"
	"kartcore/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// Setup creates a PostgreSQL container with the application schema applied.
// It skips the test in -short mode.
func Setup(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	opts := database.DefaultPoolOptions()
	opts.MaxConns = 20
	pool, err := database.Open(ctx, connStr, opts)
	if err != nil {
		t.Fatalf("failed to open pool: %v", err)
	}

	if err := database.Migrate(ctx, pool); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: container,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// Truncate empties every application table.
func (db *TestDB) Truncate(t *testing.T) {
	t.Helper()

	_, err := db.Pool.Exec(context.Background(), `
		TRUNCATE outbox, order_items, orders, cart_items, coupons, wallets, addresses, products
		RESTART IDENTITY CASCADE
	`)
	if err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}
}

// SeedProducts inserts products with their stock and reserved counters.
func (db *TestDB) SeedProducts(t *testing.T, products ...model.Product) {
	t.Helper()

	for _, p := range products {
		category := p.Category
		if category == "" {
			category = "General"
		}
		_, err := db.Pool.Exec(context.Background(),
			`INSERT INTO products (id, name, price, category, stock, reserved) VALUES ($1, $2, $3, $4, $5, $6)`,
			p.ID, p.Name, p.Price, category, p.Stock, p.Reserved,
		)
		if err != nil {
			t.Fatalf("failed to seed product %s: %v", p.ID, err)
		}
	}
}

// SeedAddress registers an address for a user.
func (db *TestDB) SeedAddress(t *testing.T, id, userID string) {
	t.Helper()

	_, err := db.Pool.Exec(context.Background(),
		`INSERT INTO addresses (id, user_id, line1, city, postal_code, country) VALUES ($1, $2, '1 Main St', 'Pune', '411001', 'IN')`,
		id, userID,
	)
	if err != nil {
		t.Fatalf("failed to seed address %s: %v", id, err)
	}
}

// SeedWallet sets a user's wallet balance.
func (db *TestDB) SeedWallet(t *testing.T, userID string, balance int64) {
	t.Helper()

	_, err := db.Pool.Exec(context.Background(),
		`INSERT INTO wallets (user_id, balance) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET balance = EXCLUDED.balance`,
		userID, balance,
	)
	if err != nil {
		t.Fatalf("failed to seed wallet for %s: %v", userID, err)
	}
}

// SeedCoupon inserts a coupon including its usage history.
func (db *TestDB) SeedCoupon(t *testing.T, c model.Coupon) {
	t.Helper()

	usedBy := c.UsedBy
	if usedBy == nil {
		usedBy = []string{}
	}
	_, err := db.Pool.Exec(context.Background(), `
		INSERT INTO coupons (code, discount_type, discount_value, min_cart_value, max_discount,
			valid_from, valid_to, usage_limit, used_by, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.Code, c.DiscountType, c.DiscountValue, c.MinCartValue, c.MaxDiscount,
		c.ValidFrom, c.ValidTo, c.UsageLimit, usedBy, c.Active,
	)
	if err != nil {
		t.Fatalf("failed to seed coupon %s: %v", c.Code, err)
	}
}

// SeedCartItem adds a cart line for a user.
func (db *TestDB) SeedCartItem(t *testing.T, userID, productID string, quantity int, attrs model.Attributes) {
	t.Helper()

	if attrs == nil {
		attrs = model.Attributes{}
	}
	raw, err := json.Marshal(attrs)
	if err != nil {
		t.Fatalf("failed to encode attributes: %v", err)
	}
	_, err = db.Pool.Exec(context.Background(),
		`INSERT INTO cart_items (user_id, product_id, quantity, attributes) VALUES ($1, $2, $3, $4)`,
		userID, productID, quantity, raw,
	)
	if err != nil {
		t.Fatalf("failed to seed cart item: %v", err)
	}
}

// Counters returns stock and reserved for a product.
func (db *TestDB) Counters(t *testing.T, productID string) (stock, reserved int) {
	t.Helper()

	err := db.Pool.QueryRow(context.Background(),
		`SELECT stock, reserved FROM products WHERE id = $1`, productID,
	).Scan(&stock, &reserved)
	if err != nil {
		t.Fatalf("failed to read counters for %s: %v", productID, err)
	}
	return stock, reserved
}

// WalletBalance returns a user's wallet balance.
func (db *TestDB) WalletBalance(t *testing.T, userID string) int64 {
	t.Helper()

	var balance int64
	err := db.Pool.QueryRow(context.Background(),
		`SELECT balance FROM wallets WHERE user_id = $1`, userID,
	).Scan(&balance)
	if err != nil {
		t.Fatalf("failed to read wallet for %s: %v", userID, err)
	}
	return balance
}

// Count runs a SELECT count(*) style query and returns the result.
func (db *TestDB) Count(t *testing.T, query string, args ...any) int {
	t.Helper()

	var n int
	if err := db.Pool.QueryRow(context.Background(), query, args...).Scan(&n); err != nil {
		t.Fatalf("failed to count: %v", err)
	}
	return n
}
