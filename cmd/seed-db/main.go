// Command seed-db loads the catalog, vouchers, and a default API key into
// PostgreSQL for local development and integration testing.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/kukusoko/checkout-engine/internal/repository"
)

type discountJSON struct {
	Type     string          `json:"type"`
	Amount   decimal.Decimal `json:"amount"`
	StartsAt time.Time       `json:"startsAt"`
	EndsAt   time.Time       `json:"endsAt"`
	Active   bool            `json:"active"`
}

type productJSON struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	SellerID    string          `json:"sellerId"`
	ProductType string          `json:"productType"`
	IsActive    bool            `json:"isActive"`
	Discount    *discountJSON   `json:"discount,omitempty"`
}

const (
	upsertProductSQL = `INSERT INTO products (id, name, price, stock, seller_id, product_type, is_active,
		discount_type, discount_amount, discount_starts_at, discount_ends_at, discount_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, price = EXCLUDED.price, stock = EXCLUDED.stock,
			seller_id = EXCLUDED.seller_id, product_type = EXCLUDED.product_type,
			is_active = EXCLUDED.is_active, discount_type = EXCLUDED.discount_type,
			discount_amount = EXCLUDED.discount_amount,
			discount_starts_at = EXCLUDED.discount_starts_at,
			discount_ends_at = EXCLUDED.discount_ends_at,
			discount_active = EXCLUDED.discount_active`

	upsertVoucherSQL = `INSERT INTO vouchers (code, discount_type, value, min_order_amount, seller_id,
		product_types, expires_at, max_uses, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (code) DO UPDATE SET
			discount_type = EXCLUDED.discount_type, value = EXCLUDED.value,
			min_order_amount = EXCLUDED.min_order_amount, seller_id = EXCLUDED.seller_id,
			product_types = EXCLUDED.product_types, expires_at = EXCLUDED.expires_at,
			max_uses = EXCLUDED.max_uses, active = EXCLUDED.active`

	upsertDeliveryVoucherSQL = `INSERT INTO delivery_vouchers (code, discount_type, value, min_order_amount,
		expires_at, max_uses, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (code) DO UPDATE SET
			discount_type = EXCLUDED.discount_type, value = EXCLUDED.value,
			min_order_amount = EXCLUDED.min_order_amount, expires_at = EXCLUDED.expires_at,
			max_uses = EXCLUDED.max_uses, active = EXCLUDED.active`

	upsertAPIKeySQL = `INSERT INTO api_keys (id, key_hash, name, scopes, active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			key_hash = EXCLUDED.key_hash, name = EXCLUDED.name,
			scopes = EXCLUDED.scopes, active = EXCLUDED.active`
)

func main() {
	var (
		databaseURL  string
		productsFile string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or SOKO_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or SOKO_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("SOKO_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or SOKO_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("SOKO_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedVouchers(ctx, pool); err != nil {
		return errors.Wrap(err, "seed vouchers")
	}
	if err := seedAPIKey(ctx, pool, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}
	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		var (
			discountType     *string
			discountAmount   *decimal.Decimal
			discountStartsAt *time.Time
			discountEndsAt   *time.Time
			discountActive   bool
		)
		if d := p.Discount; d != nil {
			discountType = &d.Type
			discountAmount = &d.Amount
			discountStartsAt = &d.StartsAt
			discountEndsAt = &d.EndsAt
			discountActive = d.Active
		}

		_, err := pool.Exec(ctx, upsertProductSQL,
			p.ID, p.Name, p.Price, p.Stock, p.SellerID, p.ProductType, p.IsActive,
			discountType, discountAmount, discountStartsAt, discountEndsAt, discountActive,
		)
		if err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}
	return nil
}

func seedVouchers(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding vouchers")

	expiry := time.Now().AddDate(1, 0, 0)

	vouchers := []struct {
		code         string
		discountType string
		value        decimal.Decimal
		minOrder     decimal.Decimal
		sellerID     string
		productTypes []string
		maxUses      int
	}{
		{"KUKU10", "PERCENTAGE", decimal.NewFromInt(10), decimal.Zero, "", nil, 0},
		{"KAR100", "FIXED_AMOUNT", decimal.NewFromInt(100), decimal.NewFromInt(1000), "", nil, 500},
		{"EGGS5", "PERCENTAGE", decimal.NewFromInt(5), decimal.Zero, "", []string{"eggs"}, 0},
	}
	for _, v := range vouchers {
		_, err := pool.Exec(ctx, upsertVoucherSQL,
			v.code, v.discountType, v.value, v.minOrder, v.sellerID,
			v.productTypes, expiry, v.maxUses, true,
		)
		if err != nil {
			return errors.Wrapf(err, "upsert voucher %s", v.code)
		}
		slog.Info("upserted voucher", slog.String("code", v.code))
	}

	deliveryVouchers := []struct {
		code         string
		discountType string
		value        decimal.Decimal
		minOrder     decimal.Decimal
		maxUses      int
	}{
		{"FREESHIP", "FREE_SHIPPING", decimal.Zero, decimal.NewFromInt(2000), 200},
		{"SHIP50", "FIXED_AMOUNT", decimal.NewFromInt(50), decimal.NewFromInt(500), 0},
	}
	for _, v := range deliveryVouchers {
		_, err := pool.Exec(ctx, upsertDeliveryVoucherSQL,
			v.code, v.discountType, v.value, v.minOrder, expiry, v.maxUses, true,
		)
		if err != nil {
			return errors.Wrapf(err, "upsert delivery voucher %s", v.code)
		}
		slog.Info("upserted delivery voucher", slog.String("code", v.code))
	}
	return nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	slog.Info("seeding default API key")

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	_, err := pool.Exec(ctx, upsertAPIKeySQL,
		"default", keyHash, "Default test key", []string{"create_order"}, true,
	)
	if err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted API key", slog.String("id", "default"))
	return nil
}
