// Command voucher-ingest loads bulk promo voucher dumps into PostgreSQL.
//
// Marketing campaigns distribute voucher codes through several partner
// channels, each exporting its own gzip dump of one code per line. A code is
// only honored when at least two independent channels agree on it, which
// filters out partner-side corruption and fabricated codes. The dumps are far
// too large to hold in memory, so membership is tracked with bloom filters:
// pass 1 builds one filter per dump, pass 2 re-streams each dump and keeps
// codes that probably appear in another dump as well.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/bits"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/kukusoko/checkout-engine/internal/repository"
)

const (
	bloomCapacity = 120_000_000
	bloomFPR      = 0.001
	numDumps      = 3
	progressEvery = 10_000_000
	minCodeLen    = 8
	maxCodeLen    = 10
)

// voucherRule maps a campaign code prefix to the discount it grants.
type voucherRule struct {
	discountType string
	value        decimal.Decimal
	minOrder     decimal.Decimal
}

var prefixRules = map[string]voucherRule{
	"KUKU": {discountType: "PERCENTAGE", value: decimal.NewFromInt(10), minOrder: decimal.Zero},
	"YAI":  {discountType: "PERCENTAGE", value: decimal.NewFromInt(5), minOrder: decimal.Zero},
	"BEI":  {discountType: "FIXED_AMOUNT", value: decimal.NewFromInt(100), minOrder: decimal.NewFromInt(1000)},
	"KARI": {discountType: "FIXED_AMOUNT", value: decimal.NewFromInt(250), minOrder: decimal.NewFromInt(2500)},
}

var defaultRule = voucherRule{
	discountType: "PERCENTAGE",
	value:        decimal.NewFromInt(5),
	minOrder:     decimal.Zero,
}

const upsertVoucherSQL = `INSERT INTO vouchers (code, discount_type, value, min_order_amount, active)
	VALUES ($1, $2, $3, $4, TRUE)
	ON CONFLICT (code) DO UPDATE SET
		discount_type = EXCLUDED.discount_type, value = EXCLUDED.value,
		min_order_amount = EXCLUDED.min_order_amount, active = TRUE`

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing voucherdumpN.gz files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("voucher ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("voucher ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	dumps := make([]string, numDumps)
	for i := range numDumps {
		dumps[i] = filepath.Join(dataDir, fmt.Sprintf("voucherdump%d.gz", i+1))
	}
	for _, d := range dumps {
		if _, err := os.Stat(d); err != nil {
			return errors.Wrapf(err, "check dump %s", d)
		}
	}

	slog.Info("pass 1: building bloom filters", slog.Int("dumps", numDumps))

	filters, err := buildFilters(ctx, dumps)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	slog.Info("pass 2: cross-checking dumps")

	codes, err := crossCheck(ctx, dumps, filters)
	if err != nil {
		return errors.Wrap(err, "cross-check dumps")
	}

	slog.Info("honored codes found", slog.Int("count", len(codes)))
	if len(codes) == 0 {
		slog.Info("no codes to insert")
		return nil
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	return writeVouchers(ctx, pool, codes)
}

// buildFilters streams every dump once and builds one bloom filter per dump.
func buildFilters(ctx context.Context, dumps []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(dumps))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range dumps {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
			var count uint64

			if err := streamDump(ctx, path, func(code string) {
				if len(code) >= minCodeLen && len(code) <= maxCodeLen {
					filter.AddString(code)
					count++
					if count%progressEvery == 0 {
						slog.Info("pass 1 progress", slog.Int("dump", i+1), slog.Uint64("codes", count))
					}
				}
			}); err != nil {
				return errors.Wrapf(err, "build filter for dump %d", i+1)
			}

			slog.Info("pass 1 complete", slog.Int("dump", i+1), slog.Uint64("total_codes", count))
			filters[i] = filter
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// crossCheck re-streams every dump, testing codes against the other dumps'
// filters, and keeps codes appearing in two or more dumps.
func crossCheck(ctx context.Context, dumps []string, filters []*bloom.BloomFilter) ([]string, error) {
	perDump := make([]map[string]uint, len(dumps))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range dumps {
		g.Go(func() error {
			candidates := make(map[string]uint)
			dumpBit := uint(1) << uint(i)
			var count uint64

			if err := streamDump(ctx, path, func(code string) {
				if len(code) < minCodeLen || len(code) > maxCodeLen {
					return
				}

				count++
				if count%progressEvery == 0 {
					slog.Info("pass 2 progress", slog.Int("dump", i+1), slog.Uint64("codes", count))
				}

				for j, f := range filters {
					if j == i {
						continue
					}
					if f.TestString(code) {
						candidates[code] |= dumpBit
						break
					}
				}
			}); err != nil {
				return errors.Wrapf(err, "scan dump %d", i+1)
			}

			slog.Info("pass 2 complete",
				slog.Int("dump", i+1),
				slog.Uint64("total_codes", count),
				slog.Int("candidates", len(candidates)),
			)
			perDump[i] = candidates
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]uint)
	for _, candidates := range perDump {
		for code, mask := range candidates {
			merged[code] |= mask
		}
	}

	var honored []string
	for code, mask := range merged {
		if bits.OnesCount(mask) >= 2 {
			honored = append(honored, code)
		}
	}
	return honored, nil
}

// streamDump opens a gzip dump and calls fn for each line.
func streamDump(ctx context.Context, path string, fn func(code string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}

// ruleFor picks the discount rule based on the code's campaign prefix.
func ruleFor(code string) voucherRule {
	for prefix, rule := range prefixRules {
		if strings.HasPrefix(code, prefix) {
			return rule
		}
	}
	return defaultRule
}

func writeVouchers(ctx context.Context, pool *pgxpool.Pool, codes []string) error {
	slog.Info("writing vouchers to database", slog.Int("count", len(codes)))

	for i, code := range codes {
		rule := ruleFor(code)
		_, err := pool.Exec(ctx, upsertVoucherSQL, code, rule.discountType, rule.value, rule.minOrder)
		if err != nil {
			return errors.Wrapf(err, "upsert voucher %s", code)
		}

		if (i+1)%100 == 0 || i+1 == len(codes) {
			slog.Info("write progress", slog.Int("written", i+1), slog.Int("total", len(codes)))
		}
	}
	return nil
}
