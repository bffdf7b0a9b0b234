package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

// Seed parameters. Small on purpose: the demo warehouse exists to make the
// compiled SQL answerable, not to benchmark anything.
const (
	seedDays      = 400
	seedFactRows  = 5000
	seedRandomKey = 20240401
)

var seedBrands = []struct {
	brand, category, subcategory string
}{
	{"Brand-A", "Beverages", "Soft Drinks"},
	{"Brand-B", "Beverages", "Soft Drinks"},
	{"Brand-C", "Beverages", "Juices"},
	{"Brand-D", "Snacks", "Chips"},
	{"Brand-E", "Snacks", "Chips"},
	{"Brand-F", "Snacks", "Biscuits"},
	{"Brand-G", "Dairy", "Milk Products"},
	{"Brand-H", "Dairy", "Yogurt"},
}

var seedPackSizes = []string{"200ml", "500ml", "1L", "100gm", "250gm", "500gm"}

var seedZones = []struct {
	zone   string
	states []string
}{
	{"North", []string{"Delhi", "Punjab", "Uttar Pradesh"}},
	{"South", []string{"Tamil Nadu", "Karnataka", "Kerala"}},
	{"East", []string{"West Bengal", "Bihar"}},
	{"West", []string{"Maharashtra", "Gujarat"}},
}

var seedChannels = []struct {
	code, name, kind string
}{
	{"GT", "General Trade", "Indirect"},
	{"MT", "Modern Trade", "Direct"},
	{"ECOM", "E-Commerce", "Direct"},
	{"IWS", "Institutional Sales", "Direct"},
	{"PHARM", "Pharmacy", "Indirect"},
}

var seedOutletTypes = []string{"Kirana", "Supermarket", "Hypermarket", "Medical Store", "Restaurant"}
var seedSegments = []string{"Premium", "Standard", "Budget"}

// Seed populates the demo warehouse with deterministic sample data anchored
// to now. Idempotent: a warehouse that already holds sales facts is left
// untouched.
func Seed(ctx context.Context, db *sql.DB, now time.Time, logger *slog.Logger) error {
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM fact_secondary_sales").Scan(&count); err != nil {
		return fmt.Errorf("check existing facts: %w", err)
	}
	if count > 0 {
		if logger != nil {
			logger.Info("warehouse already seeded", "fact_rows", count)
		}
		return nil
	}

	rng := rand.New(rand.NewSource(seedRandomKey))

	dateKeys, err := seedDates(ctx, db, now)
	if err != nil {
		return err
	}
	productKeys, err := seedProducts(ctx, db, rng)
	if err != nil {
		return err
	}
	geoKeys, err := seedGeography(ctx, db)
	if err != nil {
		return err
	}
	customerKeys, err := seedCustomers(ctx, db, rng)
	if err != nil {
		return err
	}
	if err := seedChannelDim(ctx, db); err != nil {
		return err
	}
	if err := seedFacts(ctx, db, rng, dateKeys, productKeys, geoKeys, customerKeys); err != nil {
		return err
	}

	if logger != nil {
		logger.Info("warehouse seeded",
			"days", len(dateKeys), "products", len(productKeys), "fact_rows", seedFactRows)
	}
	return nil
}

func seedDates(ctx context.Context, db *sql.DB, now time.Time) ([]int, error) {
	stmt, err := db.PrepareContext(ctx, `INSERT INTO dim_date VALUES
		(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare dim_date insert: %w", err)
	}
	defer stmt.Close()

	start := now.AddDate(0, 0, -seedDays+1)
	keys := make([]int, 0, seedDays)
	for i := 0; i < seedDays; i++ {
		d := start.AddDate(0, 0, i)
		key := d.Year()*10000 + int(d.Month())*100 + d.Day()
		_, isoWeek := d.ISOWeek()
		fiscalYear := d.Year()
		if d.Month() < time.April {
			fiscalYear--
		}
		fiscalMonth := (int(d.Month())-4+12)%12 + 1
		fiscalQuarter := (fiscalMonth-1)/3 + 1
		fiscalWeek := (d.YearDay()-1)/7 + 1

		if _, err := stmt.ExecContext(ctx,
			key, d.Format("2006-01-02"), d.Year(), (int(d.Month())-1)/3+1,
			int(d.Month()), d.Month().String(), isoWeek, d.Day(),
			d.Weekday().String(), d.Weekday() == time.Saturday || d.Weekday() == time.Sunday,
			fiscalYear, fiscalQuarter, fiscalMonth, fiscalWeek,
		); err != nil {
			return nil, fmt.Errorf("insert dim_date: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func seedProducts(ctx context.Context, db *sql.DB, rng *rand.Rand) ([]int, error) {
	stmt, err := db.PrepareContext(ctx, `INSERT INTO dim_product VALUES
		(?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare dim_product insert: %w", err)
	}
	defer stmt.Close()

	var keys []int
	key := 1
	for _, b := range seedBrands {
		for sku := 1; sku <= 6; sku++ {
			pack := seedPackSizes[rng.Intn(len(seedPackSizes))]
			status := "Active"
			if rng.Float64() < 0.1 {
				status = "Discontinued"
			}
			if _, err := stmt.ExecContext(ctx,
				key,
				fmt.Sprintf("%s-SKU%03d", b.brand, sku),
				fmt.Sprintf("%s %s %s", b.brand, b.subcategory, pack),
				b.brand, b.category, b.subcategory, pack,
				10+rng.Float64()*490, status,
			); err != nil {
				return nil, fmt.Errorf("insert dim_product: %w", err)
			}
			keys = append(keys, key)
			key++
		}
	}
	return keys, nil
}

func seedGeography(ctx context.Context, db *sql.DB) ([]int, error) {
	stmt, err := db.PrepareContext(ctx, `INSERT INTO dim_geography VALUES
		(?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare dim_geography insert: %w", err)
	}
	defer stmt.Close()

	var keys []int
	key := 1
	for _, z := range seedZones {
		for _, state := range z.states {
			for outlet := 1; outlet <= 4; outlet++ {
				code := fmt.Sprintf("%s-O%03d", state[:2], outlet)
				if _, err := stmt.ExecContext(ctx,
					key, code, "Outlet "+code,
					state+" Town-1", state+" District-1",
					state, z.zone, z.zone,
				); err != nil {
					return nil, fmt.Errorf("insert dim_geography: %w", err)
				}
				keys = append(keys, key)
				key++
			}
		}
	}
	return keys, nil
}

func seedCustomers(ctx context.Context, db *sql.DB, rng *rand.Rand) ([]int, error) {
	stmt, err := db.PrepareContext(ctx, `INSERT INTO dim_customer VALUES
		(?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare dim_customer insert: %w", err)
	}
	defer stmt.Close()

	var keys []int
	for key := 1; key <= 40; key++ {
		status := "Active"
		if rng.Float64() < 0.1 {
			status = "Inactive"
		}
		if _, err := stmt.ExecContext(ctx,
			key,
			fmt.Sprintf("Distributor %d", (key-1)/4+1),
			fmt.Sprintf("Retailer %d", key),
			seedOutletTypes[rng.Intn(len(seedOutletTypes))],
			seedSegments[rng.Intn(len(seedSegments))],
			status,
		); err != nil {
			return nil, fmt.Errorf("insert dim_customer: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func seedChannelDim(ctx context.Context, db *sql.DB) error {
	stmt, err := db.PrepareContext(ctx, `INSERT INTO dim_channel VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare dim_channel insert: %w", err)
	}
	defer stmt.Close()

	for i, ch := range seedChannels {
		if _, err := stmt.ExecContext(ctx, i+1, ch.code, ch.name, ch.kind); err != nil {
			return fmt.Errorf("insert dim_channel: %w", err)
		}
	}
	return nil
}

func seedFacts(ctx context.Context, db *sql.DB, rng *rand.Rand, dateKeys, productKeys, geoKeys, customerKeys []int) error {
	stmt, err := db.PrepareContext(ctx, `INSERT INTO fact_secondary_sales VALUES
		(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare fact insert: %w", err)
	}
	defer stmt.Close()

	for i := 1; i <= seedFactRows; i++ {
		quantity := 1 + rng.Intn(100)
		basePrice := 50 + rng.Float64()*450
		invoiceValue := basePrice * float64(quantity)
		discount := invoiceValue * rng.Float64() * 0.25
		tax := (invoiceValue - discount) * 0.18
		netValue := invoiceValue - discount + tax
		margin := netValue * (0.10 + rng.Float64()*0.25)

		if _, err := stmt.ExecContext(ctx,
			i,
			dateKeys[rng.Intn(len(dateKeys))],
			productKeys[rng.Intn(len(productKeys))],
			geoKeys[rng.Intn(len(geoKeys))],
			customerKeys[rng.Intn(len(customerKeys))],
			1+rng.Intn(len(seedChannels)),
			fmt.Sprintf("INV%08d", i),
			quantity, invoiceValue, discount, tax, netValue, margin,
			rng.Float64() < 0.02,
		); err != nil {
			return fmt.Errorf("insert fact_secondary_sales: %w", err)
		}
	}
	return nil
}
