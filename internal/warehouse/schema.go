// Package warehouse owns the star schema and the demo data seed for the
// sales warehouse: one secondary-sales fact table surrounded by the date,
// product, geography, customer, and channel dimensions.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaDDL creates the star schema. Every statement is idempotent so the
// schema can be re-applied on startup.
var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS dim_date (
		date_key        INTEGER PRIMARY KEY,
		date            DATE NOT NULL,
		year            INTEGER NOT NULL,
		quarter         INTEGER NOT NULL,
		month           INTEGER NOT NULL,
		month_name      VARCHAR NOT NULL,
		week            INTEGER NOT NULL,
		day             INTEGER NOT NULL,
		day_name        VARCHAR NOT NULL,
		is_weekend      BOOLEAN NOT NULL,
		fiscal_year     INTEGER NOT NULL,
		fiscal_quarter  INTEGER NOT NULL,
		fiscal_month    INTEGER NOT NULL,
		fiscal_week     INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS dim_product (
		product_key      INTEGER PRIMARY KEY,
		sku_code         VARCHAR NOT NULL,
		sku_name         VARCHAR NOT NULL,
		brand_name       VARCHAR NOT NULL,
		category_name    VARCHAR NOT NULL,
		subcategory_name VARCHAR NOT NULL,
		pack_size        VARCHAR NOT NULL,
		mrp              DOUBLE NOT NULL,
		product_status   VARCHAR NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS dim_geography (
		geography_key INTEGER PRIMARY KEY,
		outlet_code   VARCHAR NOT NULL,
		outlet_name   VARCHAR NOT NULL,
		town_name     VARCHAR NOT NULL,
		district_name VARCHAR NOT NULL,
		state_name    VARCHAR NOT NULL,
		zone_name     VARCHAR NOT NULL,
		region_name   VARCHAR NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS dim_customer (
		customer_key     INTEGER PRIMARY KEY,
		distributor_name VARCHAR NOT NULL,
		retailer_name    VARCHAR,
		outlet_type      VARCHAR NOT NULL,
		customer_segment VARCHAR NOT NULL,
		customer_status  VARCHAR NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS dim_channel (
		channel_key  INTEGER PRIMARY KEY,
		channel_code VARCHAR NOT NULL,
		channel_name VARCHAR NOT NULL,
		channel_type VARCHAR NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS fact_secondary_sales (
		sales_key        INTEGER PRIMARY KEY,
		date_key         INTEGER NOT NULL,
		product_key      INTEGER NOT NULL,
		geography_key    INTEGER NOT NULL,
		customer_key     INTEGER NOT NULL,
		channel_key      INTEGER NOT NULL,
		invoice_number   VARCHAR NOT NULL,
		invoice_quantity INTEGER NOT NULL,
		invoice_value    DOUBLE NOT NULL,
		discount_amount  DOUBLE NOT NULL,
		tax_amount       DOUBLE NOT NULL,
		net_value        DOUBLE NOT NULL,
		margin_amount    DOUBLE NOT NULL,
		return_flag      BOOLEAN NOT NULL
	)`,
}

// EnsureSchema applies the star-schema DDL.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaDDL {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
