package migrations

import "embed"

// PostgresFS holds the market-table migrations, applied in filename order.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS holds the price-point table migrations.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
