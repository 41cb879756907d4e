package pg

import (
	"context"
	"database/sql"
	"fmt"

	"crmgate/internal/postgrest"
)

// колонки первичных ключей всех таблиц схемы, в порядке объявления ключа
const primaryKeysSQL = `
select c.relname, a.attname
from pg_index i
join pg_class c on c.oid = i.indrelid
join pg_namespace n on n.oid = c.relnamespace
join pg_attribute a on a.attrelid = c.oid and a.attnum = any(i.indkey)
where i.indisprimary and n.nspname = $1
order by c.relname, array_position(i.indkey::int2[], a.attnum)`

// LoadPrimaryKeys читает из каталога Postgres первичные ключи таблиц схемы.
// Ресурсы с ключом ровно ["id"] тоже попадают в карту — так их видно в /api/meta/keys.
func LoadPrimaryKeys(ctx context.Context, db *sql.DB, schema string) (postgrest.PrimaryKeyMap, error) {
	if schema == "" {
		schema = "public"
	}
	rows, err := db.QueryContext(ctx, primaryKeysSQL, schema)
	if err != nil {
		return nil, fmt.Errorf("load primary keys: %w", err)
	}
	defer rows.Close()

	out := postgrest.PrimaryKeyMap{}
	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return nil, fmt.Errorf("load primary keys: %w", err)
		}
		out[table] = append(out[table], column)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load primary keys: %w", err)
	}
	return out, nil
}

// LoadPrimaryKeysURL: Open + LoadPrimaryKeys + Close.
func LoadPrimaryKeysURL(ctx context.Context, url, schema string) (postgrest.PrimaryKeyMap, error) {
	db, err := Open(ctx, url)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return LoadPrimaryKeys(ctx, db, schema)
}
