package migrations

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	chstore "sss-shared/internal/storage/clickhouse"
)

const clickhouseLedger = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    name       String,
    applied_at DateTime DEFAULT now()
) ENGINE = MergeTree()
ORDER BY name`

// RunClickhouseMigrations makes sure the database named in dsn exists,
// applies embedded migrations missing from schema_migrations and returns a
// connection bound to that database.
func RunClickhouseMigrations(ctx context.Context, dsn string) (*chstore.Conn, error) {
	db, err := databaseFromDSN(dsn)
	if err != nil {
		return nil, err
	}
	if err := ensureDatabase(ctx, dsn, db); err != nil {
		return nil, err
	}

	conn, err := chstore.NewConnWithDatabase(ctx, dsn, db)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse %s: %w", db, err)
	}
	if err := applyClickhouse(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// ensureDatabase creates db through a connection to the server default database.
func ensureDatabase(ctx context.Context, dsn, db string) error {
	admin, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return fmt.Errorf("connect clickhouse server: %w", err)
	}
	defer admin.Close()

	if err := admin.Exec(ctx, "CREATE DATABASE IF NOT EXISTS "+quoteIdent(db)); err != nil {
		return fmt.Errorf("create database %s: %w", db, err)
	}
	return nil
}

func applyClickhouse(ctx context.Context, conn *chstore.Conn) error {
	if err := conn.Exec(ctx, clickhouseLedger); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	migs, err := load(ClickhouseFS, "clickhouse")
	if err != nil {
		return err
	}

	for _, m := range migs {
		var seen uint64
		if err := conn.QueryRow(ctx,
			"SELECT count() FROM schema_migrations WHERE name = ?", m.name,
		).Scan(&seen); err != nil {
			return fmt.Errorf("check migration %s: %w", m.name, err)
		}
		if seen > 0 {
			continue
		}

		stmts, err := splitStatements(m.sql)
		if err != nil {
			return fmt.Errorf("parse migration %s: %w", m.name, err)
		}
		// No DDL transactions here; statements are written to be rerunnable.
		for _, stmt := range stmts {
			if err := conn.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply migration %s: %w", m.name, err)
			}
		}
		if err := conn.Exec(ctx, "INSERT INTO schema_migrations (name) VALUES (?)", m.name); err != nil {
			return fmt.Errorf("record migration %s: %w", m.name, err)
		}
	}
	return nil
}

// splitStatements cuts a script into single statements, since the native
// protocol runs one per Exec. Semicolons inside quoted literals are kept
// and whole-line comments are dropped.
func splitStatements(script string) ([]string, error) {
	var (
		out    []string
		buf    strings.Builder
		quoted bool
	)
	flush := func() {
		if s := strings.TrimSpace(buf.String()); s != "" {
			out = append(out, s)
		}
		buf.Reset()
	}

	for _, line := range strings.Split(script, "\n") {
		if !quoted && strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		for i := 0; i < len(line); i++ {
			switch c := line[i]; {
			case c == '\'' && quoted && strings.HasPrefix(line[i+1:], "'"):
				buf.WriteString("''")
				i++
			case c == '\'':
				quoted = !quoted
				buf.WriteByte(c)
			case c == ';' && !quoted:
				flush()
			default:
				buf.WriteByte(c)
			}
		}
		buf.WriteByte('\n')
	}

	if quoted {
		return nil, errors.New("unterminated string literal")
	}
	flush()
	return out, nil
}

func databaseFromDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	if db := strings.Trim(u.Path, "/"); db != "" {
		return db, nil
	}
	return "", errors.New("clickhouse dsn missing database")
}

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
