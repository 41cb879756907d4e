package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"crmgate/internal/config"
	"crmgate/internal/dataprovider"
	"crmgate/internal/pg"
	"crmgate/internal/postgrest"
	"crmgate/internal/reference"
)

// buildKeys собирает карту ключей: интроспекция < YAML-справочники < primary_keys из конфига.
// Проблемы линтера возвращаются отдельно: карту с ними не отдаём.
func buildKeys(ctx context.Context, cfg *config.Config) (postgrest.PrimaryKeyMap, []reference.KeyIssue, error) {
	// 1) интроспекция
	base := postgrest.PrimaryKeyMap{}
	if cfg.DB.URL != "" {
		keys, err := pg.LoadPrimaryKeysURL(ctx, cfg.DB.URL, cfg.IntrospectSchema())
		if err != nil {
			return nil, nil, fmt.Errorf("introspect primary keys: %w", err)
		}
		log.Debug().Int("resources", len(keys)).Str("schema", cfg.IntrospectSchema()).Msg("primary keys introspected")
		base = keys
	}

	// 2) справочники
	var catalogs []reference.KeyCatalog
	if cfg.KeysDir != "" {
		cats, err := reference.LoadKeyCatalogs(cfg.KeysDir)
		if err != nil {
			return nil, nil, fmt.Errorf("load key catalogs: %w", err)
		}
		if issues := reference.Lint(cats); len(issues) > 0 {
			return nil, issues, nil
		}
		catalogs = cats
	}
	keys := reference.Merge(base, catalogs...)

	// 3) конфиг
	for name, pk := range cfg.InlineKeys() {
		keys[name] = pk
	}
	return keys, nil, nil
}

func providerOptions(cfg *config.Config) []dataprovider.Option {
	return []dataprovider.Option{
		dataprovider.WithSchema(cfg.PostgREST.Schema),
		dataprovider.WithDefaultListOp(cfg.DefaultListOp()),
		dataprovider.WithNullsPolicy(cfg.NullsPolicy()),
	}
}

func issuesError(issues []reference.KeyIssue) error {
	for _, it := range issues {
		log.Warn().Str("catalog", it.Catalog).Str("resource", it.Resource).Str("code", it.Code).Msg(it.Message)
	}
	return fmt.Errorf("key catalogs have %d blocking issue(s)", len(issues))
}
