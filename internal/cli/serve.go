package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"crmgate/internal/api"
	"crmgate/internal/postgrest"
	"crmgate/internal/reference"
)

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the HTTP planner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg := a.cfg
			// 1. Ключи: БД, справочники, конфиг
			keys, issues, err := buildKeys(ctx, cfg)
			if err != nil {
				return err
			}
			if len(issues) > 0 {
				return issuesError(issues)
			}

			// 2. Сервер
			gin.SetMode(cfg.Server.Mode)
			srv := api.NewServer(api.NewRegistry(keys), cfg.PostgREST.URL, providerOptions(cfg)...)
			srv.Reload = func(ctx context.Context) (postgrest.PrimaryKeyMap, []reference.KeyIssue, error) {
				return buildKeys(ctx, cfg)
			}

			// 3. Слушаем до сигнала
			addr := ":" + cfg.Server.Port
			log.Info().
				Str("addr", addr).
				Str("postgrest", cfg.PostgREST.URL).
				Int("resources", len(keys)).
				Msg("starting crmgate")
			if err := api.RunServer(ctx, addr, api.NewRouter(srv)); err != nil {
				return err
			}
			log.Info().Msg("crmgate stopped")
			return nil
		},
	}
	f := cmd.Flags()
	f.String("port", "", "HTTP port")
	f.String("postgrest-url", "", "PostgREST base URL")
	f.String("schema", "", "default PostgREST schema (Accept-Profile/Content-Profile)")
	f.String("keys-dir", "", "directory with YAML primary-key catalogs")
	f.String("db-url", "", "Postgres URL for primary-key introspection")
	f.String("nulls", "", "nulls policy: first|last|asc,desc...")
	f.String("default-op", "", "operator for filter keys without @")
	return cmd
}
