package cli

import (
	"context"

	"github.com/spf13/cobra"

	"crmgate/internal/config"
	"crmgate/internal/logger"
)

// app: общее состояние команд одного запуска.
type app struct {
	configPath string
	cfg        *config.Config
}

// NewRootCmd собирает дерево команд.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "crmgate",
		Short: "PostgREST query planner for admin data providers",
		// конфиг и логгер готовим до любой подкоманды
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configPath, cmd.Flags())
			if err != nil {
				return err
			}
			if err := logger.Init(cfg.Log); err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to config file (yaml/json)")
	root.PersistentFlags().String("log-level", "", "log level: trace|debug|info|warn|error")
	root.PersistentFlags().String("log-format", "", "log format: console|json")

	root.AddCommand(a.serveCmd(), a.compileCmd(), a.idCmd())
	return root
}

// Execute запускает CLI.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}
