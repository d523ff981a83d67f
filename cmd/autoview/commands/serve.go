package commands

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/jinford/autoview/internal/interface/api"
)

// ServeAction はHTTPサーバを起動するコマンドのアクション
func ServeAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	appCtx.Tasks.Start(ctx)
	defer appCtx.Tasks.Stop()

	server := api.NewServer(appCtx.Tasks, appCtx.Logger, api.Config{
		Addr:        appCtx.Config.HTTP.Addr,
		CORSOrigins: appCtx.Config.HTTP.CORSOrigins,
	})

	return server.Run(ctx)
}
