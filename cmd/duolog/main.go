package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cschmidt0121/TA-DUOSecurity2FA/cmd/duolog/commands"
	"github.com/cschmidt0121/TA-DUOSecurity2FA/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.InitFromEnv()
	if err := commands.NewRootCmd().ExecuteContext(ctx); err != nil {
		logging.L().Error("duolog", "err", err)
		stop()
		os.Exit(1)
	}
}
