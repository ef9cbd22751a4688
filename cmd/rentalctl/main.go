package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"carrental/internal/app"
	"carrental/internal/config"
	"carrental/internal/session"
	"carrental/libs/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.NewLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	nav := session.NavigatorFunc(func(_ context.Context, route string) error {
		_, err := fmt.Fprintf(os.Stderr, "session expired, run `rentalctl login` again (web route %s)\n", route)
		return err
	})

	application, err := app.New(ctx, cfg, logger, app.Deps{Navigator: nav})
	if err != nil {
		logger.Fatal("failed to init client", zap.Error(err))
	}
	defer application.Close()

	cli := &cli{app: application, out: os.Stdout}
	if err := cli.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		if errors.Is(err, errUsage) {
			usage(os.Stderr)
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		application.Close()
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprint(w, `usage: rentalctl <command> [flags]

commands:
  login            -email -password
  logout
  cars             [-category] [-min-price] [-max-price] [-transmission] [-available] [-sort] [-q]
  car              <id>
  quote            -start -end -price
  availability     <car-id> -start -end
  book             <car-id> -start -end -name -email -phone -agree
  bookings         [-status] [-user]
  booking-status   <id> <pending|confirmed|cancelled|completed>
  payment-status   <id> <pending|paid|refunded>
  update-car       <id> [-title] [-price] [-seats] [-year] [-category] [-available]
  delete-car       <id>
  stats
`)
}
