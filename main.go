package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/vslavik/bakefile/cli"
	"github.com/vslavik/bakefile/log"
)

func main() {
	err := cli.Run(context.Background(), os.Exit, os.Args[1:]...)
	if err != nil {
		log.Error(
			"error",
			slog.Any("error", err),
		) // slog automatically uses LogValue()
		os.Exit(1)
	}
}
