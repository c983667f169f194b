package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"depthseeker/internal/app"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to the YAML scene config (empty runs the built-in scene)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, app.Config{ConfigPath: configPath}); err != nil {
		log.Fatalf("%v", err)
	}
}
