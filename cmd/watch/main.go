// Package main starts the live session watcher process lifecycle.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	watchcmd "github.com/huverse/AstraLinks-sub001/internal/cmd/watch"
)

func main() {
	cfg, err := watchcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[WATCH] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := watchcmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to watch: %v", err)
	}
}
