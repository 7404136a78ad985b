package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"distfs/internal/config"
	"distfs/internal/logging"
	"distfs/internal/server"
)

func main() {
	group := flag.String("g", "", "multicast group address (required)")
	port := flag.Int("p", 0, "command port (required)")
	maxSpace := flag.Uint64("b", config.DefaultMaxSpace, "max space to serve, in bytes")
	folder := flag.String("f", "", "shared folder (required)")
	timeout := flag.Int("t", 5, "timeout in seconds, 1..300")
	flag.Parse()

	if *group == "" || *port == 0 || *folder == "" {
		fmt.Println("usage: server -g <multicast-group> -p <port> -f <shared-folder> [-b <max-bytes>] [-t <timeout-seconds>]")
		os.Exit(1)
	}

	log := logging.NewDefault()

	cfg := config.ServerConfig{
		MulticastGroup: *group,
		CommandPort:    *port,
		MaxSpace:       *maxSpace,
		SharedFolder:   *folder,
		Timeout:        time.Duration(*timeout) * time.Second,
	}

	srv, err := server.New(cfg, log)
	if err != nil {
		log.Fatal("startup failed: %v", err)
	}
	defer srv.Close()

	log.Info("serving %s, listening on %s:%d", cfg.SharedFolder, cfg.MulticastGroup, cfg.CommandPort)
	if err := srv.Run(); err != nil {
		log.Fatal("server stopped: %v", err)
	}
}
