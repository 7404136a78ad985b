package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"distfs/internal/client"
	"distfs/internal/config"
	"distfs/internal/console"
	"distfs/internal/logging"
)

func main() {
	group := flag.String("g", "", "multicast group address (required)")
	port := flag.Int("p", 0, "command port (required)")
	out := flag.String("o", "", "output folder for FETCH (required)")
	timeout := flag.Int("t", 5, "timeout in seconds, 1..300")
	flag.Parse()

	if *group == "" || *port == 0 || *out == "" {
		fmt.Println("usage: client -g <multicast-group> -p <port> -o <output-folder> [-t <timeout-seconds>]")
		os.Exit(1)
	}

	log := logging.NewDefault()

	cfg := config.ClientConfig{
		MulticastGroup: *group,
		CommandPort:    *port,
		OutputFolder:   *out,
		Timeout:        time.Duration(*timeout) * time.Second,
	}

	sess, err := client.New(cfg, log)
	if err != nil {
		log.Fatal("startup failed: %v", err)
	}
	defer sess.Close()

	console.Run(os.Stdin, sess, cfg)
}
