// Package main is the entry point for the midi2gcode API server
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/james-see/midi2gcode/pkg/api"
)

func main() {
	port := flag.Int("port", 8080, "Server port")
	debug := flag.Bool("debug", false, "Debug logging")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "midi2gcode-api", ReportTimestamp: true})
	if *debug {
		logger.SetLevel(log.DebugLevel)
	}

	fmt.Printf("Starting midi2gcode API server on port %d...\n", *port)
	fmt.Printf("Swagger docs available at http://localhost:%d/swagger/index.html\n", *port)

	if err := api.StartServer(*port, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
