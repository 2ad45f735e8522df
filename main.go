package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tphakala/facewatch/cmd"
	"github.com/tphakala/facewatch/internal/conf"
	"github.com/tphakala/facewatch/internal/logger"
)

// version is set with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}

	cmd.Version = version
	rootCmd := cmd.RootCommand(settings)

	err = rootCmd.ExecuteContext(context.Background())
	if flushErr := logger.Global().Flush(); flushErr != nil {
		fmt.Fprintf(os.Stderr, "error flushing logs: %v\n", flushErr)
	}
	if err != nil {
		os.Exit(1)
	}
}
