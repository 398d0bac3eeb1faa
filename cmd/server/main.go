package main

import (
	"context"
	"os"

	"github.com/warehouse-twin/backend/internal/cli"
)

// Version info (set during build)
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
)

func main() {
	if err := cli.Execute(context.Background(), cli.BuildInfo{
		Version:   Version,
		BuildTime: BuildTime,
	}); err != nil {
		os.Exit(1)
	}
}
