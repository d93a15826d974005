// Package main is the entry point for the school management server.
//
// The main package stays minimal: all commands live in internal/cli and all
// logic in the other internal packages.
//
// Usage:
//
//	schoold serve                   start the HTTP API
//	schoold migrate up              apply pending migrations
//	schoold migrate down [steps]    roll back
//	schoold migrate version         print the schema version
package main

import (
	"context"
	"os"

	"github.com/pravara/school-backend/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		// cobra has already printed the error.
		os.Exit(1)
	}
}
