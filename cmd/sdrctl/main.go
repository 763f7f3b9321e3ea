// Package main provides sdrctl, a maintenance tool for per-document
// sidecar settings stores.
package main

import (
	"os"

	"github.com/pagemark/sidecar/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Stdout, os.Stderr, os.Args))
}
