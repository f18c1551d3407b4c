// # cmd/compgraph/main.go
package main

import (
	"os"

	"compgraph/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
