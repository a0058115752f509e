// Command orcamento runs the quote backend.
package main

import (
	"fmt"
	"os"

	"github.com/tbourn/go-orcamento-backend/internal/cli"
)

// @title       Orçamento Backend API
// @version     1.0
// @description Quote sessions, streamed sales-assistant chat, proposal synthesis and exports.
// @BasePath    /api/v1
func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
