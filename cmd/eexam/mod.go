// Package main implements the exam ledger demo based on in-memory components.
package main

import (
	"fmt"
	"os"

	"github.com/dedis/e-exam/cli"
)

func main() {
	app := cli.NewApp()

	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
