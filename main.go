package main

import (
	"fmt"
	"os"

	"github.com/km-arc/go-fenix/framework/console"
)

func main() {
	if err := console.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "fenix:", err)
		os.Exit(1)
	}
}
