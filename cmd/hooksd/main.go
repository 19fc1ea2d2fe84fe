package main

import (
	"os"

	"github.com/hooksd/hooksd/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
