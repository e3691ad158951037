package main

import (
	"os"

	"lmsession/internal/cli"
)

func main() { os.Exit(cli.Main()) }
