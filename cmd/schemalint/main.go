package main

import (
	"os"

	"github.com/schemalint/schemalint/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
