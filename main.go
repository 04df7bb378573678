package main

import (
	"os"

	"github.com/Afuraka666/Ungana-Medical-sub000/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
