package main

import (
	"os"

	"github.com/aelous/read-bridge/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
