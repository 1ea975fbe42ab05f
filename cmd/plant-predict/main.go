package main

import (
	"context"
	"os"

	"github.com/menta2k/plant-predict/internal/app"
)

func main() {
	os.Exit(app.Run(context.Background(), os.Args, os.Stdout, os.Stderr))
}
