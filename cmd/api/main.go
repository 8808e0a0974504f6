package main

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/catalog/internal/app"
)

func main() {
	fx.New(app.HTTP).Run()
}
