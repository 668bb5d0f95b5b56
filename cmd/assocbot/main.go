package main

import (
	"log"

	"github.com/m3rciful/assocbot/internal/app"
)

func main() {
	if err := app.Main(); err != nil {
		log.Fatal(err)
	}
}
