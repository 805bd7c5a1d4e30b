package main

import (
	_ "time/tzdata"

	"github.com/pfrederiksen/vietnam-holidays/internal/cli"
)

func main() {
	cli.Execute()
}
