package main

import (
	"fmt"
	"os"

	"github.com/sardorbek21324/Kairos-team/cmd/kairosctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
