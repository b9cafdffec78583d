package main

import "github.com/mcoot/chiptourney/internal/cli"

func main() {
	cli.Execute()
}
