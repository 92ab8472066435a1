package main

import "github.com/forPelevin/mediagrab/internal/cli"

func main() {
	cli.Main()
}
