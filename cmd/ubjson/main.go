package main

import "github.com/eigerco/ubjson/internal/cli"

func main() {
	cli.Execute()
}
