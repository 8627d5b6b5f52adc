package main

import "github.com/example/meubles-dor/internal/cli"

func main() {
	cli.Execute()
}
