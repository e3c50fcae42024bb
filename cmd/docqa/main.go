package main

import "github.com/custodia-labs/docqa-cli/internal/adapters/driving/cli"

func main() {
	cli.Execute()
}
