package main

import "github.com/pfrederiksen/banei-scraper/internal/cli"

var version = "dev"

func main() {
	cli.Version = version
	cli.Execute()
}
