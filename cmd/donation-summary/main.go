package main

import "donation-summary/internal/cli"

func main() {
	cli.Execute()
}
