package main

import "futsim/internal/cli"

func main() {
	cli.Execute()
}
