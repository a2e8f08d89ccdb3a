package main

import "buildforge/internal/cli"

func main() {
	cli.Execute()
}
