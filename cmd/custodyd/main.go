package main

import "github.com/LeJamon/goCustody/internal/cli"

func main() {
	cli.Execute()
}
