package main

import "github.com/LeJamon/goLoRaRouter/internal/cli"

func main() {
	cli.Execute()
}
