package main

import "github.com/avlowe/cratedig/internal/cli"

func main() {
	cli.Execute()
}
