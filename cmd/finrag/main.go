package main

import "github.com/finquery-labs/finrag/internal/cli"

func main() {
	cli.Execute()
}
