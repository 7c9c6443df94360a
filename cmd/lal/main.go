package main

import "github.com/vegizombie/lal-build-manager/internal/cli"

func main() {
	cli.Execute()
}
