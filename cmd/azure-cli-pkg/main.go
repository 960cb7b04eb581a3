package main

import "github.com/naga-nandyala/azure-cli-pkg-1/cmd/azure-cli-pkg/cmd"

func main() {
	cmd.Execute()
}
