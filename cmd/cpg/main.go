package main

import "github.com/btzy/circuit-playground/cmd/cpg/cmd"

func main() {
	cmd.Execute()
}
