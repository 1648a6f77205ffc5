package main

import "github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/cmd"

func main() {
	cmd.Execute()
}
