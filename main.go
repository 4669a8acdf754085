package main

import "github.com/muzaffarov/bozor-billing/cmd"

func main() {
	cmd.Execute()
}
