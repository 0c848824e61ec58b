package main

import "github.com/keurnel/bootimg/cmd/cli/cmd"

func main() {
	cmd.Execute()
}
