package main

import "medchain/cli/cmd"

func main() {
	cmd.Execute()
}
