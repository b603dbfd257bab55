package main

import "github.com/expensehub/expensehub/cmd"

func main() {
	cmd.Execute()
}
