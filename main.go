package main

import "github.com/notargets/fdmpc/cmd"

func main() {
	cmd.Execute()
}
