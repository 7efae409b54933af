package main

import "github.com/endorses/lexicat/cmd"

func main() {
	cmd.Execute()
}
