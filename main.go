package main

import "github.com/iksnae/corner/cmd"

func main() {
	cmd.Execute()
}
