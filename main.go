package main

import "github.com/modelkeep/modelkeep/cmd"

func main() {
	cmd.Execute()
}
