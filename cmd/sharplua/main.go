package main

import "martianoff/sharplua/cmd/sharplua/commands"

func main() {
	commands.Execute()
}
