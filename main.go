package main

import "github.com/Mohsinsiddi/avagen/cmd"

func main() {
	cmd.Execute()
}
