package main

import "github.com/bridgelabs/wawoot/cmd"

func main() {
	cmd.Execute()
}
