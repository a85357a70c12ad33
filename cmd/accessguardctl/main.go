package main

import "accessguard/cmd/cli"

func main() {
	cli.Execute()
}
