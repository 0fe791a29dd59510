package main

import "pmchat-backend/cmd/cli"

func main() {
	cli.Execute()
}
