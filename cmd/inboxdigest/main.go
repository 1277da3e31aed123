package main

import "github.com/aaronromeo/inboxdigest/internal/cli"

func main() {
	cli.Execute()
}
