package main

import (
	"github.com/xk9labs/pagepilot/cmd"
)

func main() {
	cmd.Execute()
}
