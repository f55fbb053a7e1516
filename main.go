package main

import (
	"github.com/routeforge/swap-executor/cmd"
)

func main() {
	cmd.Execute()
}
