package main

import (
	"github.com/robotalks/mcplink/pkg/cli/sh"
	"github.com/robotalks/mcplink/pkg/env"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
}

func main() {
	sh.Main()
}
