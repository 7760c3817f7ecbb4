package main

import (
	"fmt"

	// Packages
	version "github.com/mutablelogic/go-relay/pkg/version"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

type VersionCmd struct{}

///////////////////////////////////////////////////////////////////////////////
// COMMANDS

func (cmd *VersionCmd) Run(ctx *Globals) error {
	fmt.Println(version.Info(ctx.execName))
	return nil
}

