//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Builds and runs the engine with vkclear.toml.
func (Run) Engine() error {
	mg.Deps(Build.Engine)
	fmt.Println("Run engine...")
	if _, err := executeCmd("bin/vkclear", withArgs("-config", "vkclear.toml"), withStream()); err != nil {
		return err
	}
	return nil
}
