//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Downloads the modules and builds the vkclear binary into bin/.
func (Build) Engine() error {
	if err := goModDownload(); err != nil {
		return err
	}
	if _, err := executeCmd("go", withArgs("build", "-o", "bin/vkclear", "."), withStream()); err != nil {
		return err
	}
	return nil
}
