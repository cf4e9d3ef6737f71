//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Test mg.Namespace

// Runs the unit tests. None of them needs a GPU or a display.
func (Test) All() error {
	_, err := executeCmd("go", withArgs("test", "-race", "-count=1",
		"./engine/containers/...",
		"./engine/core/...",
		"./engine/renderer",
		"./engine/renderer/frame/...",
		"./engine",
	), withStream())
	return err
}

// Runs the Vulkan backend tests. Building them needs the Vulkan headers.
func (Test) Vulkan() error {
	_, err := executeCmd("go", withArgs("test", "-count=1", "./engine/renderer/vulkan/..."), withStream())
	return err
}
