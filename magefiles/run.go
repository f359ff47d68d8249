//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Compiles the shaders and runs the testbed.
func (Run) Engine() error {
	if err := buildShaders(); err != nil {
		return err
	}
	fmt.Println("Run engine...")
	if _, err := executeCmd("go", withArgs("run", ".", "-config", "assets/config/engine.toml"), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the unit tests. GPU tests need the gpu build tag and a Vulkan device.
func Test() error {
	_, err := executeCmd("go", withArgs("test", "./..."), withStream())
	return err
}

// Runs the tests that create a Vulkan device.
func TestGPU() error {
	_, err := executeCmd("go", withArgs("test", "-tags", "gpu", "./engine/renderer/vulkan/..."), withStream())
	return err
}

// Tidies the module and regenerates sources.
func Tidy() error {
	return goTidy()
}
