//go:build mage

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

const shaderDir = "assets/shaders"

var shaderStages = []string{".vert", ".frag", ".geom"}

// Compiles every GLSL stage under assets/shaders to SPIR-V with glslc.
func (Build) Shaders() error {
	return buildShaders()
}

// Builds the engine binary.
func (Build) Engine() error {
	mg.Deps(Build.Shaders)
	_, err := executeCmd("go", withArgs("build", "-o", "bin/umbra", "."), withStream())
	return err
}

func buildShaders() error {
	entries, err := os.ReadDir(shaderDir)
	if err != nil {
		return err
	}
	compiled := 0
	for _, entry := range entries {
		if entry.IsDir() || !isShaderStage(entry.Name()) {
			continue
		}
		name := entry.Name()
		if _, err := executeCmd("glslc", withArgs(name, "-o", name+".spv"), withDir(shaderDir)); err != nil {
			return err
		}
		compiled++
	}
	fmt.Printf("Compiled %d shader stages\n", compiled)
	return nil
}

func isShaderStage(name string) bool {
	for _, ext := range shaderStages {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
