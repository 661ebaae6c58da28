//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Downloads the modules and builds the stratum binary into bin/.
func (Build) Binary() error {
	if _, err := executeCmd("go", withArgs("mod", "download")); err != nil {
		return err
	}
	out := stratumBin()
	if _, err := executeCmd("go", withArgs("build", "-o", out, "."), withStream()); err != nil {
		return err
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Runs go mod tidy and go vet over the module.
func (Build) Tidy() error {
	if _, err := executeCmd("go", withArgs("mod", "tidy")); err != nil {
		return fmt.Errorf("failed to run go mod tidy: %w", err)
	}
	if _, err := executeCmd("go", withArgs("vet", "./..."), withStream()); err != nil {
		return fmt.Errorf("failed to run go vet: %w", err)
	}
	return nil
}
