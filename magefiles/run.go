//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Slices a project file into output (.sjob or .slc).
func (Run) Slice(project, output string) error {
	mg.Deps(Build.Binary)
	fmt.Printf("Slicing %s...\n", project)
	_, err := executeCmd(stratumBin(), withArgs("slice", project, "-o", output), withStream())
	return err
}

// Prints the build volume and instances of a project file.
func (Run) Info(project string) error {
	mg.Deps(Build.Binary)
	_, err := executeCmd(stratumBin(), withArgs("info", project), withStream())
	return err
}
