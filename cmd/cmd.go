/*
Package cmd provides functionality shared by the kvproxy binaries.
*/
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

func PrintError(err error) {
	FprintError(os.Stderr, err)
}

// FprintError writes a single line describing err to w.
func FprintError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %s\n", color.HiRedString("Error:"), err.Error())
}
