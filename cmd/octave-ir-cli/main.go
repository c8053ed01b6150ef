// SPDX-License-Identifier: Apache-2.0
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/fatih/color"

	"github.com/gharveymn/octave-ir-sub000/internal/ir"
	"github.com/gharveymn/octave-ir-sub000/internal/irparser"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: octave-ir-cli <file.ir>")
		os.Exit(1)
	}

	path := os.Args[1]

	source, err := os.ReadFile(path)
	if err != nil {
		color.Red("failed to read file: %s", err)
		os.Exit(1)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	types := ir.NewTypeRegistry(8)

	fn, err := irparser.ParseFunction(name, string(source), types)
	if err != nil {
		reportParseError(string(source), err)
		os.Exit(1)
	}

	unit := &ir.StaticUnit{Functions: []*ir.StaticFunction{fn}}
	fmt.Print(ir.Print(unit))

	color.Green("✅ parsed and validated %s (%d block(s), %d variable(s))", path, len(fn.Blocks), len(fn.Variables))
}

// reportParseError prints a friendly caret-style parse error message when
// err is a syntax failure (a participle.Error); builder.go's own errors
// (malformed instructions) and ir.ValidateUnit's (bad phi predecessors)
// carry no source position, so those print as a plain message instead.
func reportParseError(src string, err error) {
	pe, ok := err.(participle.Error)
	if !ok {
		color.Red("❌ %s", err)
		return
	}

	pos := pe.Position()
	lines := strings.Split(src, "\n")
	if pos.Line <= 0 || pos.Line > len(lines) {
		color.Red("Syntax error at unknown location: %s", err)
		return
	}

	line := lines[pos.Line-1]
	caret := strings.Repeat(" ", pos.Column-1) + "^"

	color.Red("❌ Syntax error in %s at line %d, column %d:", pos.Filename, pos.Line, pos.Column)
	fmt.Println(line)
	color.HiRed(caret)
	fmt.Printf("→ %s\n", pe.Message())
}
