package cmd

import (
	"os"

	"github.com/kirkdrichardson/jackc/internal/compiler"
)

func compileToStdout(path, source string) error {
	return compiler.CompileFile(path, source, os.Stdout)
}
