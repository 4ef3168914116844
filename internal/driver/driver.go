// Package driver is the external collaborator the front end core does
// not implement itself: file/directory discovery, path rewriting
// (.jack -> .vm), and BOM-aware source loading.
package driver

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/kirkdrichardson/jackc/internal/compiler"
	"github.com/kirkdrichardson/jackc/internal/diag"
)

// Result reports the outcome of compiling one file.
type Result struct {
	InputPath  string
	OutputPath string
	Err        error
}

// CollectFiles returns every .jack file under fileOrDir. If fileOrDir is
// itself a .jack file, it is the sole result. Directory traversal is
// recursive.
func CollectFiles(fileOrDir string) ([]string, error) {
	stat, err := os.Stat(fileOrDir)
	if err != nil {
		return nil, diag.Wrap(err, fmt.Sprintf("cannot stat %q", fileOrDir))
	}

	if !stat.IsDir() {
		if filepath.Ext(fileOrDir) != ".jack" {
			return nil, fmt.Errorf("%q is not a .jack file", fileOrDir)
		}
		return []string{fileOrDir}, nil
	}

	var files []string
	walkErr := filepath.WalkDir(fileOrDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".jack" {
			files = append(files, path)
		}
		return nil
	})
	if walkErr != nil {
		return nil, diag.Wrap(walkErr, fmt.Sprintf("walking %q", fileOrDir))
	}

	sort.Strings(files)
	return files, nil
}

// OutputPath replaces a .jack extension with .vm, alongside the input.
func OutputPath(jackPath string) string {
	ext := filepath.Ext(jackPath)
	return jackPath[:len(jackPath)-len(ext)] + ".vm"
}

// ReadSource loads a .jack file, tolerating a leading UTF-8 or UTF-16
// byte-order mark (normalizing to a plain UTF-8 string before handing it
// to the tokenizer).
func ReadSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", diag.Wrap(err, fmt.Sprintf("reading %q", path))
	}
	return decode(data)
}

func decode(data []byte) (string, error) {
	switch {
	case len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF:
		return string(data[3:]), nil
	case len(data) >= 2 && data[0] == 0xFF && data[1] == 0xFE:
		return decodeUTF16(data, unicode.LittleEndian)
	case len(data) >= 2 && data[0] == 0xFE && data[1] == 0xFF:
		return decodeUTF16(data, unicode.BigEndian)
	default:
		return string(data), nil
	}
}

func decodeUTF16(data []byte, endianness unicode.Endianness) (string, error) {
	dec := unicode.UTF16(endianness, unicode.UseBOM).NewDecoder()
	out, _, err := transform.Bytes(dec, data)
	if err != nil {
		return "", diag.Wrap(err, "decoding UTF-16 source")
	}
	return string(out), nil
}

// CompileOne compiles a single .jack file to its sibling .vm file.
func CompileOne(path string) Result {
	res := Result{InputPath: path, OutputPath: OutputPath(path)}

	source, err := ReadSource(path)
	if err != nil {
		res.Err = err
		return res
	}

	out, err := os.OpenFile(res.OutputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		res.Err = diag.Wrap(err, fmt.Sprintf("opening %q for writing", res.OutputPath))
		return res
	}
	defer out.Close()

	res.Err = compiler.CompileFile(path, source, out)
	return res
}

// CompileAll compiles every file in paths, continuing after a failure so
// a batch run reports every file's outcome.
func CompileAll(paths []string) []Result {
	results := make([]Result, 0, len(paths))
	for _, p := range paths {
		results = append(results, CompileOne(p))
	}
	return results
}
