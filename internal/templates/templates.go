// Package templates renders the files jex writes on behalf of the user: the
// wrapper script created by setup and the skeleton of a new plugin project.
package templates

import (
	"bytes"
	"os"
	"text/template"
)

// WrapperData contains data for the wrapper script templates.
type WrapperData struct {
	// Executable is the absolute path of the installed jex binary.
	Executable string
}

const unixWrapperTemplateStr = `#!/bin/sh
# Generated by jex --install. Re-run setup to regenerate.
exec "{{.Executable}}" "$@"
`

const windowsWrapperTemplateStr = "@echo off\r\n" +
	"rem Generated by jex --install. Re-run setup to regenerate.\r\n" +
	"\"{{.Executable}}\" %*\r\n"

// GenerateWrapper renders the wrapper script for goos.
func GenerateWrapper(goos string, data WrapperData) (string, error) {
	src := unixWrapperTemplateStr
	if goos == "windows" {
		src = windowsWrapperTemplateStr
	}
	return render("wrapper", src, data)
}

// WrapperMode is the file mode of the wrapper script.
const WrapperMode os.FileMode = 0o755

// ScaffoldData contains data for the plugin project templates.
type ScaffoldData struct {
	Name        string
	Module      string
	Description string
	Version     string
}

// File is one rendered file of a project skeleton.
type File struct {
	Path    string
	Content string
	Mode    os.FileMode
}

const goModTemplateStr = `module {{.Module}}

go 1.24
`

const mainTemplateStr = `//go:build wasip1

// Command {{.Name}} is a jex plugin.
//
// Build it as a WASI reactor:
//
//	GOOS=wasip1 GOARCH=wasm go build -buildmode=c-shared -o {{.Name}}.wasm .
package main

import (
	"fmt"
	"os"
	"strings"
	"unsafe"
)

const pluginName = "{{.Name}}"

var options = []string{
	"-h, --help    Show help for {{.Name}}",
}

// The host reads these buffers through the exported memory, so they must
// stay reachable for the lifetime of the instance.
var (
	nameBuf    = []byte(pluginName)
	optionsBuf = []byte(strings.Join(options, "\n"))
)

func main() {}

//go:wasmexport plugin_abi_version
func pluginABIVersion() int32 { return 1 }

//go:wasmexport plugin_name
func pluginNameExport() int64 { return pack(nameBuf) }

//go:wasmexport plugin_options
func pluginOptions() int64 { return pack(optionsBuf) }

// pluginExecute runs the command. os.Args[0] is the plugin name and the
// remaining elements are the arguments given after it on the jex command line.
//
//go:wasmexport plugin_execute
func pluginExecute() int32 {
	args := os.Args[1:]
	for _, a := range args {
		if a == "-h" || a == "--help" {
			fmt.Println("Usage: jex {{.Name}} [args...]")
			fmt.Println()
			fmt.Println(strings.Join(options, "\n"))
			return 0
		}
	}

	fmt.Printf("Hello from {{.Name}}! args=%q\n", args)
	return 0
}

func pack(b []byte) int64 {
	if len(b) == 0 {
		return 0
	}
	ptr := uintptr(unsafe.Pointer(&b[0]))
	return int64(ptr)<<32 | int64(len(b))
}
`

const manifestTemplateStr = `name: {{.Name}}
version: {{.Version}}
description: {{printf "%q" .Description}}
entry: {{.Name}}.wasm
`

const readmeTemplateStr = `# {{.Name}}

{{.Description}}

## Build

` + "```bash" + `
GOOS=wasip1 GOARCH=wasm go build -buildmode=c-shared -o {{.Name}}.wasm .
zip {{.Name}}.zip {{.Name}}.wasm plugin.yaml
` + "```" + `

## Install

` + "```bash" + `
jex --install-plugin {{.Name}} --jar {{.Name}}.zip
jex {{.Name}} --help
` + "```" + `

After changing the code, rebuild and run:

` + "```bash" + `
jex --update-plugin {{.Name}} --jar {{.Name}}.zip
` + "```" + `
`

// GenerateScaffold renders the files of a new plugin project, paths relative
// to the project directory.
func GenerateScaffold(data ScaffoldData) ([]File, error) {
	if data.Module == "" {
		data.Module = data.Name
	}
	if data.Version == "" {
		data.Version = "0.1.0"
	}
	if data.Description == "" {
		data.Description = "A jex plugin"
	}

	specs := []struct {
		path string
		src  string
	}{
		{"go.mod", goModTemplateStr},
		{"main.go", mainTemplateStr},
		{"plugin.yaml", manifestTemplateStr},
		{"README.md", readmeTemplateStr},
	}

	files := make([]File, 0, len(specs))
	for _, s := range specs {
		content, err := render(s.path, s.src, data)
		if err != nil {
			return nil, err
		}
		files = append(files, File{Path: s.path, Content: content, Mode: 0o644})
	}
	return files, nil
}

func render(name, src string, data any) (string, error) {
	tmpl, err := template.New(name).Parse(src)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}
