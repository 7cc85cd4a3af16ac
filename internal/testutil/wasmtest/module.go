package wasmtest

import (
	"strings"
)

// Memory layout of generated modules.
const (
	addrIovec    = 16
	addrNWritten = 24
	addrArgc     = 32
	addrArgvSize = 36
	addrName     = 1024
	addrOptions  = 2048
	addrStdout   = 3072
	addrLog      = 3584
	addrArgv     = 4096
	addrArgvBuf  = 8192
)

// Import function indices; defined functions follow.
const (
	fnFdWrite = iota
	fnArgsSizesGet
	fnArgsGet
	fnProcExit
	fnLogInfo
)

// Type indices.
const (
	tRetI32 = iota
	tRetI64
	tFdWrite
	tTwoI32RetI32
	tOneI32
	tTwoI32
)

// Plugin describes a generated plugin module.
type Plugin struct {
	// Name is returned by plugin_name.
	Name string
	// Options are returned by plugin_options; nil omits the export.
	Options []string
	// ExitCode is returned by plugin_execute.
	ExitCode int32
	// ProcExit makes plugin_execute call WASI proc_exit(ExitCode) instead of returning.
	ProcExit bool
	// Stdout is written to file descriptor 1 by plugin_execute.
	Stdout string
	// EchoArgs writes the NUL separated WASI argv to stdout.
	EchoArgs bool
	// Log is sent to the host through jex.log_info.
	Log string
	// ABIVersion overrides the reported ABI version (default 1).
	ABIVersion int32
	// OmitExecute drops the plugin_execute export.
	OmitExecute bool
	// HideMemory keeps the memory but does not export it.
	HideMemory bool
	// ImportMissing imports a function no host provides, so instantiation fails.
	ImportMissing bool
}

// Module encodes p as a WebAssembly binary.
func Module(p Plugin) []byte {
	abi := p.ABIVersion
	if abi == 0 {
		abi = 1
	}
	options := strings.Join(p.Options, "\n")

	types := section(sectionType, vec(
		funcType(nil, []byte{typeI32}),
		funcType(nil, []byte{typeI64}),
		funcType([]byte{typeI32, typeI32, typeI32, typeI32}, []byte{typeI32}),
		funcType([]byte{typeI32, typeI32}, []byte{typeI32}),
		funcType([]byte{typeI32}, nil),
		funcType([]byte{typeI32, typeI32}, nil),
	))

	imports := [][]byte{
		importFunc("wasi_snapshot_preview1", "fd_write", tFdWrite),
		importFunc("wasi_snapshot_preview1", "args_sizes_get", tTwoI32RetI32),
		importFunc("wasi_snapshot_preview1", "args_get", tTwoI32RetI32),
		importFunc("wasi_snapshot_preview1", "proc_exit", tOneI32),
		importFunc("jex", "log_info", tTwoI32),
	}
	if p.ImportMissing {
		imports = append(imports, importFunc("env", "missing", tOneI32))
	}
	base := len(imports)

	functions := section(sectionFunction, vec(
		uleb(tRetI32), // plugin_abi_version
		uleb(tRetI64), // plugin_name
		uleb(tRetI64), // plugin_options
		uleb(tRetI32), // plugin_execute
	))

	memory := section(sectionMemory, vec([]byte{0x00, 0x01}))

	exports := [][]byte{
		exportEntry("plugin_abi_version", exportFunc, base),
		exportEntry("plugin_name", exportFunc, base+1),
	}
	if !p.HideMemory {
		exports = append(exports, exportEntry("memory", exportMemory, 0))
	}
	if p.Options != nil {
		exports = append(exports, exportEntry("plugin_options", exportFunc, base+2))
	}
	if !p.OmitExecute {
		exports = append(exports, exportEntry("plugin_execute", exportFunc, base+3))
	}

	bodies := section(sectionCode, vec(
		code{}.i32(abi).body(),
		code{}.i64(packed(addrName, len(p.Name))).body(),
		code{}.i64(packed(addrOptions, len(options))).body(),
		executeBody(p).body(),
	))

	data := section(sectionData, vec(
		dataSegment(addrName, []byte(p.Name)),
		dataSegment(addrOptions, []byte(options)),
		dataSegment(addrStdout, []byte(p.Stdout)),
		dataSegment(addrLog, []byte(p.Log)),
	))

	out := []byte{0x00, 'a', 's', 'm', 0x01, 0x00, 0x00, 0x00}
	out = append(out, types...)
	out = append(out, section(sectionImport, vec(imports...))...)
	out = append(out, functions...)
	out = append(out, memory...)
	out = append(out, section(sectionExport, vec(exports...))...)
	out = append(out, bodies...)
	out = append(out, data...)
	return out
}

func executeBody(p Plugin) code {
	c := code{}
	if p.Log != "" {
		c = c.i32(addrLog).i32(int32(len(p.Log))).call(fnLogInfo)
	}
	if p.Stdout != "" {
		c = c.i32(addrIovec).i32(addrStdout).store()
		c = c.i32(addrIovec + 4).i32(int32(len(p.Stdout))).store()
		c = c.i32(1).i32(addrIovec).i32(1).i32(addrNWritten).call(fnFdWrite).drop()
	}
	if p.EchoArgs {
		c = c.i32(addrArgc).i32(addrArgvSize).call(fnArgsSizesGet).drop()
		c = c.i32(addrArgv).i32(addrArgvBuf).call(fnArgsGet).drop()
		c = c.i32(addrIovec).i32(addrArgvBuf).store()
		c = c.i32(addrIovec + 4).i32(addrArgvSize).load().store()
		c = c.i32(1).i32(addrIovec).i32(1).i32(addrNWritten).call(fnFdWrite).drop()
	}
	if p.ProcExit {
		c = c.i32(p.ExitCode).call(fnProcExit)
	}
	return c.i32(p.ExitCode)
}

func importFunc(module, field string, typeIdx int) []byte {
	out := append(name(module), name(field)...)
	out = append(out, 0x00)
	return append(out, uleb(uint64(typeIdx))...)
}

func exportEntry(field string, kind byte, idx int) []byte {
	out := append(name(field), kind)
	return append(out, uleb(uint64(idx))...)
}

// NotWasm returns bytes that are neither a module nor an archive.
func NotWasm() []byte {
	return []byte("#!/bin/sh\necho not a plugin\n")
}

// Corrupt returns a module header followed by garbage, which fails to compile.
func Corrupt() []byte {
	return []byte{0x00, 'a', 's', 'm', 0x01, 0x00, 0x00, 0x00, 0xFF, 0xFF}
}
