package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestScan_Clean(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "extension.ts")
	writeFile(t, entry, `import * as vscode from 'vscode';
export function activate(ctx: vscode.ExtensionContext) {
	vscode.window.showInformationMessage('hello');
}`)

	issues, err := Scan(entry)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestScan_StaticImport(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "extension.ts")
	writeFile(t, entry, `import * as fs from 'fs';
import { join } from "node:path";
import {
	exec,
} from 'child_process';
import 'vscode';
`)

	issues, err := Scan(entry)
	require.NoError(t, err)
	require.Len(t, issues, 3)

	for _, issue := range issues {
		assert.Equal(t, entry, issue.File)
	}
	assert.Contains(t, issues[0].Reason, `"fs"`)
	assert.Contains(t, issues[1].Reason, `"path"`)
	assert.Contains(t, issues[2].Reason, `"child_process"`)
}

func TestScan_Require(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "extension.js")
	writeFile(t, entry, `const cp = require('child_process');
const fsp = require("fs/promises");
const vscode = require('vscode');
`)

	issues, err := Scan(entry)
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Equal(t, "requires Node.js module \"child_process\"", issues[0].Reason)
	assert.Equal(t, "requires Node.js module \"fs\"", issues[1].Reason)
}

func TestScan_MixedStylesInOneFile(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "extension.ts")
	writeFile(t, entry, `import * as os from 'os';
const net = require('net');
`)

	issues, err := Scan(entry)
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Contains(t, issues[0].Reason, "imports")
	assert.Contains(t, issues[1].Reason, "requires")
}

func TestScan_NamespaceReportedOncePerFile(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "extension.ts")
	writeFile(t, entry, `const home = process.env.HOME;
if (process.platform === 'win32') {
	process.exit(1);
}`)

	issues, err := Scan(entry)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, entry, issues[0].File)
	assert.Contains(t, issues[0].Reason, `"process"`)
}

func TestScan_NamespaceLookalikes(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "extension.ts")
	writeFile(t, entry, `const subprocess = { run() {} };
subprocess.run();
task.process.start();
`)

	issues, err := Scan(entry)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestScan_WalksTree(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "extension.ts")
	writeFile(t, entry, `import { helper } from './lib/helper';`)
	writeFile(t, filepath.Join(dir, "lib", "helper.ts"), `import * as http from 'http';`)
	writeFile(t, filepath.Join(dir, "lib", "types.d.ts"), `import * as fs from 'fs';`)
	writeFile(t, filepath.Join(dir, "lib", "notes.md"), `import * as fs from 'fs';`)
	writeFile(t, filepath.Join(dir, "node_modules", "dep", "index.js"), `require('fs')`)
	writeFile(t, filepath.Join(dir, ".vscode-test", "x.js"), `require('fs')`)

	issues, err := Scan(entry)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, filepath.Join(dir, "lib", "helper.ts"), issues[0].File)
}

func TestScan_OrderFollowsWalk(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "a.ts")
	writeFile(t, entry, "process.cwd();\nimport * as fs from 'fs';\n")
	writeFile(t, filepath.Join(dir, "b.ts"), `require('os');`)

	issues, err := Scan(entry)
	require.NoError(t, err)
	require.Len(t, issues, 3)

	// a.ts before b.ts; within a file imports come before the namespace check
	assert.Equal(t, entry, issues[0].File)
	assert.Contains(t, issues[0].Reason, "imports")
	assert.Equal(t, entry, issues[1].File)
	assert.Contains(t, issues[1].Reason, "uses")
	assert.Equal(t, filepath.Join(dir, "b.ts"), issues[2].File)
}

func TestScan_DepthLimit(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "extension.ts")
	writeFile(t, entry, "")

	deep := dir
	for i := 0; i < 3; i++ {
		deep = filepath.Join(deep, fmt.Sprintf("d%d", i))
	}
	writeFile(t, filepath.Join(deep, "deep.ts"), `require('fs')`)
	writeFile(t, filepath.Join(dir, "d0", "shallow.ts"), `require('fs')`)

	issues, err := New(WithLimits(2, MaxFiles)).Scan(entry)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, filepath.Join(dir, "d0", "shallow.ts"), issues[0].File)
}

func TestScan_FileLimitStopsEarly(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "f0.ts")
	for i := 0; i < 5; i++ {
		writeFile(t, filepath.Join(dir, fmt.Sprintf("f%d.ts", i)), `require('fs')`)
	}

	issues, err := New(WithLimits(MaxDepth, 3)).Scan(entry)
	require.NoError(t, err)
	assert.Len(t, issues, 3)
}

func TestScan_MissingRoot(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "missing", "extension.ts"))
	assert.ErrorIs(t, err, ErrNoRoot)
}

func TestScan_CustomChecks(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "extension.ts")
	writeFile(t, entry, `eval("1")`)

	noEval := func(file, src string) []Issue {
		if strings.Contains(src, "eval(") {
			return []Issue{{File: file, Reason: "uses eval"}}
		}
		return nil
	}

	issues, err := New(WithChecks(noEval)).Scan(entry)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, entry+": uses eval", issues[0].String())
}

func TestChecks(t *testing.T) {
	tests := []struct {
		name  string
		check Check
		src   string
		want  int
	}{
		{"side effect import", CheckImports, `import 'node:fs';`, 1},
		{"default import", CheckImports, `import fs from 'fs'`, 1},
		{"subpath import", CheckImports, `import { readFile } from 'fs/promises'`, 1},
		{"similar name", CheckImports, `import fsx from 'fs-extra'`, 0},
		{"relative import", CheckImports, `import { x } from './fs'`, 0},
		{"dynamic import not static", CheckImports, `const m = await import('fs')`, 0},
		{"two imports", CheckImports, "import a from 'os'\nimport b from 'http2'", 2},
		{"two imports on one line", CheckImports, `import a from 'fs'; import b from 'os';`, 2},
		{"no space before specifier", CheckImports, `import {a} from"fs"`, 1},
		{"no spaces at all", CheckImports, `import{a}from'fs'`, 1},
		{"re-export", CheckImports, `export * from 'fs'`, 1},
		{"named re-export", CheckImports, `export { readFile } from "node:fs/promises";`, 1},
		{"local export", CheckImports, `export const fs = 'fs';`, 0},
		{"member named import", CheckImports, `loader.import('fs')`, 0},
		{"require with spaces", CheckRequires, `require ( 'zlib' )`, 1},
		{"require other", CheckRequires, `require('lodash')`, 0},
		{"requireFoo", CheckRequires, `myrequire('fs'); requirex('fs')`, 0},
		{"namespace twice", CheckNamespace, `process.env; process.argv`, 1},
		{"namespace absent", CheckNamespace, `const proc = 1`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, tt.check("f.ts", tt.src), tt.want)
		})
	}
}
