package scanner

import (
	"fmt"
	"regexp"
	"strings"
)

// RestrictedModules are Node.js built-ins with no equivalent on the web
// extension host.
var RestrictedModules = []string{
	"assert", "async_hooks", "buffer", "child_process", "cluster", "crypto",
	"dgram", "diagnostics_channel", "dns", "fs", "http", "http2", "https",
	"inspector", "module", "net", "os", "path", "perf_hooks", "process",
	"readline", "repl", "stream", "string_decoder", "tls", "trace_events",
	"tty", "url", "util", "v8", "vm", "worker_threads", "zlib",
}

// PrivilegedNamespace is the Node-only global whose members break in a worker
var PrivilegedNamespace = "process"

var (
	modulePattern = `(?:node:)?(` + strings.Join(RestrictedModules, "|") + `)(?:/[^'"]*)?`

	// import x from 'fs'; import { a } from"fs/promises"; import 'node:os';
	// export * from 'os'
	importRe = regexp.MustCompile(`(?:^|[^\w$.])(?:import|export)\b\s*(?:[^'";]*?\bfrom\s*)?['"]` + modulePattern + `['"]`)

	// require('child_process'); require("node:fs")
	requireRe = regexp.MustCompile(`\brequire\s*\(\s*['"]` + modulePattern + `['"]\s*\)`)

	// process.env, process.platform, ...
	namespaceRe = regexp.MustCompile(`(?:^|[^\w$.])` + regexp.QuoteMeta(PrivilegedNamespace) + `\s*\.`)
)

// DefaultChecks returns the import, require and namespace checks in that order
func DefaultChecks() []Check {
	return []Check{CheckImports, CheckRequires, CheckNamespace}
}

// CheckImports reports every static import or re-export of a restricted module
func CheckImports(file, src string) []Issue {
	return matchModules(importRe, file, src, "imports Node.js module %q")
}

// CheckRequires reports every require() of a restricted module
func CheckRequires(file, src string) []Issue {
	return matchModules(requireRe, file, src, "requires Node.js module %q")
}

// CheckNamespace reports a file once if it touches the privileged namespace
func CheckNamespace(file, src string) []Issue {
	if !namespaceRe.MatchString(src) {
		return nil
	}

	return []Issue{{
		File:   file,
		Reason: fmt.Sprintf("uses the Node.js %q global", PrivilegedNamespace),
	}}
}

func matchModules(re *regexp.Regexp, file, src, format string) []Issue {
	var issues []Issue
	for _, m := range re.FindAllStringSubmatch(src, -1) {
		issues = append(issues, Issue{
			File:   file,
			Reason: fmt.Sprintf(format, m[1]),
		})
	}

	return issues
}
