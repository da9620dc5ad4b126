// Package script reads AMPL-style source files for NEOS submissions.
//
// Two passes are provided:
//
//   - Resolver expands `include <path>;` directives recursively, splicing the
//     included file's lines in place of the directive. Include chains are
//     checked for cycles.
//   - Parse performs a single scan over resolved command-script lines and
//     separates `model <path>;` and `data <path>;` directives from the literal
//     command body.
//
// Directive grammar is line oriented and case sensitive:
//
//	include "common.mod";
//	model "diet.mod";
//	data diet.dat
//
// Quotes and the trailing semicolon are optional. Blank lines, comment lines
// (first non-blank character '#') and lines with a single token pass through
// unchanged.
package script

import (
	"path/filepath"
	"strings"
)

// Directive keywords.
const (
	KeywordInclude = "include"
	KeywordModel   = "model"
	KeywordData    = "data"
)

// splitDirective splits a line into its leading word and the remainder.
//
// ok is false for blank lines, comments and lines that do not have the
// shape `<word> <rest>`; such lines are passed through verbatim by callers.
func splitDirective(line string) (keyword, rest string, ok bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || trimmed[0] == '#' {
		return "", "", false
	}
	idx := strings.IndexFunc(trimmed, isSpace)
	if idx < 0 {
		return "", "", false
	}
	return trimmed[:idx], strings.TrimSpace(trimmed[idx:]), true
}

// cleanArgument strips one trailing ';', surrounding whitespace and
// surrounding quote characters from a directive argument.
func cleanArgument(rest string) string {
	arg := strings.TrimSpace(rest)
	arg = strings.TrimSuffix(arg, ";")
	arg = strings.TrimSpace(arg)
	return strings.Trim(arg, `"'`)
}

// joinRelative resolves a directive argument against the directory of the
// file that contains it.
func joinRelative(containing, arg string) string {
	if filepath.IsAbs(arg) {
		return filepath.Clean(arg)
	}
	return filepath.Join(filepath.Dir(containing), arg)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\v' || r == '\f' || r == '\r' || r == '\n'
}
