// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package workflow

import (
	"regexp"

	"github.com/gizzahub/gitsync-kernel/internal/logger"
)

var varPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// Substitute performs a single, non-recursive pass of {{var}} replacement
// over s using vars. Unknown variables are left intact rather than erased,
// and a warning is logged for each so misconfiguration surfaces instead of
// silently producing a wrong path or name (§9 "Cyclic variable
// references").
func Substitute(s string, vars map[string]string, log logger.Logger) string {
	if log == nil {
		log = logger.Nop{}
	}
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := varPattern.FindStringSubmatch(match)[1]
		val, ok := vars[name]
		if !ok {
			log.Warn("unknown workflow variable left unsubstituted", "var", name)
			return match
		}
		return val
	})
}

// SubstituteMapping applies Substitute to both sides of a source/local
// pair, the shape most workflow files actually interpolate.
func SubstituteMapping(source, local string, vars map[string]string, log logger.Logger) (string, string) {
	return Substitute(source, vars, log), Substitute(local, vars, log)
}
