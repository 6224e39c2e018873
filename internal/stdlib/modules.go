// Package stdlib provides the builtin module.Spec values a host
// exposes to compiled programs without going through the parser —
// Spek's analogue of the teacher's EVM builtin contract modules, scaled
// to the handful of constants the current surface language can
// reference.
package stdlib

import (
	"spek/internal/engine"
	"spek/internal/engine/module"
)

// CoreModuleKey names the always-available module every host resolves
// first.
const CoreModuleKey = "core"

// Core returns the builtin module exposing Spek's canonical singleton
// values under the names the surface language's literals could plausibly
// resolve against, mirroring the teacher's modules.go pattern of one
// function per builtin module returning a ready *module.BuiltinSpec.
func Core(u *engine.Universe) *module.BuiltinSpec {
	return module.NewBuiltinSpec(CoreModuleKey, map[string]engine.Value{
		"none":  u.None,
		"true":  u.True,
		"false": u.False,
	})
}
