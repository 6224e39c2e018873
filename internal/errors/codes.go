package errors

// Error codes for the Spek compiler, following the teacher's E-prefixed
// numbering scheme at a scale matching this surface language's far
// smaller surface (no structs, modules, or types to misuse).
//
// E0001-E0099: name resolution errors
// E0100-E0199: parser errors (participle's own message is used verbatim)

const (
	ErrorUndefinedVariable = "E0001"
	ErrorRedeclaredVariable = "E0002"
	ErrorUnsupportedCall    = "E0003"
)
