package cfg

import "errors"

// Build errors. All three abort the build; no partial graph is returned
// alongside them. Callers discriminate with errors.Is.
var (
	// ErrUnsupported marks a construct the walker rejects outright,
	// such as a chained assignment or a boolean-operator callee.
	ErrUnsupported = errors.New("unsupported construct")

	// ErrOutsideLoop marks a break or continue with no enclosing loop.
	ErrOutsideLoop = errors.New("break or continue outside loop")

	// ErrOutsideFunction marks a return with no enclosing function.
	ErrOutsideFunction = errors.New("return outside function")
)
