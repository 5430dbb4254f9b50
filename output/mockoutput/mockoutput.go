// Package mockoutput re-exports output.CapturedOutput under the name the
// rest of the module's tests import it by, so test packages never need to
// reach into the output package directly for a printer spy. The teacher
// carried a second, byte-for-byte copy of CapturedOutput in this
// subpackage; collapsed into an alias since the real implementation
// already lives in output.go and a duplicate definition just drifts.
package mockoutput

import "github.com/jaspr/jaspr/output"

// CapturedOutput is a printer spy for testing.
type CapturedOutput = output.CapturedOutput

// New returns a fresh printer spy with nothing printed or expected.
func New() *CapturedOutput {
	return output.MockPrinter()
}
