package ocl

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceOCL/pkg/flash"
)

// GeometryError reports loader geometry that fails validation. It unwraps
// to flash.ErrBankInvalid.
type GeometryError struct {
	Geometry Geometry
	Reason   string
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("ocl: %s (%s)", e.Reason, e.Geometry)
}

func (e *GeometryError) Unwrap() error {
	return flash.ErrBankInvalid
}

// LoaderError is a failed exchange with the loader: either no answer before
// the deadline (Err is the transport's timeout) or an answer other than
// RespDone (Err is flash.ErrOperationFailed).
type LoaderError struct {
	Op          Opcode
	Response    uint32
	HasResponse bool
	Err         error
}

func (e *LoaderError) Error() string {
	if e.HasResponse {
		return fmt.Sprintf("ocl: loader response to %s 0x%08x", e.Op, e.Response)
	}
	return fmt.Sprintf("ocl: loader not responding to %s: %v", e.Op, e.Err)
}

func (e *LoaderError) Unwrap() error {
	return e.Err
}
