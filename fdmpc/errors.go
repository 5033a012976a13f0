package fdmpc

import "errors"

var (
	ErrUnsupportedElement  = errors.New("unsupported element")
	ErrUnsupportedGeometry = errors.New("unsupported geometry")
	ErrUnsupportedMapping  = errors.New("unsupported element mapping")
	ErrBadState            = errors.New("preconditioner used out of order")
)
