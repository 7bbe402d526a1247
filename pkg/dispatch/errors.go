package dispatch

import "github.com/fluxorio/handlebars/pkg/core"

// Errors returned by Disconnect.
var (
	ErrInvalidHandle = &core.Error{Code: "INVALID_HANDLE", Message: "handle was not returned by a connect call"}
	ErrForeignHandle = &core.Error{Code: "FOREIGN_HANDLE", Message: "handle belongs to another domain"}
	ErrStaleHandle   = &core.Error{Code: "STALE_HANDLE", Message: "slot already disconnected"}
)
