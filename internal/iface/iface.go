package iface

import "errors"

// ErrWouldBlock is returned by Recv when the non-blocking socket has
// nothing to read, the transient-I/O case in the error handling design:
// the caller should ignore it and continue the loop.
var ErrWouldBlock = errors.New("iface: would block")
