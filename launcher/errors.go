package launcher

import "errors"

var (
	ErrExeMissing    = errors.New("launcher: executable not found")
	ErrSpawnFailed   = errors.New("launcher: failed to spawn process")
	ErrPortInUse     = errors.New("launcher: port already in use")
	ErrTimeout       = errors.New("launcher: timed out waiting for instance readiness")
	ErrPortExhaustion = errors.New("launcher: unable to allocate enough free ports")
)
