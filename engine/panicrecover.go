package engine

import (
	"fmt"
	"runtime/debug"
)

// recoverToErr runs f and, if it panics, logs the panic and stack trace
// the way kryptco-kr's panicrecover.go RecoverToLog does, but reports it
// as an error instead of merely swallowing it — used wherever a
// panicking instruction must surface as a NetOp*Error (or a
// NewInterpreter failure) rather than crash the interpreter goroutine.
func recoverToErr(f func()) (err error) {
	defer func() {
		if x := recover(); x != nil {
			log.Error(fmt.Sprintf("run time panic: %v", x))
			log.Error(string(debug.Stack()))
			err = fmt.Errorf("engine: instruction panicked: %v", x)
		}
	}()
	f()
	return nil
}
