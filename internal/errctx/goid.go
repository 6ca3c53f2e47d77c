package errctx

import (
	"bytes"
	"runtime"
	"strconv"
)

// goroutineID extracts the current goroutine ID using runtime.Stack.
// Returns 0 when the header cannot be parsed.
func goroutineID() uint64 {
	var arr [64]byte
	buf := arr[:]
	n := runtime.Stack(buf, false)
	buf = buf[:n]

	// "goroutine 123 [running]:\n..."
	const prefix = "goroutine "
	if !bytes.HasPrefix(buf, []byte(prefix)) {
		return 0
	}

	buf = buf[len(prefix):]
	end := bytes.IndexByte(buf, ' ')
	if end < 0 {
		return 0
	}

	gid, err := strconv.ParseUint(string(buf[:end]), 10, 64)
	if err != nil {
		return 0
	}
	return gid
}

// GoroutineID returns the runtime ID of the calling goroutine.
func GoroutineID() uint64 {
	return goroutineID()
}
