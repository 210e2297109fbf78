package wsserver

import "errors"

var errSinkBufferFull = errors.New("wsserver: sink send buffer full")
var errSinkClosed = errors.New("wsserver: sink closed")
