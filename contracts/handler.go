package contracts

// Container is the dependency lookup handed to exception handlers.
type Container interface {
	Has(id string) bool
	Get(id string) (any, error)
}

// FatalError describes a process-level failure after which the request
// cannot continue.
type FatalError struct {
	Type    int
	Message string
	File    string
	Line    int
}

// ExceptionHandler is the terminal handler for failures while serving a
// request. None of its methods return: each must fully handle the failure.
type ExceptionHandler interface {
	// HandleError handles a recoverable error raised while serving.
	HandleError(err error, sapi SAPI, c Container)
	// HandleUnrecoverable handles a recovered panic value.
	HandleUnrecoverable(v any, sapi SAPI, c Container)
	// HandleFatal handles a fatal error reported by the runtime.
	HandleFatal(fe FatalError, c Container)
}
