package boxfsmust

// PanicError is the value every failing operation panics with. It unwraps to the adapter error.
type PanicError struct {
	Err error
}

func (e *PanicError) Error() string {
	return "boxfsmust: " + e.Err.Error()
}

func (e *PanicError) Unwrap() error {
	return e.Err
}

func must0(err error) {
	if err != nil {
		panic(&PanicError{Err: err})
	}
}

func must1[T any](t T, err error) T {
	must0(err)
	return t
}
