package student

// SetRandIntn swaps the student ID random source until the returned func is called.
func SetRandIntn(f func(n int) int) (restore func()) {
	orig := randIntn
	randIntn = f
	return func() { randIntn = orig }
}

var ErrStudentIDRetryExceeded = errStudentIDRetryExceeded
