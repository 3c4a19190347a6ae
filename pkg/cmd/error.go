package cmd

const (
	GeneralErrorExitCode     = 1  // bash general error exit code
	NoCoverageErrorExitCode  = 11 // none of the requested files has coverage
	LowCoverageErrorExitCode = 12 // coverage is lower than the coverage baseline
)

// CoverLensError carries the exit code of a failed command.
type CoverLensError struct {
	ExitCode   int
	Err        error
	ErrMessage string
}

func WrapErrorWithCode(err error, exitCode int, errMessage string) *CoverLensError {
	return &CoverLensError{
		ExitCode:   exitCode,
		Err:        err,
		ErrMessage: errMessage,
	}
}

func WrapError(err error, errMessage string) *CoverLensError {
	return WrapErrorWithCode(err, GeneralErrorExitCode, errMessage)
}

func (e *CoverLensError) Error() string {
	return e.Err.Error()
}

func (e *CoverLensError) Unwrap() error {
	return e.Err
}
