package build

// Status represents the outcome of a build.
type Status string

const (
	// StatusSuccess indicates every stage completed.
	StatusSuccess Status = "success"

	// StatusFailed indicates a stage returned an error.
	StatusFailed Status = "failed"

	// StatusSkipped indicates nothing changed since the last build.
	StatusSkipped Status = "skipped"

	// StatusAssetsOnly indicates only static assets changed and were copied.
	StatusAssetsOnly Status = "assets_only"

	// StatusCanceled indicates the build context was canceled.
	StatusCanceled Status = "canceled"
)

// IsSuccess returns true if the build left the output up to date.
func (s Status) IsSuccess() bool {
	return s == StatusSuccess || s == StatusSkipped || s == StatusAssetsOnly
}
