package entity

import "errors"

var (
	// Form errors
	ErrNoFileSelected = errors.New("no file selected")
	ErrSubmitInFlight = errors.New("submit already in progress")
	ErrUploadAborted  = errors.New("upload aborted")

	// Selection errors
	ErrFileTooLarge = errors.New("file is too large")
	ErrEmptyFile    = errors.New("file is empty")
)

// Messages shown to the user.
const (
	MsgNoFileSelected = "Please upload an image before submitting."
	MsgUploadFailed   = "An error occurred while uploading the image."
)
