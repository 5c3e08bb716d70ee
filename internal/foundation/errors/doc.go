// Package errors provides the classified error primitives used across sitepress.
//
// A ClassifiedError carries a category, a severity and a retry hint next to the
// wrapped cause. Build steps use the ErrorBuilder to attach context (paths,
// stages, extension names); the CLI adapter turns the category into an exit code.
//
//	err := errors.WrapError(cause, errors.CategorySource, "failed to parse header").
//		WithContext("path", entry.AbsPath).
//		Build()
package errors
