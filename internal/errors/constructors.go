package errors

// Convenience functions for common error patterns

// Config errors

func ConfigNotFound(path string) *BuildError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

func ConfigRequired(field string) *BuildError {
	return New(CategoryConfig, SeverityFatal, "required configuration missing: "+field).
		WithContext("field", field)
}

func ConfigInvalid(field, reason string) *BuildError {
	return New(CategoryConfig, SeverityFatal, "invalid configuration "+field+": "+reason).
		WithContext("field", field).
		WithContext("reason", reason)
}

// Build pipeline errors

func IO(operation, path string, cause error) *BuildError {
	return Wrap(cause, CategoryIO, SeverityFatal, operation+" "+path).
		WithContext("operation", operation).
		WithContext("path", path)
}

func Parse(path string, cause error) *BuildError {
	return Wrap(cause, CategoryParse, SeverityFatal, "parse "+path).
		WithContext("path", path)
}

func Storage(operation string, cause error) *BuildError {
	return Wrap(cause, CategoryStorage, SeverityFatal, operation).
		WithContext("operation", operation)
}

func Render(path, template string, cause error) *BuildError {
	msg := "render " + path
	if template != "" {
		msg += " with " + template
	}
	return Wrap(cause, CategoryRender, SeverityFatal, msg).
		WithContext("path", path).
		WithContext("template", template)
}

// Network errors

func FetchFailed(url string, cause error) *BuildError {
	return WrapRetryable(cause, CategoryNetwork, SeverityError, "fetch "+url).
		WithContext("url", url)
}

// Internal errors

func InternalError(message string, cause error) *BuildError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
