// Package errors provides the classified error primitives used across assetbuilder.
//
// Key features:
//   - ErrorCategory: broad classification (config, graph, compile, task, filesystem, ...)
//   - ErrorSeverity: impact level (fatal, error, warning, info)
//   - RetryStrategy: whether retrying makes sense
//   - ClassifiedError: structured error with category, severity, and context
//   - ErrorBuilder: fluent API for creating classified errors
//   - HTTP and CLI adapters for error presentation
//
// Example usage:
//
//	err := errors.CompileError("module failed to parse").
//		WithContext("module", "app/util.js").
//		Build()
package errors
