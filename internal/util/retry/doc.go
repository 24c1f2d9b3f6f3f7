// Package retry provides exponential backoff retry logic for transient failures.
//
// The [Do] function retries an operation with configurable max attempts,
// initial delay, and maximum delay. It wraps Helm and Spaces calls that may
// fail transiently; errors marked [Terminal] stop retrying immediately.
package retry
