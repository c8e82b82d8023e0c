// Package api defines the core types for the sqlgym practice engine.
//
// This package provides the data types shared by every layer of the
// service: practice questions and their table specs, SQL execution
// results, answer-check outcomes, request/response payloads, error
// types, and ID generation.
//
// The package performs no I/O. All types produce the JSON wire format
// served by the HTTP transport.
//
// Core types:
//   - [Question]: A generated practice question with setup SQL and reference query
//   - [ExecutionResult]: Outcome of running learner SQL inside a sandbox
//   - [CheckOutcome]: Verdict from comparing learner results against expected results
//   - [APIError]: Structured error with type, code, param, and message
package api
