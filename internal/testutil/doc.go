// Package testutil contains fakes shared by package tests: tasks that record
// their inputs, a scripted chat model and a logger that captures events.
// They are not intended for production usage.
package testutil
