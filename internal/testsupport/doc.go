// Package testsupport provides fixtures shared by package tests: temp-dir
// backed configs, synthetic nginx cache entries and stub executables.
package testsupport
