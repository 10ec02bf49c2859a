// ABOUTME: Package dedupe tracks recently seen keys to suppress repeats
// ABOUTME: within a configurable window

// Package dedupe provides a TTL cache of recently seen keys. The identity
// provider uses it to allow one password reset request per email address
// per window.
package dedupe
