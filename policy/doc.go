// Package policy evaluates admission rules for configuration updates and
// deployment requests with OPA.
package policy
