// Package testsupport centralizes test fixtures: temp-directory configs and
// pre-opened stores shared across package tests.
package testsupport
