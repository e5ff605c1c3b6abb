// Package main hosts the poppo CLI entrypoint and command graph.
//
// The Cobra-based command tree exposes the shared state store to operators:
// status summaries, processed-issue queries, running-task maintenance,
// integrity audits, and configuration scaffolding. It centralizes config
// resolution and store construction so subcommands can focus on output.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
