package graft

// Version is the library version, surfaced by the CLI and the HTTP API.
var Version = "0.1.0"
