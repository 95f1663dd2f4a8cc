package main

// Release builds override these with -ldflags "-X main.version=...".
var (
	version = "latest"
	commit  = "unknown"
	date    = "unknown"
)
