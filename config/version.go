package config

// Version is stamped by the build, echoed in heartbeats and /version.
var Version = "unknown"
