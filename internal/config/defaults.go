package config

// DefaultPort is the port remotes connect to.
const DefaultPort = 3456

// DefaultLogLevel is used when neither the file nor a flag sets one.
const DefaultLogLevel = "info"

// Per-remote message rate limits.
const (
	DefaultClientRateLimit = 20.0
	DefaultClientRateBurst = 40
)
