package config

// Version is reported by /health and logged at startup. Release builds stamp it with
// -ldflags "-X github.com/jenezis/harmonizer/internal/config.Version=v1.2.3".
var Version = "dev"
