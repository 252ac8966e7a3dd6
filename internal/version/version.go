// Package version holds the build version, set with
// -ldflags "-X github.com/bnema/snippets-cli/internal/version.Version=...".
package version

var Version = "dev"
