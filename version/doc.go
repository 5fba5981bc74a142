// Package version reports build information for svckit services.
//
// Version, commit and build time are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/svckit/version.Version=1.4.0"
//
// Unset values fall back to the VCS stamps the Go toolchain embeds.
package version
