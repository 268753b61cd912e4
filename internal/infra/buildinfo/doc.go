// Package buildinfo provides build information for dblite.
//
// Values are injected at link time:
//
//	go build -ldflags "-X github.com/yndnr/dblite-go/internal/infra/buildinfo.Version=v0.3.0"
//
// When a field is left at its default, Get fills it from the module
// build information embedded by the Go toolchain (VCS revision, commit
// time, compiler version). INFO and --version report these values.
package buildinfo
