//go:build !cgo

package cmd

import (
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/config"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/ports"
)

// newFrontEnd returns nil when CGo is unavailable. The daemon then serves
// feature files only: completion works, binding lookups find nothing.
func newFrontEnd(_ string, _ *config.Config) ports.HostFrontEnd {
	return nil
}
