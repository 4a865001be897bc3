package main

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModuleVersion(t *testing.T) {
	tests := []struct {
		name    string
		ldflags string
		info    *debug.BuildInfo
		ok      bool
		want    string
	}{
		{name: "no build info", ldflags: "dev", want: "dev"},
		{name: "devel build", ldflags: "dev", info: &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}, ok: true, want: "dev"},
		{name: "installed module", ldflags: "dev", info: &debug.BuildInfo{Main: debug.Module{Version: "v0.3.1"}}, ok: true, want: "v0.3.1"},
		{name: "ldflags win", ldflags: "v1.0.0", info: &debug.BuildInfo{Main: debug.Module{Version: "v0.3.1"}}, ok: true, want: "v1.0.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := version
			version = tt.ldflags
			t.Cleanup(func() { version = orig })

			assert.Equal(t, tt.want, moduleVersion(tt.info, tt.ok))
		})
	}
}
