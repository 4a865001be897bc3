package main

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/cbtkit/cbt/replicate"
	"github.com/joshuapare/cbtkit/pkg/types"
)

func setupApply(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	resetGlobals(t, fs)
	require.NoError(t, afero.WriteFile(fs, "source.img", pattern(64*1024), 0o644))
	require.NoError(t, afero.WriteFile(fs, "target.img", make([]byte, 64*1024), 0o644))
	applySource, applyTarget = "source.img", "target.img"
	applyAreasJSON, applyAreasFile = "", ""
	return fs
}

func TestApply_CopiesCoalescedRegions(t *testing.T) {
	fs := setupApply(t)
	settings.CoalesceGap = 49
	applyAreasJSON = `{"disk_id":"scsi0:0","areas":[{"offset":150,"length":50},{"offset":0,"length":100},{"offset":10000,"length":5000}]}`

	output, err := captureOutput(t, runApply)
	require.NoError(t, err)
	assert.Contains(t, output, "Copied 3 regions (5,150 bytes)")

	src := pattern(64 * 1024)
	got, err := afero.ReadFile(fs, "target.img")
	require.NoError(t, err)
	assert.Equal(t, src[:100], got[:100])
	assert.Equal(t, make([]byte, 50), got[100:150], "gap of 50 exceeds tolerance 49")
	assert.Equal(t, src[150:200], got[150:200])
	assert.Equal(t, src[10000:15000], got[10000:15000])
	assert.Equal(t, make([]byte, 64*1024-15000), got[15000:])
}

func TestApply_JSON(t *testing.T) {
	setupApply(t)
	jsonOut = true
	applyAreasJSON = `{"areas":[{"offset":0,"length":100},{"offset":150,"length":50}]}`

	output, err := captureOutput(t, runApply)
	require.NoError(t, err)

	var out struct {
		Regions []types.Range `json:"regions"`
		Bytes   uint64        `json:"bytes"`
		Chunks  int           `json:"chunks"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &out))
	assert.Equal(t, []types.Range{{Offset: 0, Length: 200}}, out.Regions)
	assert.Equal(t, uint64(200), out.Bytes)
	assert.Equal(t, 1, out.Chunks)
}

func TestApply_MissingSourceWritesNothing(t *testing.T) {
	fs := setupApply(t)
	applySource = "absent.img"
	applyAreasJSON = `{"areas":[{"offset":0,"length":4096}]}`

	_, err := captureOutput(t, runApply)
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.ErrKindIO))

	got, err := afero.ReadFile(fs, "target.img")
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 64*1024), got)
}

func TestApply_BadInput(t *testing.T) {
	tests := []struct {
		name       string
		inline     string
		file       string
		wantKind   types.ErrKind
		wantSubstr string
	}{
		{name: "no areas source", wantKind: types.ErrKindConfig},
		{name: "both sources", inline: `{}`, file: "x.json", wantKind: types.ErrKindConfig},
		{name: "malformed json", inline: `{"areas":[`, wantKind: types.ErrKindFormat},
		{name: "zero length", inline: `{"areas":[{"offset":0,"length":0}]}`, wantKind: types.ErrKindFormat},
		{name: "missing file", file: "/nonexistent/areas.json", wantKind: types.ErrKindIO},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupApply(t)
			applyAreasJSON, applyAreasFile = tt.inline, tt.file
			_, err := captureOutput(t, runApply)
			require.Error(t, err)
			assert.True(t, types.IsKind(err, tt.wantKind), "got %v", err)
		})
	}
}

func TestApply_ShortSource(t *testing.T) {
	fs := setupApply(t)
	require.NoError(t, afero.WriteFile(fs, "source.img", pattern(1000), 0o644))
	applyAreasJSON = `{"areas":[{"offset":0,"length":4096}]}`

	_, err := captureOutput(t, runApply)
	require.Error(t, err)
	var sr *types.ShortReadError
	assert.ErrorAs(t, err, &sr)
}

func TestExecute_ApplyChunkFlag(t *testing.T) {
	fs := setupApply(t)
	rootCmd.SetArgs([]string{
		"apply", "--json",
		"--source", "source.img",
		"--target", "target.img",
		"--areas-json", `{"areas":[{"offset":0,"length":10000}]}`,
		"--chunk", "4096",
	})
	t.Cleanup(func() {
		resetRoot()
		if cmd, _, err := rootCmd.Find([]string{"apply"}); err == nil {
			_ = cmd.Flags().Set("chunk", strconv.FormatUint(replicate.DefaultChunkSize, 10))
		}
	})

	var code int
	output, _ := captureOutput(t, func() error {
		code = execute(context.Background())
		return nil
	})
	require.Equal(t, 0, code, output)
	assert.Equal(t, uint64(4096), settings.ChunkSize)

	var out struct {
		Bytes  uint64 `json:"bytes"`
		Chunks int    `json:"chunks"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &out))
	assert.Equal(t, uint64(10000), out.Bytes)
	assert.Equal(t, 3, out.Chunks)

	got, err := afero.ReadFile(fs, "target.img")
	require.NoError(t, err)
	assert.Equal(t, pattern(64 * 1024)[:10000], got[:10000])
}
