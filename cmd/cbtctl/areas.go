package main

import (
	"fmt"
	"io"
	"os"

	"github.com/joshuapare/cbtkit/cbt/areas"
	"github.com/joshuapare/cbtkit/pkg/types"
)

// readDocument loads an areas document from an inline JSON string or a file
// ("-" reads stdin). Exactly one source must be given.
func readDocument(inline, file string) (*areas.Document, error) {
	var data []byte
	switch {
	case inline != "" && file != "":
		return nil, types.Errorf(types.ErrKindConfig, "--areas-json and --areas-file are mutually exclusive")
	case inline != "":
		data = []byte(inline)
	case file == "-":
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, types.Wrap(types.ErrKindIO, err, "read areas from stdin")
		}
		data = b
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, types.Wrap(types.ErrKindIO, err, fmt.Sprintf("read areas file %s", file))
		}
		data = b
	default:
		return nil, types.Errorf(types.ErrKindConfig, "one of --areas-json or --areas-file is required")
	}
	return areas.ParseDocument(data)
}

type regionsOutput struct {
	Regions []types.Range `json:"regions"`
	Bytes   uint64        `json:"bytes"`
}

func newRegionsOutput(regions []types.Range) regionsOutput {
	if regions == nil {
		regions = []types.Range{}
	}
	return regionsOutput{Regions: regions, Bytes: areas.TotalBytes(regions)}
}
