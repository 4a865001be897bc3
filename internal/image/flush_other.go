//go:build !linux && !freebsd

package image

import "os"

func fdatasync(f *os.File) error {
	return f.Sync()
}
