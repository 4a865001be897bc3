// Package image opens the source and target disk images of a replication run.
package image

import (
	"errors"
	"fmt"
	"os"

	"github.com/gofrs/flock"
	"github.com/spf13/afero"

	"github.com/joshuapare/cbtkit/pkg/types"
)

// Options controls Open.
type Options struct {
	// Lock takes an exclusive lock on <target>.lock for the lifetime of the
	// Pair. Only supported on the OS filesystem.
	Lock bool
}

// Pair is an open source (read-only) and target (read-write) image.
type Pair struct {
	Source afero.File
	Target afero.File

	lock *flock.Flock
}

// Open opens source for reading and target for in-place writing. Both paths
// must already exist; the target is never created or truncated.
func Open(fs afero.Fs, source, target string, opts Options) (*Pair, error) {
	if source == "" || target == "" {
		return nil, types.Errorf(types.ErrKindConfig, "source and target images are required")
	}
	// Check both before opening anything for writing.
	for _, p := range []struct{ role, path string }{{"source", source}, {"target", target}} {
		fi, err := fs.Stat(p.path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, types.Errorf(types.ErrKindIO, "%s image %s does not exist", p.role, p.path)
			}
			return nil, types.Wrap(types.ErrKindIO, err, fmt.Sprintf("stat %s image", p.role))
		}
		if fi.IsDir() {
			return nil, types.Errorf(types.ErrKindIO, "%s image %s is a directory", p.role, p.path)
		}
	}

	pair := &Pair{}
	if opts.Lock {
		if _, ok := fs.(*afero.OsFs); !ok {
			return nil, types.Errorf(types.ErrKindConfig, "target locking requires the OS filesystem")
		}
		pair.lock = flock.New(target + ".lock")
		locked, err := pair.lock.TryLock()
		if err != nil {
			return nil, types.Wrap(types.ErrKindIO, err, "lock target image")
		}
		if !locked {
			return nil, types.Errorf(types.ErrKindIO, "target image %s is locked by another process", target)
		}
	}

	src, err := fs.Open(source)
	if err != nil {
		pair.unlock()
		return nil, types.Wrap(types.ErrKindIO, err, "open source image")
	}
	dst, err := fs.OpenFile(target, os.O_RDWR, 0)
	if err != nil {
		src.Close()
		pair.unlock()
		return nil, types.Wrap(types.ErrKindIO, err, "open target image")
	}
	pair.Source, pair.Target = src, dst
	return pair, nil
}

// Sink returns the target as a writer whose Flush forces written data to
// stable storage.
func (p *Pair) Sink() Sink { return Sink{File: p.Target} }

// Sink is a target image that can be flushed.
type Sink struct {
	afero.File
}

// Flush forces written data to stable storage.
func (s Sink) Flush() error { return flushFile(s.File) }

// Flush forces written target data to stable storage.
func (p *Pair) Flush() error { return flushFile(p.Target) }

func flushFile(target afero.File) error {
	if f, ok := target.(*os.File); ok {
		if err := fdatasync(f); err != nil {
			return types.Wrap(types.ErrKindIO, err, "flush target image")
		}
		return nil
	}
	if err := target.Sync(); err != nil {
		return types.Wrap(types.ErrKindIO, err, "flush target image")
	}
	return nil
}

// Close closes both images and releases the target lock.
func (p *Pair) Close() error {
	var errs []error
	if p.Source != nil {
		errs = append(errs, p.Source.Close())
	}
	if p.Target != nil {
		errs = append(errs, p.Target.Close())
	}
	errs = append(errs, p.unlock())
	if err := errors.Join(errs...); err != nil {
		return types.Wrap(types.ErrKindIO, err, "close images")
	}
	return nil
}

func (p *Pair) unlock() error {
	if p.lock == nil {
		return nil
	}
	err := p.lock.Unlock()
	p.lock = nil
	return err
}
