// Package assets loads texture images off the render goroutine and hands
// them to the scene once decoded.
package assets

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register decoders
	_ "image/png"
	"io/fs"
	"os"
	"path"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/signalsfoundry/orrery/core"
	"github.com/signalsfoundry/orrery/internal/logging"
	"github.com/signalsfoundry/orrery/internal/observability"
)

// ErrUnavailable wraps every failed texture load.
var ErrUnavailable = errors.New("texture unavailable")

// Recorder receives the outcome of each load.
type Recorder interface {
	ObserveTextureLoad(result string, d time.Duration)
}

type result struct {
	tex *core.Texture
	img image.Image
	err error
}

// Loader decodes textures concurrently. Texture and Apply must be called
// from the goroutine that owns the scene; decoding happens elsewhere and
// finished images are only bound to their handles inside Apply.
type Loader struct {
	fsys fs.FS
	log  logging.Logger
	rec  Recorder
	sem  *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	textures map[string]*core.Texture
	done     []result
	pending  int
}

// Option customises a Loader.
type Option func(*Loader)

// WithLogger sets the loader logger.
func WithLogger(l logging.Logger) Option {
	return func(ld *Loader) {
		if l != nil {
			ld.log = l
		}
	}
}

// WithRecorder reports load outcomes, typically to an
// observability.FrameCollector.
func WithRecorder(r Recorder) Option {
	return func(ld *Loader) { ld.rec = r }
}

// WithFS reads textures from fsys instead of the directory.
func WithFS(fsys fs.FS) Option {
	return func(ld *Loader) { ld.fsys = fsys }
}

// WithConcurrency caps the number of simultaneous decodes.
func WithConcurrency(n int) Option {
	return func(ld *Loader) {
		if n > 0 {
			ld.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// New returns a loader reading from dir.
func New(dir string, opts ...Option) *Loader {
	ctx, cancel := context.WithCancel(context.Background())
	l := &Loader{
		fsys:     os.DirFS(dir),
		log:      logging.Noop(),
		sem:      semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
		ctx:      ctx,
		cancel:   cancel,
		textures: make(map[string]*core.Texture),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Texture returns the handle for p, starting a background load the first
// time p is requested. Implements core.TextureSource.
func (l *Loader) Texture(p string) *core.Texture {
	l.mu.Lock()
	defer l.mu.Unlock()
	if tex, ok := l.textures[p]; ok {
		return tex
	}
	tex := core.NewTexture(p)
	l.textures[p] = tex
	l.pending++
	l.wg.Add(1)
	go l.load(tex)
	return tex
}

func (l *Loader) load(tex *core.Texture) {
	defer l.wg.Done()
	start := time.Now()

	img, err := l.decode(tex.Path)
	outcome := observability.TextureReady
	if err != nil {
		err = fmt.Errorf("%w: %s: %v", ErrUnavailable, tex.Path, err)
		outcome = observability.TextureUnavailable
		l.log.Warn(l.ctx, "texture unavailable; using base colour",
			logging.String("path", tex.Path),
			logging.Err(err),
		)
	} else {
		l.log.Debug(l.ctx, "texture decoded",
			logging.String("path", tex.Path),
			logging.Duration("took", time.Since(start)),
		)
	}
	if l.rec != nil {
		l.rec.ObserveTextureLoad(outcome, time.Since(start))
	}

	l.mu.Lock()
	l.done = append(l.done, result{tex: tex, img: img, err: err})
	l.mu.Unlock()
}

func (l *Loader) decode(p string) (image.Image, error) {
	if err := l.sem.Acquire(l.ctx, 1); err != nil {
		return nil, err
	}
	defer l.sem.Release(1)

	name := path.Clean(p)
	if !fs.ValidPath(name) {
		return nil, fmt.Errorf("invalid texture path %q", p)
	}
	f, err := l.fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return img, nil
}

// Apply binds every finished load to its handle and returns how many were
// bound. Implements core.TexturePump.
func (l *Loader) Apply() int {
	l.mu.Lock()
	done := l.done
	l.done = nil
	l.pending -= len(done)
	l.mu.Unlock()

	for _, r := range done {
		if r.err != nil {
			r.tex.Fail(r.err)
			continue
		}
		r.tex.Resolve(r.img)
	}
	return len(done)
}

// Pending returns the number of loads not yet applied.
func (l *Loader) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending
}

// Wait blocks until every started load has finished decoding or ctx is
// done. Finished loads still need Apply.
func (l *Loader) Wait(ctx context.Context) error {
	ch := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(ch)
	}()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close abandons loads still waiting for a decode slot and waits for the
// rest to finish.
func (l *Loader) Close() {
	l.cancel()
	l.wg.Wait()
}
