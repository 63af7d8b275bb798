package kcache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	spverrors "github.com/wippyai/spvkernel/errors"
	"github.com/wippyai/spvkernel/frontend"
	"github.com/wippyai/spvkernel/metadata"
)

// Current schema version - increment when Entry format changes
const schemaVersion uint16 = 2

// Key identifies one cached build.
type Key [sha256.Size]byte

func (k Key) String() string { return hex.EncodeToString(k[:]) }

// KeyFor hashes a module together with every option that changes the build
// output. selection holds the kernel patterns behind opts.Locals, which
// cannot be recovered from the matchers themselves.
func KeyFor(module []byte, opts frontend.Options, selection ...string) Key {
	h := sha256.New()
	var buf [8]byte
	num := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	flag := func(b bool) {
		if b {
			num(1)
		} else {
			num(0)
		}
	}
	str := func(s string) {
		num(uint64(len(s)))
		io.WriteString(h, s)
	}

	num(uint64(schemaVersion))
	num(uint64(len(module)))
	h.Write(module)
	num(uint64(max(opts.Devices, 1)))
	flag(opts.PromoteLocals)
	flag(opts.AtomicWorkaround)
	num(uint64(len(selection)))
	for _, s := range selection {
		str(s)
	}

	var k Key
	h.Sum(k[:0])
	return k
}

// Entry is the cached result of a build.
type Entry struct {
	Schema  uint16                     `msgpack:"schema"`
	Created int64                      `msgpack:"created"`
	Kernels []*metadata.KernelMetadata `msgpack:"kernels"`
	// Binary is the rewritten module. It is nil when the build did not
	// change the input.
	Binary      []byte `msgpack:"binary,omitempty"`
	Promoted    int    `msgpack:"promoted"`
	AtomicFixes int    `msgpack:"atomic_fixes"`
}

// EntryFor captures a built program. input is the module the program was
// built from.
func EntryFor(prog *frontend.Program, input []byte) *Entry {
	e := &Entry{
		Schema:      schemaVersion,
		Created:     time.Now().Unix(),
		Kernels:     prog.Metadata,
		AtomicFixes: len(prog.AtomicFixes),
	}
	if prog.Promotions != nil {
		e.Promoted = len(prog.Promotions.Promotions)
	}
	if string(prog.Binary) != string(input) {
		e.Binary = prog.Binary
	}
	return e
}

// Cache stores build entries on disk, one zstd-compressed msgpack file per
// key. A nil *Cache is valid and caches nothing.
// Thread-safe for concurrent access.
type Cache struct {
	mu     sync.RWMutex
	dir    string
	enc    *zstd.Encoder
	dec    *zstd.Decoder
	closed bool
}

// DefaultDir returns the per-user cache directory for app.
func DefaultDir(app string) (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, app), nil
}

// Open creates the cache directory if needed and returns a cache rooted there.
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, spverrors.Wrap(spverrors.PhaseCache, spverrors.KindInvalidInput, err,
			fmt.Sprintf("cache directory %s", dir))
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &Cache{dir: dir, enc: enc, dec: dec}, nil
}

// Dir returns the cache root.
func (c *Cache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

// Close releases the encoder and decoder. Further calls are no-ops; the
// cache must not be used afterwards.
func (c *Cache) Close() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if err := c.enc.Close(); err != nil {
		Logger().Debug("closing cache encoder", zap.String("dir", c.dir), zap.Error(err))
	}
	c.dec.Close()
}

func (c *Cache) pathFor(key Key) string {
	return filepath.Join(c.dir, "kernels", key.String()+".mpz")
}

// Put serializes and writes an entry.
func (c *Cache) Put(key Key, e *Entry) error {
	if c == nil {
		return nil
	}
	if e.Schema == 0 {
		e.Schema = schemaVersion
	}
	raw, err := msgpack.Marshal(e)
	if err != nil {
		return err
	}
	data := c.enc.EncodeAll(raw, make([]byte, 0, len(raw)/2))

	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(f.Name(), p); err != nil {
		return err
	}
	Logger().Debug("cache put",
		zap.Stringer("key", key),
		zap.Int("raw", len(raw)),
		zap.Int("stored", len(data)))
	return nil
}

// Get reads an entry. Unreadable entries and entries written with another
// schema are reported as misses.
func (c *Cache) Get(key Key) (*Entry, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := os.ReadFile(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	raw, err := c.dec.DecodeAll(data, nil)
	if err != nil {
		Logger().Debug("cache entry not decompressible", zap.Stringer("key", key), zap.Error(err))
		return nil, false, nil
	}
	var e Entry
	if err := msgpack.Unmarshal(raw, &e); err != nil {
		Logger().Debug("cache entry not decodable", zap.Stringer("key", key), zap.Error(err))
		return nil, false, nil
	}
	if e.Schema != schemaVersion {
		Logger().Debug("cache entry schema mismatch",
			zap.Stringer("key", key),
			zap.Uint16("schema", e.Schema))
		return nil, false, nil
	}
	Logger().Debug("cache hit", zap.Stringer("key", key), zap.Int("kernels", len(e.Kernels)))
	return &e, true, nil
}

// Drop removes one entry. Dropping a missing entry is not an error.
func (c *Cache) Drop(key Key) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.Remove(c.pathFor(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// DropAll invalidates the cache, useful after format changes.
func (c *Cache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return os.RemoveAll(filepath.Join(c.dir, "kernels"))
}
