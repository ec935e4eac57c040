// Package fsutil abstracts file access behind a small interface so the
// ingest watcher and the plot writer can run against an in-memory tree
// in tests.
package fsutil

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// FileSystem is the surface the service needs: whole-file reads and
// writes plus the directory operations around them. Nothing here
// streams; archives and plots are small enough to hold in memory.
type FileSystem interface {
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm os.FileMode) error
	Stat(name string) (fs.FileInfo, error)
	ReadDir(name string) ([]fs.DirEntry, error)
	MkdirAll(path string, perm os.FileMode) error
	Exists(name string) bool
}

var (
	_ FileSystem = OSFileSystem{}
	_ FileSystem = (*MemoryFileSystem)(nil)
)

// OSFileSystem passes every call through to the os package.
type OSFileSystem struct{}

func (OSFileSystem) ReadFile(name string) ([]byte, error) { return os.ReadFile(name) }

func (OSFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(name, data, perm)
}

func (OSFileSystem) Stat(name string) (fs.FileInfo, error) { return os.Stat(name) }

func (OSFileSystem) ReadDir(name string) ([]fs.DirEntry, error) { return os.ReadDir(name) }

func (OSFileSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (OSFileSystem) Exists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

// MemoryFileSystem keeps a file tree in memory. Safe for concurrent
// use. Paths are normalized to cleaned slash form, so "exports//run.zmes"
// and "exports/run.zmes" name the same file. Writes require the parent
// directory to exist, matching os.WriteFile.
type MemoryFileSystem struct {
	mu    sync.Mutex
	files map[string]*memFile
	dirs  map[string]bool
}

type memFile struct {
	data    []byte
	mode    os.FileMode
	modTime time.Time
}

func NewMemoryFileSystem() *MemoryFileSystem {
	return &MemoryFileSystem{
		files: make(map[string]*memFile),
		dirs:  map[string]bool{".": true, "/": true},
	}
}

func normalize(name string) string {
	return path.Clean(filepath.ToSlash(name))
}

func (m *MemoryFileSystem) ReadFile(name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.files[normalize(name)]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	out := make([]byte, len(f.data))
	copy(out, f.data)
	return out, nil
}

func (m *MemoryFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	key := normalize(name)
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dirs[key] {
		return &fs.PathError{Op: "write", Path: name, Err: fs.ErrInvalid}
	}
	if !m.dirs[path.Dir(key)] {
		return &fs.PathError{Op: "write", Path: name, Err: fs.ErrNotExist}
	}

	stored := make([]byte, len(data))
	copy(stored, data)
	m.files[key] = &memFile{data: stored, mode: perm, modTime: time.Now()}
	return nil
}

func (m *MemoryFileSystem) Stat(name string) (fs.FileInfo, error) {
	key := normalize(name)
	m.mu.Lock()
	defer m.mu.Unlock()

	if f, ok := m.files[key]; ok {
		return fileInfo{name: path.Base(key), size: int64(len(f.data)), mode: f.mode, modTime: f.modTime}, nil
	}
	if m.dirs[key] {
		return fileInfo{name: path.Base(key), mode: fs.ModeDir | 0o755, isDir: true}, nil
	}
	return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
}

func (m *MemoryFileSystem) ReadDir(name string) ([]fs.DirEntry, error) {
	key := normalize(name)
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.dirs[key] {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}

	prefix := key + "/"
	if key == "." {
		prefix = ""
	} else if key == "/" {
		prefix = "/"
	}

	var entries []fs.DirEntry
	for p, f := range m.files {
		if child, ok := directChild(p, prefix); ok {
			entries = append(entries, dirEntry{fileInfo{
				name: child, size: int64(len(f.data)), mode: f.mode, modTime: f.modTime,
			}})
		}
	}
	for p := range m.dirs {
		if p == key {
			continue
		}
		if child, ok := directChild(p, prefix); ok {
			entries = append(entries, dirEntry{fileInfo{
				name: child, mode: fs.ModeDir | 0o755, isDir: true,
			}})
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

// directChild reports whether p sits immediately under the directory
// named by prefix, returning its base name when it does.
func directChild(p, prefix string) (string, bool) {
	if !strings.HasPrefix(p, prefix) {
		return "", false
	}
	rest := strings.TrimPrefix(p, prefix)
	if rest == "" || rest == "." || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}

func (m *MemoryFileSystem) MkdirAll(dir string, perm os.FileMode) error {
	key := normalize(dir)
	m.mu.Lock()
	defer m.mu.Unlock()

	for p := key; ; p = path.Dir(p) {
		if _, isFile := m.files[p]; isFile {
			return &fs.PathError{Op: "mkdir", Path: dir, Err: fs.ErrExist}
		}
		m.dirs[p] = true
		if p == "." || p == "/" {
			break
		}
	}
	return nil
}

func (m *MemoryFileSystem) Exists(name string) bool {
	key := normalize(name)
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.files[key]
	return ok || m.dirs[key]
}

type fileInfo struct {
	name    string
	size    int64
	mode    os.FileMode
	modTime time.Time
	isDir   bool
}

func (i fileInfo) Name() string       { return i.name }
func (i fileInfo) Size() int64        { return i.size }
func (i fileInfo) Mode() os.FileMode  { return i.mode }
func (i fileInfo) ModTime() time.Time { return i.modTime }
func (i fileInfo) IsDir() bool        { return i.isDir }
func (i fileInfo) Sys() any           { return nil }

type dirEntry struct{ info fileInfo }

func (e dirEntry) Name() string               { return e.info.name }
func (e dirEntry) IsDir() bool                { return e.info.isDir }
func (e dirEntry) Type() fs.FileMode          { return e.info.Mode().Type() }
func (e dirEntry) Info() (fs.FileInfo, error) { return e.info, nil }
