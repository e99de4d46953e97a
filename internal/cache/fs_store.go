package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const blobsDir = "blobs"

// NewStore 以 basePath 为根目录构建正文存储，所有目录源共用一份实例。
func NewStore(basePath string) (Store, error) {
	if basePath == "" {
		return nil, errors.New("storage path required")
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve storage path: %w", err)
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage path: %w", err)
	}

	return &fileStore{
		basePath: abs,
		locks:    make(map[string]*entryLock),
		now:      time.Now,
	}, nil
}

// fileStore 通过 entryLock 避免同一 Locator 并发发布。
type fileStore struct {
	basePath string
	now      func() time.Time

	mu    sync.Mutex
	locks map[string]*entryLock
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

// Staged 是尚未发布的正文临时文件。
type Staged struct {
	store    *fileStore
	locator  Locator
	tempName string
	target   string
	size     int64
	modTime  time.Time

	mu   sync.Mutex
	done bool
}

func (s *fileStore) Get(ctx context.Context, locator Locator) (*ReadResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filePath, err := s.entryPath(locator)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, ErrNotFound
	}

	return &ReadResult{
		Entry: Entry{
			Locator:   locator,
			FilePath:  filePath,
			SizeBytes: info.Size(),
			ModTime:   info.ModTime(),
		},
		Reader: f,
	}, nil
}

func (s *fileStore) Stage(ctx context.Context, locator Locator, body io.Reader, opts PutOptions) (*Staged, error) {
	filePath, err := s.entryPath(locator)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, err
	}

	tempFile, err := os.CreateTemp(filepath.Dir(filePath), ".stage-*")
	if err != nil {
		return nil, err
	}
	tempName := tempFile.Name()

	src := body
	if opts.MaxBytes > 0 {
		src = io.LimitReader(body, opts.MaxBytes+1)
	}
	written, err := copyWithContext(ctx, tempFile, src)
	closeErr := tempFile.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && opts.MaxBytes > 0 && written > opts.MaxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		os.Remove(tempName)
		return nil, err
	}

	modTime := opts.ModTime
	if modTime.IsZero() {
		modTime = s.now().UTC()
	}
	return &Staged{
		store:    s,
		locator:  locator,
		tempName: tempName,
		target:   filePath,
		size:     written,
		modTime:  modTime,
	}, nil
}

func (s *fileStore) Remove(ctx context.Context, locator Locator) error {
	unlock := s.lockEntry(locator)
	defer unlock()

	filePath, err := s.entryPath(locator)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Publish 把暂存文件原子替换到正式位置。
func (st *Staged) Publish() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.done {
		return ErrStaleStage
	}
	st.done = true

	unlock := st.store.lockEntry(st.locator)
	defer unlock()

	if err := os.Rename(st.tempName, st.target); err != nil {
		os.Remove(st.tempName)
		return err
	}
	return os.Chtimes(st.target, st.modTime, st.modTime)
}

// Discard 删除暂存文件；已结束时为空操作。
func (st *Staged) Discard() {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.done {
		return
	}
	st.done = true
	os.Remove(st.tempName)
}

// Size 返回已写入的字节数。
func (st *Staged) Size() int64 { return st.size }

// Entry 返回发布后的条目描述。
func (st *Staged) Entry() Entry {
	return Entry{
		Locator:   st.locator,
		FilePath:  st.target,
		SizeBytes: st.size,
		ModTime:   st.modTime,
	}
}

func (s *fileStore) lockEntry(locator Locator) func() {
	key := locatorKey(locator)
	s.mu.Lock()
	lock := s.locks[key]
	if lock == nil {
		lock = &entryLock{}
		s.locks[key] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		s.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}

func (s *fileStore) entryPath(locator Locator) (string, error) {
	if locator.Source == "" {
		return "", errors.New("source name required")
	}

	rel := path.Clean("/" + locator.Path)
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" {
		return "", errors.New("content path required")
	}

	root := filepath.Join(s.basePath, locator.Source, blobsDir)
	filePath := filepath.Join(root, filepath.FromSlash(rel))
	if !strings.HasPrefix(filePath, root+string(filepath.Separator)) {
		return "", errors.New("invalid cache path")
	}
	return filePath, nil
}

func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	var copied int64
	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return copied, err
		}
		n, err := src.Read(buf)
		if n > 0 {
			w, wErr := dst.Write(buf[:n])
			copied += int64(w)
			if wErr != nil {
				return copied, wErr
			}
			if w < n {
				return copied, io.ErrShortWrite
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return copied, nil
			}
			return copied, err
		}
	}
}

func locatorKey(locator Locator) string {
	return locator.Source + "::" + locator.Path
}
