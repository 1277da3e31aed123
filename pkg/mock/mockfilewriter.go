package mock

import (
	"os"
	"strings"
	"sync"
)

// MockFileWriter records files in memory. Err is returned by every call whose
// path contains FailOn, or by every call when FailOn is empty.
type MockFileWriter struct {
	Err    error
	FailOn string

	mu     sync.Mutex
	Files  map[string][]byte
	Mkdirs map[string]os.FileMode
	Order  []string
}

func NewMockFileWriter() *MockFileWriter {
	return &MockFileWriter{
		Files:  make(map[string][]byte),
		Mkdirs: make(map[string]os.FileMode),
	}
}

func (m *MockFileWriter) fails(path string) bool {
	return m.Err != nil && (m.FailOn == "" || strings.Contains(path, m.FailOn))
}

func (m *MockFileWriter) MkdirAll(path string, perm os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fails(path) {
		return m.Err
	}
	m.Mkdirs[path] = perm
	return nil
}

func (m *MockFileWriter) WriteFile(filename string, data []byte, perm os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fails(filename) {
		return m.Err
	}
	m.Files[filename] = append([]byte(nil), data...)
	m.Order = append(m.Order, filename)
	return nil
}
