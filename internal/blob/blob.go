// Package blob stores uploaded product images and serves them back.
package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

var ErrNotFound = errors.New("blob not found")

type Storage interface {
	Put(ctx context.Context, path string, contentType string, r io.Reader) error
	// Open writes the blob to w and returns its content type.
	Open(ctx context.Context, path string, w io.Writer) (string, error)
}

// PublicURL is the address a stored path is served from.
func PublicURL(baseURL string, path string) string {
	return strings.TrimRight(baseURL, "/") + "/media/" + strings.TrimLeft(path, "/")
}

type object struct {
	contentType string
	data        []byte
}

type Memory struct {
	mu      sync.RWMutex
	objects map[string]object
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string]object)}
}

func (m *Memory) Put(_ context.Context, path string, contentType string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[path] = object{contentType: contentType, data: data}
	return nil
}

func (m *Memory) Open(_ context.Context, path string, w io.Writer) (string, error) {
	m.mu.RLock()
	obj, ok := m.objects[path]
	m.mu.RUnlock()
	if !ok {
		return "", ErrNotFound
	}
	if _, err := io.Copy(w, bytes.NewReader(obj.data)); err != nil {
		return "", err
	}
	return obj.contentType, nil
}
