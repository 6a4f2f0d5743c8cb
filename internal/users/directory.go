package users

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Directory is an in-memory Service.
type Directory struct {
	mu    sync.RWMutex
	users map[int64]*User
}

func NewDirectory(list ...*User) *Directory {
	d := &Directory{users: make(map[int64]*User, len(list))}
	for _, u := range list {
		d.Add(u)
	}
	return d
}

type directoryFile struct {
	Users []*User `yaml:"users"`
}

// LoadDirectory reads a YAML file of the form:
//
//	users:
//	  - id: 1
//	    username: jane
func LoadDirectory(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read users file: %w", err)
	}

	var f directoryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse users file %s: %w", path, err)
	}

	for i, u := range f.Users {
		if u == nil || u.ID <= 0 {
			return nil, fmt.Errorf("users file %s: entry %d: %w", path, i+1, ErrInvalidUserID)
		}
	}
	return NewDirectory(f.Users...), nil
}

func (d *Directory) Add(u *User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = u
}

func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.users)
}

func (d *Directory) GetUser(_ context.Context, id int64) (*User, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidUserID, id)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUserNotFound, id)
	}
	return u, nil
}
