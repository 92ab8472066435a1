package naming

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	ThumbSuffix = "_thumb.webp"

	maxScan = 1 << 20
)

var ErrExhausted = errors.New("naming: no free output name")

// Request asks for the lowest free {Prefix}_{n}[_{Token}]{Ext} in Dir at or
// above Start, where every sidecar {base}{suffix} must be free too.
type Request struct {
	Dir      string
	Prefix   string
	Token    string
	Ext      string
	Start    int
	Sidecars []string
}

type Allocation struct {
	Name     string
	Base     string
	Path     string
	Sidecars map[string]string
	Number   int
	Next     int

	req Request
}

// Sidecar returns the reserved path for suffix, or "" if it was not requested.
func (a Allocation) Sidecar(suffix string) string {
	return a.Sidecars[suffix]
}

// Paths returns the primary path followed by its sidecars.
func (a Allocation) Paths() []string {
	out := []string{a.Path}
	for _, s := range a.req.Sidecars {
		out = append(out, a.Sidecars[s])
	}
	return out
}

func Base(prefix string, n int, token string) string {
	b := prefix + "_" + strconv.Itoa(n)
	if token != "" {
		b += "_" + token
	}
	return b
}

func Allocate(req Request) (Allocation, error) {
	if req.Prefix == "" {
		return Allocation{}, errors.New("naming: empty prefix")
	}
	n := req.Start
	if n < 1 {
		n = 1
	}
	for i := 0; i < maxScan; i, n = i+1, n+1 {
		a := build(req, n)
		free, err := allFree(a.Paths())
		if err != nil {
			return Allocation{}, err
		}
		if free {
			return a, nil
		}
	}
	return Allocation{}, fmt.Errorf("%w: %s in %s", ErrExhausted, req.Prefix, req.Dir)
}

func build(req Request, n int) Allocation {
	base := Base(req.Prefix, n, req.Token)
	a := Allocation{
		Name:     base + req.Ext,
		Base:     filepath.Join(req.Dir, base),
		Number:   n,
		Next:     n + 1,
		Sidecars: make(map[string]string, len(req.Sidecars)),
		req:      req,
	}
	a.Path = a.Base + req.Ext
	for _, s := range req.Sidecars {
		a.Sidecars[s] = a.Base + s
	}
	return a
}

func allFree(paths []string) (bool, error) {
	for _, p := range paths {
		_, err := os.Lstat(p)
		if err == nil {
			return false, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return false, fmt.Errorf("naming: stat %s: %w", p, err)
		}
	}
	return true, nil
}

// Context holds the per-prefix counters of one batch run. It is passed
// explicitly into every allocation instead of living in package state.
type Context struct {
	next map[string]int
}

func NewContext() *Context {
	return &Context{next: map[string]int{}}
}

func (c *Context) Next(prefix string) int {
	if n, ok := c.next[prefix]; ok {
		return n
	}
	return 1
}

func (c *Context) Allocate(dir, prefix, token, ext string, sidecars ...string) (Allocation, error) {
	a, err := Allocate(Request{
		Dir:      dir,
		Prefix:   prefix,
		Token:    token,
		Ext:      ext,
		Start:    c.Next(prefix),
		Sidecars: sidecars,
	})
	if err != nil {
		return Allocation{}, err
	}
	c.next[prefix] = a.Next
	return a, nil
}

// Confirm re-checks an allocation right before a file is moved into place.
// If something claimed the name meanwhile, the scan continues from there.
func (c *Context) Confirm(a Allocation) (Allocation, error) {
	free, err := allFree(a.Paths())
	if err != nil {
		return Allocation{}, err
	}
	if free {
		return a, nil
	}
	req := a.req
	req.Start = a.Number + 1
	na, err := Allocate(req)
	if err != nil {
		return Allocation{}, err
	}
	if na.Next > c.Next(req.Prefix) {
		c.next[req.Prefix] = na.Next
	}
	return na, nil
}
