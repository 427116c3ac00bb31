// Package source selects a document driver by file name. YAML, JSON and HCL
// drivers are registered by default; callers may register more with Register.
package source

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	ciskema "github.com/reoring/ciskema"
	"github.com/reoring/ciskema/source/hclsrc"
	"github.com/reoring/ciskema/source/jsonsrc"
	"github.com/reoring/ciskema/source/yamlsrc"
)

// Driver builds a Source for documents with one of its extensions.
type Driver interface {
	Name() string
	Extensions() []string
	New(filename string, data []byte, opt ciskema.ParseOpt) ciskema.Source
}

type funcDriver struct {
	name string
	exts []string
	fn   func(string, []byte, ciskema.ParseOpt) ciskema.Source
}

func (d funcDriver) Name() string         { return d.name }
func (d funcDriver) Extensions() []string { return d.exts }
func (d funcDriver) New(filename string, data []byte, opt ciskema.ParseOpt) ciskema.Source {
	return d.fn(filename, data, opt)
}

var (
	driversMu sync.RWMutex
	byExt     = map[string]Driver{}
)

func init() {
	Register(funcDriver{name: "yaml", exts: []string{".yml", ".yaml"}, fn: func(_ string, b []byte, o ciskema.ParseOpt) ciskema.Source {
		return yamlsrc.WithOptions(b, o)
	}})
	Register(funcDriver{name: "json", exts: []string{".json"}, fn: func(_ string, b []byte, o ciskema.ParseOpt) ciskema.Source {
		return jsonsrc.WithOptions(b, o)
	}})
	Register(funcDriver{name: "hcl", exts: []string{".hcl"}, fn: hclsrc.WithOptions})
}

// Register adds d for each of its extensions, replacing earlier drivers.
// nil drivers are ignored.
func Register(d Driver) {
	if d == nil {
		return
	}
	driversMu.Lock()
	defer driversMu.Unlock()
	for _, ext := range d.Extensions() {
		byExt[strings.ToLower(ext)] = d
	}
}

// Lookup returns the driver registered for the extension of filename.
func Lookup(filename string) (Driver, bool) {
	driversMu.RLock()
	defer driversMu.RUnlock()
	d, ok := byExt[strings.ToLower(filepath.Ext(filename))]
	return d, ok
}

// Extensions lists every registered extension in sorted order.
func Extensions() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	exts := make([]string, 0, len(byExt))
	for ext := range byExt {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// ForPath returns a Source for data using the driver matching filename.
func ForPath(filename string, data []byte, opt ciskema.ParseOpt) (ciskema.Source, error) {
	d, ok := Lookup(filename)
	if !ok {
		return nil, fmt.Errorf("no driver for %q (supported: %s)", filename, strings.Join(Extensions(), ", "))
	}
	return d.New(filename, data, opt), nil
}
