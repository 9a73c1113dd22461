// Package registry держит набор редакторов, собранных из DSL и справочников,
// и умеет атомарно подменять его при перезагрузке.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"crudbind/internal/dsl"
	"crudbind/internal/editor"
	"crudbind/internal/reference"
	"crudbind/internal/store"
)

// ErrLint: конфигурация не прошла проверку; подробности в []Issue.
var ErrLint = errors.New("dsl has problems")

type Registry struct {
	mu      sync.RWMutex
	st      store.Store
	blob    editor.BlobStore
	debug   bool
	clock   func() time.Time
	doc     *dsl.Document
	enums   reference.Catalog
	editors map[string]*editor.Editor
}

type Option func(*Registry)

func WithBlob(b editor.BlobStore) Option    { return func(r *Registry) { r.blob = b } }
func WithDebug(on bool) Option              { return func(r *Registry) { r.debug = on } }
func WithClock(now func() time.Time) Option { return func(r *Registry) { r.clock = now } }

func New(st store.Store, opts ...Option) *Registry {
	r := &Registry{
		st:      st,
		clock:   time.Now,
		doc:     dsl.NewDocument(),
		enums:   reference.Catalog{},
		editors: map[string]*editor.Editor{},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Build собирает редакторы, не трогая текущий набор.
func (r *Registry) Build(doc *dsl.Document, enums reference.Catalog) (map[string]*editor.Editor, []Issue, error) {
	if enums == nil {
		enums = reference.Catalog{}
	}
	if issues := Lint(doc, enums); len(issues) > 0 {
		return nil, issues, ErrLint
	}
	b := &builder{st: r.st, doc: doc, enums: enums, blob: r.blob, debug: r.debug, now: r.clock()}
	out := make(map[string]*editor.Editor, len(doc.Editors))
	for key, d := range doc.Editors {
		e, err := b.editor(d)
		if err != nil {
			return nil, nil, err
		}
		out[key] = e
	}
	return out, nil, nil
}

// Load проверяет и собирает конфигурацию; при успехе подменяет набор целиком.
// При ошибке прежний набор остаётся рабочим.
func (r *Registry) Load(doc *dsl.Document, enums reference.Catalog) ([]Issue, error) {
	editors, issues, err := r.Build(doc, enums)
	if err != nil {
		return issues, err
	}
	if enums == nil {
		enums = reference.Catalog{}
	}
	r.mu.Lock()
	r.doc, r.enums, r.editors = doc, enums, editors
	r.mu.Unlock()
	log.WithFields(log.Fields{"editors": len(editors), "tables": len(doc.Tables), "enums": len(enums)}).Info("registry loaded")
	return nil, nil
}

// Reload перечитывает каталоги DSL и справочников.
func (r *Registry) Reload(dslDir, enumsDir string) ([]Issue, error) {
	doc, err := dsl.LoadAll(dslDir)
	if err != nil {
		return nil, fmt.Errorf("load dsl: %w", err)
	}
	enums, err := reference.LoadEnumCatalog(enumsDir)
	if err != nil {
		return nil, fmt.Errorf("load enums: %w", err)
	}
	return r.Load(doc, enums)
}

// NormalizeName приводит имя редактора к ключу набора.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Editor ищет редактор без учёта регистра.
func (r *Registry) Editor(name string) (*editor.Editor, bool) {
	key := NormalizeName(name)
	if key == "" {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.editors[key]
	return e, ok
}

// Names: имена редакторов в порядке сортировки.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.editors))
	for _, e := range r.editors {
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Document() *dsl.Document {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.doc
}

func (r *Registry) Enums() reference.Catalog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enums
}
