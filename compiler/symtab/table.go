package symtab

import (
	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/minic/compiler/set"
	"github.com/slowlang/minic/compiler/tp"
)

type (
	Attrs struct {
		Type tp.Type
		Func *tp.Func // non-nil for functions

		Line int
		Col  int
	}

	Entry struct {
		Name  string
		Scope int

		Attrs

		next *Entry
	}

	// Table maps names to the nearest visible declaration.
	// Entries are tagged with the scope depth they were declared at
	// and purged when that scope is exited.
	Table struct {
		// RejectDuplicates makes Insert of a name already declared
		// in the current scope return ErrRedeclared.
		// Either way the first declaration wins.
		RejectDuplicates bool

		buckets [Buckets]*Entry
		used    set.Bitmap

		depth int
		n     int
	}
)

const Buckets = 211

var ErrRedeclared = errors.New("redeclared in this scope")

func New() *Table {
	return &Table{
		used: set.MakeBitmap(Buckets),
	}
}

func (t *Table) Depth() int { return t.depth }

// Len is the number of live entries at all depths.
func (t *Table) Len() int { return t.n }

func (t *Table) EnterScope() {
	t.depth++
}

// ExitScope purges entries of the current scope and returns to the enclosing one.
// At depth 0 it does nothing.
func (t *Table) ExitScope() {
	if t.depth == 0 {
		return
	}

	purged := 0

	t.used.Range(func(i int) bool {
		p := &t.buckets[i]

		for *p != nil {
			if (*p).Scope == t.depth {
				*p = (*p).next
				purged++

				continue
			}

			p = &(*p).next
		}

		if t.buckets[i] == nil {
			t.used.Clear(i)
		}

		return true
	})

	t.n -= purged

	if tr := tlog.Root(); tr.If("symtab") {
		tr.Printw("exit scope", "depth", t.depth, "purged", purged, "left", t.n)
	}

	t.depth--
}

// Insert declares name at the current depth.
// If it's already declared there the existing entry is returned.
func (t *Table) Insert(name string, a Attrs) (*Entry, error) {
	h := hash(name)

	for e := t.buckets[h]; e != nil; e = e.next {
		if e.Scope != t.depth || e.Name != name {
			continue
		}

		if t.RejectDuplicates {
			return e, errors.Wrap(ErrRedeclared, "%s (previous at %d:%d)", name, e.Line, e.Col)
		}

		return e, nil
	}

	e := &Entry{
		Name:  name,
		Scope: t.depth,
		Attrs: a,
		next:  t.buckets[h],
	}

	t.buckets[h] = e
	t.used.Set(int(h))
	t.n++

	if tr := tlog.Root(); tr.If("symtab") {
		tr.Printw("insert", "name", name, "type", a.Type.String(), "func", a.Func != nil, "depth", t.depth, "bucket", h)
	}

	return e, nil
}

// Lookup returns the deepest declaration of name not deeper than the current scope, or nil.
func (t *Table) Lookup(name string) *Entry {
	var best *Entry

	for e := t.buckets[hash(name)]; e != nil; e = e.next {
		if e.Name != name || e.Scope > t.depth {
			continue
		}

		if best == nil || e.Scope > best.Scope {
			best = e
		}
	}

	return best
}

func (t *Table) Reset() {
	t.used.Range(func(i int) bool {
		t.buckets[i] = nil
		return true
	})

	t.used.Reset()
	t.depth = 0
	t.n = 0
}

// Append dumps live entries in bucket order, newest first within a bucket.
func (t *Table) Append(b []byte) []byte {
	t.used.Range(func(i int) bool {
		for e := t.buckets[i]; e != nil; e = e.next {
			b = hfmt.Appendf(b, "%d\t%s\tscope %d\t", i, e.Name, e.Scope)

			if e.Func != nil {
				b = hfmt.Appendf(b, "func %s", e.Func.String())
			} else {
				b = append(b, e.Type.String()...)
			}

			b = append(b, '\n')
		}

		return true
	})

	return b
}

func (t *Table) String() string {
	return string(t.Append(nil))
}

func (e *Entry) IsFunc() bool { return e.Func != nil }

// hash is 32-bit FNV-1a reduced to a bucket index.
func hash(s string) uint32 {
	h := uint32(2166136261)

	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}

	return h % Buckets
}
