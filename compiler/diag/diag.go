package diag

import (
	"github.com/nikandfor/hacked/hfmt"
	"nikand.dev/go/heap"
	"tlog.app/go/errors"
	"tlog.app/go/tlog/tlwire"
)

type (
	Severity int
	Stage    string

	Diag struct {
		Severity Severity
		Stage    Stage
		Line     int
		Col      int
		Err      error

		seq int
	}

	// List collects diagnostics from all stages and yields them in source order.
	// Stages report out of order (the checker runs after the whole file is parsed).
	List struct {
		h heap.Heap[Diag]

		seq    int
		errors int
	}
)

const (
	Warning Severity = iota
	Error
)

const (
	Scan  Stage = "scan"
	Parse Stage = "parse"
	Check Stage = "check"
	Gen   Stage = "gen"
)

func New() *List {
	return &List{
		h: heap.Heap[Diag]{Less: diagLess},
	}
}

func (l *List) Add(d Diag) {
	if l == nil {
		return
	}

	if l.h.Less == nil {
		l.h.Less = diagLess
	}

	d.seq = l.seq
	l.seq++

	if d.Severity == Error {
		l.errors++
	}

	l.h.Push(d)
}

func (l *List) Errorf(stage Stage, line, col int, format string, args ...any) {
	l.Add(Diag{
		Severity: Error,
		Stage:    stage,
		Line:     line,
		Col:      col,
		Err:      errors.New(format, args...),
	})
}

func (l *List) Warnf(stage Stage, line, col int, format string, args ...any) {
	l.Add(Diag{
		Severity: Warning,
		Stage:    stage,
		Line:     line,
		Col:      col,
		Err:      errors.New(format, args...),
	})
}

// Report adds err as an error diagnostic. Nil err is ignored.
func (l *List) Report(stage Stage, line, col int, err error) {
	if err == nil {
		return
	}

	l.Add(Diag{
		Severity: Error,
		Stage:    stage,
		Line:     line,
		Col:      col,
		Err:      err,
	})
}

func (l *List) Len() int {
	if l == nil {
		return 0
	}

	return l.h.Len()
}

func (l *List) HasErrors() bool {
	return l != nil && l.errors != 0
}

// Sorted returns diagnostics ordered by line, column and report order.
// The list itself is left intact.
func (l *List) Sorted() []Diag {
	if l == nil || l.h.Len() == 0 {
		return nil
	}

	cp := heap.Heap[Diag]{
		Data: append([]Diag(nil), l.h.Data...),
		Less: diagLess,
	}

	res := make([]Diag, 0, cp.Len())

	for cp.Len() != 0 {
		res = append(res, cp.Pop())
	}

	return res
}

// Append renders all diagnostics one per line.
func (l *List) Append(b []byte, name string) []byte {
	for _, d := range l.Sorted() {
		b = d.Append(b, name)
		b = append(b, '\n')
	}

	return b
}

func (d Diag) Append(b []byte, name string) []byte {
	if name != "" {
		b = append(b, name...)
		b = append(b, ':')
	}

	b = hfmt.Appendf(b, "%d:%d: %v: ", d.Line, d.Col, d.Stage)

	if d.Severity == Warning {
		b = append(b, "warning: "...)
	}

	return hfmt.Appendf(b, "%v", d.Err)
}

func (d Diag) Error() string {
	return string(d.Append(nil, ""))
}

func (d Diag) Unwrap() error { return d.Err }

func (d Diag) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 4)
	b = e.AppendKeyInt(b, "line", d.Line)
	b = e.AppendKeyInt(b, "col", d.Col)
	b = e.AppendString(b, "stage")
	b = e.AppendString(b, string(d.Stage))
	b = e.AppendString(b, "err")
	b = e.AppendString(b, d.Err.Error())

	return b
}

func (s Severity) String() string {
	if s == Error {
		return "error"
	}

	return "warning"
}

func diagLess(d []Diag, i, j int) bool {
	if d[i].Line != d[j].Line {
		return d[i].Line < d[j].Line
	}

	if d[i].Col != d[j].Col {
		return d[i].Col < d[j].Col
	}

	return d[i].seq < d[j].seq
}
