// Package codegen renders text artifacts from schemas: a GraphQL-style
// selection set that requests every leaf of a message, and strawberry
// (Python) type definitions for a type tree.
package codegen

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/wes-public-apps/protobuf-db/internal/schema"
)

// ErrRecursiveQuery is returned by Query when a message reaches itself and
// no depth limit is set. A selection set cannot express unbounded recursion.
var ErrRecursiveQuery = errors.New("codegen: recursive message needs a depth limit")

// Options tune rendering.
type Options struct {
	// MaxDepth bounds query nesting; 0 means unbounded. Each brace block is
	// one level and the outermost block is level 1. Fields whose block would
	// exceed the limit are left out.
	MaxDepth int
	Logger   *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Query renders the selection set for m. Fields appear in tag order, each on
// its own line indented by tabs. Map fields select key and value. The result
// has no trailing newline.
func Query(m *schema.Message, opts Options) (string, error) {
	q := &querier{opts: opts, log: opts.logger(), onPath: map[string]bool{}}
	var sb strings.Builder
	if err := q.block(&sb, m, 1); err != nil {
		return "", err
	}
	return sb.String(), nil
}

type querier struct {
	opts   Options
	log    *zap.Logger
	onPath map[string]bool
}

func (q *querier) fits(level int) bool {
	return q.opts.MaxDepth <= 0 || level <= q.opts.MaxDepth
}

// block writes "{ ... }" for m at the given level.
func (q *querier) block(sb *strings.Builder, m *schema.Message, level int) error {
	if q.onPath[m.FullName] && q.opts.MaxDepth <= 0 {
		return fmt.Errorf("%w: %s", ErrRecursiveQuery, m.FullName)
	}
	q.onPath[m.FullName] = true
	defer delete(q.onPath, m.FullName)

	tabs := strings.Repeat("\t", level)
	sb.WriteByte('{')
	for _, f := range m.SortedFields() {
		if err := schema.Supported(f); err != nil {
			q.log.Warn("query: skipping field", zap.String("message", m.FullName), zap.Error(err))
			continue
		}

		switch {
		case f.IsMap():
			if !q.fits(level + 1) {
				continue
			}
			if f.Kind == schema.KindMessage && !q.fits(level+2) {
				continue
			}
			sb.WriteString("\n" + tabs + f.Name + " {")
			sb.WriteString("\n" + tabs + "\tkey")
			sb.WriteString("\n" + tabs + "\tvalue")
			if f.Kind == schema.KindMessage {
				sb.WriteByte(' ')
				if err := q.block(sb, f.Message, level+2); err != nil {
					return err
				}
			}
			sb.WriteString("\n" + tabs + "}")
		case f.Kind == schema.KindMessage:
			if !q.fits(level + 1) {
				continue
			}
			sb.WriteString("\n" + tabs + f.Name + " ")
			if err := q.block(sb, f.Message, level+1); err != nil {
				return err
			}
		default:
			sb.WriteString("\n" + tabs + f.Name)
		}
	}
	sb.WriteString("\n" + tabs[1:] + "}")
	return nil
}
