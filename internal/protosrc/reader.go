package protosrc

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"google.golang.org/protobuf/encoding/protodelim"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/known/anypb"
)

// Format names a record stream encoding.
type Format string

const (
	// FormatDelimited is varint length-prefixed binary messages.
	FormatDelimited Format = "delimited"
	// FormatJSONL is one protojson document per line.
	FormatJSONL Format = "jsonl"
	// FormatJSON is one JSON document; records are selected with a JSONPath.
	FormatJSON Format = "json"
)

// DefaultSelector picks every element of a top-level array.
const DefaultSelector = "$[*]"

// ReaderOptions configure NewReader.
type ReaderOptions struct {
	Format Format
	// MessageName is the full name of every record. Empty means records are
	// google.protobuf.Any and each is unpacked to its own type, which is how
	// a stream mixes kinds.
	MessageName string
	// Selector is the JSONPath used with FormatJSON.
	Selector string
	// MaxSize bounds one delimited message; 0 uses the protodelim default.
	MaxSize int64
}

// Reader pulls records from a byte stream.
type Reader struct {
	reg  *Registry
	mt   protoreflect.MessageType
	next func() ([]byte, error)
	br   *bufio.Reader
	opts ReaderOptions
	n    int64
}

// NewReader returns a reader over r.
func NewReader(r io.Reader, reg *Registry, opts ReaderOptions) (*Reader, error) {
	if reg == nil {
		reg = GlobalRegistry()
	}
	rd := &Reader{reg: reg, opts: opts}
	if opts.MessageName != "" {
		mt, err := reg.MessageType(opts.MessageName)
		if err != nil {
			return nil, err
		}
		rd.mt = mt
	}

	switch opts.Format {
	case FormatDelimited, "":
		rd.opts.Format = FormatDelimited
		rd.br = bufio.NewReaderSize(r, 64<<10)
	case FormatJSONL:
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64<<10), 64<<20)
		rd.next = func() ([]byte, error) {
			for sc.Scan() {
				line := bytes.TrimSpace(sc.Bytes())
				if len(line) > 0 {
					return line, nil
				}
			}
			if err := sc.Err(); err != nil {
				return nil, err
			}
			return nil, io.EOF
		}
	case FormatJSON:
		docs, err := selectJSON(r, opts.Selector)
		if err != nil {
			return nil, err
		}
		rd.next = func() ([]byte, error) {
			if len(docs) == 0 {
				return nil, io.EOF
			}
			d := docs[0]
			docs = docs[1:]
			return d, nil
		}
	default:
		return nil, fmt.Errorf("unknown record format %q", opts.Format)
	}
	return rd, nil
}

func selectJSON(r io.Reader, selector string) ([][]byte, error) {
	if selector == "" {
		selector = DefaultSelector
	}
	x, err := jp.ParseString(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", selector, err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	root, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	matches := x.Get(root)
	docs := make([][]byte, 0, len(matches))
	for _, m := range matches {
		docs = append(docs, []byte(oj.JSON(m)))
	}
	return docs, nil
}

// Count is the number of records returned so far.
func (r *Reader) Count() int64 { return r.n }

// Next returns the next record, or io.EOF after the last one.
func (r *Reader) Next() (proto.Message, error) {
	msg, err := r.read()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			err = fmt.Errorf("record %d: %w", r.n+1, err)
		}
		return nil, err
	}
	r.n++
	return msg, nil
}

func (r *Reader) newMessage() proto.Message {
	if r.mt != nil {
		return r.mt.New().Interface()
	}
	return &anypb.Any{}
}

func (r *Reader) read() (proto.Message, error) {
	msg := r.newMessage()
	if r.opts.Format == FormatDelimited {
		uo := protodelim.UnmarshalOptions{
			MaxSize:          r.opts.MaxSize,
			UnmarshalOptions: proto.UnmarshalOptions{Resolver: r.reg.Types},
		}
		if err := uo.UnmarshalFrom(r.br, msg); err != nil {
			return nil, err
		}
	} else {
		doc, err := r.next()
		if err != nil {
			return nil, err
		}
		uo := protojson.UnmarshalOptions{Resolver: r.reg.Types}
		if err := uo.Unmarshal(doc, msg); err != nil {
			return nil, err
		}
	}

	if a, ok := msg.(*anypb.Any); ok && r.mt == nil {
		inner, err := anypb.UnmarshalNew(a, proto.UnmarshalOptions{Resolver: r.reg.Types})
		if err != nil {
			return nil, fmt.Errorf("unpack %s: %w", a.GetTypeUrl(), err)
		}
		return inner, nil
	}
	return msg, nil
}

// Each calls fn for every remaining record.
func (r *Reader) Each(fn func(proto.Message) error) error {
	for {
		msg, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(msg); err != nil {
			return err
		}
	}
}
