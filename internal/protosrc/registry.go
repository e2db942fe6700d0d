package protosrc

import (
	"fmt"
	"io"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

// Registry resolves message names to types. Types built from a descriptor
// set are dynamic (dynamicpb); no generated code is needed.
type Registry struct {
	Files *protoregistry.Files
	Types *protoregistry.Types
}

// GlobalRegistry resolves against the types linked into the binary.
func GlobalRegistry() *Registry {
	return &Registry{Files: protoregistry.GlobalFiles, Types: protoregistry.GlobalTypes}
}

// LoadDescriptorSet reads a serialized FileDescriptorSet, as written by
// `protoc --include_imports --descriptor_set_out`.
func LoadDescriptorSet(r io.Reader) (*Registry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read descriptor set: %w", err)
	}
	var set descriptorpb.FileDescriptorSet
	if err := proto.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("decode descriptor set: %w", err)
	}
	return NewRegistry(&set)
}

// NewRegistry builds a registry from set.
func NewRegistry(set *descriptorpb.FileDescriptorSet) (*Registry, error) {
	files, err := protodesc.NewFiles(set)
	if err != nil {
		return nil, fmt.Errorf("build files: %w", err)
	}

	types := new(protoregistry.Types)
	var regErr error
	files.RangeFiles(func(fd protoreflect.FileDescriptor) bool {
		regErr = registerMessages(types, fd.Messages())
		return regErr == nil
	})
	if regErr != nil {
		return nil, regErr
	}
	return &Registry{Files: files, Types: types}, nil
}

func registerMessages(types *protoregistry.Types, msgs protoreflect.MessageDescriptors) error {
	for i := 0; i < msgs.Len(); i++ {
		md := msgs.Get(i)
		if md.IsMapEntry() {
			continue
		}
		if err := types.RegisterMessage(dynamicpb.NewMessageType(md)); err != nil {
			return fmt.Errorf("register %s: %w", md.FullName(), err)
		}
		if err := registerMessages(types, md.Messages()); err != nil {
			return err
		}
	}
	return nil
}

// MessageType finds a message type by full name.
func (r *Registry) MessageType(name string) (protoreflect.MessageType, error) {
	mt, err := r.Types.FindMessageByName(protoreflect.FullName(name))
	if err != nil {
		return nil, fmt.Errorf("message %q: %w", name, err)
	}
	return mt, nil
}

// MessageNames lists every registered message in registration order of
// their files.
func (r *Registry) MessageNames() []string {
	var names []string
	r.Types.RangeMessages(func(mt protoreflect.MessageType) bool {
		names = append(names, string(mt.Descriptor().FullName()))
		return true
	})
	return names
}
