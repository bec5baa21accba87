package storage

import (
	"context"
	"encoding/base64"
	"fmt"
)

type opKind int

const (
	opHSet opKind = iota
	opHDel
	opSAdd
	opSRem
	opDel
)

// op is one queued write command
type op struct {
	kind    opKind
	key     string
	fields  map[string]string
	members []string // set members, hash field names (HDel) or keys (Del)
}

// pipeline buffers ops and hands them to the engine's apply function on Exec
type pipeline struct {
	ops   []op
	apply func(ctx context.Context, ops []op) error
}

func newPipeline(apply func(ctx context.Context, ops []op) error) *pipeline {
	return &pipeline{apply: apply}
}

func (p *pipeline) HSet(key string, fields map[string]string) {
	copied := make(map[string]string, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	p.ops = append(p.ops, op{kind: opHSet, key: key, fields: copied})
}

func (p *pipeline) HDel(key string, fields ...string) {
	p.ops = append(p.ops, op{kind: opHDel, key: key, members: append([]string(nil), fields...)})
}

func (p *pipeline) SAdd(key string, members ...string) {
	p.ops = append(p.ops, op{kind: opSAdd, key: key, members: append([]string(nil), members...)})
}

func (p *pipeline) SRem(key string, members ...string) {
	p.ops = append(p.ops, op{kind: opSRem, key: key, members: append([]string(nil), members...)})
}

func (p *pipeline) Del(keys ...string) {
	p.ops = append(p.ops, op{kind: opDel, members: append([]string(nil), keys...)})
}

func (p *pipeline) Len() int {
	return len(p.ops)
}

// Exec submits the queued ops. The buffer is cleared whether or not the
// submission succeeds.
func (p *pipeline) Exec(ctx context.Context) error {
	ops := p.ops
	p.ops = nil
	if len(ops) == 0 {
		return nil
	}
	return p.apply(ctx, ops)
}

// single runs one write through the engine's pipeline path
func single(ctx context.Context, s Store, queue func(p Pipeline)) error {
	p := s.Pipeline()
	queue(p)
	return p.Exec(ctx)
}

// encodeCursor turns the last key of a page into an opaque cursor
func encodeCursor(lastKey string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(lastKey))
}

// decodeCursor returns the key a scan should resume after ("" for start)
func decodeCursor(cursor string) (string, error) {
	if cursor == "" || cursor == CursorStart {
		return "", nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	return string(raw), nil
}
