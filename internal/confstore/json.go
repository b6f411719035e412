package confstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// MarshalJSON encodes the tree, keeping object field order.
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := n.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes data into n, replacing its contents.
func (n *Node) UnmarshalJSON(data []byte) error {
	parsed, err := FromJSON(data)
	if err != nil {
		return err
	}
	*n = *parsed
	return nil
}

func (n *Node) encode(buf *bytes.Buffer) error {
	if n == nil {
		buf.WriteString("null")
		return nil
	}
	switch n.kind {
	case KindObject:
		buf.WriteByte('{')
		for i, k := range n.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := n.fields[k].encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case KindArray:
		buf.WriteByte('[')
		for i, item := range n.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindLeaf:
		switch n.leaf.kind {
		case LeafNull:
			buf.WriteString("null")
		case LeafString:
			sb, err := json.Marshal(n.leaf.text)
			if err != nil {
				return err
			}
			buf.Write(sb)
		default:
			buf.WriteString(n.leaf.text)
		}
	}
	return nil
}

// FromJSON parses a JSON document into a tree, preserving object key order
// and number literals.
func FromJSON(data []byte) (*Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	n, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("trailing data after JSON value")
	}
	return n, nil
}

func decodeValue(dec *json.Decoder) (*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := NewObject()
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected object key %v", kt)
				}
				child, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				obj.Set(key, child)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			arr := NewArray()
			for dec.More() {
				child, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				arr.Append(child)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", t)
	case json.Number:
		return LeafNode(Leaf{kind: LeafNumber, text: t.String()}), nil
	case string:
		return LeafNode(String(t)), nil
	case bool:
		return LeafNode(Bool(t)), nil
	case nil:
		return LeafNode(Null()), nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

// FromAny converts decoded Go values (maps, slices, scalars) into a tree.
// Map keys are sorted since Go maps carry no order.
func FromAny(v any) (*Node, error) {
	switch t := v.(type) {
	case nil:
		return LeafNode(Null()), nil
	case *Node:
		return t.Clone(), nil
	case string:
		return LeafNode(String(t)), nil
	case bool:
		return LeafNode(Bool(t)), nil
	case json.Number:
		l, err := Number(t.String())
		if err != nil {
			return nil, err
		}
		return LeafNode(l), nil
	case int:
		return LeafNode(Int(int64(t))), nil
	case int64:
		return LeafNode(Int(t)), nil
	case uint64:
		return LeafNode(Uint(t)), nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil, fmt.Errorf("unsupported number %v", t)
		}
		return LeafNode(Float(t)), nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := NewObject()
		for _, k := range keys {
			child, err := FromAny(t[k])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			obj.Set(k, child)
		}
		return obj, nil
	case []any:
		arr := NewArray()
		for i, item := range t {
			child, err := FromAny(item)
			if err != nil {
				return nil, fmt.Errorf("%d: %w", i, err)
			}
			arr.Append(child)
		}
		return arr, nil
	}

	// Typed slices and maps (e.g. []map[string]any from TOML tables).
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return FromAny(items)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return FromAny(m)
	case reflect.Int8, reflect.Int16, reflect.Int32:
		return LeafNode(Int(rv.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return LeafNode(Uint(rv.Uint())), nil
	case reflect.Float32:
		return LeafNode(Float(rv.Float())), nil
	}
	return nil, fmt.Errorf("unsupported value of type %T", v)
}

// ToAny converts the tree into plain Go values. Numbers become int64 when
// integral and within range, float64 otherwise, and json.Number when they
// would lose precision.
func (n *Node) ToAny() any {
	if n == nil {
		return nil
	}
	switch n.kind {
	case KindObject:
		m := make(map[string]any, len(n.fields))
		for k, v := range n.fields {
			m[k] = v.ToAny()
		}
		return m
	case KindArray:
		s := make([]any, len(n.items))
		for i, v := range n.items {
			s[i] = v.ToAny()
		}
		return s
	}
	switch n.leaf.kind {
	case LeafString:
		return n.leaf.text
	case LeafBool:
		return n.leaf.text == "true"
	case LeafNumber:
		if i, err := strconv.ParseInt(n.leaf.text, 10, 64); err == nil {
			return i
		}
		if strings.ContainsAny(n.leaf.text, ".eE") {
			if f, err := strconv.ParseFloat(n.leaf.text, 64); err == nil {
				return f
			}
		}
		return json.Number(n.leaf.text)
	}
	return nil
}
