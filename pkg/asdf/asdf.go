// Package asdf writes and reads the subset of the ASDF 1.5 standard that
// visibility exports use: a YAML tree with !core/ndarray entries backed by
// uncompressed binary blocks. Files written here open with the Python asdf
// library; the reader handles exactly what the writer emits.
package asdf

import (
	"crypto/md5"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	ndarrayTag = "!core/ndarray-1.0.0"

	blockHeaderSize = 48 // flags + compression + 3 sizes + md5
)

var blockMagic = []byte{0xd3, 'B', 'L', 'K'}

var fileHeader = "#ASDF 1.0.0\n" +
	"#ASDF_STANDARD 1.5.0\n" +
	"%YAML 1.1\n" +
	"%TAG ! tag:stsci.edu:asdf/\n" +
	"--- !core/asdf-1.1.0\n"

// Library identifies the writer in the asdf_library tree entry.
var Library = map[string]string{
	"name":     "visread",
	"author":   "MPoL developers",
	"homepage": "https://github.com/mpol-dev/visread",
	"version":  "0.2.0",
}

// Write serializes the tree to w. Values of type *NDArray become binary
// blocks; maps, slices, strings, booleans and numbers map to plain YAML.
func Write(w io.Writer, tree map[string]any) error {
	full := map[string]any{
		"asdf_library": map[string]any{
			"name":     Library["name"],
			"author":   Library["author"],
			"homepage": Library["homepage"],
			"version":  Library["version"],
		},
	}
	for k, v := range tree {
		full[k] = v
	}

	var blocks []*NDArray
	root, err := anyToNode(full, &blocks)
	if err != nil {
		return err
	}
	body, err := yaml.Marshal(root)
	if err != nil {
		return fmt.Errorf("asdf: marshal tree: %w", err)
	}

	cw := &countingWriter{w: w}
	if _, err := io.WriteString(cw, fileHeader); err != nil {
		return err
	}
	if _, err := cw.Write(body); err != nil {
		return err
	}
	if _, err := io.WriteString(cw, "...\n"); err != nil {
		return err
	}

	offsets := make([]int64, len(blocks))
	for i, b := range blocks {
		offsets[i] = cw.n
		if err := writeBlock(cw, b.data); err != nil {
			return err
		}
	}
	return writeBlockIndex(cw, offsets)
}

// WriteFile serializes the tree to a file at path.
func WriteFile(path string, tree map[string]any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, tree); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func writeBlock(w io.Writer, data []byte) error {
	header := make([]byte, 0, 2+blockHeaderSize)
	header = append(header, byte(blockHeaderSize>>8), byte(blockHeaderSize&0xff))
	header = append(header, 0, 0, 0, 0) // flags
	header = append(header, 0, 0, 0, 0) // compression: none
	size := uint64(len(data))
	for _, v := range []uint64{size, size, size} { // allocated, used, data
		header = append(header,
			byte(v>>56), byte(v>>48), byte(v>>40), byte(v>>32),
			byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	}
	sum := md5.Sum(data)
	header = append(header, sum[:]...)

	if _, err := w.Write(blockMagic); err != nil {
		return err
	}
	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

func writeBlockIndex(w io.Writer, offsets []int64) error {
	if len(offsets) == 0 {
		return nil
	}
	if _, err := io.WriteString(w, "#ASDF BLOCK INDEX\n%YAML 1.1\n---\n"); err != nil {
		return err
	}
	for _, off := range offsets {
		if _, err := io.WriteString(w, "- "+strconv.FormatInt(off, 10)+"\n"); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "...\n")
	return err
}

// anyToNode converts a tree value to a YAML node, collecting NDArrays into
// blocks in deterministic (sorted-key) order.
func anyToNode(v any, blocks *[]*NDArray) (*yaml.Node, error) {
	switch t := v.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case *NDArray:
		t.Source = len(*blocks)
		*blocks = append(*blocks, t)
		return ndarrayNode(t), nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range keys {
			val, err := anyToNode(t[k], blocks)
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, val)
		}
		return node, nil
	case map[string]string:
		m := make(map[string]any, len(t))
		for k, s := range t {
			m[k] = s
		}
		return anyToNode(m, blocks)
	case []any:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range t {
			child, err := anyToNode(item, blocks)
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, child)
		}
		return node, nil
	case []string:
		items := make([]any, len(t))
		for i, s := range t {
			items[i] = s
		}
		return anyToNode(items, blocks)
	case []int:
		items := make([]any, len(t))
		for i, n := range t {
			items[i] = n
		}
		return anyToNode(items, blocks)
	case []float64:
		items := make([]any, len(t))
		for i, f := range t {
			items[i] = f
		}
		return anyToNode(items, blocks)
	case string:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: t}, nil
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(t)}, nil
	case int:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(t)}, nil
	case int32:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(int64(t), 10)}, nil
	case int64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(t, 10)}, nil
	case float64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: strconv.FormatFloat(t, 'g', -1, 64)}, nil
	default:
		return nil, fmt.Errorf("asdf: unsupported tree value type %T", v)
	}
}

func ndarrayNode(a *NDArray) *yaml.Node {
	shape := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle}
	for _, d := range a.Shape {
		shape.Content = append(shape.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(d)})
	}
	return &yaml.Node{
		Kind:  yaml.MappingNode,
		Tag:   ndarrayTag,
		Style: yaml.FlowStyle,
		Content: []*yaml.Node{
			{Kind: yaml.ScalarNode, Tag: "!!str", Value: "source"},
			{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(a.Source)},
			{Kind: yaml.ScalarNode, Tag: "!!str", Value: "datatype"},
			{Kind: yaml.ScalarNode, Tag: "!!str", Value: a.Datatype},
			{Kind: yaml.ScalarNode, Tag: "!!str", Value: "byteorder"},
			{Kind: yaml.ScalarNode, Tag: "!!str", Value: a.ByteOrder},
			{Kind: yaml.ScalarNode, Tag: "!!str", Value: "shape"},
			shape,
		},
	}
}
