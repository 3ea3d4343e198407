package asdf

import (
	"bytes"
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Read decodes a file produced by Write: the YAML tree with every ndarray
// entry resolved against its binary block.
func Read(r io.Reader) (map[string]any, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(raw, []byte("#ASDF ")) {
		return nil, fmt.Errorf("asdf: missing file header")
	}

	docStart := bytes.Index(raw, []byte("\n--- "))
	if docStart < 0 {
		return nil, fmt.Errorf("asdf: missing document start")
	}
	bodyStart := bytes.IndexByte(raw[docStart+1:], '\n')
	if bodyStart < 0 {
		return nil, fmt.Errorf("asdf: truncated document")
	}
	bodyStart += docStart + 2

	docEnd := bytes.Index(raw[bodyStart:], []byte("\n...\n"))
	if docEnd < 0 {
		return nil, fmt.Errorf("asdf: missing document end marker")
	}
	body := raw[bodyStart : bodyStart+docEnd+1]

	blocks, err := readBlocks(raw[bodyStart+docEnd+5:])
	if err != nil {
		return nil, err
	}

	var root yaml.Node
	if err := yaml.Unmarshal(body, &root); err != nil {
		return nil, fmt.Errorf("asdf: parse tree: %w", err)
	}
	node := &root
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}

	tree, err := nodeToAny(node, blocks)
	if err != nil {
		return nil, err
	}
	m, ok := tree.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("asdf: tree root is not a mapping")
	}
	return m, nil
}

// ReadFile decodes an ASDF file from disk.
func ReadFile(path string) (map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

func readBlocks(raw []byte) ([][]byte, error) {
	var blocks [][]byte
	pos := 0
	for {
		next := bytes.Index(raw[pos:], blockMagic)
		if next < 0 {
			break
		}
		pos += next
		if pos+6 > len(raw) {
			return nil, fmt.Errorf("asdf: truncated block header")
		}
		headerSize := int(raw[pos+4])<<8 | int(raw[pos+5])
		headerStart := pos + 6
		if headerStart+headerSize > len(raw) {
			return nil, fmt.Errorf("asdf: truncated block header")
		}
		header := raw[headerStart : headerStart+headerSize]
		if headerSize < blockHeaderSize {
			return nil, fmt.Errorf("asdf: block header too small (%d bytes)", headerSize)
		}

		usedSize := binary.BigEndian.Uint64(header[16:24])
		dataStart := headerStart + headerSize
		if dataStart+int(usedSize) > len(raw) {
			return nil, fmt.Errorf("asdf: truncated block data")
		}
		data := raw[dataStart : dataStart+int(usedSize)]

		var checksum [16]byte
		copy(checksum[:], header[32:48])
		if checksum != ([16]byte{}) && md5.Sum(data) != checksum {
			return nil, fmt.Errorf("asdf: block %d checksum mismatch", len(blocks))
		}

		blocks = append(blocks, data)
		pos = dataStart + int(usedSize)
	}
	return blocks, nil
}

func nodeToAny(n *yaml.Node, blocks [][]byte) (any, error) {
	switch n.Kind {
	case yaml.MappingNode:
		if strings.Contains(n.Tag, "core/ndarray") {
			return ndarrayFromNode(n, blocks)
		}
		out := make(map[string]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			val, err := nodeToAny(n.Content[i+1], blocks)
			if err != nil {
				return nil, err
			}
			out[n.Content[i].Value] = val
		}
		return out, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			val, err := nodeToAny(c, blocks)
			if err != nil {
				return nil, err
			}
			out = append(out, val)
		}
		return out, nil
	case yaml.ScalarNode:
		switch n.Tag {
		case "!!int":
			v, err := strconv.Atoi(n.Value)
			if err != nil {
				return nil, fmt.Errorf("asdf: bad integer %q", n.Value)
			}
			return v, nil
		case "!!float":
			v, err := strconv.ParseFloat(n.Value, 64)
			if err != nil {
				return nil, fmt.Errorf("asdf: bad float %q", n.Value)
			}
			return v, nil
		case "!!bool":
			return n.Value == "true", nil
		case "!!null":
			return nil, nil
		default:
			return n.Value, nil
		}
	case yaml.AliasNode:
		return nodeToAny(n.Alias, blocks)
	default:
		return nil, fmt.Errorf("asdf: unsupported node kind %d", n.Kind)
	}
}

func ndarrayFromNode(n *yaml.Node, blocks [][]byte) (*NDArray, error) {
	arr := &NDArray{ByteOrder: "little"}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		val := n.Content[i+1]
		switch key {
		case "source":
			src, err := strconv.Atoi(val.Value)
			if err != nil {
				return nil, fmt.Errorf("asdf: bad ndarray source %q", val.Value)
			}
			arr.Source = src
		case "datatype":
			arr.Datatype = val.Value
		case "byteorder":
			arr.ByteOrder = val.Value
		case "shape":
			for _, dim := range val.Content {
				d, err := strconv.Atoi(dim.Value)
				if err != nil {
					return nil, fmt.Errorf("asdf: bad shape dimension %q", dim.Value)
				}
				arr.Shape = append(arr.Shape, d)
			}
		}
	}
	if arr.Source < 0 || arr.Source >= len(blocks) {
		return nil, fmt.Errorf("asdf: ndarray source %d out of range (%d blocks)", arr.Source, len(blocks))
	}
	arr.data = blocks[arr.Source]
	return arr, nil
}
