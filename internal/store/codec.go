package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"surveyor/internal/model"
)

// Format identifies the encoding of the backing file.
type Format uint8

const (
	FormatJSON    Format = iota // human-editable, default
	FormatMsgpack               // compact binary
)

// String returns the string representation of Format.
func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatMsgpack:
		return "msgpack"
	default:
		return "unknown"
	}
}

// FormatForPath picks the format from the file extension; anything that is not
// msgpack is treated as JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp", ".msgpack":
		return FormatMsgpack
	default:
		return FormatJSON
	}
}

// Encode serialises the whole model. A nil or empty model yields a valid empty document.
func Encode(m *model.Model, format Format) ([]byte, error) {
	doc := toDocument(m)
	switch format {
	case FormatMsgpack:
		var buf bytes.Buffer
		enc := msgpack.NewEncoder(&buf)
		if err := enc.Encode(doc); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
}

// Decode parses a document. An empty (or whitespace-only) file decodes to an empty model.
func Decode(data []byte, format Format) (*model.Model, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return model.New(), nil
	}
	var doc document
	switch format {
	case FormatMsgpack:
		dec := msgpack.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&doc); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	}
	if doc.Version > schemaVersion {
		return nil, fmt.Errorf("unsupported document version %d (max %d)", doc.Version, schemaVersion)
	}
	return fromDocument(&doc), nil
}
