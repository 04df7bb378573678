// Package sharecode turns a case document into a URL-safe string and
// back: JSON, deflate, base64, then URL-character substitution.
package sharecode

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/Afuraka666/Ungana-Medical-sub000/internal/casedoc"
)

// ErrDecode is the single failure mode of Decode. Malformed base64, a
// corrupt compressed stream and invalid JSON all collapse into it; a
// partial or garbage document is never returned.
var ErrDecode = errors.New("sharecode: invalid share code")

// Codec is the compression seam, substitutable under test.
type Codec interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// flateCodec is the default Codec, using raw deflate.
type flateCodec struct{}

func (flateCodec) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (flateCodec) Decompress(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	return io.ReadAll(r)
}

var (
	toURLSafe   = strings.NewReplacer("+", "-", "/", "_")
	fromURLSafe = strings.NewReplacer("-", "+", "_", "/")
)

var defaultCodec Codec = flateCodec{}

// Encode serializes, compresses and base64-encodes a document, then
// substitutes the URL-unsafe base64 characters. Decode reverses every
// step exactly.
func Encode(doc *casedoc.Document) (string, error) {
	return EncodeWith(defaultCodec, doc)
}

// EncodeWith is Encode with an explicit compression codec.
func EncodeWith(codec Codec, doc *casedoc.Document) (string, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	compressed, err := codec.Compress(data)
	if err != nil {
		return "", err
	}
	return toURLSafe.Replace(base64.StdEncoding.EncodeToString(compressed)), nil
}

// Decode reverses Encode. Any failure at any step yields ErrDecode.
// Decoded documents never carry a knowledge map; that structure is not
// part of the payload.
func Decode(code string) (*casedoc.Document, error) {
	return DecodeWith(defaultCodec, code)
}

// DecodeWith is Decode with an explicit compression codec.
func DecodeWith(codec Codec, code string) (*casedoc.Document, error) {
	compressed, err := base64.StdEncoding.DecodeString(fromURLSafe.Replace(code))
	if err != nil {
		return nil, ErrDecode
	}
	data, err := codec.Decompress(compressed)
	if err != nil {
		return nil, ErrDecode
	}
	var doc casedoc.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, ErrDecode
	}
	return &doc, nil
}
