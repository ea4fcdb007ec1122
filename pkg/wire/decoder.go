package wire

import (
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/indigo-bus/indigo-go/pkg/property"
	"github.com/indigo-bus/indigo-go/pkg/version"
)

// DefaultMaxValueSize bounds the text of one non-BLOB value.
const DefaultMaxValueSize = 512 * 1024

// Decoding errors.
var (
	// ErrValueTooLarge is returned for a record holding a text value over
	// the decoder's limit. The record is skipped; the stream stays usable.
	ErrValueTooLarge = errors.New("value too large")

	// ErrMalformed is returned for a well-formed element whose content
	// cannot be interpreted.
	ErrMalformed = errors.New("malformed record")
)

// Record is one top-level element with its direct children.
type Record struct {
	Tag      string
	Attrs    map[string]string
	Text     string
	Children []*Record
}

// Attr returns the named attribute, or "".
func (r *Record) Attr(name string) string {
	return r.Attrs[name]
}

// element is the encoding/xml shape of a record.
type element struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Children []element  `xml:",any"`
}

func (el *element) record() *Record {
	r := &Record{
		Tag:   el.XMLName.Local,
		Attrs: make(map[string]string, len(el.Attrs)),
		Text:  el.Text,
	}
	for _, a := range el.Attrs {
		r.Attrs[a.Name.Local] = a.Value
	}
	for i := range el.Children {
		r.Children = append(r.Children, el.Children[i].record())
	}
	return r
}

// Decoder reads a stream of top-level records.
type Decoder struct {
	dec      *xml.Decoder
	maxValue int
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	dec := xml.NewDecoder(r)
	dec.Entity = xml.HTMLEntity
	return &Decoder{dec: dec, maxValue: DefaultMaxValueSize}
}

// SetMaxValueSize changes the limit for non-BLOB text values.
func (d *Decoder) SetMaxValueSize(n int) {
	d.maxValue = n
}

// Next returns the next record. It returns io.EOF at the end of the
// stream, ErrValueTooLarge for an oversized record that was skipped, and
// any other error for a broken stream.
func (d *Decoder) Next() (*Record, error) {
	for {
		tok, err := d.dec.Token()
		if err != nil {
			return nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			// Whitespace between records, processing instructions.
			continue
		}
		var el element
		if err := d.dec.DecodeElement(&el, &start); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		r := el.record()
		if err := d.checkSize(r); err != nil {
			return nil, err
		}
		return r, nil
	}
}

func (d *Decoder) checkSize(r *Record) error {
	if d.maxValue <= 0 || r.Tag == "setBLOBVector" {
		return nil
	}
	if len(r.Text) > d.maxValue {
		return fmt.Errorf("%w: <%s> holds %d bytes", ErrValueTooLarge, r.Tag, len(r.Text))
	}
	for _, c := range r.Children {
		if len(c.Text) > d.maxValue {
			return fmt.Errorf("%w: <%s> item %q holds %d bytes", ErrValueTooLarge, r.Tag, c.Attr("name"), len(c.Text))
		}
	}
	return nil
}

// vectorType splits "defNumberVector" into its verb and property type.
func vectorType(tag string) (verb string, t property.Type, ok bool) {
	for _, v := range []string{"def", "set", "new"} {
		if rest, found := strings.CutPrefix(tag, v); found {
			name, found := strings.CutSuffix(rest, "Vector")
			if !found {
				return "", 0, false
			}
			t, err := property.ParseType(name)
			if err != nil {
				return "", 0, false
			}
			return v, t, true
		}
	}
	return "", 0, false
}

// ItemError describes an item skipped while decoding a vector.
type ItemError struct {
	Item string
	Err  error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %q: %v", e.Item, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

// DecodeVector builds a property from a def/set/new*Vector record sent by
// a peer speaking v. Names are translated to their current spelling.
// Items that cannot be parsed are left out and reported in skipped.
// Outside def records a number limit that is not sent is NaN, so a merge
// can tell it apart from zero.
func DecodeVector(r *Record, v version.Protocol, tr *version.Translator) (p *property.Property, skipped []error, err error) {
	verb, t, ok := vectorType(r.Tag)
	if !ok {
		return nil, nil, fmt.Errorf("%w: <%s> is not a vector", ErrMalformed, r.Tag)
	}
	name := tr.CurrentPropertyName(v, r.Attr("name"))
	p = property.NewRequest(t, r.Attr("device"), name)
	p.Group = r.Attr("group")
	p.Label = r.Attr("label")
	p.Hints = r.Attr("hints")
	if s := r.Attr("state"); s != "" {
		if p.State, err = property.ParseState(s); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}
	if s := r.Attr("perm"); s != "" {
		if p.Perm, err = property.ParsePerm(s); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}
	if s := r.Attr("rule"); s != "" && t == property.SwitchVector {
		if p.Rule, err = property.ParseRule(s); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}
	if s := r.Attr("token"); s != "" {
		if p.AccessToken, err = strconv.ParseUint(s, 16, 64); err != nil {
			return nil, nil, fmt.Errorf("%w: token %q", ErrMalformed, s)
		}
	}
	switch t {
	case property.LightVector, property.BlobVector:
		p.Perm = property.ReadOnly
	}

	itemTag := "one" + t.String()
	if verb == "def" {
		itemTag = "def" + t.String()
	}
	for _, c := range r.Children {
		if c.Tag != itemTag {
			continue
		}
		it, err := decodeItem(c, t, verb == "def")
		if err != nil {
			skipped = append(skipped, &ItemError{Item: c.Attr("name"), Err: err})
			continue
		}
		it.Name = tr.CurrentItemName(v, name, it.Name)
		if len(p.Items) < property.MaxItems {
			p.Items = append(p.Items, it)
		}
	}
	return p, skipped, nil
}

func decodeItem(c *Record, t property.Type, def bool) (property.Item, error) {
	name := c.Attr("name")
	if name == "" {
		return property.Item{}, fmt.Errorf("%w: missing name", ErrMalformed)
	}
	label := c.Attr("label")
	text := strings.TrimSpace(c.Text)
	switch t {
	case property.TextVector:
		return property.TextItem(name, label, c.Text), nil
	case property.NumberVector:
		value, err := property.ParseNumber(text)
		if err != nil {
			return property.Item{}, err
		}
		limit := 0.0
		if !def {
			limit = math.NaN()
		}
		it := property.NumberItem(name, label, limit, limit, limit, value)
		if f := c.Attr("format"); def && f != "" {
			it.Number.Format = f
		}
		for attr, dst := range map[string]*float64{
			"min":    &it.Number.Min,
			"max":    &it.Number.Max,
			"step":   &it.Number.Step,
			"target": &it.Number.Target,
		} {
			if s, ok := c.Attrs[attr]; ok {
				f, err := property.ParseNumber(s)
				if err != nil {
					return property.Item{}, fmt.Errorf("%s: %w", attr, err)
				}
				*dst = f
			}
		}
		return it, nil
	case property.SwitchVector:
		return property.SwitchItem(name, label, text == "On"), nil
	case property.LightVector:
		state, err := property.ParseState(text)
		if err != nil {
			return property.Item{}, err
		}
		return property.LightItem(name, label, state), nil
	case property.BlobVector:
		it := property.BlobItem(name, label)
		it.Blob.Format = c.Attr("format")
		it.Blob.URL = c.Attr("url")
		if text != "" {
			data, err := base64.StdEncoding.DecodeString(stripSpace(text))
			if err != nil {
				return property.Item{}, fmt.Errorf("%w: %v", ErrMalformed, err)
			}
			it.Blob.Value = data
		}
		it.Blob.Size = len(it.Blob.Value)
		if it.Blob.Size == 0 {
			if s := c.Attr("size"); s != "" {
				it.Blob.Size, _ = strconv.Atoi(s)
			}
		}
		return it, nil
	}
	return property.Item{}, fmt.Errorf("%w: type %v", ErrMalformed, t)
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, s)
}
