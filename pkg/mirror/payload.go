package mirror

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/indigo-bus/indigo-go/pkg/property"
)

// StatePayload is the retained JSON document of a property.
type StatePayload struct {
	Device  string         `json:"device"`
	Name    string         `json:"name"`
	Label   string         `json:"label,omitempty"`
	Group   string         `json:"group,omitempty"`
	Type    string         `json:"type"`
	State   string         `json:"state"`
	Perm    string         `json:"perm"`
	Message string         `json:"message,omitempty"`
	Items   map[string]any `json:"items"`
}

// BlobInfo stands in for BLOB item values.
type BlobInfo struct {
	Format string `json:"format"`
	Size   int    `json:"size"`
}

// EncodeState renders p as a StatePayload. Numbers that are not finite
// are published as null.
func EncodeState(p *property.Property, message string) ([]byte, error) {
	doc := StatePayload{
		Device:  p.Device,
		Name:    p.Name,
		Label:   p.Label,
		Group:   p.Group,
		Type:    p.Type.String(),
		State:   p.State.String(),
		Perm:    p.Perm.String(),
		Message: message,
		Items:   make(map[string]any, len(p.Items)),
	}
	for i := range p.Items {
		it := &p.Items[i]
		switch p.Type {
		case property.TextVector:
			doc.Items[it.Name] = it.Text
		case property.NumberVector:
			v := it.Number.Value
			if math.IsNaN(v) || math.IsInf(v, 0) {
				doc.Items[it.Name] = nil
			} else {
				doc.Items[it.Name] = v
			}
		case property.SwitchVector:
			doc.Items[it.Name] = it.Switch
		case property.LightVector:
			doc.Items[it.Name] = it.Light.String()
		case property.BlobVector:
			doc.Items[it.Name] = BlobInfo{Format: it.Blob.Format, Size: it.Blob.Size}
		}
	}
	return json.Marshal(doc)
}

// DecodeRequest turns a JSON object of item values into a change request
// against the known property p. Numbers may be sent as JSON numbers or as
// strings, including sexagesimal ones. Switches accept booleans or
// "On"/"Off".
func DecodeRequest(p *property.Property, payload []byte) (*property.Property, error) {
	if p.Perm == property.ReadOnly || p.Type == property.LightVector || p.Type == property.BlobVector {
		return nil, fmt.Errorf("%w: %s.%s is read-only", ErrInvalidPayload, p.Device, p.Name)
	}
	var values map[string]any
	if err := json.Unmarshal(payload, &values); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	req := property.NewRequest(p.Type, p.Device, p.Name)
	for i := range p.Items {
		name := p.Items[i].Name
		raw, ok := values[name]
		if !ok {
			continue
		}
		delete(values, name)
		it, err := decodeItem(p.Type, name, raw)
		if err != nil {
			return nil, err
		}
		req.Items = append(req.Items, it)
	}
	if len(values) > 0 {
		unknown := slices.Sorted(maps.Keys(values))
		return nil, fmt.Errorf("%w: no item %q in %s.%s", ErrInvalidPayload, unknown[0], p.Device, p.Name)
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: no items", ErrInvalidPayload)
	}
	return req, nil
}

func decodeItem(t property.Type, name string, raw any) (property.Item, error) {
	switch t {
	case property.TextVector:
		s, ok := raw.(string)
		if !ok {
			return property.Item{}, fmt.Errorf("%w: %s wants a string", ErrInvalidPayload, name)
		}
		return property.TextItem(name, "", s), nil

	case property.NumberVector:
		var v float64
		switch x := raw.(type) {
		case float64:
			v = x
		case string:
			n, err := property.ParseNumber(x)
			if err != nil {
				return property.Item{}, fmt.Errorf("%w: %s: %w", ErrInvalidPayload, name, err)
			}
			v = n
		default:
			return property.Item{}, fmt.Errorf("%w: %s wants a number", ErrInvalidPayload, name)
		}
		return property.NumberItem(name, "", 0, 0, 0, v), nil

	case property.SwitchVector:
		switch x := raw.(type) {
		case bool:
			return property.SwitchItem(name, "", x), nil
		case string:
			switch strings.ToLower(x) {
			case "on":
				return property.SwitchItem(name, "", true), nil
			case "off":
				return property.SwitchItem(name, "", false), nil
			}
		}
		return property.Item{}, fmt.Errorf("%w: %s wants On or Off", ErrInvalidPayload, name)
	}
	return property.Item{}, fmt.Errorf("%w: %s is not changeable", ErrInvalidPayload, name)
}
