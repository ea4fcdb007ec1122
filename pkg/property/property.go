package property

import (
	"errors"
	"fmt"
)

// MaxItems is the maximum number of items in one property.
const MaxItems = 128

// DefaultNumberFormat is used for number items created without a format.
const DefaultNumberFormat = "%g"

// Property validation errors.
var (
	ErrEmptyName     = errors.New("empty name")
	ErrTooManyItems  = errors.New("too many items")
	ErrDuplicateItem = errors.New("duplicate item name")
	ErrInvalidRule   = errors.New("switch values violate rule")
	ErrTypeMismatch  = errors.New("item type does not match vector type")
)

// Number is the payload of a number item.
type Number struct {
	Format string
	Min    float64
	Max    float64
	Step   float64
	Value  float64

	// Target is the requested value while the device is still moving
	// towards it. Value is the confirmed one.
	Target float64
}

// Blob is the payload of a BLOB item.
type Blob struct {
	Format string
	URL    string
	Size   int
	Value  []byte
}

// Item is a single named value within a property. Only the payload field
// matching the owning vector's Type is meaningful.
type Item struct {
	Name  string
	Label string
	Hints string

	Text   string
	Number Number
	Switch bool
	Light  State
	Blob   Blob

	kind Type
}

// TextItem returns a text item.
func TextItem(name, label, value string) Item {
	return Item{Name: name, Label: label, Text: value, kind: TextVector}
}

// NumberItem returns a number item using DefaultNumberFormat. The target
// starts equal to the value.
func NumberItem(name, label string, min, max, step, value float64) Item {
	return Item{
		Name:  name,
		Label: label,
		Number: Number{
			Format: DefaultNumberFormat,
			Min:    min,
			Max:    max,
			Step:   step,
			Value:  value,
			Target: value,
		},
		kind: NumberVector,
	}
}

// FormattedNumberItem is NumberItem with an explicit format, e.g. "%12.9m".
func FormattedNumberItem(name, label, format string, min, max, step, value float64) Item {
	it := NumberItem(name, label, min, max, step, value)
	it.Number.Format = format
	return it
}

// SwitchItem returns a switch item.
func SwitchItem(name, label string, value bool) Item {
	return Item{Name: name, Label: label, Switch: value, kind: SwitchVector}
}

// LightItem returns a light item.
func LightItem(name, label string, value State) Item {
	return Item{Name: name, Label: label, Light: value, kind: LightVector}
}

// BlobItem returns an empty BLOB item.
func BlobItem(name, label string) Item {
	return Item{Name: name, Label: label, kind: BlobVector}
}

// Property is a named, typed vector of items owned by one device.
type Property struct {
	Device string
	Name   string
	Group  string
	Label  string
	Hints  string

	Type  Type
	State State
	Perm  Perm
	Rule  Rule

	// Hidden properties are never broadcast to clients.
	Hidden bool

	// Defined is maintained by the bus: true between a define and a delete.
	Defined bool

	// AccessToken carries the client's lock token on change requests.
	AccessToken uint64

	Items []Item
}

func newProperty(t Type, device, name, group, label string, state State, perm Perm, items []Item) *Property {
	p := &Property{
		Device: device,
		Name:   name,
		Group:  group,
		Label:  label,
		Type:   t,
		State:  state,
		Perm:   perm,
		Items:  make([]Item, len(items)),
	}
	copy(p.Items, items)
	for i := range p.Items {
		if p.Items[i].kind == 0 {
			p.Items[i].kind = t
		}
	}
	return p
}

// NewText creates a text vector.
func NewText(device, name, group, label string, state State, perm Perm, items ...Item) *Property {
	return newProperty(TextVector, device, name, group, label, state, perm, items)
}

// NewNumber creates a number vector.
func NewNumber(device, name, group, label string, state State, perm Perm, items ...Item) *Property {
	return newProperty(NumberVector, device, name, group, label, state, perm, items)
}

// NewSwitch creates a switch vector governed by rule.
func NewSwitch(device, name, group, label string, state State, perm Perm, rule Rule, items ...Item) *Property {
	p := newProperty(SwitchVector, device, name, group, label, state, perm, items)
	p.Rule = rule
	return p
}

// NewLight creates a light vector. Lights are always read-only.
func NewLight(device, name, group, label string, state State, items ...Item) *Property {
	return newProperty(LightVector, device, name, group, label, state, ReadOnly, items)
}

// NewBlob creates a BLOB vector. BLOBs are always read-only.
func NewBlob(device, name, group, label string, state State, items ...Item) *Property {
	return newProperty(BlobVector, device, name, group, label, state, ReadOnly, items)
}

// NewRequest creates a bare property used as a filter or change patch.
// Items may be appended with the item helpers.
func NewRequest(t Type, device, name string, items ...Item) *Property {
	return newProperty(t, device, name, "", "", Idle, ReadWrite, items)
}

// Validate checks the construction-time invariants of a defined property.
func (p *Property) Validate() error {
	if p.Device == "" || p.Name == "" {
		return fmt.Errorf("%w: device %q property %q", ErrEmptyName, p.Device, p.Name)
	}
	if len(p.Items) == 0 || len(p.Items) > MaxItems {
		return fmt.Errorf("%w: %s.%s has %d", ErrTooManyItems, p.Device, p.Name, len(p.Items))
	}
	seen := make(map[string]struct{}, len(p.Items))
	on := 0
	for i := range p.Items {
		it := &p.Items[i]
		if it.Name == "" {
			return fmt.Errorf("%w: %s.%s item %d", ErrEmptyName, p.Device, p.Name, i)
		}
		if it.kind != 0 && it.kind != p.Type {
			return fmt.Errorf("%w: %s.%s.%s", ErrTypeMismatch, p.Device, p.Name, it.Name)
		}
		if _, dup := seen[it.Name]; dup {
			return fmt.Errorf("%w: %s.%s.%s", ErrDuplicateItem, p.Device, p.Name, it.Name)
		}
		seen[it.Name] = struct{}{}
		if it.Switch {
			on++
		}
	}
	if p.Type == SwitchVector && p.Rule != AnyOfMany && on > 1 {
		return fmt.Errorf("%w: %s.%s has %d switches on", ErrInvalidRule, p.Device, p.Name, on)
	}
	return nil
}

// Key returns "device.name", the registry key of the property.
func (p *Property) Key() string {
	return p.Device + "." + p.Name
}

// AnyDevice is the device name clients use to address every device.
const AnyDevice = "*"

// Match reports whether p is selected by the filter other. A nil filter
// matches everything; empty filter fields and AnyDevice act as wildcards.
func (p *Property) Match(other *Property) bool {
	if other == nil {
		return true
	}
	return (other.Type == 0 || p.Type == other.Type) &&
		(other.Device == "" || other.Device == AnyDevice || p.Device == other.Device) &&
		(other.Name == "" || p.Name == other.Name)
}

// MatchDefined is Match restricted to properties currently defined.
func (p *Property) MatchDefined(other *Property) bool {
	return p.Defined && p.Match(other)
}

// MatchChangeable is MatchDefined restricted to properties clients may
// change.
func (p *Property) MatchChangeable(other *Property) bool {
	return p.Defined && p.Perm != ReadOnly && p.Match(other)
}

// Item returns the item with the given name, or nil.
func (p *Property) Item(name string) *Item {
	for i := range p.Items {
		if p.Items[i].Name == name {
			return &p.Items[i]
		}
	}
	return nil
}

// Switch returns the value of a switch item and whether it exists.
func (p *Property) Switch(name string) (value, ok bool) {
	if p.Type != SwitchVector {
		return false, false
	}
	it := p.Item(name)
	if it == nil {
		return false, false
	}
	return it.Switch, true
}

// SetSwitch sets a switch item. Turning a switch on in a vector whose rule
// is not AnyOfMany turns all others off. It returns false if there is no
// such item.
func (p *Property) SetSwitch(name string, value bool) bool {
	it := p.Item(name)
	if it == nil || p.Type != SwitchVector {
		return false
	}
	if value && p.Rule != AnyOfMany {
		p.resetSwitches()
	}
	it.Switch = value
	return true
}

func (p *Property) resetSwitches() {
	for i := range p.Items {
		p.Items[i].Switch = false
	}
}

// CopyValues applies the values submitted in other onto p, matching items
// by name. Items missing from other are left unchanged. The state is copied
// only if withState is set; the access token is always copied. Read-only
// properties and type mismatches are left untouched.
func (p *Property) CopyValues(other *Property, withState bool) {
	if p.Perm == ReadOnly || p.Type != other.Type {
		return
	}
	if withState {
		p.State = other.State
	}
	p.AccessToken = other.AccessToken
	if p.Type == SwitchVector && p.Rule != AnyOfMany {
		p.resetSwitches()
	}
	for j := range other.Items {
		src := &other.Items[j]
		dst := p.Item(src.Name)
		if dst == nil {
			continue
		}
		switch p.Type {
		case TextVector:
			dst.Text = src.Text
		case NumberVector:
			v := clamp(src.Number.Value, dst.Number.Min, dst.Number.Max)
			dst.Number.Value = v
			dst.Number.Target = v
		case SwitchVector:
			dst.Switch = src.Switch
		case LightVector:
			dst.Light = src.Light
		case BlobVector:
			dst.Blob.Format = src.Blob.Format
			dst.Blob.Size = src.Blob.Size
			dst.Blob.Value = append([]byte(nil), src.Blob.Value...)
		}
	}
}

// CopyTargets is CopyValues for motion-style number vectors: only targets
// are set, the confirmed values stay until the device reports progress.
func (p *Property) CopyTargets(other *Property, withState bool) {
	if p.Perm == ReadOnly || p.Type != NumberVector || other.Type != NumberVector {
		return
	}
	if withState {
		p.State = other.State
	}
	p.AccessToken = other.AccessToken
	for j := range other.Items {
		src := &other.Items[j]
		if dst := p.Item(src.Name); dst != nil {
			dst.Number.Target = clamp(src.Number.Value, dst.Number.Min, dst.Number.Max)
		}
	}
}

// Clone returns a deep copy of p. BLOB payloads are copied, not shared.
func (p *Property) Clone() *Property {
	c := *p
	c.Items = make([]Item, len(p.Items))
	copy(c.Items, p.Items)
	for i := range c.Items {
		if v := c.Items[i].Blob.Value; v != nil {
			c.Items[i].Blob.Value = append([]byte(nil), v...)
		}
	}
	return &c
}

func clamp(v, min, max float64) float64 {
	if v < min {
		v = min
	}
	if v > max {
		v = max
	}
	return v
}
