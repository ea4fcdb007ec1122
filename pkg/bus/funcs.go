package bus

import "github.com/indigo-bus/indigo-go/pkg/property"

// DeviceFuncs adapts a set of functions to the Device interface. Nil
// fields are no-ops. Use it by pointer so the bus can compare handles.
type DeviceFuncs struct {
	DeviceName   string
	OnAttach     func(b *Bus) error
	OnEnumerate  func(b *Bus, c Client, filter *property.Property) error
	OnChange     func(b *Bus, c Client, patch *property.Property) error
	OnEnableBlob func(b *Bus, c Client, filter *property.Property, mode property.BlobMode) error
	OnDetach     func(b *Bus) error
}

var _ Device = (*DeviceFuncs)(nil)

func (d *DeviceFuncs) Name() string { return d.DeviceName }

func (d *DeviceFuncs) Attach(b *Bus) error {
	if d.OnAttach == nil {
		return nil
	}
	return d.OnAttach(b)
}

func (d *DeviceFuncs) EnumerateProperties(b *Bus, c Client, filter *property.Property) error {
	if d.OnEnumerate == nil {
		return nil
	}
	return d.OnEnumerate(b, c, filter)
}

func (d *DeviceFuncs) ChangeProperty(b *Bus, c Client, patch *property.Property) error {
	if d.OnChange == nil {
		return nil
	}
	return d.OnChange(b, c, patch)
}

func (d *DeviceFuncs) EnableBlob(b *Bus, c Client, filter *property.Property, mode property.BlobMode) error {
	if d.OnEnableBlob == nil {
		return nil
	}
	return d.OnEnableBlob(b, c, filter, mode)
}

func (d *DeviceFuncs) Detach(b *Bus) error {
	if d.OnDetach == nil {
		return nil
	}
	return d.OnDetach(b)
}

// ClientFuncs adapts a set of functions to the Client interface. Nil
// fields are no-ops. Use it by pointer so the bus can compare handles.
type ClientFuncs struct {
	ClientName string
	OnAttach   func(b *Bus) error
	OnDefine   func(b *Bus, d Device, p *property.Property, message string) error
	OnUpdate   func(b *Bus, d Device, p *property.Property, message string) error
	OnDelete   func(b *Bus, d Device, p *property.Property, message string) error
	OnMessage  func(b *Bus, d Device, message string) error
	OnDetach   func(b *Bus) error
}

var _ Client = (*ClientFuncs)(nil)

func (c *ClientFuncs) Name() string { return c.ClientName }

func (c *ClientFuncs) Attach(b *Bus) error {
	if c.OnAttach == nil {
		return nil
	}
	return c.OnAttach(b)
}

func (c *ClientFuncs) DefineProperty(b *Bus, d Device, p *property.Property, message string) error {
	if c.OnDefine == nil {
		return nil
	}
	return c.OnDefine(b, d, p, message)
}

func (c *ClientFuncs) UpdateProperty(b *Bus, d Device, p *property.Property, message string) error {
	if c.OnUpdate == nil {
		return nil
	}
	return c.OnUpdate(b, d, p, message)
}

func (c *ClientFuncs) DeleteProperty(b *Bus, d Device, p *property.Property, message string) error {
	if c.OnDelete == nil {
		return nil
	}
	return c.OnDelete(b, d, p, message)
}

func (c *ClientFuncs) SendMessage(b *Bus, d Device, message string) error {
	if c.OnMessage == nil {
		return nil
	}
	return c.OnMessage(b, d, message)
}

func (c *ClientFuncs) Detach(b *Bus) error {
	if c.OnDetach == nil {
		return nil
	}
	return c.OnDetach(b)
}
