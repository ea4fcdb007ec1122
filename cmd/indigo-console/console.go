package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/indigo-bus/indigo-go/pkg/bus"
	"github.com/indigo-bus/indigo-go/pkg/property"
)

// Console is a bus client that keeps a copy of every property it is sent
// and implements the REPL commands on top of it.
type Console struct {
	name string
	out  io.Writer

	mu    sync.Mutex
	bus   *bus.Bus
	props map[string]*property.Property
	order []string
	watch bool
}

var _ bus.Client = (*Console)(nil)

// NewConsole creates a console client writing to out.
func NewConsole(name string, out io.Writer) *Console {
	return &Console{
		name:  name,
		out:   out,
		props: make(map[string]*property.Property),
	}
}

func (c *Console) Name() string { return c.name }

func (c *Console) Attach(b *bus.Bus) error {
	c.mu.Lock()
	c.bus = b
	c.mu.Unlock()
	return nil
}

func (c *Console) Detach(*bus.Bus) error {
	c.mu.Lock()
	c.bus = nil
	c.mu.Unlock()
	return nil
}

func (c *Console) DefineProperty(_ *bus.Bus, _ bus.Device, p *property.Property, message string) error {
	c.mu.Lock()
	key := p.Key()
	if _, ok := c.props[key]; !ok {
		c.order = append(c.order, key)
	}
	c.props[key] = p.Clone()
	watch := c.watch
	c.mu.Unlock()
	if watch {
		c.printf("+ %s %s%s\n", key, p.State, suffix(message))
	}
	return nil
}

func (c *Console) UpdateProperty(_ *bus.Bus, _ bus.Device, p *property.Property, message string) error {
	c.mu.Lock()
	cached, ok := c.props[p.Key()]
	if ok {
		cached.State = p.State
		for i := range p.Items {
			if dst := cached.Item(p.Items[i].Name); dst != nil {
				*dst = p.Items[i]
			}
		}
		p = cached.Clone()
	}
	watch := c.watch
	c.mu.Unlock()
	if ok && watch {
		c.printf("%s %s %s%s\n", p.Key(), p.State, values(p), suffix(message))
	}
	return nil
}

func (c *Console) DeleteProperty(_ *bus.Bus, _ bus.Device, p *property.Property, message string) error {
	var gone []string
	c.mu.Lock()
	kept := c.order[:0]
	for _, key := range c.order {
		x := c.props[key]
		if x.Device == p.Device && (p.Name == "" || x.Name == p.Name) {
			delete(c.props, key)
			gone = append(gone, key)
			continue
		}
		kept = append(kept, key)
	}
	c.order = kept
	watch := c.watch
	c.mu.Unlock()
	if watch {
		for _, key := range gone {
			c.printf("- %s%s\n", key, suffix(message))
		}
	}
	return nil
}

func (c *Console) SendMessage(_ *bus.Bus, d bus.Device, message string) error {
	if d != nil {
		c.printf("[%s] %s\n", d.Name(), message)
	} else {
		c.printf("%s\n", message)
	}
	return nil
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

func suffix(message string) string {
	if message == "" {
		return ""
	}
	return " \"" + message + "\""
}

// Exec runs one command line. It reports false when the console should
// exit.
func (c *Console) Exec(line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return true
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	var err error
	switch cmd {
	case "help", "?":
		c.printHelp()
	case "list", "ls":
		err = c.cmdList(args)
	case "get", "g":
		err = c.cmdGet(args)
	case "set", "s":
		err = c.cmdSet(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), parts[0])))
	case "blob":
		err = c.cmdBlob(args)
	case "watch":
		err = c.cmdWatch(args)
	case "quit", "exit", "q":
		return false
	default:
		err = fmt.Errorf("unknown command: %s (type 'help' for commands)", cmd)
	}
	if err != nil {
		c.printf("Error: %v\n", err)
	}
	return true
}

func (c *Console) printHelp() {
	c.printf(`
INDIGO Console Commands:
  list [device]                             - List devices, or the properties of one
  get <device>.<property>                   - Show a property
  set <device>.<property>.<item>=<value>,.. - Request a change
  blob <device> [Never|Also|URL]            - Set the BLOB delivery mode
  watch on|off                              - Print updates as they arrive
  help                                      - Show this help
  quit                                      - Exit

  Device names may omit the " @ host" suffix.
`)
}

// devices returns the known device names, sorted.
func (c *Console) devices() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	seen := make(map[string]bool)
	var names []string
	for _, key := range c.order {
		d := c.props[key].Device
		if !seen[d] {
			seen[d] = true
			names = append(names, d)
		}
	}
	sort.Strings(names)
	return names
}

// resolve maps a device name as typed to the local one, accepting the
// remote name without its " @ host" suffix.
func (c *Console) resolve(device string) (string, error) {
	var matches []string
	for _, name := range c.devices() {
		if name == device {
			return name, nil
		}
		if before, _, ok := strings.Cut(name, " @ "); ok && before == device {
			matches = append(matches, name)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("unknown device %q", device)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("device %q is ambiguous: %s", device, strings.Join(matches, ", "))
	}
}

// lookup splits "device.property" and returns a copy of the property.
// Device names may contain dots; the property name may not.
func (c *Console) lookup(path string) (*property.Property, error) {
	i := strings.LastIndex(path, ".")
	if i <= 0 || i == len(path)-1 {
		return nil, fmt.Errorf("expected <device>.<property>, got %q", path)
	}
	device, err := c.resolve(path[:i])
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.props[device+"."+path[i+1:]]
	if !ok {
		return nil, fmt.Errorf("unknown property %s.%s", device, path[i+1:])
	}
	return p.Clone(), nil
}

func (c *Console) cmdList(args []string) error {
	if len(args) == 0 {
		devices := c.devices()
		if len(devices) == 0 {
			c.printf("No devices\n")
			return nil
		}
		for _, d := range devices {
			c.printf("  %s\n", d)
		}
		return nil
	}
	device, err := c.resolve(strings.Join(args, " "))
	if err != nil {
		return err
	}
	c.mu.Lock()
	var props []*property.Property
	for _, key := range c.order {
		if p := c.props[key]; p.Device == device {
			props = append(props, p.Clone())
		}
	}
	c.mu.Unlock()
	for _, p := range props {
		c.printf("  %-24s %-6s %-6s %s  %s\n", p.Name, p.Type, p.State, p.Perm, p.Label)
	}
	return nil
}

func (c *Console) cmdGet(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: get <device>.<property>")
	}
	p, err := c.lookup(strings.Join(args, " "))
	if err != nil {
		return err
	}
	c.printf("%s (%s, %s, %s)\n", p.Key(), p.Type, p.State, p.Perm)
	for i := range p.Items {
		c.printf("  %-20s = %s\n", p.Items[i].Name, itemValue(p, &p.Items[i]))
	}
	return nil
}

// cmdSet parses "<device>.<property>.<item>=<value>[,<item>=<value>...]".
// Items after the first may omit the device and property.
func (c *Console) cmdSet(arg string) error {
	first, rest, _ := strings.Cut(arg, "=")
	i := strings.LastIndex(first, ".")
	if i <= 0 {
		return fmt.Errorf("usage: set <device>.<property>.<item>=<value>[,<item>=<value>...]")
	}
	p, err := c.lookup(first[:i])
	if err != nil {
		return err
	}
	if p.Perm == property.ReadOnly {
		return fmt.Errorf("%s is read-only", p.Key())
	}

	assignments := []string{first[i+1:] + "=" + rest}
	if j := strings.IndexByte(rest, ','); j >= 0 {
		assignments = append([]string{first[i+1:] + "=" + rest[:j]}, strings.Split(rest[j+1:], ",")...)
	}
	req := property.NewRequest(p.Type, p.Device, p.Name)
	for _, a := range assignments {
		name, value, ok := strings.Cut(strings.TrimSpace(a), "=")
		if !ok {
			return fmt.Errorf("expected <item>=<value>, got %q", a)
		}
		it, err := parseItem(p, name, value)
		if err != nil {
			return err
		}
		req.Items = append(req.Items, it)
	}

	c.mu.Lock()
	b := c.bus
	c.mu.Unlock()
	if b == nil {
		return fmt.Errorf("not connected")
	}
	return b.ChangeProperty(c, req)
}

func parseItem(p *property.Property, name, value string) (property.Item, error) {
	if p.Item(name) == nil {
		return property.Item{}, fmt.Errorf("no item %s in %s", name, p.Key())
	}
	switch p.Type {
	case property.TextVector:
		return property.TextItem(name, "", value), nil
	case property.NumberVector:
		v, err := property.ParseNumber(value)
		if err != nil {
			return property.Item{}, fmt.Errorf("%s: %w", name, err)
		}
		return property.NumberItem(name, "", 0, 0, 0, v), nil
	case property.SwitchVector:
		switch strings.ToLower(value) {
		case "on", "true", "1":
			return property.SwitchItem(name, "", true), nil
		case "off", "false", "0":
			return property.SwitchItem(name, "", false), nil
		}
		return property.Item{}, fmt.Errorf("%s: want On or Off, got %q", name, value)
	}
	return property.Item{}, fmt.Errorf("%s vectors cannot be changed", p.Type)
}

func (c *Console) cmdBlob(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: blob <device> [Never|Also|URL]")
	}
	mode := property.BlobAlso
	device := strings.Join(args, " ")
	if len(args) > 1 {
		if m, err := property.ParseBlobMode(args[len(args)-1]); err == nil {
			mode = m
			device = strings.Join(args[:len(args)-1], " ")
		}
	}
	name, err := c.resolve(device)
	if err != nil {
		return err
	}
	c.mu.Lock()
	b := c.bus
	c.mu.Unlock()
	if b == nil {
		return fmt.Errorf("not connected")
	}
	if err := b.EnableBlob(c, &property.Property{Device: name}, mode); err != nil {
		return err
	}
	c.printf("BLOBs from %s: %s\n", name, mode)
	return nil
}

func (c *Console) cmdWatch(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: watch on|off")
	}
	var on bool
	switch strings.ToLower(args[0]) {
	case "on":
		on = true
	case "off":
	default:
		return fmt.Errorf("usage: watch on|off")
	}
	c.mu.Lock()
	c.watch = on
	c.mu.Unlock()
	return nil
}

func values(p *property.Property) string {
	var sb strings.Builder
	for i := range p.Items {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.Items[i].Name)
		sb.WriteByte('=')
		sb.WriteString(itemValue(p, &p.Items[i]))
	}
	return sb.String()
}

func itemValue(p *property.Property, it *property.Item) string {
	switch p.Type {
	case property.TextVector:
		return fmt.Sprintf("%q", it.Text)
	case property.NumberVector:
		return property.FormatNumber(it.Number.Format, it.Number.Value)
	case property.SwitchVector:
		if it.Switch {
			return "On"
		}
		return "Off"
	case property.LightVector:
		return it.Light.String()
	case property.BlobVector:
		if it.Blob.URL != "" {
			return it.Blob.URL
		}
		return fmt.Sprintf("%d bytes %s", it.Blob.Size, it.Blob.Format)
	}
	return ""
}
