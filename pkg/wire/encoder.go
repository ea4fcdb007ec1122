package wire

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/indigo-bus/indigo-go/pkg/property"
	"github.com/indigo-bus/indigo-go/pkg/version"
)

// legacyBlobLine is the number of raw bytes per 72-column base64 line sent
// to 1.7 peers.
const legacyBlobLine = 54

// writeMu serializes record writes across every connection in the process.
var writeMu sync.Mutex

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// writeRecord writes one complete record with a single Write call. A
// positive timeout bounds the write on connections that support deadlines,
// so one stalled peer cannot hold writeMu indefinitely.
func writeRecord(w io.Writer, record []byte, timeout time.Duration) error {
	writeMu.Lock()
	defer writeMu.Unlock()
	if dl, ok := w.(writeDeadliner); ok && timeout > 0 {
		_ = dl.SetWriteDeadline(time.Now().Add(timeout))
	}
	_, err := w.Write(record)
	return err
}

// Encoder renders records for a peer speaking Version. Names are spelled
// for that version with Translator.
type Encoder struct {
	Version    version.Protocol
	Translator *version.Translator
}

func (e Encoder) propertyName(p *property.Property) string {
	return Escape(e.Translator.PropertyName(e.Version, p.Name))
}

func (e Encoder) itemName(p *property.Property, it *property.Item) string {
	return Escape(e.Translator.ItemName(e.Version, p.Name, it.Name))
}

// withTargets reports whether number items carry target attributes.
func (e Encoder) withTargets(p *property.Property) bool {
	return e.Version >= version.V2 && p.Perm != property.ReadOnly
}

func messageAttr(message string) string {
	if message == "" {
		return ""
	}
	return " message='" + Escape(message) + "'"
}

func onOff(v bool) string {
	if v {
		return "On"
	}
	return "Off"
}

// Define renders a def*Vector record.
func (e Encoder) Define(buf *bytes.Buffer, p *property.Property, message string) {
	tag := "def" + p.Type.String() + "Vector"
	fmt.Fprintf(buf, "<%s device='%s' name='%s' group='%s' label='%s' perm='%s' state='%s'",
		tag, Escape(p.Device), e.propertyName(p), Escape(p.Group), Escape(p.Label), p.Perm, p.State)
	if p.Type == property.SwitchVector {
		fmt.Fprintf(buf, " rule='%s'", p.Rule)
	}
	buf.WriteString(messageAttr(message))
	buf.WriteString(">\n")
	for i := range p.Items {
		it := &p.Items[i]
		name, label := e.itemName(p, it), Escape(it.Label)
		switch p.Type {
		case property.TextVector:
			fmt.Fprintf(buf, "<defText name='%s' label='%s'>%s</defText>\n", name, label, Escape(it.Text))
		case property.NumberVector:
			n := &it.Number
			fmt.Fprintf(buf, "<defNumber name='%s' label='%s' format='%s' min='%s' max='%s' step='%s'",
				name, label, Escape(n.Format), property.FormatWire(n.Min), property.FormatWire(n.Max), property.FormatWire(n.Step))
			if e.withTargets(p) {
				fmt.Fprintf(buf, " target='%s'", property.FormatWire(n.Target))
			}
			fmt.Fprintf(buf, ">%s</defNumber>\n", property.FormatWire(n.Value))
		case property.SwitchVector:
			fmt.Fprintf(buf, "<defSwitch name='%s' label='%s'>%s</defSwitch>\n", name, label, onOff(it.Switch))
		case property.LightVector:
			fmt.Fprintf(buf, " <defLight name='%s' label='%s'>%s</defLight>\n", name, label, it.Light)
		case property.BlobVector:
			fmt.Fprintf(buf, "<defBLOB name='%s' label='%s'/>\n", name, label)
		}
	}
	fmt.Fprintf(buf, "</%s>\n", tag)
}

// Update renders a set*Vector record. BLOB vectors are rendered according
// to mode and not at all for BlobNever; Update reports whether anything
// was written.
func (e Encoder) Update(buf *bytes.Buffer, p *property.Property, message string, mode property.BlobMode) bool {
	if p.Type == property.BlobVector && mode == property.BlobNever {
		return false
	}
	tag := "set" + p.Type.String() + "Vector"
	fmt.Fprintf(buf, "<%s device='%s' name='%s' state='%s'%s>\n",
		tag, Escape(p.Device), e.propertyName(p), p.State, messageAttr(message))
	for i := range p.Items {
		it := &p.Items[i]
		name := e.itemName(p, it)
		switch p.Type {
		case property.TextVector:
			fmt.Fprintf(buf, "<oneText name='%s'>%s</oneText>\n", name, Escape(it.Text))
		case property.NumberVector:
			if e.withTargets(p) {
				fmt.Fprintf(buf, "<oneNumber name='%s' target='%s'>%s</oneNumber>\n",
					name, property.FormatWire(it.Number.Target), property.FormatWire(it.Number.Value))
			} else {
				fmt.Fprintf(buf, "<oneNumber name='%s'>%s</oneNumber>\n", name, property.FormatWire(it.Number.Value))
			}
		case property.SwitchVector:
			fmt.Fprintf(buf, "<oneSwitch name='%s'>%s</oneSwitch>\n", name, onOff(it.Switch))
		case property.LightVector:
			fmt.Fprintf(buf, "<oneLight name='%s'>%s</oneLight>\n", name, it.Light)
		case property.BlobVector:
			// Payloads are only meaningful once the device reports Ok.
			if p.State == property.Ok {
				e.blobItem(buf, name, it, mode)
			}
		}
	}
	fmt.Fprintf(buf, "</%s>\n", tag)
	return true
}

func (e Encoder) blobItem(buf *bytes.Buffer, name string, it *property.Item, mode property.BlobMode) {
	if mode == property.BlobURL && it.Blob.URL != "" {
		fmt.Fprintf(buf, "<oneBLOB name='%s' url='%s'/>\n", name, Escape(it.Blob.URL))
		return
	}
	data := it.Blob.Value
	fmt.Fprintf(buf, "<oneBLOB name='%s' format='%s' size='%d'>\n", name, Escape(it.Blob.Format), len(data))
	if e.Version >= version.V2 {
		enc := base64.NewEncoder(base64.StdEncoding, buf)
		_, _ = enc.Write(data)
		_ = enc.Close()
	} else {
		for len(data) > 0 {
			n := min(legacyBlobLine, len(data))
			buf.WriteString(base64.StdEncoding.EncodeToString(data[:n]))
			buf.WriteByte('\n')
			data = data[n:]
		}
	}
	buf.WriteString("</oneBLOB>\n")
}

// Delete renders a delProperty record. A property without a name stands
// for the whole device.
func (e Encoder) Delete(buf *bytes.Buffer, p *property.Property, message string) {
	if p.Name == "" {
		fmt.Fprintf(buf, "<delProperty device='%s'%s/>\n", Escape(p.Device), messageAttr(message))
		return
	}
	fmt.Fprintf(buf, "<delProperty device='%s' name='%s'%s/>\n", Escape(p.Device), e.propertyName(p), messageAttr(message))
}

// Message renders a message record. device may be empty.
func (e Encoder) Message(buf *bytes.Buffer, device, message string) {
	buf.WriteString("<message")
	if device != "" {
		fmt.Fprintf(buf, " device='%s'", Escape(device))
	}
	buf.WriteString(messageAttr(message))
	buf.WriteString("/>\n")
}

// SwitchProtocol renders the acknowledgment of a protocol upgrade.
func (e Encoder) SwitchProtocol(buf *bytes.Buffer) {
	fmt.Fprintf(buf, "<switchProtocol version='%s'/>\n", e.Version)
}

// GetProperties renders an enumeration request. Requests always announce
// 1.7 and offer a switch to the current version. client names the
// requesting program on an unfiltered request.
func (e Encoder) GetProperties(buf *bytes.Buffer, device, name, client string) {
	fmt.Fprintf(buf, "<getProperties version='1.7'")
	if device == "" && name == "" && client != "" {
		fmt.Fprintf(buf, " client='%s'", Escape(client))
	}
	fmt.Fprintf(buf, " switch='%s'", version.Current)
	if device != "" {
		fmt.Fprintf(buf, " device='%s'", Escape(device))
	}
	if name != "" {
		fmt.Fprintf(buf, " name='%s'", Escape(e.Translator.PropertyName(e.Version, name)))
	}
	buf.WriteString("/>\n")
}

// Change renders a new*Vector record for p addressed to device, which is
// the peer's own spelling of the device name. Light and BLOB vectors
// cannot be changed and render nothing.
func (e Encoder) Change(buf *bytes.Buffer, device string, p *property.Property) bool {
	if p.Type != property.TextVector && p.Type != property.NumberVector && p.Type != property.SwitchVector {
		return false
	}
	tag := "new" + p.Type.String() + "Vector"
	fmt.Fprintf(buf, "<%s device='%s' name='%s'", tag, Escape(device), e.propertyName(p))
	if p.AccessToken != 0 {
		fmt.Fprintf(buf, " token='%x'", p.AccessToken)
	}
	buf.WriteString(">\n")
	for i := range p.Items {
		it := &p.Items[i]
		name := e.itemName(p, it)
		switch p.Type {
		case property.TextVector:
			fmt.Fprintf(buf, "<oneText name='%s'>%s</oneText>\n", name, Escape(it.Text))
		case property.NumberVector:
			fmt.Fprintf(buf, "<oneNumber name='%s'>%s</oneNumber>\n", name, strconv.FormatFloat(it.Number.Value, 'g', -1, 64))
		case property.SwitchVector:
			fmt.Fprintf(buf, "<oneSwitch name='%s'>%s</oneSwitch>\n", name, onOff(it.Switch))
		}
	}
	fmt.Fprintf(buf, "</%s>\n", tag)
	return true
}

// EnableBlob renders an enableBLOB record. URL mode degrades to Also for
// peers older than 2.0.
func (e Encoder) EnableBlob(buf *bytes.Buffer, device, name string, mode property.BlobMode) {
	if mode == property.BlobURL && e.Version < version.V2 {
		mode = property.BlobAlso
	}
	fmt.Fprintf(buf, "<enableBLOB device='%s'", Escape(device))
	if name != "" {
		fmt.Fprintf(buf, " name='%s'", Escape(e.Translator.PropertyName(e.Version, name)))
	}
	fmt.Fprintf(buf, ">%s</enableBLOB>\n", mode)
}
