// Package driver provides Base, the property registry and default bus
// callbacks shared by device drivers.
//
// A concrete driver embeds *Base and overrides the callbacks it needs:
//
//	type Focuser struct {
//	    *driver.Base
//	    position *property.Property
//	}
//
//	func (f *Focuser) ChangeProperty(b *bus.Bus, c bus.Client, patch *property.Property) error {
//	    f.Lock()
//	    defer f.Unlock()
//	    if f.HandleStandard(patch) {
//	        return nil
//	    }
//	    ...
//	}
//
// # Locking
//
// Base carries one mutex per device. The bus callbacks implemented by
// Base take it; every other method expects the caller to hold it whenever
// another goroutine (a timer callback, a bus request) may touch the same
// device. Properties are broadcast while the lock is held, so clients
// always see a consistent vector.
package driver
