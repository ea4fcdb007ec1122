// Package timer implements the delayed-callback slab and the serialized
// task queue that drivers use to poll hardware and run timeouts.
//
// # Slab
//
// A Slab owns a fixed number of slots. Each slot, once used, keeps one
// worker goroutine that parks between timers, so goroutine creation is
// amortized over the lifetime of the slot rather than paid per timer.
//
// A scheduled slot computes its absolute deadline once. When it passes, the
// callback runs on the slot's worker unless the timer was canceled first.
// Afterwards the slot returns to the free list, unless the callback called
// Reschedule, which is the usual polling idiom:
//
//	t, err := slab.SetTimer("CCD", 1, nil, time.Second, func(dev string, id int, data any, d time.Duration) {
//	    poll()
//	    slab.Reschedule(t, time.Second)
//	})
//
// # Cancellation
//
// Cancellation never interrupts a running callback. Cancel only prevents a
// future firing. CancelSync additionally waits for an in-flight callback of
// that timer to return and must be used before tearing down state the
// callback reads. CancelSync must not be called from the timer's own
// callback.
//
// Handles carry the generation of the slot they were issued for. Once a
// timer has fired or been canceled its handle goes stale, and a stale
// handle can never affect the slot's next occupant.
//
// # Queue
//
// A Queue runs tasks strictly in submission order on a single worker. Each
// task waits for its own run-at time, so a delayed task holds back the
// tasks submitted after it.
package timer
