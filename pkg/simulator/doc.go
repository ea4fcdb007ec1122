// Package simulator provides a device for exercising the bus without
// hardware.
//
// The device defines, besides CONNECTION and DEVICE_INFO:
//
//	TEST      switch, any of many, items 1..4
//	EXPOSURE  number in [0, 3600] seconds
//
// Setting TEST items turns the property Busy; after a delay the items that
// were set are cleared again and the property returns to Ok. TEST changes
// complete strictly in the order they were requested.
//
// Setting EXPOSURE starts a countdown that decrements the value once per
// tick until it reaches zero. Setting it to zero aborts the countdown.
package simulator
