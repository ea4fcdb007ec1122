package discovery

import (
	"context"
	"errors"
	"testing"
)

func TestServerTXT(t *testing.T) {
	info := &ServerInfo{Instance: "observatory", Version: "2.0", Devices: 3, ID: "abc"}
	txt := EncodeServerTXT(info)

	strs := TXTRecordsToStrings(txt)
	want := []string{"dev=3", "id=abc", "ver=2.0"}
	if len(strs) != len(want) {
		t.Fatalf("Expected %v, got %v", want, strs)
	}
	for i := range want {
		if strs[i] != want[i] {
			t.Errorf("record %d: expected %q, got %q", i, want[i], strs[i])
		}
	}

	got, err := DecodeServerTXT(StringsToTXTRecords(strs))
	if err != nil {
		t.Fatalf("DecodeServerTXT: %v", err)
	}
	if got.Version != "2.0" || got.Devices != 3 || got.ID != "abc" {
		t.Errorf("unexpected decode result %+v", got)
	}
}

func TestDecodeServerTXTErrors(t *testing.T) {
	tests := []struct {
		name string
		txt  TXTRecordMap
		want error
	}{
		{"missing version", TXTRecordMap{TXTKeyDevices: "1"}, ErrMissingRequired},
		{"empty version", TXTRecordMap{TXTKeyVersion: ""}, ErrMissingRequired},
		{"bad count", TXTRecordMap{TXTKeyVersion: "2.0", TXTKeyDevices: "many"}, ErrInvalidTXTRecord},
		{"negative count", TXTRecordMap{TXTKeyVersion: "2.0", TXTKeyDevices: "-1"}, ErrInvalidTXTRecord},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeServerTXT(tt.txt); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestStringsToTXTRecords(t *testing.T) {
	txt := StringsToTXTRecords([]string{"ver=2.0", "flag", "", "url=a=b"})
	if txt["ver"] != "2.0" {
		t.Errorf("ver: got %q", txt["ver"])
	}
	if v, ok := txt["flag"]; !ok || v != "" {
		t.Errorf("flag: got %q, %v", v, ok)
	}
	if txt["url"] != "a=b" {
		t.Errorf("url: got %q", txt["url"])
	}
	if len(txt) != 3 {
		t.Errorf("Expected 3 records, got %d", len(txt))
	}
}

func TestValidateInstanceName(t *testing.T) {
	if err := ValidateInstanceName("observatory"); err != nil {
		t.Errorf("valid name rejected: %v", err)
	}
	if err := ValidateInstanceName(""); !errors.Is(err, ErrMissingRequired) {
		t.Errorf("empty name: got %v", err)
	}
	long := make([]byte, MaxInstanceNameLen+1)
	for i := range long {
		long[i] = 'x'
	}
	if err := ValidateInstanceName(string(long)); !errors.Is(err, ErrInstanceNameTooLong) {
		t.Errorf("long name: got %v", err)
	}
}

func TestServiceAddress(t *testing.T) {
	tests := []struct {
		name string
		svc  Service
		want string
	}{
		{"host only", Service{Host: "scope.local.", Port: 7624}, "scope.local.:7624"},
		{"ipv4 first", Service{Host: "scope.local.", Port: 7624, Addresses: []string{"10.0.0.2", "fe80::1"}}, "10.0.0.2:7624"},
		{"ipv6", Service{Port: 7625, Addresses: []string{"fe80::1"}}, "[fe80::1]:7625"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.svc.Address(); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestMergeAddresses(t *testing.T) {
	got := mergeAddresses([]string{"10.0.0.2"}, []string{"10.0.0.2", "fe80::1"})
	if len(got) != 2 || got[1] != "fe80::1" {
		t.Errorf("unexpected merge result %v", got)
	}
}

// TestMDNSAdvertiserLifecycle exercises the advertiser paths that do not
// touch the network.
func TestMDNSAdvertiserLifecycle(t *testing.T) {
	adv := NewMDNSAdvertiser(AdvertiserConfig{})
	if adv.config.TTL != DefaultTTL {
		t.Errorf("Expected default TTL, got %v", adv.config.TTL)
	}

	if err := adv.Update(&ServerInfo{Version: "2.0"}); !errors.Is(err, ErrNotAdvertising) {
		t.Errorf("Update before Advertise: got %v", err)
	}
	if err := adv.Advertise(context.Background(), &ServerInfo{Version: "2.0"}); !errors.Is(err, ErrMissingRequired) {
		t.Errorf("Advertise without instance: got %v", err)
	}

	// Stop is safe without an advertisement, and twice.
	adv.Stop()
	adv.Stop()
}

func TestMDNSBrowserFindCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMDNSBrowser(BrowserConfig{}).Find(ctx, "observatory")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
