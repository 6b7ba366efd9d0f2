package util

import (
	"testing"
)

func TestFormatAddr(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"1.2.3.4", 5000, "1.2.3.4:5000"},
		{"", 5000, ":5000"},
		{"::1", 443, "[::1]:443"},
	}
	for _, tt := range tests {
		if got := FormatAddr(tt.host, tt.port); got != tt.want {
			t.Errorf("FormatAddr(%q,%d) = %q, want %q", tt.host, tt.port, got, tt.want)
		}
	}
}

func TestParseHostPort(t *testing.T) {
	tests := []struct {
		addr     string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{"files.example.com", "files.example.com", 5000, false},
		{"files.example.com:6000", "files.example.com", 6000, false},
		{"[::1]:7000", "::1", 7000, false},
		{"host:notaport", "", 0, true},
		{"host:70000", "", 0, true},
	}

	for _, tt := range tests {
		host, port, err := ParseHostPort(tt.addr, 5000)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseHostPort(%q) err=%v wantErr=%v", tt.addr, err, tt.wantErr)
			continue
		}
		if host != tt.wantHost || port != tt.wantPort {
			t.Errorf("ParseHostPort(%q) = %q,%d, want %q,%d",
				tt.addr, host, port, tt.wantHost, tt.wantPort)
		}
	}
}

func TestFindFreePort(t *testing.T) {
	port, err := FindFreePort()
	if err != nil {
		t.Fatal(err)
	}
	if port < 1 || port > 65535 {
		t.Errorf("port %d out of range", port)
	}
}
