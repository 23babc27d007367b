package pngmsg

import (
	"errors"
	"testing"
)

func TestTagFromString(t *testing.T) {
	cases := []struct {
		s                                        string
		wantErr                                  error
		valid, critical, public, reserved, safe bool
	}{
		{s: "RuSt", valid: true, critical: true, reserved: true, safe: true},
		{s: "Rust", critical: true, safe: true},
		{s: "ruSt", valid: true, reserved: true, safe: true},
		{s: "RUSt", valid: true, critical: true, public: true, reserved: true, safe: true},
		{s: "RuST", valid: true, critical: true, reserved: true},
		{s: "IEND", valid: true, critical: true, public: true, reserved: true},
		{s: "tEXt", valid: true, public: true, reserved: true, safe: true},
		{s: "Ru1t", wantErr: ErrInvalidTagBytes},
		{s: "Ru@t", wantErr: ErrInvalidTagBytes},
		{s: "Ru[t", wantErr: ErrInvalidTagBytes},
		{s: "Ru`t", wantErr: ErrInvalidTagBytes},
		{s: "Ru{t", wantErr: ErrInvalidTagBytes},
		{s: "Rus", wantErr: ErrInvalidTagLength},
		{s: "RuStt", wantErr: ErrInvalidTagLength},
		{s: "", wantErr: ErrInvalidTagLength},
	}

	for _, tc := range cases {
		t.Run(tc.s, func(t *testing.T) {
			tag, err := TagFromString(tc.s)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("got error %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got := tag.IsValid(); got != tc.valid {
				t.Errorf("IsValid: got %v, want %v", got, tc.valid)
			}
			if got := tag.IsCritical(); got != tc.critical {
				t.Errorf("IsCritical: got %v, want %v", got, tc.critical)
			}
			if got := tag.IsPublic(); got != tc.public {
				t.Errorf("IsPublic: got %v, want %v", got, tc.public)
			}
			if got := tag.IsReservedBitValid(); got != tc.reserved {
				t.Errorf("IsReservedBitValid: got %v, want %v", got, tc.reserved)
			}
			if got := tag.IsSafeToCopy(); got != tc.safe {
				t.Errorf("IsSafeToCopy: got %v, want %v", got, tc.safe)
			}
			if got := tag.String(); got != tc.s {
				t.Errorf("String: got %q, want %q", got, tc.s)
			}
		})
	}
}

func TestParseTag(t *testing.T) {
	tag, err := ParseTag([4]byte{82, 117, 83, 116})
	if err != nil {
		t.Fatal(err)
	}
	if got := tag.Bytes(); got != [4]byte{82, 117, 83, 116} {
		t.Errorf("got %v", got)
	}
	tag2, err := TagFromString("RuSt")
	if err != nil {
		t.Fatal(err)
	}
	if tag != tag2 {
		t.Errorf("%s != %s", tag, tag2)
	}

	for _, b := range [][4]byte{{0, 'a', 'B', 'c'}, {'a', 'B', 'c', 0xe1}, {'a', 'B', ' ', 'c'}} {
		if _, err := ParseTag(b); !errors.Is(err, ErrInvalidTagBytes) {
			t.Errorf("ParseTag(%v): got error %v, want ErrInvalidTagBytes", b, err)
		}
	}
}

func TestTagLetters(t *testing.T) {
	for i := 0; i < 256; i++ {
		c := byte(i)
		want := ('A' <= c && c <= 'Z') || ('a' <= c && c <= 'z')
		if got := isLetter(c); got != want {
			t.Errorf("isLetter(0x%02x) = %v, want %v", c, got, want)
		}
	}
}
