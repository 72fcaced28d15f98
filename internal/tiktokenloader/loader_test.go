package tiktokenloader

import (
	"testing"
	"testing/fstest"
)

func TestDirLoader(t *testing.T) {
	// "a" -> YQ==, "b" -> Yg==, "ab" -> YWI=
	fsys := fstest.MapFS{
		O200kBaseDictFile: {Data: []byte("YQ== 0\nYg== 1\n\nYWI= 2\n")},
	}
	loader := NewDirLoader(fsys)
	bpeRanks, err := loader.LoadTiktokenBpe("https://openaipublic.blob.core.windows.net/encodings/o200k_base.tiktoken")
	if err != nil {
		t.Fatal(err)
	}
	if len(bpeRanks) != 3 {
		t.Fatalf("expected 3 ranks, got %d", len(bpeRanks))
	}
	if bpeRanks["ab"] != 2 {
		t.Errorf("rank for ab = %d, want 2", bpeRanks["ab"])
	}
}

func TestDirLoader_Missing(t *testing.T) {
	loader := NewDirLoader(fstest.MapFS{})
	if _, err := loader.LoadTiktokenBpe(O200kBaseDictFile); err == nil {
		t.Fatal("expected error for missing rank file")
	}
}

func TestParseRanks_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"missing rank", "YQ==\n"},
		{"bad base64", "!!!! 1\n"},
		{"bad rank", "YQ== x\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseRanks([]byte(tt.data)); err == nil {
				t.Errorf("expected error")
			}
		})
	}
}
