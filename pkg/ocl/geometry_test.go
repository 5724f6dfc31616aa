package ocl

import (
	"errors"
	"testing"

	"github.com/OpenTraceLab/OpenTraceOCL/pkg/flash"
)

func TestGeometryValidate(t *testing.T) {
	valid := Geometry{Base: 0x08000000, Size: 65536, Sectors: 16, BufLen: 256, BufAlign: 4}

	tests := []struct {
		name    string
		mutate  func(g *Geometry)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Geometry) {}},
		{name: "zero sectors", mutate: func(g *Geometry) { g.Sectors = 0 }, wantErr: true},
		{name: "uneven sectors", mutate: func(g *Geometry) { g.Sectors = 3 }, wantErr: true},
		{name: "zero buflen", mutate: func(g *Geometry) { g.BufLen = 0 }, wantErr: true},
		{name: "align above buflen", mutate: func(g *Geometry) { g.BufAlign = 512 }, wantErr: true},
		{name: "buflen not multiple of align", mutate: func(g *Geometry) { g.BufAlign = 24 }, wantErr: true},
		{name: "buflen not multiple of 4", mutate: func(g *Geometry) { g.BufLen, g.BufAlign = 6, 2 }, wantErr: true},
		{name: "align equals buflen", mutate: func(g *Geometry) { g.BufAlign = 256 }},
		{name: "zero align", mutate: func(g *Geometry) { g.BufAlign = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := valid
			tt.mutate(&g)
			err := g.Validate()
			if tt.wantErr {
				var ge *GeometryError
				if !errors.As(err, &ge) || !errors.Is(err, flash.ErrBankInvalid) {
					t.Fatalf("err = %v, want GeometryError wrapping ErrBankInvalid", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate: %v", err)
			}
		})
	}
}

func TestGeometryZeroAlignCoerced(t *testing.T) {
	g := Geometry{Size: 1024, Sectors: 4, BufLen: 64}
	if err := g.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if g.BufAlign != 1 {
		t.Fatalf("BufAlign = %d, want 1", g.BufAlign)
	}
}

func TestGeometryBufferWord(t *testing.T) {
	buflen, bufalign := UnpackBufferWord(0x00040100)
	if buflen != 256 || bufalign != 4 {
		t.Fatalf("UnpackBufferWord = %d/%d", buflen, bufalign)
	}
	g := Geometry{BufLen: 256, BufAlign: 4}
	if g.BufferWord() != 0x00040100 {
		t.Fatalf("BufferWord = 0x%08x", g.BufferWord())
	}
}

func TestGeometryRunLength(t *testing.T) {
	g := Geometry{BufLen: 256, BufAlign: 4}
	tests := []struct {
		offset, count uint32
		want          uint32
		lane          int
	}{
		{0, 300, 256, 0},
		{256, 44, 44, 0},
		{2, 300, 254, 2},
		{7, 1, 1, 3},
	}
	for _, tt := range tests {
		if got := g.RunLength(tt.offset, tt.count); got != tt.want {
			t.Errorf("RunLength(%d, %d) = %d, want %d", tt.offset, tt.count, got, tt.want)
		}
		if got := g.Lane(tt.offset); got != tt.lane {
			t.Errorf("Lane(%d) = %d, want %d", tt.offset, got, tt.lane)
		}
	}

	wide := Geometry{BufLen: 512, BufAlign: 512}
	if got := wide.RunLength(500, 100); got != 12 {
		t.Errorf("RunLength at window end = %d, want 12", got)
	}
	if got := wide.Lane(510); got != 2 {
		t.Errorf("Lane(510) = %d, want 2", got)
	}
	if wide.ScratchWords() != 131 {
		t.Errorf("ScratchWords = %d, want 131", wide.ScratchWords())
	}
}
