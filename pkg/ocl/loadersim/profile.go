package loadersim

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/OpenTraceLab/OpenTraceOCL/pkg/ocl"
)

// Profile is the geometry a simulated loader reports when probed.
type Profile struct {
	Name     string `yaml:"name"`
	Base     uint32 `yaml:"base"`
	Size     uint32 `yaml:"size"`
	Sectors  uint32 `yaml:"sectors"`
	BufLen   uint32 `yaml:"buflen"`
	BufAlign uint32 `yaml:"bufalign"`
}

// DefaultProfile is a 64 KiB device in 16 sectors with a 256-byte buffer.
func DefaultProfile() Profile {
	return Profile{
		Name:     "default",
		Base:     0x08000000,
		Size:     64 * 1024,
		Sectors:  16,
		BufLen:   256,
		BufAlign: 4,
	}
}

// Geometry returns the profile as the loader would report it.
func (p Profile) Geometry() ocl.Geometry {
	return ocl.Geometry{
		Base:     p.Base,
		Size:     p.Size,
		Sectors:  p.Sectors,
		BufLen:   p.BufLen,
		BufAlign: p.BufAlign,
	}
}

// LoadProfile reads a YAML profile. Missing keys keep their DefaultProfile
// values.
func LoadProfile(r io.Reader) (Profile, error) {
	p := DefaultProfile()
	data, err := io.ReadAll(r)
	if err != nil {
		return Profile{}, fmt.Errorf("loadersim: read profile: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, &p); err != nil {
		return Profile{}, fmt.Errorf("loadersim: parse profile: %w", err)
	}
	return p, nil
}

func LoadProfileFile(path string) (Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return Profile{}, fmt.Errorf("loadersim: %w", err)
	}
	defer f.Close()
	return LoadProfile(f)
}
