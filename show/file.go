package show

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"dev.acmcsuf.com/christmas/lib/xcolor"
	"dev.acmcsuf.com/patternd/animator"
	"dev.acmcsuf.com/patternd/lib8"
	"gopkg.in/yaml.v3"
)

// DefaultInterval is the step interval used when a spec leaves it out.
const DefaultInterval = 50 * time.Millisecond

// File is the YAML layout of a show file:
//
//	steps:
//	  - pattern: rainbow-cycle
//	    interval: 20ms
//	    repeat: 2
//	  - pattern: moving-palette
//	    palette: ocean
//	  - pattern: fade
//	    color1: "#ff0000"
//	    color2: "#0000ff"
//	    steps: 64
type File struct {
	Steps []StepSpec `yaml:"steps"`
}

// StepSpec is the textual form of a Step, as found in show files and
// remote commands.
type StepSpec struct {
	Name      string `yaml:"name"`
	Pattern   string `yaml:"pattern"`
	Interval  string `yaml:"interval"`
	Direction string `yaml:"direction"`
	Repeat    int    `yaml:"repeat"`

	Color1 string `yaml:"color1"`
	Color2 string `yaml:"color2"`
	Steps  int    `yaml:"steps"`

	Palette             PaletteSpec `yaml:"palette"`
	Blend               string      `yaml:"blend"`
	Brightness          *uint8      `yaml:"brightness"`
	SpeedChangeInterval string      `yaml:"speed-change-interval"`
	MaxSpeed            uint8       `yaml:"max-speed"`
}

// PaletteSpec is either the name of a built-in palette or a list of hex
// color stops. In YAML it may be written as a plain string or a sequence.
type PaletteSpec []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *PaletteSpec) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*p = PaletteSpec{value.Value}
		return nil
	case yaml.SequenceNode:
		var stops []string
		if err := value.Decode(&stops); err != nil {
			return err
		}
		*p = stops
		return nil
	default:
		return fmt.Errorf("line %d: palette must be a name or a list of colors", value.Line)
	}
}

// Palette resolves the spec. An empty spec is the rainbow palette.
func (p PaletteSpec) Palette() (lib8.Palette16, error) {
	switch len(p) {
	case 0:
		pal, _ := lib8.NamedPalette("rainbow")
		return pal, nil
	case 1:
		if pal, ok := lib8.NamedPalette(p[0]); ok {
			return pal, nil
		}
	}
	return lib8.ParsePalette(p...)
}

// Build validates the spec and converts it to a Step.
func (s StepSpec) Build() (Step, error) {
	kind, err := animator.ParseKind(s.Pattern)
	if err != nil {
		return Step{}, err
	}

	cfg := animator.PatternConfig{
		Kind:       kind,
		Interval:   DefaultInterval,
		Steps:      s.Steps,
		MaxSpeed:   s.MaxSpeed,
		Brightness: 255,
	}

	if s.Interval != "" {
		if cfg.Interval, err = time.ParseDuration(s.Interval); err != nil {
			return Step{}, fmt.Errorf("invalid interval: %w", err)
		}
	}
	if s.SpeedChangeInterval != "" {
		if cfg.SpeedChangeInterval, err = time.ParseDuration(s.SpeedChangeInterval); err != nil {
			return Step{}, fmt.Errorf("invalid speed-change-interval: %w", err)
		}
	}
	if cfg.Direction, err = animator.ParseDirection(s.Direction); err != nil {
		return Step{}, err
	}
	if cfg.Color1, err = parseColor(s.Color1, xcolor.RGB{R: 255, G: 255, B: 255}); err != nil {
		return Step{}, fmt.Errorf("invalid color1: %w", err)
	}
	if cfg.Color2, err = parseColor(s.Color2, xcolor.RGB{}); err != nil {
		return Step{}, fmt.Errorf("invalid color2: %w", err)
	}
	if kind == animator.MovingPalette {
		if cfg.Palette, err = s.Palette.Palette(); err != nil {
			return Step{}, fmt.Errorf("invalid palette: %w", err)
		}
		if cfg.Blend, err = lib8.ParseBlendType(s.Blend); err != nil {
			return Step{}, err
		}
	}
	if s.Brightness != nil {
		cfg.Brightness = *s.Brightness
	}

	return Step{
		Name:    s.Name,
		Pattern: cfg,
		Repeat:  s.Repeat,
	}, nil
}

func parseColor(s string, fallback xcolor.RGB) (xcolor.RGB, error) {
	if s == "" {
		return fallback, nil
	}
	return lib8.ParseHex(s)
}

// Decode reads a show file.
func Decode(r io.Reader) ([]Step, error) {
	var f File

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode show: %w", err)
	}

	steps := make([]Step, len(f.Steps))
	for i, spec := range f.Steps {
		step, err := spec.Build()
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		steps[i] = step
	}

	if len(steps) == 0 {
		return nil, ErrNoSteps
	}

	return steps, nil
}

// Load reads the show file at path.
func Load(path string) ([]Step, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Decode(f)
}

// DecodeStep parses a single step. The input is either a YAML mapping in
// the StepSpec layout or a bare pattern name.
func DecodeStep(b []byte) (Step, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(bytes.TrimSpace(b), &node); err != nil {
		return Step{}, fmt.Errorf("failed to decode step: %w", err)
	}
	if len(node.Content) == 0 {
		return Step{}, fmt.Errorf("empty step")
	}

	doc := node.Content[0]

	var spec StepSpec
	if doc.Kind == yaml.ScalarNode {
		spec.Pattern = doc.Value
	} else if err := doc.Decode(&spec); err != nil {
		return Step{}, fmt.Errorf("failed to decode step: %w", err)
	}

	return spec.Build()
}
