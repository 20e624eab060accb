// Package modelfile reads and writes model files: a block tree in its
// interchange form together with the system-wide symbols it runs under.
// YAML, JSON and HCL files are supported, chosen by file extension.
package modelfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/san-kum/portsim/internal/block"
	"github.com/san-kum/portsim/internal/system"
	"gopkg.in/yaml.v3"
)

// ErrFormat is returned for unsupported file extensions.
var ErrFormat = errors.New("modelfile: unsupported format")

type Format string

const (
	YAML Format = "yaml"
	JSON Format = "json"
	HCL  Format = "hcl"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML, nil
	case ".json":
		return JSON, nil
	case ".hcl":
		return HCL, nil
	}
	return "", fmt.Errorf("%w: %q", ErrFormat, filepath.Ext(path))
}

type SystemParameter struct {
	Name        string `json:"name" yaml:"name"`
	Formula     string `json:"formula" yaml:"formula"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// File is the content of one model file.
type File struct {
	TimeSymbol       string            `json:"time_symbol,omitempty" yaml:"time_symbol,omitempty"`
	SystemParameters []SystemParameter `json:"system_parameters,omitempty" yaml:"system_parameters,omitempty"`
	Model            block.Data        `json:"model" yaml:"model"`
}

func Load(path string) (*File, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}
	f, err := Decode(data, format, path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Decode parses src. name is used in HCL diagnostics.
func Decode(src []byte, format Format, name string) (*File, error) {
	var f File
	switch format {
	case YAML:
		dec := yaml.NewDecoder(bytes.NewReader(src))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, err
		}
	case JSON:
		dec := json.NewDecoder(bytes.NewReader(src))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return nil, err
		}
	case HCL:
		hf, err := decodeHCL(src, name)
		if err != nil {
			return nil, err
		}
		f = *hf
	default:
		return nil, fmt.Errorf("%w: %q", ErrFormat, format)
	}
	if err := f.Model.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func Save(path string, f *File) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, format, f); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write model file: %w", err)
	}
	return nil
}

func Encode(w io.Writer, format Format, f *File) error {
	switch format {
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(f); err != nil {
			return err
		}
		return enc.Close()
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(f)
	case HCL:
		_, err := w.Write(encodeHCL(f))
		return err
	}
	return fmt.Errorf("%w: %q", ErrFormat, format)
}

// FromBlock captures a block tree and the globals of an uncompiled system.
func FromBlock(b block.Block, sys *system.System) *File {
	f := &File{Model: b.Data()}
	if sys == nil {
		return f
	}
	if sys.TimeSymbol() != block.DefaultTimeSymbol {
		f.TimeSymbol = string(sys.TimeSymbol())
	}
	for _, p := range sys.Parameters() {
		if p.Class == system.ClassSystem {
			f.SystemParameters = append(f.SystemParameters, SystemParameter{
				Name:        string(p.Symbol),
				Formula:     p.Expr.String(),
				Description: p.Description,
			})
		}
	}
	return f
}

// System creates an uncompiled System carrying the file's time symbol and
// system parameters.
func (f *File) System(logger *slog.Logger) (*system.System, error) {
	opts := []system.Option{system.WithLogger(logger)}
	if f.TimeSymbol != "" {
		opts = append(opts, system.WithTimeSymbol(f.TimeSymbol))
	}
	sys := system.New(opts...)
	for _, p := range f.SystemParameters {
		if err := sys.AddSystemParameter(p.Name, p.Formula, p.Description); err != nil {
			return nil, err
		}
	}
	return sys, nil
}

// Block rebuilds the model tree. Time and system parameters never become
// input ports.
func (f *File) Block() (block.Block, error) {
	globals := []string{string(block.DefaultTimeSymbol)}
	if f.TimeSymbol != "" {
		globals[0] = f.TimeSymbol
	}
	for _, p := range f.SystemParameters {
		globals = append(globals, p.Name)
	}
	return block.FromData(f.Model, block.WithGlobals(globals...))
}
