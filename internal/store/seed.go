package store

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var defaultSeed []byte

// Seed is the initial state of the residence.
type Seed struct {
	Users       []User               `yaml:"users" validate:"dive"`
	Rooms       []Room               `yaml:"rooms" validate:"dive"`
	Maintenance []MaintenanceRequest `yaml:"maintenance" validate:"dive"`
	Payments    []Payment            `yaml:"payments" validate:"dive"`
	Visitors    []Visitor            `yaml:"visitors" validate:"dive"`
	Events      []Event              `yaml:"events" validate:"dive"`
}

// DecodeSeed parses a YAML seed document.
func DecodeSeed(r io.Reader) (Seed, error) {
	var seed Seed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		return Seed{}, fmt.Errorf("store: decode seed: %w", err)
	}
	return seed, nil
}

// DefaultSeed returns the embedded demo residence.
func DefaultSeed() (Seed, error) {
	return DecodeSeed(bytes.NewReader(defaultSeed))
}

// LoadSeed reads a seed from path, falling back to the embedded seed when path is empty.
func LoadSeed(path string) (Seed, error) {
	if path == "" {
		return DefaultSeed()
	}
	f, err := os.Open(path)
	if err != nil {
		return Seed{}, fmt.Errorf("store: open seed: %w", err)
	}
	defer f.Close()
	return DecodeSeed(f)
}
