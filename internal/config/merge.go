package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ProjectConfigFile is the overlay looked up in the working directory.
const ProjectConfigFile = ".stork.yaml"

// ShallowMergeYAML reads overlayPath and replaces every top-level section it
// names (cache, session, logging, output) on target. Sections the overlay
// omits are kept; unrecognised keys are ignored.
func ShallowMergeYAML(target *Config, overlayPath string) error {
	if target == nil {
		return errors.New("shallow merge: nil target config")
	}

	data, err := os.ReadFile(overlayPath)
	if err != nil {
		return fmt.Errorf("reading overlay %s: %w", overlayPath, err)
	}

	var sections map[string]yaml.Node
	if err = yaml.Unmarshal(data, &sections); err != nil {
		return fmt.Errorf("parsing overlay %s: %w", overlayPath, err)
	}

	for name, node := range sections {
		if err = replaceSection(target, name, &node); err != nil {
			return fmt.Errorf("overlay section %q: %w", name, err)
		}
	}
	return nil
}

// replaceSection decodes node into a zero value before assigning it, so maps
// such as ttl_overrides never inherit keys from the base config.
func replaceSection(target *Config, name string, node *yaml.Node) error {
	switch name {
	case "cache":
		return decodeInto(node, &target.Cache)
	case "session":
		return decodeInto(node, &target.Session)
	case "logging":
		return decodeInto(node, &target.Logging)
	case "output":
		return decodeInto(node, &target.Output)
	default:
		return nil
	}
}

func decodeInto[T any](node *yaml.Node, dst *T) error {
	var fresh T
	if err := node.Decode(&fresh); err != nil {
		return err
	}
	*dst = fresh
	return nil
}

// applyProjectOverlay merges ProjectConfigFile from the working directory
// when one exists.
func applyProjectOverlay(cfg *Config) error {
	if _, err := os.Stat(ProjectConfigFile); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("checking %s: %w", ProjectConfigFile, err)
	}
	return ShallowMergeYAML(cfg, ProjectConfigFile)
}
