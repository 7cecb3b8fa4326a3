package namespace

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// File is the on-disk namespace configuration format. A file declares one
// or more namespaces:
//
//	namespaces:
//	  - name: reports
//	    relations:
//	      - name: admin
//	      - name: moderator
//	        rewrite:
//	          union: [admin]
//	      - name: view
//	        rewrite:
//	          union: [moderator]
type File struct {
	Namespaces []Namespace `yaml:"namespaces"`
}

// LoadFile parses a namespace configuration file.
func LoadFile(path string) ([]Namespace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("namespace: read %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("namespace: parse %s: %w", path, err)
	}

	for _, ns := range f.Namespaces {
		if ns.Name == "" {
			return nil, fmt.Errorf("namespace: %s declares a namespace without a name", path)
		}
	}
	return f.Namespaces, nil
}

// LoadDir loads every .yaml/.yml file in a directory into a single
// registry. Later files override earlier declarations of the same
// namespace name.
func LoadDir(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("namespace: read dir %s: %w", dir, err)
	}

	registry := NewRegistry()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		namespaces, err := LoadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		for _, ns := range namespaces {
			registry.Add(ns)
		}
	}
	return registry, nil
}
