package main

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/tidwall/jsonc"

	"github.com/meigma/ultra/scene"
)

// sceneSpec describes a scene to save from the command line:
//
//	{
//	  "editor": {"camera": {"fov": 45}},
//	  "models": [
//	    {"document": {"name": "robot"}, "resources": {"model": "models/robot.obj"}}
//	  ]
//	}
//
// Relative resource paths are resolved against the project root.
type sceneSpec struct {
	Editor map[string]map[string]any `json:"editor"`
	Models []modelSpec                `json:"models"`
}

type modelSpec struct {
	Document  map[string]any    `json:"document"`
	Resources map[string]string `json:"resources"`
}

// specSavable adapts one spec fragment to scene.Savable.
type specSavable struct {
	frag      scene.Fragment
	resources map[string]string
}

func (s specSavable) Save() scene.Fragment          { return s.frag }
func (s specSavable) Resources() map[string]string { return s.resources }

func readSceneSpec(path, base string) ([]scene.Savable, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-supplied spec path
	if err != nil {
		return nil, fmt.Errorf("failed to read scene spec: %w", err)
	}
	return parseSceneSpec(data, base)
}

func parseSceneSpec(data []byte, base string) ([]scene.Savable, error) {
	var spec sceneSpec
	if err := json.Unmarshal(jsonc.ToJSON(data), &spec); err != nil {
		return nil, fmt.Errorf("failed to parse scene spec: %w", err)
	}

	var out []scene.Savable
	for _, key := range slices.Sorted(maps.Keys(spec.Editor)) {
		out = append(out, specSavable{
			frag: scene.Fragment{Kind: scene.KindEditor, Key: key, Document: spec.Editor[key]},
		})
	}
	for _, m := range spec.Models {
		res := make(map[string]string, len(m.Resources))
		for role, p := range m.Resources {
			if !filepath.IsAbs(p) {
				p = filepath.Join(base, filepath.FromSlash(p))
			}
			res[role] = p
		}
		out = append(out, specSavable{
			frag:      scene.Fragment{Kind: scene.KindModel, Document: m.Document},
			resources: res,
		})
	}
	return out, nil
}
