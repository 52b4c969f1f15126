package application

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/ini.v1"
)

// isortSections are the INI section names isort reads from setup.cfg and
// tox.ini.
var isortSections = []string{"isort", "tool:isort"}

// DetectIsortConfig looks for isort configuration in pyproject.toml,
// setup.cfg and tox.ini under dir, in that order, and returns the first
// file that configures it.
func DetectIsortConfig(dir string) (string, bool) {
	if data, err := os.ReadFile(filepath.Join(dir, "pyproject.toml")); err == nil && pyprojectHasIsort(data) {
		return "pyproject.toml", true
	}
	for _, name := range []string{"setup.cfg", "tox.ini"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err == nil && iniHasIsort(data) {
			return name, true
		}
	}
	return "", false
}

func pyprojectHasIsort(data []byte) bool {
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return bytes.Contains(data, []byte("[tool.isort]"))
	}
	tool, ok := doc["tool"].(map[string]any)
	if !ok {
		return false
	}
	_, ok = tool["isort"]
	return ok
}

func iniHasIsort(data []byte) bool {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		AllowPythonMultilineValues: true,
		SkipUnrecognizableLines:    true,
		IgnoreInlineComment:        true,
	}, data)
	if err != nil {
		for _, s := range isortSections {
			if bytes.Contains(data, []byte("["+s+"]")) {
				return true
			}
		}
		return false
	}
	for _, s := range isortSections {
		if cfg.HasSection(s) {
			return true
		}
	}
	return false
}
