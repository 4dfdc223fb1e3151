package env

import (
	"strings"
	"testing"
)

func TestLoadEnvironment(t *testing.T) {
	envs := map[string]map[string]any{
		"dev":     {"title": "Dev"},
		"staging": {"title": "Staging"},
	}

	env, err := LoadEnvironment("staging", envs)
	if err != nil {
		t.Fatalf("LoadEnvironment() error = %v", err)
	}
	if env.Variables["title"] != "Staging" {
		t.Errorf("title = %v, want Staging", env.Variables["title"])
	}

	_, err = LoadEnvironment("prod", envs)
	if err == nil || !strings.Contains(err.Error(), "available: dev, staging") {
		t.Errorf("LoadEnvironment(prod) error = %v", err)
	}

	env, err = LoadEnvironment("anything", nil)
	if err != nil || len(env.Variables) != 0 {
		t.Errorf("LoadEnvironment without config = %v, %v", env, err)
	}
}

func TestMergeVariables(t *testing.T) {
	got := MergeVariables(
		map[string]any{"a": 1, "b": 1},
		FromStrings(map[string]string{"b": "2"}),
		nil,
		map[string]any{"c": 3},
	)
	if got["a"] != 1 || got["b"] != "2" || got["c"] != 3 {
		t.Errorf("MergeVariables() = %v", got)
	}
}

func TestLoadSystemEnv(t *testing.T) {
	t.Setenv("DOMSPEC_VAR_title", "chai")

	got := LoadSystemEnv("DOMSPEC_VAR_")
	if got["title"] != "chai" {
		t.Errorf("LoadSystemEnv() title = %v, want chai", got["title"])
	}
}
