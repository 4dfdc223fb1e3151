package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/abdul-hamid-achik/domspec/packages/core/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new domspec project",
	Long: `Initialize a new domspec project in the current directory.

This creates:
  - .domspec.config.json     - Configuration file with environments
  - example.domspec.yaml     - Example suite

Examples:
  domspec init
  domspec init --force`,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
}

type sampleExpectation struct {
	Assert string             `yaml:"assert"`
	Args   []any              `yaml:"args,omitempty"`
	Not    bool               `yaml:"not,omitempty"`
	Fails  string             `yaml:"fails,omitempty"`
	Then   *sampleExpectation `yaml:"then,omitempty"`
}

type sampleTest struct {
	Name    string              `yaml:"name"`
	Tags    []string            `yaml:"tags,omitempty"`
	Element string              `yaml:"element,omitempty"`
	Select  string              `yaml:"select,omitempty"`
	Expect  []sampleExpectation `yaml:"expect"`
}

type sampleSuite struct {
	Name      string            `yaml:"name"`
	Fixture   string            `yaml:"fixture"`
	Variables map[string]string `yaml:"variables"`
	Tests     []sampleTest      `yaml:"tests"`
}

func exampleSuite() sampleSuite {
	return sampleSuite{
		Name: "example",
		Fixture: `<div id="greeting" class="card" title="{{title}}">
  <h1>Hello</h1>
  <ul>
    <li class="item">one</li>
    <li class="item">two</li>
  </ul>
</div>
`,
		Variables: map[string]string{"title": "Welcome"},
		Tests: []sampleTest{
			{
				Name: "the card has its id, class and title",
				Tags: []string{"smoke"},
				Expect: []sampleExpectation{
					{Assert: "id", Args: []any{"greeting"}},
					{Assert: "class", Args: []any{"card"}},
					{Assert: "attr", Args: []any{"title"}, Then: &sampleExpectation{Assert: "equal", Args: []any{"{{title}}"}}},
					{Assert: "class", Args: []any{"hidden"}, Not: true},
				},
			},
			{
				Name:    "the heading text",
				Element: "h1",
				Expect: []sampleExpectation{
					{Assert: "text", Args: []any{"Hello"}},
					{Assert: "text", Args: []any{"Goodbye"}, Fails: "expected h1 to have text 'Goodbye', but the text was 'Hello'"},
				},
			},
			{
				Name:   "every item",
				Select: "li",
				Expect: []sampleExpectation{
					{Assert: "length", Args: []any{2}},
					{Assert: "class", Args: []any{"item"}},
				},
			},
			{
				Name: "the list is inside the card",
				Expect: []sampleExpectation{
					{Assert: "contain", Args: []any{"ul > li"}},
					{Assert: "descendants", Args: []any{"li.item"}},
					{Assert: "contain", Args: []any{map[string]any{"element": "h1"}}},
				},
			},
		},
	}
}

func exampleConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.History = ".domspec/history.db"
	cfg.Environments = map[string]map[string]any{
		"dev":     {"title": "Welcome"},
		"staging": {"title": "Welcome (staging)"},
	}
	return cfg
}

func initCommand(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	configFile := filepath.Join(cwd, config.ConfigFilenames[0])
	exampleFile := filepath.Join(cwd, "example.domspec.yaml")

	if !forceInit {
		for _, f := range []string{configFile, exampleFile} {
			if _, err := os.Stat(f); err == nil {
				return usageError(fmt.Errorf("file already exists: %s (use --force to overwrite)", f))
			}
		}
	}

	if err := exampleConfig().SaveConfig(configFile); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	suiteYAML, err := yaml.Marshal(exampleSuite())
	if err != nil {
		return fmt.Errorf("failed to encode example suite: %w", err)
	}
	if err := os.WriteFile(exampleFile, suiteYAML, 0644); err != nil {
		return fmt.Errorf("failed to create example file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", exampleFile)

	fmt.Fprintf(cmd.OutOrStdout(), "\ndomspec project initialized!\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Run 'domspec run example.domspec.yaml' to execute the example suite.\n")

	return nil
}
