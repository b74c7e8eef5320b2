package domain

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// MenuItem is immutable static configuration.
type MenuItem struct {
	ID          string  `yaml:"id" json:"id"`
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description" json:"description"`
	Price       float64 `yaml:"price" json:"price"`
	Category    string  `yaml:"category" json:"category"`
}

type MenuCategory struct {
	Name  string     `yaml:"name" json:"name"`
	Items []MenuItem `yaml:"items" json:"items"`
}

type Menu struct {
	Categories []MenuCategory `yaml:"categories" json:"categories"`
}

// LoadMenu reads the menu YAML file and validates it.
func LoadMenu(path string) (*Menu, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read menu: %w", err)
	}
	var m Menu
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse menu: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Menu) Validate() error {
	if len(m.Categories) == 0 {
		return fmt.Errorf("menu has no categories")
	}
	seen := map[string]bool{}
	for _, c := range m.Categories {
		for _, it := range c.Items {
			if it.ID == "" || it.Name == "" {
				return fmt.Errorf("menu item in category %q missing id or name", c.Name)
			}
			if seen[it.ID] {
				return fmt.Errorf("duplicate menu item id %q", it.ID)
			}
			seen[it.ID] = true
			if it.Price < 0 {
				return fmt.Errorf("menu item %q has negative price", it.ID)
			}
		}
	}
	return nil
}

// Items flattens all categories.
func (m *Menu) Items() []MenuItem {
	var out []MenuItem
	for _, c := range m.Categories {
		out = append(out, c.Items...)
	}
	return out
}

func (m *Menu) ItemByID(id string) (MenuItem, bool) {
	for _, c := range m.Categories {
		for _, it := range c.Items {
			if it.ID == id {
				return it, true
			}
		}
	}
	return MenuItem{}, false
}

// ItemByName matches case-insensitively; suggestion gateways are not
// trusted to preserve casing.
func (m *Menu) ItemByName(name string) (MenuItem, bool) {
	name = strings.TrimSpace(name)
	for _, c := range m.Categories {
		for _, it := range c.Items {
			if strings.EqualFold(it.Name, name) {
				return it, true
			}
		}
	}
	return MenuItem{}, false
}

// ItemNames returns all item names in menu order.
func (m *Menu) ItemNames() []string {
	var out []string
	for _, c := range m.Categories {
		for _, it := range c.Items {
			out = append(out, it.Name)
		}
	}
	return out
}
