package reference

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"crmgate/internal/postgrest"
)

// LoadKeyCatalogs читает все *.yaml/*.yml из папки (в порядке имён файлов)
func LoadKeyCatalogs(dir string) ([]KeyCatalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".yaml") || strings.HasSuffix(e.Name(), ".yml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	result := make([]KeyCatalog, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		var cat KeyCatalog
		if err := yaml.Unmarshal(data, &cat); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		// имя справочника — из cat.Name или из имени файла
		if cat.Name == "" {
			cat.Name = strings.TrimSuffix(name, filepath.Ext(name))
		}
		result = append(result, cat)
	}
	return result, nil
}

// Merge складывает справочники в карту ключей; более поздние перекрывают ранние
func Merge(base postgrest.PrimaryKeyMap, catalogs ...KeyCatalog) postgrest.PrimaryKeyMap {
	out := make(postgrest.PrimaryKeyMap, len(base))
	for k, v := range base {
		out[k] = v
	}
	for _, cat := range catalogs {
		for _, r := range cat.Resources {
			if r.Name == "" || len(r.PrimaryKey) == 0 {
				continue
			}
			out[r.Name] = append(postgrest.PrimaryKey(nil), r.PrimaryKey...)
		}
	}
	return out
}

// Lint проверяет базовые противоречия в справочниках
func Lint(catalogs []KeyCatalog) []KeyIssue {
	var issues []KeyIssue
	for _, cat := range catalogs {
		seen := map[string]struct{}{}
		for _, r := range cat.Resources {
			name := strings.TrimSpace(r.Name)
			if name == "" {
				issues = append(issues, KeyIssue{
					Catalog: cat.Name,
					Code:    "resource_name_empty",
					Message: "resource without name",
				})
				continue
			}
			if _, dup := seen[name]; dup {
				issues = append(issues, KeyIssue{
					Catalog:  cat.Name,
					Resource: name,
					Code:     "resource_duplicate",
					Message:  fmt.Sprintf("resource %q declared twice", name),
				})
			}
			seen[name] = struct{}{}

			if len(r.PrimaryKey) == 0 {
				issues = append(issues, KeyIssue{
					Catalog:  cat.Name,
					Resource: name,
					Code:     "primary_key_empty",
					Message:  "primary_key must list at least one column",
				})
				continue
			}
			cols := map[string]struct{}{}
			for _, c := range r.PrimaryKey {
				c = strings.TrimSpace(c)
				if c == "" {
					issues = append(issues, KeyIssue{
						Catalog:  cat.Name,
						Resource: name,
						Code:     "column_empty",
						Message:  "primary_key has an empty column name",
					})
					continue
				}
				if _, dup := cols[c]; dup {
					issues = append(issues, KeyIssue{
						Catalog:  cat.Name,
						Resource: name,
						Code:     "column_duplicate",
						Message:  fmt.Sprintf("column %q repeats in primary_key", c),
					})
				}
				cols[c] = struct{}{}
				// "@" в имени колонки ломает разбор ключей фильтра
				if strings.ContainsAny(c, "@,()") {
					issues = append(issues, KeyIssue{
						Catalog:  cat.Name,
						Resource: name,
						Code:     "column_reserved_char",
						Message:  fmt.Sprintf("column %q contains a reserved character", c),
					})
				}
			}
		}
	}
	return issues
}
