package reference

// KeyCatalog описывает один YAML-справочник первичных ключей
type KeyCatalog struct {
	Name      string        `yaml:"name"`
	Resources []ResourceKey `yaml:"resources"`
}

type ResourceKey struct {
	Name       string   `yaml:"name"`
	PrimaryKey []string `yaml:"primary_key"`
	// Необязательное описание для людей
	Comment string `yaml:"comment,omitempty"`
}

// KeyIssue: проблема в справочнике, найденная линтером
type KeyIssue struct {
	Catalog  string `json:"catalog"`
	Resource string `json:"resource"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}
