// Package defaults provides embedded default assets (prompt templates and config).
package defaults

import _ "embed"

//go:embed insertion_prompt.md
var DefaultInsertionPrompt string

//go:embed editing_prompt.md
var DefaultEditingPrompt string

//go:embed default_config.toml
var DefaultConfigTOML []byte
