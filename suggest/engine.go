// Package suggest orchestrates prompt assembly and backend inference to
// produce a single text suggestion for an editing surface.
package suggest

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"text/template"

	inkwell "github.com/inkfall/inkwell"
	defaults "github.com/inkfall/inkwell/default"
	"github.com/inkfall/inkwell/snippet"
)

// Engine routes suggestion requests to the insertion or editing path and
// runs them against the configured backend.
type Engine struct {
	gatherer  *Gatherer
	workspace *WorkspaceCache
	insertion *ModeConfig
	editing   *ModeConfig
	config    *inkwell.Config
}

// NewEngine creates a new suggestion engine from the on-disk configuration.
func NewEngine() *Engine {
	cfg, err := inkwell.LoadConfig()
	if err != nil {
		slog.Warn("failed to load config, using defaults", "error", err)
		cfg = inkwell.DefaultConfig()
	}

	// Create embedder if embedding is configured
	var embedder *snippet.Embedder
	if inkwell.EmbeddingEnabled(cfg) {
		embedder = snippet.NewEmbedder(
			inkwell.ResolveEmbeddingBaseURL(cfg),
			inkwell.ResolveEmbeddingAPIKey(cfg),
			inkwell.ResolveEmbeddingModel(cfg),
		)
	}

	e := &Engine{
		gatherer:  NewGatherer(embedder, cfg),
		workspace: NewWorkspaceCache(),
		config:    cfg,
	}

	// Wire the two modes only when an API key is available
	if inkwell.ResolveAPIKey(cfg) != "" {
		e.insertion = newModeConfig(cfg, &cfg.Insertion,
			loadCustomPrompt(inkwell.InsertionPromptPath()), defaults.DefaultInsertionPrompt)
		e.editing = newModeConfig(cfg, &cfg.Editing,
			loadCustomPrompt(inkwell.EditingPromptPath()), defaults.DefaultEditingPrompt)
	} else {
		slog.Warn("completion API key not configured")
	}

	return e
}

// newModeConfig assembles one mode's runtime configuration: prompt
// generator, few-shot messages, backend client, and forwarded params.
func newModeConfig(cfg *inkwell.Config, mode *inkwell.ModeConfig, customPrompt, defaultPrompt string) *ModeConfig {
	attempts := cfg.API.MaxAttempts
	if attempts == 0 {
		attempts = 3
	}
	return &ModeConfig{
		SystemPrompt: systemPromptFunc(customPrompt, defaultPrompt),
		FewShot:      fewShotMessages(mode.FewShot),
		Backend: NewClient(
			inkwell.ResolveBaseURL(cfg),
			inkwell.ResolveAPIKey(cfg),
			inkwell.ResolveModel(cfg, mode),
			cfg.API.APIType,
		),
		Params:      mode.Params,
		MaxAttempts: attempts,
	}
}

// loadCustomPrompt loads a custom prompt template.
// Returns empty string if no custom prompt exists.
func loadCustomPrompt(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	slog.Info("loaded custom prompt", "path", path)
	return string(data)
}

// fewShotMessages converts configured few-shot entries to messages,
// preserving their order. A missing role defaults to "user".
func fewShotMessages(fs []inkwell.FewShotMessage) []Message {
	msgs := make([]Message, 0, len(fs))
	for _, m := range fs {
		role := m.Role
		if role == "" {
			role = RoleUser
		}
		msgs = append(msgs, Message{Role: role, Name: m.Name, Content: m.Content})
	}
	return msgs
}

// promptData is the data passed to the system prompt templates.
type promptData struct {
	Purpose string
	Context string
}

// systemPromptFunc returns a generator that renders the system prompt
// from the given template source, falling back to the embedded default
// when the custom template is absent or broken.
func systemPromptFunc(tmplSrc, fallback string) func(purpose, contextString string) string {
	return func(purpose, contextString string) string {
		src := tmplSrc
		if src == "" {
			src = fallback
		}

		data := promptData{Purpose: purpose, Context: contextString}

		t, err := template.New("prompt").Parse(src)
		if err != nil {
			slog.Warn("failed to parse prompt template, falling back to default", "error", err)
			t, _ = template.New("prompt").Parse(fallback)
		}

		var buf strings.Builder
		if err := t.Execute(&buf, data); err != nil {
			slog.Warn("failed to execute prompt template, falling back to default", "error", err)
			t, _ = template.New("prompt").Parse(fallback)
			buf.Reset()
			t.Execute(&buf, data)
		}

		return strings.TrimRight(buf.String(), " \t\n")
	}
}

// Close releases resources held by the engine.
func (e *Engine) Close() {
	if e.gatherer != nil {
		e.gatherer.Close()
	}
	if e.workspace != nil {
		e.workspace.Close()
	}
}

// WarmContext pre-populates the workspace context cache for the given document.
func (e *Engine) WarmContext(_ context.Context, docPath string) {
	e.workspace.Gather(docPath)
}

// LoadIndexCache loads a previously saved embedding index.
func (e *Engine) LoadIndexCache(path string) error {
	return e.gatherer.LoadIndexCache(path)
}

// SaveIndexCache writes the embedding index to disk.
func (e *Engine) SaveIndexCache(path string) error {
	return e.gatherer.SaveIndexCache(path)
}

// SuggestResult carries a response plus the intermediate prompt state,
// for verbose clients like the repl.
type SuggestResult struct {
	Response *inkwell.Response
	Context  string    // assembled ambient context string
	Messages []Message // conversation sent to the backend
}

// Suggest processes a suggestion request and returns a response.
func (e *Engine) Suggest(ctx context.Context, req *inkwell.Request) *inkwell.Response {
	return e.SuggestVerbose(ctx, req).Response
}

// SuggestVerbose processes a suggestion request and additionally returns
// the assembled context string and the conversation sent to the backend.
func (e *Engine) SuggestVerbose(ctx context.Context, req *inkwell.Request) *SuggestResult {
	result := &SuggestResult{Response: &inkwell.Response{}}
	resp := result.Response

	// Check if API key is configured
	if e.insertion == nil || e.editing == nil {
		resp.Error = &inkwell.Error{
			Code:    "not_configured",
			Message: "completion API key not configured; set INKWELL_API_KEY or edit " + inkwell.ConfigPath(),
		}
		return result
	}

	if strings.TrimSpace(req.Prompt) == "" {
		resp.Error = &inkwell.Error{
			Code:    "invalid_request",
			Message: "prompt is required",
		}
		return result
	}

	// The selection decides the path: empty means insert at the cursor,
	// anything else means rewrite the selection.
	st := State{
		TextBefore: req.TextBefore,
		TextAfter:  req.TextAfter,
		Selection:  req.Selection,
	}
	mode := e.insertion
	resp.Mode = inkwell.ModeInsertion
	if st.Selection != "" {
		mode = e.editing
		resp.Mode = inkwell.ModeEditing
	}

	result.Context = e.buildContextString(ctx, req)

	slog.Debug("context gathered", "mode", resp.Mode, "context", result.Context)

	// Check for cancellation before expensive inference
	if ctx.Err() != nil {
		resp.Error = &inkwell.Error{Code: "cancelled", Message: ctx.Err().Error()}
		return result
	}

	systemPrompt := mode.SystemPrompt(e.config.Purpose, result.Context)

	if resp.Mode == inkwell.ModeInsertion {
		result.Messages = InsertionMessages(systemPrompt, mode.FewShot, st, req.Prompt)
	} else {
		result.Messages = EditingMessages(systemPrompt, mode.FewShot, st, req.Prompt)
	}

	output, err := invoke(ctx, mode, result.Messages)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			resp.Error = &inkwell.Error{Code: "cancelled", Message: err.Error()}
			return result
		}
		slog.Error("suggestion error", "error", err)
		resp.Error = &inkwell.Error{Code: "api_error", Message: err.Error()}
		return result
	}

	resp.Suggestion = output
	return result
}

// buildContextString assembles the ambient context: category files,
// relevant journal snippets, and workspace context for the document.
func (e *Engine) buildContextString(ctx context.Context, req *inkwell.Request) string {
	query := strings.TrimSpace(req.Prompt + " " + req.Selection)

	var sections []string
	if s := e.gatherer.ContextString(ctx, req.Categories, query); s != "" {
		sections = append(sections, s)
	}

	if req.DocPath != "" {
		if ws := e.workspace.Get(req.DocPath); ws != nil {
			var sb strings.Builder
			sb.WriteString("## workspace\n")
			if ws.Listing != "" {
				sb.WriteString("files: ")
				sb.WriteString(ws.Listing)
				sb.WriteString("\n")
			}
			// Manifest order is fixed so identical requests build
			// identical context strings.
			for _, name := range manifestFiles {
				content, ok := ws.Manifests[name]
				if !ok {
					continue
				}
				sb.WriteString(name)
				sb.WriteString(": ")
				sb.WriteString(content)
				sb.WriteString("\n")
			}
			sections = append(sections, strings.TrimSuffix(sb.String(), "\n"))
		}
	}

	return strings.Join(sections, "\n\n")
}
