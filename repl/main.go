// Command inkwell-repl is an interactive test REPL for inkwell suggestions.
// It uses raw terminal input with an emacs-style mark so a region of the
// line can be selected, and writes structured TOML results to stdout.
//
// Usage:
//
//	./inkwell-repl             # interactive, TOML on screen
//	./inkwell-repl > log.toml  # prompt on screen, TOML to file
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	inkwell "github.com/inkfall/inkwell"
	"github.com/inkfall/inkwell/suggest"
)

const (
	textPrompt        = "text> "
	instructionPrompt = "ask>  "
)

func main() {
	editor, err := NewEditor()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer editor.Close()

	tty := editor.Tty()

	docPath := ""
	if cwd, err := os.Getwd(); err == nil {
		docPath = filepath.Join(cwd, "repl.md")
	}

	// Embedding cache next to the document in .cache/
	cacheDir := filepath.Join(filepath.Dir(docPath), ".cache")
	os.MkdirAll(cacheDir, 0755)
	cachePath := filepath.Join(cacheDir, "embeddings.json")

	fmt.Fprintf(tty, "\033[2J\033[H") // clear screen
	fmt.Fprintf(tty, "inkwell repl\r\n")
	fmt.Fprintf(tty, "doc: %s\r\n", docPath)
	fmt.Fprintf(tty, "\r\ncommands:\r\n")
	fmt.Fprintf(tty, "  ctrl-space   set/clear the mark; text between mark and cursor is the selection\r\n")
	fmt.Fprintf(tty, "  :doc <path>  set the document path used for workspace context\r\n")
	fmt.Fprintf(tty, "  :quit        exit\r\n\r\n")

	engine := suggest.NewEngine()
	defer engine.Close()

	// Load previous embedding cache before the refresh loop gets far.
	if err := engine.LoadIndexCache(cachePath); err != nil {
		slog.Debug("no embedding cache loaded", "error", err)
	}
	defer func() {
		if err := engine.SaveIndexCache(cachePath); err != nil {
			slog.Warn("failed to save embedding cache", "error", err)
		}
	}()

	engine.WarmContext(context.Background(), docPath)

	// stdout writer: converts \n → \r\n when stdout is a terminal (raw mode),
	// passes \n through unchanged when redirected to a file.
	out := termWriter(os.Stdout)

	reqID := 0

	for {
		text, selStart, selEnd, err := editor.ReadLine(textPrompt)
		if err == io.EOF || err == ErrInterrupt {
			break
		}
		if err != nil {
			fmt.Fprintf(tty, "read error: %v\r\n", err)
			break
		}

		if text == "" {
			continue
		}

		if text == ":quit" || text == ":q" {
			break
		}

		if strings.HasPrefix(text, ":doc ") {
			newPath := strings.TrimSpace(strings.TrimPrefix(text, ":doc "))
			if newPath == "" {
				fmt.Fprintf(tty, "error: path required\r\n")
				continue
			}
			docPath = newPath
			engine.WarmContext(context.Background(), docPath)
			fmt.Fprintf(tty, "doc: %s\r\n\r\n", docPath)
			continue
		}

		instruction, _, _, err := editor.ReadLine(instructionPrompt)
		if err == io.EOF || err == ErrInterrupt {
			break
		}
		if err != nil {
			fmt.Fprintf(tty, "read error: %v\r\n", err)
			break
		}

		reqID++
		req := &inkwell.Request{
			RequestID:  reqID,
			TextBefore: text[:selStart],
			Selection:  text[selStart:selEnd],
			TextAfter:  text[selEnd:],
			Prompt:     instruction,
			DocPath:    docPath,
			SessionID:  "repl",
		}

		result := engine.SuggestVerbose(context.Background(), req)
		resp := result.Response

		// Show brief summary on tty.
		if resp.Error != nil {
			fmt.Fprintf(tty, "error [%s]: %s\r\n", resp.Error.Code, resp.Error.Message)
		} else {
			fmt.Fprintf(tty, "  [%s] %s\r\n", resp.Mode, resp.Suggestion)
		}
		fmt.Fprintf(tty, "\r\n")

		// TOML output to stdout (crlfWriter handles raw mode).
		writeEntry(out, req, result)
	}
}
