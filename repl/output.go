package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	inkwell "github.com/inkfall/inkwell"
	"github.com/inkfall/inkwell/suggest"
	"golang.org/x/term"
)

// termWriter wraps a file and converts \n to \r\n when the file is a terminal
// (needed because raw mode disables the kernel's NL→CRNL translation).
// When the file is redirected, \n passes through unchanged.
func termWriter(f *os.File) io.Writer {
	if term.IsTerminal(int(f.Fd())) {
		return &crlfWriter{w: f}
	}
	return f
}

type crlfWriter struct {
	w io.Writer
}

func (c *crlfWriter) Write(p []byte) (int, error) {
	replaced := bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))
	_, err := c.w.Write(replaced)
	return len(p), err // report original length to caller
}

// writeEntry writes a single TOML-formatted entry to w.
func writeEntry(w io.Writer, req *inkwell.Request, result *suggest.SuggestResult) {
	fmt.Fprintf(w, "# %s\n\n", strings.Repeat("═", 60))

	fmt.Fprintln(w, "[request]")
	fmt.Fprintf(w, "timestamp = %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(w, "text_before = %s\n", tomlQuote(req.TextBefore))
	if req.Selection != "" {
		fmt.Fprintf(w, "selection = %s\n", tomlQuote(req.Selection))
	}
	fmt.Fprintf(w, "text_after = %s\n", tomlQuote(req.TextAfter))
	fmt.Fprintf(w, "prompt = %s\n", tomlQuote(req.Prompt))
	fmt.Fprintf(w, "doc_path = %s\n", tomlQuote(req.DocPath))
	fmt.Fprintln(w)

	if result.Context != "" {
		fmt.Fprintln(w, "[context]")
		fmt.Fprintf(w, "gathered = %s\n", tomlQuote(result.Context))
		fmt.Fprintln(w)
	}

	for _, m := range result.Messages {
		fmt.Fprintln(w, "[[messages]]")
		fmt.Fprintf(w, "role = %s\n", tomlQuote(m.Role))
		if m.Name != "" {
			fmt.Fprintf(w, "name = %s\n", tomlQuote(m.Name))
		}
		fmt.Fprintf(w, "content = %s\n", tomlQuote(m.Content))
		fmt.Fprintln(w)
	}

	writeResponse(w, result.Response)
}

func writeResponse(w io.Writer, resp *inkwell.Response) {
	if resp.Error != nil {
		fmt.Fprintln(w, "[error]")
		fmt.Fprintf(w, "code = %s\n", tomlQuote(resp.Error.Code))
		fmt.Fprintf(w, "message = %s\n", tomlQuote(resp.Error.Message))
		fmt.Fprintln(w)
		return
	}

	fmt.Fprintln(w, "[response]")
	fmt.Fprintf(w, "mode = %s\n", tomlQuote(resp.Mode))
	fmt.Fprintf(w, "suggestion = %s\n", tomlQuote(resp.Suggestion))
	fmt.Fprintln(w)
}

// tomlQuote returns a TOML basic-string quoted value.
func tomlQuote(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return "\"" + s + "\""
}
