package main

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
)

// Staged capture: the editor integration (or `snippetshare -capture`)
// writes the current selection here, and the new-snippet form picks it up
// verbatim. Only the latest capture is kept.

type stagedCapture struct {
	Version  int    `json:"version"`
	StagedAt string `json:"stagedAt"`
	Source   string `json:"source"` // stdin|clipboard|bus
	Code     string `json:"code"`
}

func capturePath(stateDir string) string {
	return filepath.Join(stateDir, "capture", "selection.json")
}

func stageCapture(stateDir string, source string, code string) error {
	if strings.TrimSpace(code) == "" {
		return errors.New("nothing to capture: selection is empty")
	}
	p := capturePath(stateDir)
	_ = os.MkdirAll(filepath.Dir(p), 0o755)
	b, err := json.MarshalIndent(stagedCapture{
		Version:  1,
		StagedAt: time.Now().UTC().Format(time.RFC3339),
		Source:   source,
		Code:     code,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, append(b, '\n'), 0o644)
}

func readStagedCapture(stateDir string) (stagedCapture, bool) {
	raw, err := os.ReadFile(capturePath(stateDir))
	if err != nil {
		return stagedCapture{}, false
	}
	var c stagedCapture
	if err := json.Unmarshal(raw, &c); err != nil {
		return stagedCapture{}, false
	}
	if c.Version != 1 || strings.TrimSpace(c.Code) == "" {
		return stagedCapture{}, false
	}
	return c, true
}

func clearStagedCapture(stateDir string) {
	_ = os.Remove(capturePath(stateDir))
}

// runCapture implements the -capture one-shot mode: stage the piped
// selection (or the clipboard contents) and exit.
func runCapture(stateDir string, fromClipboard bool) error {
	if fromClipboard {
		text, err := clipboard.ReadAll()
		if err != nil {
			return err
		}
		return stageCapture(stateDir, "clipboard", text)
	}
	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		return err
	}
	return stageCapture(stateDir, "stdin", string(raw))
}
