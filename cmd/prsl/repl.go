package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/pkg/errors"

	"github.com/you-not-fish/prsl/internal/driver"
)

const (
	historyFile = ".prsl_history"
	promptMain  = "prsl> "
	promptCont  = "  ... "
)

// runREPL reads entries until EOF or :quit. Globals and functions persist
// from one entry to the next.
func runREPL(cfg driver.Config) int {
	cfg.Filename = "<repl>"
	s, err := driver.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitUsage
	}
	defer s.Close()

	fmt.Printf("PRSL %s. Type :quit to exit.\n", Version)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := ""
	if home, err := os.UserHomeDir(); err == nil {
		histPath = filepath.Join(home, historyFile)
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
	}
	defer func() {
		if histPath == "" {
			return
		}
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	for {
		src, ok := readEntry(ln)
		if !ok {
			fmt.Println()
			return exitOK
		}
		entry := strings.TrimSpace(src)
		if entry == "" {
			continue
		}
		if strings.HasPrefix(entry, ":") {
			if entry == ":quit" {
				return exitOK
			}
			fmt.Println("unknown command. Type :quit to exit.")
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(entry, "\n", " "))
		evalEntry(s, completeEntry(entry))
	}
}

// evalEntry runs one entry. Ctrl-C stops a running entry but not the
// session.
func evalEntry(s *driver.Session, src string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := s.EvalLine(ctx, src); err != nil && errors.Cause(err) == context.Canceled {
		fmt.Fprintln(os.Stderr, "interrupted")
	}
}

// completeEntry adds the semicolon an entry typed at the prompt usually
// lacks. After a block it only adds an empty statement.
func completeEntry(entry string) string {
	if strings.HasSuffix(entry, ";") {
		return entry
	}
	return entry + ";"
}

// readEntry reads one entry, continuing over lines while braces or
// parentheses are open. ok is false at EOF.
func readEntry(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			// Ctrl-C drops the pending entry.
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		if !driver.IsIncomplete(b.String()) {
			return b.String(), true
		}
	}
}
