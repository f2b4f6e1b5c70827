package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"

	"github.com/focustense/StardewUI-sub002/packages/starml/src/assets"
	"github.com/focustense/StardewUI-sub002/packages/starml/src/config"
	"github.com/focustense/StardewUI-sub002/packages/starml/src/dom"
	"github.com/focustense/StardewUI-sub002/packages/starml/src/engine"
	"github.com/focustense/StardewUI-sub002/packages/starml/src/util"
)

var (
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	okStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	nameStyle    = lipgloss.NewStyle().Underline(true)
	snippetStyle = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("8"))
)

// problem is a document that failed to parse or expand
type problem struct {
	name        string
	description string
}

// check parses and expands every document below root. A single file is checked on its own.
func check(out io.Writer, root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	if !info.IsDir() {
		_, err := loadFile(root)
		if err != nil {
			printProblem(out, problem{name: root, description: err.Error()})
			return fmt.Errorf("1 document has problems")
		}
		fmt.Fprintln(out, okStyle.Render("ok"), root)
		return nil
	}

	var opts []config.EngineConfigOption
	categories := []string{"."}
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	loaderOpts := []assets.LoaderOption{assets.WithLoaderLogger(quiet)}
	project, err := config.FindProjectConfig(root)
	if err != nil {
		return err
	}
	if project != nil {
		root = project.RootDir()
		opts = project.EngineOptions()
		loaderOpts = append(loaderOpts, assets.WithFilter(project.Matches))
		if len(project.Categories) > 0 {
			categories = project.Categories
		}
	}
	warnings := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: slog.LevelWarn}))
	cfg := config.NewEngineConfig(append(opts, config.WithLogger(warnings))...)
	e := engine.New(os.DirFS(root), nil, cfg, loaderOpts...)
	if err := e.Preload(context.Background(), categories...); err != nil {
		return err
	}

	var problems []problem
	failures := e.Loader().Failures()
	for _, failure := range failures {
		problems = append(problems, problem{name: failure.Name, description: failure.Description})
	}
	names := e.Loader().Cache().Names()
	for _, name := range names {
		if _, err := e.Expand(name); err != nil {
			problems = append(problems, problem{
				name:        name,
				description: util.DescribeError(name+cfg.Extension, err),
			})
		}
	}

	for _, p := range problems {
		printProblem(out, p)
	}
	total := len(names) + len(failures)
	if len(problems) > 0 {
		return fmt.Errorf("%d of %d documents have problems", len(problems), total)
	}
	fmt.Fprintln(out, okStyle.Render("ok"), fmt.Sprintf("%d documents", total))
	return nil
}

func printProblem(out io.Writer, p problem) {
	fmt.Fprintln(out, errorStyle.Render("error"), nameStyle.Render(p.name))
	fmt.Fprintln(out, snippetStyle.Render(p.description))
}

// loadFile parses the document at path, rendering parse errors as diagnostics
func loadFile(path string) (*dom.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	name := filepath.Base(path)
	doc, err := dom.ParseDocumentFile(util.NewParseSourceFile(string(content), name))
	if err != nil {
		return nil, fmt.Errorf("%s", util.DescribeError(name, err))
	}
	if _, err := dom.ExpandTemplates(doc, nil); err != nil {
		return nil, fmt.Errorf("%s", util.DescribeError(name, err))
	}
	return doc, nil
}

func format(out io.Writer, path string, write bool) error {
	doc, err := loadFile(path)
	if err != nil {
		return err
	}
	text := dom.PrintDocument(doc)
	if !write {
		_, err := fmt.Fprintln(out, text)
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(text+"\n"), info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	fmt.Fprintln(out, okStyle.Render("formatted"), path)
	return nil
}

func expand(out io.Writer, path string) error {
	doc, err := loadFile(path)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	root, err := dom.ExpandTemplates(doc, util.NewOnceLogger(logger))
	if err != nil {
		return err
	}
	if len(doc.Templates) > 0 {
		fmt.Fprintln(os.Stderr, warningStyle.Render(fmt.Sprintf("%d templates expanded", len(doc.Templates))))
	}
	_, err = fmt.Fprintln(out, dom.Print(root))
	return err
}
